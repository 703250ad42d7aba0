package bootstrap

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/GoCodeAlone/bootstrap/lifecycle"
)

// processBootstrapped guards Bootstrap. It stays set after a failed run.
var processBootstrapped atomic.Bool

// Bootstrap runs a Bootstrapper for startup and returns its handle. It may be
// called once per process; later calls return ErrAlreadyBootstrapped.
func Bootstrap(ctx context.Context, startup string, opts ...Option) (*Handle, error) {
	if !processBootstrapped.CompareAndSwap(false, true) {
		return nil, ErrAlreadyBootstrapped
	}
	b, err := New(startup, opts...)
	if err != nil {
		return nil, err
	}
	return b.Initialize(ctx)
}

// Bootstrapper discovers, creates, orders and starts the modules of one run.
// All collaborators are passed in through options.
type Bootstrapper struct {
	startup      string
	logger       Logger
	catalog      *Catalog
	pending      []Definition
	sources      PlugInSourceList
	instantiator Instantiator
	observers    []Observer
	kernelCfg    KernelConfig
	rollback     bool

	initialized atomic.Bool
}

// New creates a bootstrapper for the given startup module.
func New(startup string, opts ...Option) (*Bootstrapper, error) {
	if startup == "" {
		return nil, ErrStartupModuleEmpty
	}
	if startup == KernelModuleName {
		return nil, fmt.Errorf("%w: the startup module cannot be the kernel", ErrDuplicateRoleAssignment)
	}

	b := &Bootstrapper{
		startup:   startup,
		logger:    nopLogger{},
		kernelCfg: KernelConfig{BackgroundJobs: true},
		rollback:  true,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	if b.catalog == nil {
		b.catalog = NewCatalog()
	}
	for _, def := range b.pending {
		if err := b.catalog.Register(def); err != nil {
			return nil, err
		}
	}
	b.pending = nil
	if b.instantiator == nil {
		b.instantiator = b.catalog
	}
	return b, nil
}

// Catalog returns the catalog the bootstrapper resolves definitions from.
func (b *Bootstrapper) Catalog() *Catalog {
	return b.catalog
}

// Initialize runs discovery, creation, ordering and the forward phases. It may
// be called once per bootstrapper; later calls return ErrAlreadyBootstrapped.
//
// When a phase fails the modules that were pre-initialized are shut down again
// in reverse order and a nil handle is returned. With WithRollback(false) the
// handle is returned alongside the error and shutting it down is left to the
// caller.
func (b *Bootstrapper) Initialize(ctx context.Context) (*Handle, error) {
	if !b.initialized.CompareAndSwap(false, true) {
		return nil, ErrAlreadyBootstrapped
	}

	subject := newEventSubject(b.logger)
	for _, o := range b.observers {
		_ = subject.RegisterObserver(o)
	}

	b.logger.Info("Bootstrapping", "startup", b.startup)
	subject.emit(ctx, lifecycle.EventTypeBootstrapStarted, lifecycle.RunData{StartupModule: b.startup})

	h, err := b.run(ctx, subject)
	if err != nil {
		b.logger.Error("Bootstrap failed", "startup", b.startup, "error", err)
		subject.emit(ctx, lifecycle.EventTypeBootstrapFailed, lifecycle.RunData{StartupModule: b.startup, Error: err.Error()})
		return h, err
	}

	b.logger.Info("Bootstrap completed", "startup", b.startup, "modules", len(h.order))
	subject.emit(ctx, lifecycle.EventTypeBootstrapCompleted, lifecycle.RunData{StartupModule: b.startup, Order: h.Order()})
	return h, nil
}

func (b *Bootstrapper) run(ctx context.Context, subject *eventSubject) (*Handle, error) {
	order, discovery, err := b.prepare(ctx, subject)
	if err != nil {
		return nil, err
	}

	orch := newOrchestrator(order, b.logger, subject)
	h := &Handle{startup: b.startup, order: order, discovery: discovery, orch: orch}

	if err := orch.Start(ctx); err != nil {
		if !b.rollback {
			return h, err
		}
		b.logger.Warn("Rolling back started modules", "error", err)
		if rbErr := orch.Shutdown(ctx); rbErr != nil {
			err = multierr.Append(err, rbErr)
		}
		return nil, err
	}
	return h, nil
}

// Plan resolves the execution order without running any phase. Every factory
// runs because runtime dependencies take part in ordering, and the instances
// are discarded. Plan is rejected with ErrAlreadyBootstrapped once Initialize
// has been called, so it never builds a second set of modules beside a run.
func (b *Bootstrapper) Plan(ctx context.Context) ([]*ModuleDescriptor, error) {
	if b.initialized.Load() {
		return nil, ErrAlreadyBootstrapped
	}
	order, _, err := b.prepare(ctx, newEventSubject(b.logger))
	return order, err
}

func (b *Bootstrapper) prepare(ctx context.Context, subject *eventSubject) ([]*ModuleDescriptor, *Discovery, error) {
	if err := b.registerPlugInAssemblies(); err != nil {
		return nil, nil, err
	}

	discovery, err := NewDiscoverer(b.catalog, b.sources, b.logger).Discover(b.startup)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range discovery.Modules {
		subject.emit(ctx, lifecycle.EventTypeModuleDiscovered, lifecycle.ModuleData{Module: name, PlugIn: discovery.IsPlugIn(name)})
	}

	collection, err := b.createModules(ctx, discovery, subject)
	if err != nil {
		return nil, nil, err
	}

	order, err := NewOrderer(b.logger).Order(collection)
	if err != nil {
		return nil, nil, err
	}
	return order, discovery, nil
}

func (b *Bootstrapper) registerPlugInAssemblies() error {
	asms, err := b.sources.AllAssemblies()
	if err != nil {
		return err
	}
	for _, asm := range asms {
		if err := b.catalog.RegisterAssembly(asm); err != nil {
			return err
		}
		b.logger.Debug("Registered plug-in assembly", "assembly", asm.Name, "modules", asm.ModuleNames())
	}
	return nil
}

// createModules instantiates the kernel and every discovered module.
func (b *Bootstrapper) createModules(ctx context.Context, discovery *Discovery, subject *eventSubject) (*ModuleCollection, error) {
	c := NewModuleCollection(b.startup)
	c.Add(&ModuleDescriptor{Name: KernelModuleName, Instance: newKernelModule(b.kernelCfg)})

	for _, name := range discovery.Modules {
		if name == KernelModuleName {
			continue
		}
		m, err := b.instantiate(name)
		if err != nil {
			return nil, err
		}
		def, _ := b.catalog.Definition(name)
		d := &ModuleDescriptor{Name: name, Instance: m, Definition: def, IsPlugIn: discovery.IsPlugIn(name)}
		c.Add(d)

		b.logger.Debug("Module created", "module", name, "plugin", d.IsPlugIn, "type", fmt.Sprintf("%T", m))
		subject.emit(ctx, lifecycle.EventTypeModuleCreated, lifecycle.ModuleData{Module: name, PlugIn: d.IsPlugIn})
	}

	if _, err := c.Kernel(); err != nil {
		return nil, err
	}
	if _, err := c.Startup(); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *Bootstrapper) instantiate(name string) (Module, error) {
	inst, err := b.instantiator.Instantiate(name)
	if err != nil {
		return nil, err
	}
	m, ok := inst.(Module)
	if !ok {
		return nil, fmt.Errorf("%w: %q produced %T", ErrNotAModule, name, inst)
	}
	if m.Name() != name {
		return nil, fmt.Errorf("%w: %q produced a module named %q", ErrNotAModule, name, m.Name())
	}
	return m, nil
}

// Handle is a bootstrapped run.
type Handle struct {
	startup   string
	order     []*ModuleDescriptor
	discovery *Discovery
	orch      *Orchestrator
}

// Modules returns the descriptors in execution order.
func (h *Handle) Modules() []*ModuleDescriptor {
	return slices.Clone(h.order)
}

// Order returns the module names in execution order.
func (h *Handle) Order() []string {
	return names(h.order)
}

// Module returns the instance registered under name.
func (h *Handle) Module(name string) (Module, bool) {
	return h.orch.Runtime().Module(name)
}

// StartupModule returns the startup module instance.
func (h *Handle) StartupModule() Module {
	return h.order[len(h.order)-1].Instance
}

// Kernel returns the kernel module.
func (h *Handle) Kernel() *KernelModule {
	return h.orch.Runtime().Kernel()
}

// PlugIns returns the names of the modules contributed by plug-in sources.
func (h *Handle) PlugIns() []string {
	return h.discovery.PlugIns()
}

// Assemblies returns every assembly backing the run's modules, including the
// ones modules surface through AssemblyProvider.
func (h *Handle) Assemblies() []*Assembly {
	return h.orch.Runtime().Assemblies()
}

// State returns the lifecycle state of the run.
func (h *Handle) State() lifecycle.State {
	return h.orch.State()
}

// Shutdown shuts the modules down in reverse order. Calls after the first are
// no-ops.
func (h *Handle) Shutdown(ctx context.Context) error {
	return h.orch.Shutdown(ctx)
}
