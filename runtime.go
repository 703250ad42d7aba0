package bootstrap

import "slices"

// Runtime is what a module sees of the run it takes part in. It is passed to
// every forward phase callback.
type Runtime interface {
	// Logger returns the run's logger.
	Logger() Logger

	// Modules returns the descriptors in execution order.
	Modules() []*ModuleDescriptor

	// Module returns the instance registered under name.
	Module(name string) (Module, bool)

	// Kernel returns the run's kernel module.
	Kernel() *KernelModule

	// Assemblies returns the assemblies backing the run's modules.
	Assemblies() []*Assembly

	// Subject returns the run's event subject.
	Subject() Subject
}

type moduleRuntime struct {
	logger  Logger
	order   []*ModuleDescriptor
	byName  map[string]*ModuleDescriptor
	kernel  *KernelModule
	subject Subject
}

func newModuleRuntime(logger Logger, order []*ModuleDescriptor, subject Subject) *moduleRuntime {
	rt := &moduleRuntime{
		logger:  logger,
		order:   order,
		byName:  make(map[string]*ModuleDescriptor, len(order)),
		subject: subject,
	}
	for _, d := range order {
		rt.byName[d.Name] = d
		if k, ok := d.Instance.(*KernelModule); ok {
			rt.kernel = k
		}
	}
	return rt
}

// scoped returns a view of the runtime whose logger is tagged with module.
func (r *moduleRuntime) scoped(module string) *moduleRuntime {
	c := *r
	c.logger = newModuleLogger(r.logger, module)
	return &c
}

func (r *moduleRuntime) Logger() Logger {
	return r.logger
}

func (r *moduleRuntime) Modules() []*ModuleDescriptor {
	return slices.Clone(r.order)
}

func (r *moduleRuntime) Module(name string) (Module, bool) {
	d, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return d.Instance, true
}

func (r *moduleRuntime) Kernel() *KernelModule {
	return r.kernel
}

func (r *moduleRuntime) Assemblies() []*Assembly {
	return findAssemblies(r.order)
}

func (r *moduleRuntime) Subject() Subject {
	return r.subject
}
