package bootstrap

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/GoCodeAlone/bootstrap/lifecycle"
)

// Orchestrator drives an ordered module list through the lifecycle phases.
//
// Each forward phase runs on every module before the next phase starts, so a
// module's Initialize can rely on every PreInitialize having completed.
// Shutdown runs in reverse order.
type Orchestrator struct {
	order   []*ModuleDescriptor
	rt      *moduleRuntime
	logger  Logger
	subject *eventSubject

	mu             sync.Mutex
	state          lifecycle.State
	started        bool
	shutdown       bool
	preInitialized map[*ModuleDescriptor]bool
}

// NewOrchestrator creates an orchestrator over modules in execution order.
func NewOrchestrator(order []*ModuleDescriptor, logger Logger, observers ...Observer) *Orchestrator {
	if logger == nil {
		logger = nopLogger{}
	}
	subject := newEventSubject(logger)
	for _, o := range observers {
		_ = subject.RegisterObserver(o)
	}
	return newOrchestrator(order, logger, subject)
}

func newOrchestrator(order []*ModuleDescriptor, logger Logger, subject *eventSubject) *Orchestrator {
	return &Orchestrator{
		order:          order,
		rt:             newModuleRuntime(logger, order, subject),
		logger:         logger,
		subject:        subject,
		preInitialized: make(map[*ModuleDescriptor]bool, len(order)),
	}
}

// Runtime returns the runtime passed to module callbacks.
func (o *Orchestrator) Runtime() Runtime {
	return o.rt
}

// State returns the current state of the run.
func (o *Orchestrator) State() lifecycle.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s lifecycle.State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Start runs PreInitialize, Initialize and PostInitialize. The first failing
// callback aborts the run and is returned as a *PhaseError; later modules do
// not run that phase.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started || o.shutdown {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()

	for _, phase := range lifecycle.ForwardPhases {
		if err := o.runPhase(ctx, phase); err != nil {
			return err
		}
		o.setState(lifecycle.After(phase))
	}
	return nil
}

func (o *Orchestrator) runPhase(ctx context.Context, phase lifecycle.Phase) error {
	o.logger.Debug("Running phase", "phase", phase, "modules", len(o.order))
	o.subject.emit(ctx, lifecycle.EventTypePhaseStarted, lifecycle.PhaseData{Phase: phase.String(), Modules: len(o.order)})

	for _, d := range o.order {
		start := time.Now()
		err := o.invoke(ctx, d, phase)
		data := lifecycle.ModulePhaseData{
			Module:     d.Name,
			Phase:      phase.String(),
			PlugIn:     d.IsPlugIn,
			DurationMS: float64(time.Since(start).Microseconds()) / 1000,
		}
		if err != nil {
			data.Error = err.Error()
			o.logger.Error("Module phase failed", "module", d.Name, "phase", phase, "error", err)
			o.subject.emit(ctx, lifecycle.EventTypeModulePhaseFailed, data)
			return &PhaseError{Module: d.Name, Phase: phase, Err: err}
		}
		if phase == lifecycle.PhasePreInitialize {
			o.mu.Lock()
			o.preInitialized[d] = true
			o.mu.Unlock()
		}
		o.subject.emit(ctx, lifecycle.EventTypeModulePhaseCompleted, data)
	}

	o.logger.Info("Phase completed", "phase", phase, "modules", len(o.order))
	o.subject.emit(ctx, lifecycle.EventTypePhaseCompleted, lifecycle.PhaseData{Phase: phase.String(), Modules: len(o.order)})
	return nil
}

// invoke calls the module's callback for phase, turning a panic into an error.
// A module without the callback succeeds trivially.
func (o *Orchestrator) invoke(ctx context.Context, d *ModuleDescriptor, phase lifecycle.Phase) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	rt := o.rt.scoped(d.Name)
	switch phase {
	case lifecycle.PhasePreInitialize:
		if m, ok := d.Instance.(PreInitializer); ok {
			return m.PreInitialize(rt)
		}
	case lifecycle.PhaseInitialize:
		if m, ok := d.Instance.(Initializer); ok {
			return m.Initialize(rt)
		}
	case lifecycle.PhasePostInitialize:
		if m, ok := d.Instance.(PostInitializer); ok {
			return m.PostInitialize(rt)
		}
	case lifecycle.PhaseShutdown:
		if m, ok := d.Instance.(Shutdowner); ok {
			return m.Shutdown(ctx)
		}
	}
	return nil
}

// Shutdown calls Shutdown in reverse order on every module whose
// PreInitialize completed. A failing module does not stop the others; all
// failures are returned together. Calls after the first are no-ops.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.shutdown {
		o.mu.Unlock()
		o.logger.Debug("Shutdown already performed")
		return nil
	}
	o.shutdown = true
	o.mu.Unlock()

	o.logger.Info("Shutting down modules")
	o.subject.emit(ctx, lifecycle.EventTypeShutdownStarted, lifecycle.PhaseData{Phase: lifecycle.PhaseShutdown.String(), Modules: len(o.order)})

	var errs error
	for _, d := range slices.Backward(o.order) {
		o.mu.Lock()
		ok := o.preInitialized[d]
		o.mu.Unlock()
		if !ok {
			continue
		}

		start := time.Now()
		err := o.invoke(ctx, d, lifecycle.PhaseShutdown)
		data := lifecycle.ModulePhaseData{
			Module:     d.Name,
			Phase:      lifecycle.PhaseShutdown.String(),
			PlugIn:     d.IsPlugIn,
			DurationMS: float64(time.Since(start).Microseconds()) / 1000,
		}
		if err != nil {
			data.Error = err.Error()
			o.logger.Error("Error shutting down module", "module", d.Name, "error", err)
			o.subject.emit(ctx, lifecycle.EventTypeModulePhaseFailed, data)
			errs = multierr.Append(errs, &PhaseError{Module: d.Name, Phase: lifecycle.PhaseShutdown, Err: err})
			continue
		}
		o.subject.emit(ctx, lifecycle.EventTypeModulePhaseCompleted, data)
	}

	o.setState(lifecycle.StateShutDown)
	o.subject.emit(ctx, lifecycle.EventTypeShutdownCompleted, lifecycle.PhaseData{Phase: lifecycle.PhaseShutdown.String(), Modules: len(o.order)})
	return errs
}
