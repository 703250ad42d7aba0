package bootstrap

import (
	"context"
	"errors"
	"sync"

	"github.com/GoCodeAlone/bootstrap/lifecycle"
)

var (
	errBoom     = errors.New("boom")
	errShutdown = errors.New("shutdown failed")
)

// recorder collects "module.Phase" entries in call order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(module string, phase lifecycle.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, module+"."+phase.String())
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Filter returns the modules that ran phase, in order.
func (r *recorder) Filter(phase lifecycle.Phase) []string {
	var out []string
	suffix := "." + phase.String()
	for _, c := range r.Calls() {
		if len(c) > len(suffix) && c[len(c)-len(suffix):] == suffix {
			out = append(out, c[:len(c)-len(suffix)])
		}
	}
	return out
}

// testModule implements every phase and records the calls.
type testModule struct {
	name    string
	rec     *recorder
	failOn  map[lifecycle.Phase]error
	panicOn lifecycle.Phase
	runtime Runtime
}

func (m *testModule) Name() string { return m.name }

func (m *testModule) run(phase lifecycle.Phase) error {
	if m.rec != nil {
		m.rec.record(m.name, phase)
	}
	if m.panicOn == phase {
		panic("module " + m.name + " panicked")
	}
	return m.failOn[phase]
}

func (m *testModule) PreInitialize(rt Runtime) error {
	m.runtime = rt
	return m.run(lifecycle.PhasePreInitialize)
}

func (m *testModule) Initialize(Runtime) error {
	return m.run(lifecycle.PhaseInitialize)
}

func (m *testModule) PostInitialize(Runtime) error {
	return m.run(lifecycle.PhasePostInitialize)
}

func (m *testModule) Shutdown(context.Context) error {
	return m.run(lifecycle.PhaseShutdown)
}

// bareModule has no callbacks.
type bareModule struct {
	name string
}

func (m *bareModule) Name() string { return m.name }

// runtimeDepsModule declares dependencies at runtime.
type runtimeDepsModule struct {
	testModule
	deps []string
}

func (m *runtimeDepsModule) Dependencies() []string { return m.deps }

// assemblyModule surfaces an extra assembly.
type assemblyModule struct {
	testModule
	extra *Assembly
}

func (m *assemblyModule) AdditionalAssemblies() []*Assembly { return []*Assembly{m.extra} }

// def returns a definition whose factory builds a recording testModule.
func def(rec *recorder, name string, deps ...string) Definition {
	return Definition{
		Name:      name,
		DependsOn: deps,
		New: func(Settings) (any, error) {
			return &testModule{name: name, rec: rec}, nil
		},
	}
}

// failingDef returns a definition whose module fails phase with err.
func failingDef(rec *recorder, name string, phase lifecycle.Phase, err error, deps ...string) Definition {
	return Definition{
		Name:      name,
		DependsOn: deps,
		New: func(Settings) (any, error) {
			return &testModule{name: name, rec: rec, failOn: map[lifecycle.Phase]error{phase: err}}, nil
		},
	}
}

// collectionOf builds a collection with a kernel and one descriptor per
// definition, in the given order.
func collectionOf(startup string, defs ...Definition) *ModuleCollection {
	c := NewModuleCollection(startup)
	c.Add(&ModuleDescriptor{Name: KernelModuleName, Instance: newKernelModule(KernelConfig{})})
	for i := range defs {
		d := defs[i]
		inst, _ := d.New(d.Settings)
		c.Add(&ModuleDescriptor{Name: d.Name, Instance: inst.(Module), Definition: &d})
	}
	return c
}

// staticDeps is a DependencySource backed by a map.
type staticDeps map[string][]string

func (s staticDeps) DependsOn(name string) ([]string, error) {
	deps, ok := s[name]
	if !ok {
		return nil, errors.Join(ErrUnresolvedDependency, errors.New(name))
	}
	return deps, nil
}

// failingSource is a plug-in source that cannot enumerate.
type failingSource struct {
	err error
}

func (f failingSource) Assemblies() ([]*Assembly, error) { return nil, f.err }
func (f failingSource) Modules() ([]string, error)       { return nil, f.err }
