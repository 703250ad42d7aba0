// Package bootstrap discovers, orders and drives the lifecycle of the modules
// that make up a process.
//
// A run starts from a single startup module. Every module it transitively
// depends on, plus every module contributed by a registered plug-in source, is
// instantiated, ordered so that dependencies come first (the kernel module is
// always first and the startup module always last) and then taken through
// PreInitialize, Initialize and PostInitialize. Shutdown runs in the reverse
// order.
//
// Basic usage:
//
//	bs, err := bootstrap.New("app",
//		bootstrap.WithLogger(slog.Default()),
//		bootstrap.WithModules(
//			bootstrap.Definition{Name: "db", New: newDB},
//			bootstrap.Definition{Name: "app", DependsOn: []string{"db"}, New: newApp},
//		),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	handle, err := bs.Initialize(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer handle.Shutdown(ctx)
package bootstrap

import "context"

// KernelModuleName is the identity of the implicit kernel module. Callers never
// declare it; every run carries it as the first module.
const KernelModuleName = "kernel"

// Module is the capability every module instance must provide.
//
// Everything else is optional: a module implements only the phase interfaces
// it needs and a missing callback is a no-op.
type Module interface {
	// Name returns the identity the module was registered under.
	Name() string
}

// DependencyAware modules declare additional dependencies at runtime. They are
// merged with the Definition's DependsOn when the graph is wired and must
// already be part of the discovered module set.
type DependencyAware interface {
	Dependencies() []string
}

// PreInitializer runs first. When PreInitialize is called on any module the
// kernel's PreInitialize has already completed.
type PreInitializer interface {
	PreInitialize(rt Runtime) error
}

// Initializer runs after every module has been pre-initialized.
type Initializer interface {
	Initialize(rt Runtime) error
}

// PostInitializer runs after every module has been initialized.
type PostInitializer interface {
	PostInitialize(rt Runtime) error
}

// Shutdowner runs in reverse order when the handle is shut down. It is called
// at most once per module.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// AssemblyProvider modules surface extra assemblies to consumers that scan
// the loaded assemblies of a run.
type AssemblyProvider interface {
	AdditionalAssemblies() []*Assembly
}
