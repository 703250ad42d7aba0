package bootstrap

import (
	"fmt"
	"slices"
)

// Discovery is the result of walking the dependency graph: every module
// identity in first-discovered order and the subset contributed by plug-ins.
type Discovery struct {
	Modules []string
	plugIns map[string]bool
}

// IsPlugIn reports whether name was reached only through a plug-in source.
func (d *Discovery) IsPlugIn(name string) bool {
	return d.plugIns[name]
}

// PlugIns returns the plug-in identities in discovery order.
func (d *Discovery) PlugIns() []string {
	var out []string
	for _, n := range d.Modules {
		if d.plugIns[n] {
			out = append(out, n)
		}
	}
	return out
}

// Discoverer computes the module set of a run.
type Discoverer struct {
	deps    DependencySource
	sources PlugInSourceList
	logger  Logger
}

// NewDiscoverer creates a discoverer over the given collaborators.
func NewDiscoverer(deps DependencySource, sources PlugInSourceList, logger Logger) *Discoverer {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Discoverer{deps: deps, sources: sources, logger: logger}
}

// Discover returns the dependency closure of the startup module unioned with
// the closures of every plug-in source module.
func (d *Discoverer) Discover(startup string) (*Discovery, error) {
	if startup == "" {
		return nil, ErrStartupModuleEmpty
	}

	w := newClosureWalker(d.deps)
	if err := w.walk(startup); err != nil {
		return nil, err
	}
	static := len(w.order)
	d.logger.Debug("Static dependency closure computed", "startup", startup, "modules", static)

	plugIns := make(map[string]bool)
	for _, src := range d.sources {
		names, err := src.Modules()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			before := len(w.order)
			if err := w.walk(name); err != nil {
				return nil, err
			}
			for _, added := range w.order[before:] {
				plugIns[added] = true
				d.logger.Debug("Discovered plug-in module", "module", added, "source", fmt.Sprint(src))
			}
		}
	}

	d.logger.Debug("Discovery completed", "modules", len(w.order), "plugins", len(plugIns))
	return &Discovery{Modules: w.order, plugIns: plugIns}, nil
}

// closureWalker is a visited-set guarded depth-first walk over declared
// dependencies. Identities are recorded in preorder.
type closureWalker struct {
	deps    DependencySource
	visited map[string]bool
	stack   []string
	order   []string
}

func newClosureWalker(deps DependencySource) *closureWalker {
	return &closureWalker{deps: deps, visited: make(map[string]bool)}
}

func (w *closureWalker) walk(name string) error {
	// The kernel is implicit and never part of the discovered set.
	if name == KernelModuleName {
		return nil
	}
	if i := slices.Index(w.stack, name); i >= 0 {
		path := append(slices.Clone(w.stack[i:]), name)
		return &CycleError{Path: path}
	}
	if w.visited[name] {
		return nil
	}

	deps, err := w.deps.DependsOn(name)
	if err != nil {
		if len(w.stack) > 0 {
			return fmt.Errorf("%w (required by %q)", err, w.stack[len(w.stack)-1])
		}
		return err
	}

	w.visited[name] = true
	w.order = append(w.order, name)
	w.stack = append(w.stack, name)
	for _, dep := range deps {
		if err := w.walk(dep); err != nil {
			return err
		}
	}
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}
