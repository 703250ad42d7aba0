package bootstrap

import (
	"fmt"
	"slices"
)

// PlugInSource contributes modules discovered outside the static dependency
// graph of the startup module.
type PlugInSource interface {
	// Assemblies returns the assemblies backing the source's modules.
	Assemblies() ([]*Assembly, error)

	// Modules returns the identities of the modules the source contributes.
	Modules() ([]string, error)
}

// PlugInSourceList is an ordered list of sources. Contributions are queried in
// list order.
type PlugInSourceList []PlugInSource

// AllAssemblies returns the assemblies of every source, each once.
func (l PlugInSourceList) AllAssemblies() ([]*Assembly, error) {
	var out []*Assembly
	for _, src := range l {
		asms, err := src.Assemblies()
		if err != nil {
			return nil, err
		}
		for _, a := range asms {
			if !slices.Contains(out, a) {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

// AllModules returns the module identities of every source, each once, in
// list order.
func (l PlugInSourceList) AllModules() ([]string, error) {
	var out []string
	for _, src := range l {
		names, err := src.Modules()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// ModulesWithDependencies returns every source module together with its
// dependency closure.
func (l PlugInSourceList) ModulesWithDependencies(deps DependencySource) ([]string, error) {
	names, err := l.AllModules()
	if err != nil {
		return nil, err
	}
	w := newClosureWalker(deps)
	for _, n := range names {
		if err := w.walk(n); err != nil {
			return nil, err
		}
	}
	return w.order, nil
}

// StaticPlugInSource serves assemblies that are already in memory, such as
// plug-ins compiled into the host binary.
type StaticPlugInSource struct {
	assemblies []*Assembly
}

// NewStaticPlugInSource creates a source over the given assemblies.
func NewStaticPlugInSource(assemblies ...*Assembly) *StaticPlugInSource {
	return &StaticPlugInSource{assemblies: assemblies}
}

func (s *StaticPlugInSource) Assemblies() ([]*Assembly, error) {
	return slices.Clone(s.assemblies), nil
}

func (s *StaticPlugInSource) Modules() ([]string, error) {
	return modulesOf(s.assemblies), nil
}

func modulesOf(asms []*Assembly) []string {
	var out []string
	for _, a := range asms {
		for _, n := range a.ModuleNames() {
			if !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
	}
	return out
}

func (s *StaticPlugInSource) String() string {
	return fmt.Sprintf("static(%d assemblies)", len(s.assemblies))
}
