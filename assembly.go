package bootstrap

import "slices"

// Assembly is a unit that backs one or more modules: a manifest file, a Go
// plug-in or an in-process bundle.
type Assembly struct {
	Name    string
	Path    string
	Modules []Definition
}

// ModuleNames returns the names of the modules the assembly backs.
func (a *Assembly) ModuleNames() []string {
	names := make([]string, 0, len(a.Modules))
	for _, d := range a.Modules {
		names = append(names, d.Name)
	}
	return names
}

// findAssemblies collects the assembly of every module plus the assemblies the
// modules surface through AssemblyProvider. Each assembly appears once, in
// module order.
func findAssemblies(modules []*ModuleDescriptor) []*Assembly {
	var out []*Assembly
	add := func(a *Assembly) {
		if a == nil || slices.Contains(out, a) {
			return
		}
		out = append(out, a)
	}
	for _, m := range modules {
		if m.Definition != nil {
			add(m.Definition.Assembly)
		}
		if p, ok := m.Instance.(AssemblyProvider); ok {
			for _, a := range p.AdditionalAssemblies() {
				add(a)
			}
		}
	}
	return out
}
