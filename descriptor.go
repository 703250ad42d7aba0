package bootstrap

import (
	"fmt"
	"slices"
)

// ModuleDescriptor is one discovered module together with its resolved
// dependency edges.
type ModuleDescriptor struct {
	Name       string
	Instance   Module
	Definition *Definition
	IsPlugIn   bool

	dependencies []*ModuleDescriptor
	index        int
}

// Dependencies returns the descriptors this module depends on, in declared
// order. It is empty until the collection has been wired.
func (d *ModuleDescriptor) Dependencies() []*ModuleDescriptor {
	return slices.Clone(d.dependencies)
}

// DependencyNames returns the names of Dependencies().
func (d *ModuleDescriptor) DependencyNames() []string {
	names := make([]string, 0, len(d.dependencies))
	for _, dep := range d.dependencies {
		names = append(names, dep.Name)
	}
	return names
}

func (d *ModuleDescriptor) String() string {
	if d.IsPlugIn {
		return d.Name + " (plug-in)"
	}
	return d.Name
}

// declaredDependencies merges the definition's DependsOn with the instance's
// runtime Dependencies(), keeping first occurrence order.
func (d *ModuleDescriptor) declaredDependencies() []string {
	var names []string
	if d.Definition != nil {
		names = append(names, d.Definition.DependsOn...)
	}
	if da, ok := d.Instance.(DependencyAware); ok {
		names = append(names, da.Dependencies()...)
	}
	out := names[:0:0]
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// ModuleCollection owns every descriptor of one bootstrap run.
type ModuleCollection struct {
	startup string
	modules []*ModuleDescriptor
	byName  map[string]*ModuleDescriptor
	wired   bool
}

// NewModuleCollection creates an empty collection for the given startup module.
func NewModuleCollection(startup string) *ModuleCollection {
	return &ModuleCollection{
		startup: startup,
		byName:  make(map[string]*ModuleDescriptor),
	}
}

// Add inserts a descriptor. Adding a name that is already present keeps the
// existing descriptor and reports false.
func (c *ModuleCollection) Add(d *ModuleDescriptor) bool {
	if _, ok := c.byName[d.Name]; ok {
		return false
	}
	d.index = len(c.modules)
	c.modules = append(c.modules, d)
	c.byName[d.Name] = d
	return true
}

// Get returns the descriptor for name.
func (c *ModuleCollection) Get(name string) (*ModuleDescriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Len returns the number of modules.
func (c *ModuleCollection) Len() int {
	return len(c.modules)
}

// All returns the descriptors in first-discovered order.
func (c *ModuleCollection) All() []*ModuleDescriptor {
	return slices.Clone(c.modules)
}

// StartupName returns the identity of the startup module.
func (c *ModuleCollection) StartupName() string {
	return c.startup
}

// Kernel returns the kernel descriptor.
func (c *ModuleCollection) Kernel() (*ModuleDescriptor, error) {
	return c.role(KernelModuleName, "kernel")
}

// Startup returns the startup descriptor.
func (c *ModuleCollection) Startup() (*ModuleDescriptor, error) {
	return c.role(c.startup, "startup")
}

func (c *ModuleCollection) role(name, role string) (*ModuleDescriptor, error) {
	var found *ModuleDescriptor
	for _, d := range c.modules {
		if d.Name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s module %q appears more than once", ErrDuplicateRoleAssignment, role, name)
		}
		found = d
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s module %q", ErrRoleMissing, role, name)
	}
	return found, nil
}

// WireDependencies rebuilds every descriptor's dependency edges from its
// declared dependencies. Each declared name must be a member of the collection.
// Edges are computed once; later calls are no-ops.
func (c *ModuleCollection) WireDependencies() error {
	if c.wired {
		return nil
	}
	for _, d := range c.modules {
		d.dependencies = d.dependencies[:0]
		for _, name := range d.declaredDependencies() {
			dep, ok := c.byName[name]
			if !ok {
				if d.Definition == nil || !slices.Contains(d.Definition.DependsOn, name) {
					return fmt.Errorf("%w: %q depends on %q at runtime, which is not in the module set; discovery only follows DependsOn, so list it there too", ErrUnresolvedDependency, d.Name, name)
				}
				return fmt.Errorf("%w: %q depends on %q which is not in the module set", ErrUnresolvedDependency, d.Name, name)
			}
			d.dependencies = append(d.dependencies, dep)
		}
	}
	c.wired = true
	return nil
}
