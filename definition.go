package bootstrap

import (
	"fmt"
	"maps"
	"slices"
)

// Factory constructs a module instance from its settings. It returns any so
// the engine can reject results that do not implement Module.
type Factory func(settings Settings) (any, error)

// Definition declares a module: its identity, the modules it depends on and
// how to construct it. It is the code-visible replacement for scanning types.
type Definition struct {
	Name      string
	DependsOn []string
	Settings  Settings
	New       Factory

	// Assembly is the plug-in assembly backing the module; nil for modules
	// compiled into the host.
	Assembly *Assembly
}

// Instantiator produces module instances for discovered identities.
type Instantiator interface {
	Instantiate(name string) (any, error)
}

// InstantiatorFunc adapts a function to Instantiator.
type InstantiatorFunc func(name string) (any, error)

func (f InstantiatorFunc) Instantiate(name string) (any, error) {
	return f(name)
}

// DependencySource answers which modules a module declares as prerequisites.
type DependencySource interface {
	DependsOn(name string) ([]string, error)
}

// Catalog is the ordered set of known module definitions. It serves as the
// dependency source for discovery and as the default instantiator.
type Catalog struct {
	defs  map[string]*Definition
	names []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]*Definition)}
}

// Register adds a definition. A name can be registered once; the only repeat
// accepted is the same plug-in assembly contributing an equal definition again.
// The kernel identity is reserved.
func (c *Catalog) Register(def Definition) error {
	if def.Name == KernelModuleName {
		return fmt.Errorf("%w: module %q claims the kernel role", ErrDuplicateRoleAssignment, def.Name)
	}
	return c.register(def)
}

func (c *Catalog) register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: definition without a name", ErrNotAModule)
	}
	if existing, ok := c.defs[def.Name]; ok {
		if sameDefinition(existing, &def) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrModuleAlreadyRegistered, def.Name)
	}
	d := def
	d.DependsOn = slices.Clone(def.DependsOn)
	d.Settings = maps.Clone(def.Settings)
	c.defs[d.Name] = &d
	c.names = append(c.names, d.Name)
	return nil
}

// RegisterAssembly registers every module an assembly backs, linking each
// definition to the assembly.
func (c *Catalog) RegisterAssembly(asm *Assembly) error {
	for _, def := range asm.Modules {
		def.Assembly = asm
		if err := c.Register(def); err != nil {
			return fmt.Errorf("assembly %s: %w", asm.Name, err)
		}
	}
	return nil
}

// Definition looks up a registered definition.
func (c *Catalog) Definition(name string) (*Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Names returns the registered module names in registration order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// DependsOn implements DependencySource.
func (c *Catalog) DependsOn(name string) ([]string, error) {
	d, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: module %q is not registered", ErrUnresolvedDependency, name)
	}
	return d.DependsOn, nil
}

// Instantiate implements Instantiator.
func (c *Catalog) Instantiate(name string) (any, error) {
	d, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s: not registered", ErrNotConstructible, name)
	}
	if d.New == nil {
		return nil, fmt.Errorf("%w: %s: no factory", ErrNotConstructible, name)
	}
	inst, err := d.New(d.Settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotConstructible, name, err)
	}
	return inst, nil
}

// sameDefinition reports whether b repeats a: same non-nil assembly, equal
// dependencies and equal settings. Factories cannot be compared, so
// host-compiled definitions are never duplicates.
func sameDefinition(a, b *Definition) bool {
	return a.Assembly != nil && a.Assembly == b.Assembly &&
		slices.Equal(a.DependsOn, b.DependsOn) &&
		maps.Equal(a.Settings, b.Settings)
}
