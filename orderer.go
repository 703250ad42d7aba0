package bootstrap

import (
	"fmt"
	"slices"
)

// Orderer produces the execution order of a module collection.
type Orderer struct {
	logger Logger
}

// NewOrderer creates an orderer that logs to logger.
func NewOrderer(logger Logger) *Orderer {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Orderer{logger: logger}
}

// Order wires the collection's dependency edges and returns the modules so
// that the kernel comes first, the startup module last and every other module
// after all of its dependencies. Unrelated modules keep first-discovered order.
func (o *Orderer) Order(c *ModuleCollection) ([]*ModuleDescriptor, error) {
	if err := c.WireDependencies(); err != nil {
		return nil, err
	}

	kernel, err := c.Kernel()
	if err != nil {
		return nil, err
	}
	startup, err := c.Startup()
	if err != nil {
		return nil, err
	}
	if kernel == startup {
		return nil, fmt.Errorf("%w: the startup module cannot be the kernel", ErrDuplicateRoleAssignment)
	}

	s := &topoSort{
		kernel:  kernel,
		startup: startup,
		marks:   make(map[*ModuleDescriptor]mark, c.Len()),
	}
	for _, d := range c.modules {
		if d == kernel || d == startup {
			continue
		}
		if err := s.visit(d); err != nil {
			return nil, err
		}
	}

	order := make([]*ModuleDescriptor, 0, c.Len())
	order = append(order, kernel)
	order = append(order, s.sorted...)
	order = append(order, startup)

	o.logger.Debug("Module order resolved", "order", names(order))
	return order, nil
}

type mark int

const (
	unmarked mark = iota
	temporary
	permanent
)

type topoSort struct {
	kernel  *ModuleDescriptor
	startup *ModuleDescriptor
	marks   map[*ModuleDescriptor]mark
	path    []*ModuleDescriptor
	sorted  []*ModuleDescriptor
}

func (s *topoSort) visit(d *ModuleDescriptor) error {
	switch s.marks[d] {
	case permanent:
		return nil
	case temporary:
		i := slices.Index(s.path, d)
		cycle := append(names(s.path[i:]), d.Name)
		return &CycleError{Path: cycle}
	}

	s.marks[d] = temporary
	s.path = append(s.path, d)
	for _, dep := range d.dependencies {
		switch dep {
		case s.kernel:
			continue
		case s.startup:
			return fmt.Errorf("%w: %q depends on %q", ErrStartupDependency, d.Name, dep.Name)
		}
		if err := s.visit(dep); err != nil {
			return err
		}
	}
	s.path = s.path[:len(s.path)-1]
	s.marks[d] = permanent
	s.sorted = append(s.sorted, d)
	return nil
}

func names(ds []*ModuleDescriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Name)
	}
	return out
}
