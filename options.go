package bootstrap

import "fmt"

// Option configures a Bootstrapper.
type Option func(*Bootstrapper) error

// WithLogger sets the logger of the run. *slog.Logger satisfies Logger.
func WithLogger(logger Logger) Option {
	return func(b *Bootstrapper) error {
		if logger == nil {
			return ErrLoggerNil
		}
		b.logger = logger
		return nil
	}
}

// WithCatalog uses an existing catalog as the source of module definitions.
func WithCatalog(c *Catalog) Option {
	return func(b *Bootstrapper) error {
		if c == nil {
			return fmt.Errorf("%w: nil catalog", ErrNotAModule)
		}
		b.catalog = c
		return nil
	}
}

// WithModules registers module definitions with the catalog.
func WithModules(defs ...Definition) Option {
	return func(b *Bootstrapper) error {
		b.pending = append(b.pending, defs...)
		return nil
	}
}

// WithPlugInSources appends plug-in sources. Sources are queried in the order
// they were added.
func WithPlugInSources(sources ...PlugInSource) Option {
	return func(b *Bootstrapper) error {
		b.sources = append(b.sources, sources...)
		return nil
	}
}

// WithInstantiator replaces the catalog as the producer of module instances.
func WithInstantiator(i Instantiator) Option {
	return func(b *Bootstrapper) error {
		b.instantiator = i
		return nil
	}
}

// WithObservers registers observers for the run's lifecycle events.
func WithObservers(observers ...Observer) Option {
	return func(b *Bootstrapper) error {
		b.observers = append(b.observers, observers...)
		return nil
	}
}

// WithKernelConfig configures the kernel module.
func WithKernelConfig(cfg KernelConfig) Option {
	return func(b *Bootstrapper) error {
		b.kernelCfg = cfg
		return nil
	}
}

// WithRollback controls whether modules are shut down again when a forward
// phase fails. It is enabled by default.
func WithRollback(enabled bool) Option {
	return func(b *Bootstrapper) error {
		b.rollback = enabled
		return nil
	}
}
