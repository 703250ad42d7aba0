package bootstrap

import (
	"fmt"

	"github.com/golobby/config/v3"
)

// Config is the host configuration of a bootstrap process. Modules keep
// their own settings; this only covers the engine and its surfaces.
type Config struct {
	// StartupModule names the module whose dependency closure is started.
	StartupModule string `yaml:"startup_module" toml:"startup_module" json:"startup_module" env:"STARTUP_MODULE" required:"true"`

	PlugIns PlugInConfig `yaml:"plugins" toml:"plugins" json:"plugins"`
	Kernel  KernelConfig `yaml:"kernel" toml:"kernel" json:"kernel"`
	Status  StatusConfig `yaml:"status" toml:"status" json:"status"`
}

// PlugInConfig lists the folders scanned for plug-in manifests.
type PlugInConfig struct {
	Folders   []string `yaml:"folders" toml:"folders" json:"folders" env:"PLUGIN_FOLDERS"`
	Recursive bool     `yaml:"recursive" toml:"recursive" json:"recursive" env:"PLUGIN_RECURSIVE"`
}

// StatusConfig configures the read-only HTTP status endpoint.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"STATUS_ENABLED"`
	Addr    string `yaml:"addr" toml:"addr" json:"addr" env:"STATUS_ADDR" default:":8089"`
}

// Validate implements ConfigValidator.
func (c *Config) Validate() error {
	if c.StartupModule == KernelModuleName {
		return fmt.Errorf("%w: startup_module cannot be %q", ErrDuplicateRoleAssignment, KernelModuleName)
	}
	return nil
}

// LoadConfig applies defaults, feeds a Config from the given feeders in order
// (later feeders override earlier ones) and validates it.
func LoadConfig(feeders ...config.Feeder) (*Config, error) {
	cfg := &Config{}
	if err := ProcessConfigDefaults(cfg); err != nil {
		return nil, err
	}

	builder := config.New()
	for _, f := range feeders {
		builder.AddFeeder(f)
	}
	builder.AddStruct(cfg)
	if err := builder.Feed(); err != nil {
		return nil, fmt.Errorf("failed to load bootstrap config: %w", err)
	}

	if err := validateLoadedConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
