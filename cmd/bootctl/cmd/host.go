package cmd

import (
	"fmt"

	"github.com/golobby/config/v3"

	"github.com/GoCodeAlone/bootstrap"
	"github.com/GoCodeAlone/bootstrap/feeders"
)

// loadConfig reads the host config from the config files, the optional .env
// file and the prefixed environment, in that order. The --startup flag wins.
func loadConfig(opts *globalOptions) (*bootstrap.Config, error) {
	var fs []config.Feeder
	for _, path := range opts.configFiles {
		f, err := feeders.ForFile(path, false)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	if opts.dotEnv != "" {
		fs = append(fs, feeders.NewDotEnvFeeder(opts.dotEnv, opts.envPrefix))
	}
	if opts.envPrefix != "" {
		fs = append(fs, feeders.NewAffixedEnvFeeder(opts.envPrefix, ""))
	}

	if opts.startup != "" {
		fs = append(fs, startupOverride(opts.startup))
	}
	return bootstrap.LoadConfig(fs...)
}

// startupOverride feeds the --startup flag.
type startupOverride string

func (s startupOverride) Feed(structure any) error {
	cfg, ok := structure.(*bootstrap.Config)
	if !ok {
		return fmt.Errorf("unexpected config type %T", structure)
	}
	cfg.StartupModule = string(s)
	return nil
}

// plugInSources creates one folder source per configured folder. Manifests
// bind to the built-in factories; .so files are loaded as Go plug-ins.
func plugInSources(cfg *bootstrap.Config, logger bootstrap.Logger) []*bootstrap.FolderPlugInSource {
	loaders := bootstrap.ManifestLoaders(builtinFactories())
	loaders[".so"] = bootstrap.GoPluginLoader{}

	var out []*bootstrap.FolderPlugInSource
	for _, folder := range cfg.PlugIns.Folders {
		out = append(out, bootstrap.NewFolderPlugInSource(folder, cfg.PlugIns.Recursive, loaders, logger))
	}
	return out
}

func newBootstrapper(cfg *bootstrap.Config, logger bootstrap.Logger, opts ...bootstrap.Option) (*bootstrap.Bootstrapper, error) {
	var sources []bootstrap.PlugInSource
	for _, s := range plugInSources(cfg, logger) {
		sources = append(sources, s)
	}
	base := []bootstrap.Option{
		bootstrap.WithLogger(logger),
		bootstrap.WithPlugInSources(sources...),
		bootstrap.WithKernelConfig(cfg.Kernel),
	}
	return bootstrap.New(cfg.StartupModule, append(base, opts...)...)
}
