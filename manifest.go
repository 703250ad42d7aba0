package bootstrap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// ModuleFactory constructs a module of a given type under the identity name.
type ModuleFactory func(name string, settings Settings) (any, error)

// FactoryRegistry maps manifest module types to factories.
type FactoryRegistry struct {
	mu        sync.RWMutex
	factories map[string]ModuleFactory
}

// NewFactoryRegistry creates an empty registry.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{factories: make(map[string]ModuleFactory)}
}

// Register adds a factory for typ, replacing any previous one.
func (r *FactoryRegistry) Register(typ string, f ModuleFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typ] = f
}

// Lookup returns the factory for typ.
func (r *FactoryRegistry) Lookup(typ string) (ModuleFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFactoryNotFound, typ)
	}
	return f, nil
}

// Types returns the registered types, sorted.
func (r *FactoryRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// manifest is the file format of a plug-in manifest. Module type defaults to
// the module name.
type manifest struct {
	Name    string           `yaml:"name" toml:"name" json:"name"`
	Modules []manifestModule `yaml:"modules" toml:"modules" json:"modules"`
}

type manifestModule struct {
	Name      string            `yaml:"name" toml:"name" json:"name"`
	Type      string            `yaml:"type" toml:"type" json:"type"`
	DependsOn []string          `yaml:"depends_on" toml:"depends_on" json:"depends_on"`
	Settings  map[string]string `yaml:"settings" toml:"settings" json:"settings"`
}

// hclManifest is the HCL form:
//
//	name = "reporting"
//	module "reports" {
//	  type       = "logging"
//	  depends_on = ["db"]
//	  settings   = { level = "debug" }
//	}
type hclManifest struct {
	Name    string               `hcl:"name,optional"`
	Modules []*hclManifestModule `hcl:"module,block"`
}

type hclManifestModule struct {
	Name      string            `hcl:"name,label"`
	Type      string            `hcl:"type,optional"`
	DependsOn []string          `hcl:"depends_on,optional"`
	Settings  map[string]string `hcl:"settings,optional"`
}

// ManifestLoader loads plug-in manifests in YAML, TOML, JSON or HCL and binds
// their modules to factories.
type ManifestLoader struct {
	Factories *FactoryRegistry
}

// ManifestLoaders returns a loader map for FolderPlugInSource covering every
// manifest format.
func ManifestLoaders(factories *FactoryRegistry) map[string]AssemblyLoader {
	l := &ManifestLoader{Factories: factories}
	return map[string]AssemblyLoader{
		".yaml": l,
		".yml":  l,
		".toml": l,
		".json": l,
		".hcl":  l,
	}
}

func (l *ManifestLoader) Load(path string) (*Assembly, error) {
	m, err := decodeManifest(path)
	if err != nil {
		return nil, err
	}

	asm := &Assembly{Name: m.Name, Path: path}
	if asm.Name == "" {
		asm.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	seen := make(map[string]bool, len(m.Modules))
	for i, mm := range m.Modules {
		if mm.Name == "" {
			return nil, fmt.Errorf("%w: module #%d has no name", ErrInvalidManifest, i+1)
		}
		if seen[mm.Name] {
			return nil, fmt.Errorf("%w: module %q declared twice", ErrInvalidManifest, mm.Name)
		}
		seen[mm.Name] = true

		typ := mm.Type
		if typ == "" {
			typ = mm.Name
		}
		factory, err := l.Factories.Lookup(typ)
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", mm.Name, err)
		}

		name := mm.Name
		asm.Modules = append(asm.Modules, Definition{
			Name:      name,
			DependsOn: mm.DependsOn,
			Settings:  Settings(mm.Settings),
			New: func(s Settings) (any, error) {
				return factory(name, s)
			},
		})
	}
	return asm, nil
}

func decodeManifest(path string) (*manifest, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".hcl" {
		return decodeHCLManifest(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m manifest
	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidManifest, undecoded)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, ext)
	}
	return &m, nil
}

func decodeHCLManifest(path string) (*manifest, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, diags)
	}
	var h hclManifest
	if diags := gohcl.DecodeBody(file.Body, nil, &h); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, diags)
	}

	m := &manifest{Name: h.Name}
	for _, hm := range h.Modules {
		m.Modules = append(m.Modules, manifestModule{
			Name:      hm.Name,
			Type:      hm.Type,
			DependsOn: hm.DependsOn,
			Settings:  hm.Settings,
		})
	}
	return m, nil
}
