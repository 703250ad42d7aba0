// Package feeders provides configuration feeders for the bootstrap host
// configuration: YAML, TOML and JSON files, environment variables (plain or
// prefixed) and .env files.
package feeders

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

// YamlFeeder reads a YAML file. When Optional is set a missing file feeds
// nothing instead of failing.
type YamlFeeder struct {
	feeder.Yaml
	Optional bool
}

// NewYamlFeeder creates a feeder for the YAML file at filePath.
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{Yaml: feeder.Yaml{Path: filePath}}
}

func (y YamlFeeder) Feed(structure any) error {
	if y.Optional && missing(y.Path) {
		return nil
	}
	if err := y.Yaml.Feed(structure); err != nil {
		return fmt.Errorf("yaml %s: %w", y.Path, err)
	}
	return nil
}

// JSONFeeder reads a JSON file.
type JSONFeeder struct {
	feeder.Json
	Optional bool
}

// NewJSONFeeder creates a feeder for the JSON file at filePath.
func NewJSONFeeder(filePath string) JSONFeeder {
	return JSONFeeder{Json: feeder.Json{Path: filePath}}
}

func (j JSONFeeder) Feed(structure any) error {
	if j.Optional && missing(j.Path) {
		return nil
	}
	if err := j.Json.Feed(structure); err != nil {
		return fmt.Errorf("json %s: %w", j.Path, err)
	}
	return nil
}

// ForFile returns the file feeder matching the extension of path.
func ForFile(path string, optional bool) (config.Feeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f := NewYamlFeeder(path)
		f.Optional = optional
		return f, nil
	case ".toml":
		f := NewTomlFeeder(path)
		f.Optional = optional
		return f, nil
	case ".json":
		f := NewJSONFeeder(path)
		f.Optional = optional
		return f, nil
	case ".env":
		f := NewDotEnvFeeder(path, "")
		f.Optional = optional
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, path)
	}
}

func missing(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}
