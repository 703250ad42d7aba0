package feeders

import (
	"fmt"

	"github.com/golobby/config/v3/pkg/feeder"
)

// TomlFeeder reads a TOML file.
type TomlFeeder struct {
	feeder.Toml
	Optional bool
}

// NewTomlFeeder creates a feeder for the TOML file at filePath.
func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Toml: feeder.Toml{Path: filePath}}
}

func (t TomlFeeder) Feed(structure any) error {
	if t.Optional && missing(t.Path) {
		return nil
	}
	if err := t.Toml.Feed(structure); err != nil {
		return fmt.Errorf("toml %s: %w", t.Path, err)
	}
	return nil
}
