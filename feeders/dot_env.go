package feeders

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvFeeder reads a .env file and feeds its variables through `env`
// struct tags, optionally prefixed. The process environment is not modified.
type DotEnvFeeder struct {
	Path     string
	Prefix   string
	Optional bool
}

// NewDotEnvFeeder creates a feeder for the .env file at path.
func NewDotEnvFeeder(path, prefix string) DotEnvFeeder {
	return DotEnvFeeder{Path: path, Prefix: prefix}
}

func (f DotEnvFeeder) Feed(structure any) error {
	if f.Optional && missing(f.Path) {
		return nil
	}
	vars, err := godotenv.Read(f.Path)
	if err != nil {
		return fmt.Errorf("dotenv %s: %w", f.Path, err)
	}
	lookup := func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
	return feedEnv(structure, strings.ToUpper(f.Prefix), "", lookup)
}
