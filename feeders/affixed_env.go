package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// AffixedEnvFeeder reads environment variables named PREFIX_<env tag>_SUFFIX.
// With Prefix "BOOT" a field tagged `env:"ADDR"` reads BOOT_ADDR.
type AffixedEnvFeeder struct {
	Prefix string
	Suffix string
}

// NewAffixedEnvFeeder creates a new AffixedEnvFeeder with the specified prefix and suffix.
func NewAffixedEnvFeeder(prefix, suffix string) AffixedEnvFeeder {
	return AffixedEnvFeeder{Prefix: prefix, Suffix: suffix}
}

func (f AffixedEnvFeeder) Feed(structure any) error {
	if f.Prefix == "" && f.Suffix == "" {
		return ErrEnvEmptyPrefixAndSuffix
	}
	return feedEnv(structure, strings.ToUpper(f.Prefix), strings.ToUpper(f.Suffix), os.LookupEnv)
}

// lookupFunc resolves a variable name; os.LookupEnv is the usual one.
type lookupFunc func(string) (string, bool)

func feedEnv(structure any, prefix, suffix string, lookup lookupFunc) error {
	t := reflect.TypeOf(structure)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return ErrEnvInvalidStructure
	}
	return fillStruct(reflect.ValueOf(structure).Elem(), prefix, suffix, lookup)
}

func fillStruct(rv reflect.Value, prefix, suffix string, lookup lookupFunc) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		if !fieldType.IsExported() {
			continue
		}

		var err error
		switch {
		case field.Kind() == reflect.Struct:
			err = fillStruct(field, prefix, suffix, lookup)
		case field.Kind() == reflect.Pointer && !field.IsNil() && field.Elem().Kind() == reflect.Struct:
			err = fillStruct(field.Elem(), prefix, suffix, lookup)
		default:
			if tag, ok := fieldType.Tag.Lookup("env"); ok {
				err = setFromEnv(field, envName(tag, prefix, suffix), lookup)
			}
		}
		if err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

func envName(tag, prefix, suffix string) string {
	name := strings.ToUpper(tag)
	if prefix != "" {
		name = prefix + "_" + name
	}
	if suffix != "" {
		name = name + "_" + suffix
	}
	return name
}

func setFromEnv(field reflect.Value, name string, lookup lookupFunc) error {
	value, ok := lookup(name)
	if !ok || value == "" {
		return nil
	}
	if !field.CanSet() {
		return ErrFieldCannotBeSet
	}

	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts).Convert(field.Type()))
		return nil
	}

	converted, err := cast.FromType(value, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert %s to type %v: %w", name, field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}
