package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Config errors
var (
	ErrConfigNil                  = errors.New("config is nil")
	ErrConfigNotPointer           = errors.New("config must be a pointer")
	ErrConfigNotStruct            = errors.New("config must be a struct")
	ErrConfigRequiredFieldMissing = errors.New("required field is missing")
	ErrUnsupportedTypeForDefault  = errors.New("unsupported type for default value")
	ErrDefaultValueOverflows      = errors.New("default value overflows field")
	ErrUnsupportedFormatType      = errors.New("unsupported format type")
)

const (
	tagDefault  = "default"
	tagRequired = "required"
)

// ConfigValidator is implemented by configuration structs that validate
// themselves after defaults and required fields have been processed.
type ConfigValidator interface {
	Validate() error
}

// ProcessConfigDefaults sets every zero field tagged `default:"value"`.
// Nested structs are processed recursively; nil struct pointers are left nil.
//
//	type Config struct {
//	    Addr    string        `default:":8089"`
//	    Timeout time.Duration `default:"5s"`
//	    Tags    []string      `default:"[\"a\",\"b\"]"`
//	}
func ProcessConfigDefaults(cfg any) error {
	v, err := structValue(cfg)
	if err != nil {
		return err
	}
	return processStructDefaults(v)
}

func processStructDefaults(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		switch {
		case field.Kind() == reflect.Struct:
			if err := processStructDefaults(field); err != nil {
				return err
			}
			continue
		case field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.Struct:
			if !field.IsNil() {
				if err := processStructDefaults(field.Elem()); err != nil {
					return err
				}
			}
			continue
		}

		def, ok := fieldType.Tag.Lookup(tagDefault)
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefaultValue(field, def); err != nil {
			return fmt.Errorf("failed to set default value for %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

func setDefaultValue(field reflect.Value, def string) error {
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(def)
		if err != nil {
			return fmt.Errorf("failed to parse duration value: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.Slice, reflect.Map:
		ptr := reflect.New(field.Type())
		if err := json.Unmarshal([]byte(def), ptr.Interface()); err != nil {
			return fmt.Errorf("failed to unmarshal JSON default: %w", err)
		}
		field.Set(ptr.Elem())
		return nil
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTypeForDefault, field.Kind())
	}

	raw, err := cast.FromType(def, field.Type())
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(raw)

	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.OverflowInt(rv.Int()) {
			return fmt.Errorf("%w: %s into %s", ErrDefaultValueOverflows, def, field.Type())
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if field.OverflowUint(rv.Uint()) {
			return fmt.Errorf("%w: %s into %s", ErrDefaultValueOverflows, def, field.Type())
		}
	case reflect.Float32:
		if field.OverflowFloat(rv.Float()) {
			return fmt.Errorf("%w: %s into %s", ErrDefaultValueOverflows, def, field.Type())
		}
	}
	field.Set(rv.Convert(field.Type()))
	return nil
}

// ValidateConfigRequired checks that every field tagged `required:"true"` is
// set. Missing fields are reported by their dotted path.
func ValidateConfigRequired(cfg any) error {
	v, err := structValue(cfg)
	if err != nil {
		return err
	}

	var missing []string
	validateRequiredFields(v, "", &missing)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigRequiredFieldMissing, strings.Join(missing, ", "))
	}
	return nil
}

func validateRequiredFields(v reflect.Value, prefix string, missing *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}
		name := fieldType.Name
		if prefix != "" {
			name = prefix + "." + name
		}

		required := fieldType.Tag.Get(tagRequired) == "true"
		switch {
		case field.Kind() == reflect.Struct:
			validateRequiredFields(field, name, missing)
		case field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.Struct:
			if !field.IsNil() {
				validateRequiredFields(field.Elem(), name, missing)
			} else if required {
				*missing = append(*missing, name)
			}
		case required && field.IsZero():
			*missing = append(*missing, name)
		}
	}
}

// ValidateConfig applies defaults, checks required fields and calls Validate
// when cfg implements ConfigValidator.
func ValidateConfig(cfg any) error {
	if err := ProcessConfigDefaults(cfg); err != nil {
		return err
	}
	return validateLoadedConfig(cfg)
}

// validateLoadedConfig checks a config whose defaults were applied before it
// was fed, so that fed zero values such as false are not overwritten.
func validateLoadedConfig(cfg any) error {
	if err := ValidateConfigRequired(cfg); err != nil {
		return err
	}
	if v, ok := cfg.(ConfigValidator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// GenerateSampleConfig renders a zero config of cfg's type with defaults
// applied, in "yaml", "toml" or "json".
func GenerateSampleConfig(cfg any, format string) ([]byte, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	t := reflect.TypeOf(cfg)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	sample := reflect.New(t).Interface()
	if err := ProcessConfigDefaults(sample); err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "yaml", "yml":
		data, err := yaml.Marshal(sample)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal to YAML: %w", err)
		}
		return data, nil
	case "toml":
		var buf strings.Builder
		if err := toml.NewEncoder(&buf).Encode(sample); err != nil {
			return nil, fmt.Errorf("failed to marshal to TOML: %w", err)
		}
		return []byte(buf.String()), nil
	case "json":
		data, err := json.MarshalIndent(sample, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal to JSON: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormatType, format)
	}
}

func structValue(cfg any) (reflect.Value, error) {
	if cfg == nil {
		return reflect.Value{}, ErrConfigNil
	}
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, ErrConfigNotPointer
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, ErrConfigNotStruct
	}
	return v, nil
}
