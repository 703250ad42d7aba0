package bootstrap

import (
	"fmt"
	"reflect"
	"time"

	"github.com/golobby/cast"
)

// Settings are the raw string key/values attached to a module definition,
// typically read from a plug-in manifest. Typed getters convert on access.
type Settings map[string]string

// String returns the value for key or def when it is not set.
func (s Settings) String(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// Int returns the value for key as an int.
func (s Settings) Int(key string, def int) (int, error) {
	v, err := s.convert(key, reflect.TypeOf(def))
	if err != nil || v == nil {
		return def, err
	}
	return v.(int), nil
}

// Bool returns the value for key as a bool.
func (s Settings) Bool(key string, def bool) (bool, error) {
	v, err := s.convert(key, reflect.TypeOf(def))
	if err != nil || v == nil {
		return def, err
	}
	return v.(bool), nil
}

// Float returns the value for key as a float64.
func (s Settings) Float(key string, def float64) (float64, error) {
	v, err := s.convert(key, reflect.TypeOf(def))
	if err != nil || v == nil {
		return def, err
	}
	return v.(float64), nil
}

// Duration parses the value for key with time.ParseDuration.
func (s Settings) Duration(key string, def time.Duration) (time.Duration, error) {
	raw, ok := s[key]
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q: %w", ErrSettingInvalid, key, raw, err)
	}
	return d, nil
}

// Merge returns a copy of s overlaid with other.
func (s Settings) Merge(other Settings) Settings {
	out := make(Settings, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func (s Settings) convert(key string, t reflect.Type) (any, error) {
	raw, ok := s[key]
	if !ok {
		return nil, nil
	}
	v, err := cast.FromType(raw, t)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q: %w", ErrSettingInvalid, key, raw, err)
	}
	return reflect.ValueOf(v).Convert(t).Interface(), nil
}
