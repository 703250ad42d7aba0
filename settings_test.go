package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsTypedGetters(t *testing.T) {
	s := Settings{
		"name":     "worker",
		"replicas": "3",
		"enabled":  "true",
		"ratio":    "0.25",
		"interval": "90s",
	}

	assert.Equal(t, "worker", s.String("name", "x"))
	assert.Equal(t, "x", s.String("missing", "x"))

	n, err := s.Int("replicas", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	b, err := s.Bool("enabled", false)
	require.NoError(t, err)
	assert.True(t, b)

	f, err := s.Float("ratio", 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, f, 1e-9)

	d, err := s.Duration("interval", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestSettingsDefaults(t *testing.T) {
	var s Settings

	n, err := s.Int("replicas", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	b, err := s.Bool("enabled", true)
	require.NoError(t, err)
	assert.True(t, b)

	d, err := s.Duration("interval", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

func TestSettingsInvalid(t *testing.T) {
	s := Settings{"replicas": "many", "interval": "soon", "enabled": "perhaps"}

	n, err := s.Int("replicas", 2)
	assert.ErrorIs(t, err, ErrSettingInvalid)
	assert.Equal(t, 2, n)

	_, err = s.Duration("interval", time.Second)
	assert.ErrorIs(t, err, ErrSettingInvalid)
	assert.Contains(t, err.Error(), `interval="soon"`)

	_, err = s.Bool("enabled", false)
	assert.ErrorIs(t, err, ErrSettingInvalid)
}

func TestSettingsMerge(t *testing.T) {
	base := Settings{"a": "1", "b": "2"}
	merged := base.Merge(Settings{"b": "3", "c": "4"})

	assert.Equal(t, Settings{"a": "1", "b": "3", "c": "4"}, merged)
	assert.Equal(t, "2", base["b"], "Merge must not modify the receiver")
}
