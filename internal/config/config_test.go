package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, Settings{CharacterWidth: 0.5, FormatOnSave: true}, cfg.Settings())
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.CharacterWidth)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
characterWidth: 1
formatOnSave: false
include:
  - "src/**"
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.CharacterWidth)
	assert.False(t, cfg.FormatOnSave)
	assert.Equal(t, []string{"src/**"}, cfg.Include)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.IsJSONLogging())
	// Keys absent from the file keep their defaults.
	assert.Equal(t, DefaultConfig().Exclude, cfg.Exclude)
}

func TestLoad_Violations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"character width is a string", `characterWidth: wide`},
		{"format on save is a number", `formatOnSave: 3`},
		{"character width is zero", `characterWidth: 0`},
		{"character width is negative", `characterWidth: -0.5`},
		{"character width below the minimum", `characterWidth: 0.009`},
		{"character width is tiny", `characterWidth: 1e-300`},
		{"unknown key", `charWidth: 0.5`},
		{"bad logging format", "logging:\n  format: xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MinimumCharacterWidth(t *testing.T) {
	cfg, err := Load(writeConfig(t, "characterWidth: 0.01"))
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.CharacterWidth)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("character width", func(t *testing.T) {
		t.Setenv("EACHFMT_CHARACTER_WIDTH", "0.6")
		cfg, err := Load(writeConfig(t, "characterWidth: 1"))
		require.NoError(t, err)
		assert.Equal(t, 0.6, cfg.CharacterWidth)
	})

	t.Run("format on save", func(t *testing.T) {
		t.Setenv("EACHFMT_FORMAT_ON_SAVE", "false")
		cfg, err := Load(writeConfig(t, ""))
		require.NoError(t, err)
		assert.False(t, cfg.FormatOnSave)
	})

	t.Run("unparsable values are not replaced by defaults", func(t *testing.T) {
		t.Setenv("EACHFMT_CHARACTER_WIDTH", "half")
		_, err := Load(writeConfig(t, ""))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unparsable boolean", func(t *testing.T) {
		t.Setenv("EACHFMT_FORMAT_ON_SAVE", "sometimes")
		_, err := Load(writeConfig(t, ""))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	cfg := DefaultConfig()
	cfg.CharacterWidth = 0.75
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLive(t *testing.T) {
	path := writeConfig(t, "characterWidth: 0.5")
	live, err := NewLive(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, live.Path())

	before := live.Snapshot()
	assert.Equal(t, 0.5, before.CharacterWidth)

	require.NoError(t, os.WriteFile(path, []byte("characterWidth: 1"), 0644))
	require.NoError(t, live.Reload())
	assert.Equal(t, 1.0, live.Snapshot().CharacterWidth)
	// A snapshot taken earlier is a value and does not change.
	assert.Equal(t, 0.5, before.CharacterWidth)

	require.NoError(t, os.WriteFile(path, []byte("characterWidth: nope"), 0644))
	assert.ErrorIs(t, live.Reload(), ErrInvalidConfig)
	assert.Equal(t, 1.0, live.Snapshot().CharacterWidth, "failed reload keeps previous config")
}

func TestLive_Adjust(t *testing.T) {
	path := writeConfig(t, "characterWidth: 0.5")
	live, err := NewLive(path, func(c *Config) { c.CharacterWidth = 1 })
	require.NoError(t, err)
	assert.Equal(t, 1.0, live.Snapshot().CharacterWidth)

	require.NoError(t, os.WriteFile(path, []byte("characterWidth: 0.25"), 0644))
	require.NoError(t, live.Reload())
	assert.Equal(t, 1.0, live.Snapshot().CharacterWidth, "overrides survive reloads")

	_, err = NewLive(path, func(c *Config) { c.CharacterWidth = -1 })
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
