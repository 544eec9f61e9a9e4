package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"eachfmt/internal/table"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = ".eachfmt.yaml"

// ErrInvalidConfig wraps every configuration violation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all eachfmt configuration.
type Config struct {
	// CharacterWidth is the width of a non-ASCII character relative to an
	// ASCII one as rendered by the user's font: 0.5 means double width.
	CharacterWidth float64 `yaml:"characterWidth"`

	// FormatOnSave lets `eachfmt watch` rewrite files when they are saved.
	FormatOnSave bool `yaml:"formatOnSave"`

	// File selection (gobwas/glob patterns, matched against slash paths)
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Settings is the snapshot the formatter core consumes.
type Settings struct {
	CharacterWidth float64
	FormatOnSave   bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CharacterWidth: 0.5,
		FormatOnSave:   true,
		Exclude:        []string{"**/node_modules/**", "**/dist/**", "**/coverage/**"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := decode(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode strictly unmarshals data over cfg: unknown keys and mistyped
// values are rejected instead of being replaced by defaults.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("EACHFMT_CHARACTER_WIDTH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: EACHFMT_CHARACTER_WIDTH must be a number, got %q", ErrInvalidConfig, v)
		}
		c.CharacterWidth = f
	}
	if v := os.Getenv("EACHFMT_FORMAT_ON_SAVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: EACHFMT_FORMAT_ON_SAVE must be a boolean, got %q", ErrInvalidConfig, v)
		}
		c.FormatOnSave = b
	}
	if v := os.Getenv("EACHFMT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Written as a negation so NaN is rejected too.
	if !table.ValidRatio(c.CharacterWidth) {
		return fmt.Errorf("%w: characterWidth must be at least %v, got %v", ErrInvalidConfig, table.MinRatio, c.CharacterWidth)
	}
	switch c.Logging.Format {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// Settings returns the snapshot handed to the formatter.
func (c *Config) Settings() Settings {
	return Settings{
		CharacterWidth: c.CharacterWidth,
		FormatOnSave:   c.FormatOnSave,
	}
}

// IsJSONLogging reports whether logs should be JSON encoded.
func (c *Config) IsJSONLogging() bool {
	return c.Logging.Format == "json"
}
