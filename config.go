package ggraph

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
)

// Hard caps applied on top of device limits.
const (
	// MaxTexRows bounds the number of rows per atlas page.
	MaxTexRows = 54

	// MaxBatchSize bounds the number of instances per draw call.
	MaxBatchSize = 16384
)

// Config holds the renderer configuration.
//
// The zero value is not usable; start from DefaultConfig.
type Config struct {
	// TexSize is the side length of a square atlas page in pixels.
	TexSize int `toml:"tex_size"`

	// TexRows is the number of equal-height rows in an atlas page.
	TexRows int `toml:"tex_rows"`

	// BatchSize is the maximum number of instances per draw call.
	BatchSize int `toml:"batch_size"`

	// TexPerBatch is the maximum number of atlas pages bound per draw call.
	TexPerBatch int `toml:"tex_per_batch"`

	// Background is the background color as a hex string ("#rrggbb").
	// Arrowheads are composited against it.
	Background string `toml:"background"`

	// MaxZoom is the zoom level above which GPU rendering is skipped.
	MaxZoom float64 `toml:"max_zoom"`

	// GCDelay is the quiet period after the last invalidation before
	// atlas garbage collection runs.
	GCDelay Duration `toml:"gc_delay"`

	// Debug enables per-frame reports at debug level.
	Debug bool `toml:"debug"`

	// DebugShowAtlases keeps a copy of every atlas page after each frame.
	DebugShowAtlases bool `toml:"debug_show_atlases"`
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{
		TexSize:     2048,
		TexRows:     36,
		BatchSize:   2048,
		TexPerBatch: 14,
		Background:  "#ffffff",
		MaxZoom:     7.99,
		GCDelay:     Duration(10 * time.Second),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TexSize < 64 {
		return &ConfigError{Field: "TexSize", Reason: "must be at least 64"}
	}
	if c.TexRows < 1 {
		return &ConfigError{Field: "TexRows", Reason: "must be at least 1"}
	}
	if c.TexRows > c.TexSize {
		return &ConfigError{Field: "TexRows", Reason: "must be at most TexSize"}
	}
	if c.BatchSize < 1 {
		return &ConfigError{Field: "BatchSize", Reason: "must be at least 1"}
	}
	if c.TexPerBatch < 1 {
		return &ConfigError{Field: "TexPerBatch", Reason: "must be at least 1"}
	}
	if c.MaxZoom <= 0 {
		return &ConfigError{Field: "MaxZoom", Reason: "must be positive"}
	}
	if c.GCDelay < 0 {
		return &ConfigError{Field: "GCDelay", Reason: "must be non-negative"}
	}
	if _, err := c.BackgroundColor(); err != nil {
		return &ConfigError{Field: "Background", Reason: err.Error()}
	}
	return nil
}

// Clamp returns a copy of c with every size bounded by the device limits
// and the hard caps.
func (c Config) Clamp(limits gputypes.Limits) Config {
	if limits.MaxTextureDimension2D > 0 {
		c.TexSize = min(c.TexSize, int(limits.MaxTextureDimension2D))
	}
	c.TexRows = min(c.TexRows, MaxTexRows)
	c.BatchSize = min(c.BatchSize, MaxBatchSize)
	if limits.MaxSampledTexturesPerShaderStage > 0 {
		c.TexPerBatch = min(c.TexPerBatch, int(limits.MaxSampledTexturesPerShaderStage))
	}
	return c
}

// BackgroundColor parses Background.
func (c *Config) BackgroundColor() (colorful.Color, error) {
	if c.Background == "" {
		return colorful.Color{R: 1, G: 1, B: 1}, nil
	}
	col, err := colorful.Hex(c.Background)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("parse background %q: %w", c.Background, err)
	}
	return col, nil
}

// LoadConfig reads a TOML configuration file on top of DefaultConfig.
// A missing file is not an error and yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Duration is a time.Duration that reads from TOML strings such as "10s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "ggraph: invalid config." + e.Field + ": " + e.Reason
}

// Is reports ErrInvalidConfig as a match so callers can test with errors.Is.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
