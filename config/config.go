package config

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Config is the top-level configuration struct.  Start from Default() and
// override only what you need.
type Config struct {
	// DefaultQuality is the encode quality in [0,1] used when a pipeline
	// does not set one.
	DefaultQuality float64 `mapstructure:"default_quality"`
	DefaultFormat  string  `mapstructure:"default_format"`

	// Resampling is the default resize tier: pixelated, smooth or high-quality.
	Resampling string `mapstructure:"resampling"`

	// Streaming / memory limits.
	MaxImageBytes int64 `mapstructure:"max_image_bytes"` // 0 = no limit
	ChunkSize     int   `mapstructure:"chunk_size"`      // default 32 KiB

	Compression CompressionConfig `mapstructure:"compression"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Output      OutputConfig      `mapstructure:"output"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CompressionConfig controls the size-targeted compression search.
type CompressionConfig struct {
	MaxAttempts int       `mapstructure:"max_attempts"`
	Formats     []string  `mapstructure:"formats"`
	Qualities   []float64 `mapstructure:"qualities"`

	// DownscaleThreshold is the bytes-per-pixel budget under which the
	// source is shrunk before encoding.
	DownscaleThreshold float64 `mapstructure:"downscale_threshold"`
	// DownscaleCorrection scales the budget ratio before the square root.
	DownscaleCorrection float64 `mapstructure:"downscale_correction"`
}

// FetchConfig configures decoding from URLs.
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// OutputConfig configures where the CLI writes results.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	Permissions uint32 `mapstructure:"permissions"` // default 0644
	Sidecar     bool   `mapstructure:"sidecar"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level      string `mapstructure:"level"` // "debug", "info", "warn", "error"
	JSONFormat bool   `mapstructure:"json_format"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		DefaultQuality: 0.92,
		DefaultFormat:  "png",
		Resampling:     "high-quality",
		ChunkSize:      32 * 1024,
		MaxImageBytes:  64 << 20,
		Compression: CompressionConfig{
			MaxAttempts:         8,
			Formats:             []string{"webp", "jpeg"},
			Qualities:           []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2},
			DownscaleThreshold:  0.1,
			DownscaleCorrection: 10,
		},
		Fetch: FetchConfig{
			Timeout:   20 * time.Second,
			UserAgent: "image-toolkit/1.0",
		},
		Output: OutputConfig{
			Dir:         ".",
			Permissions: 0o644,
			Sidecar:     true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.DefaultQuality < 0 || c.DefaultQuality > 1 || math.IsNaN(c.DefaultQuality) {
		return errors.New("config: default_quality must be between 0 and 1")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.MaxImageBytes < 0 {
		return errors.New("config: max_image_bytes must not be negative")
	}
	cc := c.Compression
	if cc.MaxAttempts < 1 {
		return errors.New("config: compression.max_attempts must be at least 1")
	}
	if len(cc.Formats) == 0 {
		return errors.New("config: compression.formats must not be empty")
	}
	if len(cc.Qualities) == 0 {
		return errors.New("config: compression.qualities must not be empty")
	}
	for i, q := range cc.Qualities {
		if q < 0 || q > 1 || math.IsNaN(q) {
			return fmt.Errorf("config: compression.qualities[%d]=%v outside [0,1]", i, q)
		}
		if i > 0 && q >= cc.Qualities[i-1] {
			return errors.New("config: compression.qualities must be strictly descending")
		}
	}
	if cc.DownscaleThreshold < 0 || cc.DownscaleCorrection <= 0 {
		return errors.New("config: compression downscale parameters must be positive")
	}
	if c.Fetch.Timeout < 0 {
		return errors.New("config: fetch.timeout must not be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown logging.level %q", c.Logging.Level)
	}
	return nil
}
