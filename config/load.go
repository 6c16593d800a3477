package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// IMGKIT_COMPRESSION_MAX_ATTEMPTS=6.
const EnvPrefix = "IMGKIT"

// Load reads configuration from path (optional), the default search paths
// and the environment, on top of Default().
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance, so a CLI can bind
// its flags before reading.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("imgkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.config/imgkit")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine; defaults and env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("default_quality", d.DefaultQuality)
	v.SetDefault("default_format", d.DefaultFormat)
	v.SetDefault("resampling", d.Resampling)
	v.SetDefault("max_image_bytes", d.MaxImageBytes)
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("compression.max_attempts", d.Compression.MaxAttempts)
	v.SetDefault("compression.formats", d.Compression.Formats)
	v.SetDefault("compression.qualities", d.Compression.Qualities)
	v.SetDefault("compression.downscale_threshold", d.Compression.DownscaleThreshold)
	v.SetDefault("compression.downscale_correction", d.Compression.DownscaleCorrection)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.permissions", d.Output.Permissions)
	v.SetDefault("output.sidecar", d.Output.Sidecar)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.json_format", d.Logging.JSONFormat)
}
