// Package config loads tool configuration from defaults, an optional
// YAML config file, environment variables, and runtime overrides, in
// increasing order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/skiffhq/skiff/pkg/endpoint"
	"github.com/skiffhq/skiff/pkg/transfer"
)

// envPrefix namespaces environment overrides, e.g. SKIFF_STORAGE_BUCKET.
const envPrefix = "SKIFF"

// Config is the full tool configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig selects the endpoint, bucket, and credentials.
type StorageConfig struct {
	Endpoint        string         `mapstructure:"endpoint"`
	Bucket          string         `mapstructure:"bucket"`
	Region          string         `mapstructure:"region"`
	AccessKeyID     string         `mapstructure:"access_key_id"`
	SecretAccessKey string         `mapstructure:"secret_access_key"`
	AddressStyle    endpoint.Style `mapstructure:"address_style"`
	AllowHTTP       bool           `mapstructure:"allow_http"`

	// Profile names a shared AWS config profile to read credentials
	// from when none are set here.
	Profile string `mapstructure:"profile"`
}

// TransferConfig tunes the upload orchestrator.
type TransferConfig struct {
	MultipartThreshold int64 `mapstructure:"multipart_threshold"`
	PartSize           int64 `mapstructure:"part_size"`
	Concurrency        int   `mapstructure:"concurrency"`
	MaxBytesPerSecond  int64 `mapstructure:"max_bytes_per_second"`
}

// LoggingConfig tunes the CLI logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
}

// Load builds the configuration. Optional override maps (typically
// from command-line flags) take precedence over file and environment
// values.
func Load(_ context.Context, overrides ...map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	for _, override := range overrides {
		applyOverride(v, "", override)
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyOverride sets nested override values individually so they win
// over every other source, including environment variables.
func applyOverride(v *viper.Viper, prefix string, values map[string]any) {
	for key, val := range values {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			applyOverride(v, full, nested)
			continue
		}
		v.Set(full, val)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.address_style", string(endpoint.StyleAuto))
	v.SetDefault("storage.allow_http", false)
	v.SetDefault("storage.profile", "")

	v.SetDefault("transfer.multipart_threshold", int64(transfer.DefaultMultipartThreshold))
	v.SetDefault("transfer.part_size", int64(transfer.DefaultPartSize))
	v.SetDefault("transfer.concurrency", transfer.DefaultConcurrency)
	v.SetDefault("transfer.max_bytes_per_second", int64(0))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// readConfigFile loads skiff.yaml from SKIFF_CONFIG, the working
// directory, or ~/.config/skiff. A missing file is not an error.
func readConfigFile(v *viper.Viper) error {
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("skiff")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "skiff"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := endpoint.ParseStyle(string(c.Storage.AddressStyle)); err != nil {
		return fmt.Errorf("config: storage.address_style: %w", err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: logging.format: unknown format %q", c.Logging.Format)
	}
	if c.Transfer.Concurrency < 0 {
		return fmt.Errorf("config: transfer.concurrency: must not be negative")
	}
	return nil
}
