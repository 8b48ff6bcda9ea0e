package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/skiffhq/skiff/pkg/endpoint"
	"github.com/skiffhq/skiff/pkg/transfer"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	// Keep the loader away from any config file on the host.
	chdirTemp := func(t *testing.T) {
		t.Helper()
		dir := t.TempDir()
		t.Chdir(dir)
		t.Setenv("HOME", dir)
	}

	t.Run("LoadDefaults", func(t *testing.T) {
		chdirTemp(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, endpoint.StyleAuto, cfg.Storage.AddressStyle)
		assert.False(t, cfg.Storage.AllowHTTP)

		assert.Equal(t, int64(transfer.DefaultMultipartThreshold), cfg.Transfer.MultipartThreshold)
		assert.Equal(t, int64(transfer.DefaultPartSize), cfg.Transfer.PartSize)
		assert.Equal(t, transfer.DefaultConcurrency, cfg.Transfer.Concurrency)
		assert.Zero(t, cfg.Transfer.MaxBytesPerSecond)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		chdirTemp(t)

		overrides := map[string]any{
			"storage": map[string]any{
				"bucket":   "data",
				"endpoint": "https://s3.example.com",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "data", cfg.Storage.Bucket)
		assert.Equal(t, "https://s3.example.com", cfg.Storage.Endpoint)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Non-overridden values keep their defaults.
		assert.Equal(t, "console", cfg.Logging.Format)
		assert.Equal(t, transfer.DefaultConcurrency, cfg.Transfer.Concurrency)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("SKIFF_STORAGE_BUCKET", "env-bucket")
		t.Setenv("SKIFF_STORAGE_ADDRESS_STYLE", "path-style")
		t.Setenv("SKIFF_TRANSFER_CONCURRENCY", "3")
		t.Setenv("SKIFF_LOGGING_LEVEL", "warn")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "env-bucket", cfg.Storage.Bucket)
		assert.Equal(t, endpoint.StylePath, cfg.Storage.AddressStyle)
		assert.Equal(t, 3, cfg.Transfer.Concurrency)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "skiff.yaml")
		raw, err := yaml.Marshal(map[string]any{
			"storage": map[string]any{
				"bucket":     "file-bucket",
				"region":     "eu-west-1",
				"allow_http": true,
			},
			"transfer": map[string]any{
				"part_size": 16777216,
			},
		})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, raw, 0o600))
		t.Setenv("SKIFF_CONFIG", path)

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "file-bucket", cfg.Storage.Bucket)
		assert.Equal(t, "eu-west-1", cfg.Storage.Region)
		assert.True(t, cfg.Storage.AllowHTTP)
		assert.Equal(t, int64(16<<20), cfg.Transfer.PartSize)
	})

	t.Run("InvalidAddressStyle", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("SKIFF_STORAGE_ADDRESS_STYLE", "dns")

		_, err := Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "address_style")
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("SKIFF_LOGGING_LEVEL", "loud")

		_, err := Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logging.level")
	})
}
