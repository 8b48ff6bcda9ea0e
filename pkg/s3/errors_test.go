package s3

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{
			name:     "404 no body",
			status:   404,
			body:     "",
			sentinel: ErrNotFound,
		},
		{
			name:     "NoSuchKey",
			status:   404,
			body:     `<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`,
			sentinel: ErrNotFound,
		},
		{
			name:     "NoSuchBucket",
			status:   404,
			body:     `<Error><Code>NoSuchBucket</Code><Message>The specified bucket does not exist.</Message></Error>`,
			sentinel: ErrBucketNotFound,
		},
		{
			name:     "403",
			status:   403,
			body:     `<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`,
			sentinel: ErrAccessDenied,
		},
		{
			name:     "AccessDenied code on odd status",
			status:   400,
			body:     `<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`,
			sentinel: ErrAccessDenied,
		},
		{
			name:     "InvalidRequest",
			status:   400,
			body:     `<Error><Code>InvalidRequest</Code><Message>bad</Message></Error>`,
			sentinel: ErrInvalidRequest,
		},
		{
			name:     "generic 4xx",
			status:   409,
			body:     `<Error><Code>BucketNotEmpty</Code><Message>not empty</Message></Error>`,
			sentinel: ErrClientError,
		},
		{
			name:     "generic 5xx",
			status:   503,
			body:     `<Error><Code>SlowDown</Code><Message>busy</Message></Error>`,
			sentinel: ErrServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newResponseError("Op", "bucket", "key", tt.status, strings.NewReader(tt.body))
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestResponseErrorMessage(t *testing.T) {
	err := newResponseError("GetObject", "data", "a.txt", 404,
		strings.NewReader(`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))

	assert.Equal(t, "NoSuchKey", err.Code)
	assert.Equal(t, "The specified key does not exist.", err.Message)
	assert.Contains(t, err.Error(), "GetObject")
	assert.Contains(t, err.Error(), "data/a.txt")
}

func TestResponseErrorNonXMLBody(t *testing.T) {
	err := newResponseError("GetObject", "data", "a.txt", 500, strings.NewReader("upstream gateway exploded"))

	assert.Equal(t, "Unknown", err.Code)
	assert.Equal(t, "upstream gateway exploded", err.Message)
	assert.ErrorIs(t, err, ErrServerError)
}

func TestConfigValidate(t *testing.T) {
	base := Config{
		Bucket:          "data",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}

	t.Run("defaults applied", func(t *testing.T) {
		cfg := base
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "us-east-1", cfg.Region)
		assert.Equal(t, "https://s3.us-east-1.amazonaws.com", cfg.Endpoint)
		assert.Equal(t, DefaultTimeout, cfg.Timeout)
	})

	t.Run("missing bucket", func(t *testing.T) {
		cfg := base
		cfg.Bucket = ""
		var ce *ConfigError
		require.ErrorAs(t, cfg.Validate(), &ce)
		assert.Equal(t, "bucket", ce.Field)
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := base
		cfg.SecretAccessKey = ""
		var ce *ConfigError
		require.ErrorAs(t, cfg.Validate(), &ce)
		assert.Equal(t, "secret_access_key", ce.Field)
	})

	t.Run("bad address style", func(t *testing.T) {
		cfg := base
		cfg.AddressStyle = "dns"
		var ce *ConfigError
		require.ErrorAs(t, cfg.Validate(), &ce)
		assert.Equal(t, "address_style", ce.Field)
	})
}

func TestQuirksForHost(t *testing.T) {
	assert.True(t, QuirksForHost("s3.gra.io.cloud.ovh.net").LeadingSlashPrefix)
	assert.False(t, QuirksForHost("s3.us-east-1.amazonaws.com").LeadingSlashPrefix)
	assert.False(t, QuirksForHost("localhost").LeadingSlashPrefix)
}
