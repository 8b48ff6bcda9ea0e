package s3

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skiffhq/skiff/pkg/endpoint"
)

// ConfigError indicates an invalid client configuration field.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("s3 config: %s: %s", e.Field, e.Message)
}

// Config holds the settings for an S3-compatible client.
//
// SecretAccessKey is held only for request signing and is never logged
// or serialized by this package.
type Config struct {
	// Endpoint is the service base URL, e.g. "https://s3.gra.io.cloud.ovh.net".
	// Defaults to the AWS endpoint for Region.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Bucket is the bucket this client operates on. Required.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Region is the signing region. Defaults to "us-east-1".
	Region string `mapstructure:"region" yaml:"region"`

	// AccessKeyID is the credential identifier. Required.
	AccessKeyID string `mapstructure:"access_key_id" yaml:"access_key_id"`

	// SecretAccessKey is the signing secret. Required. Never logged.
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key" json:"-"`

	// AddressStyle selects virtual-hosted or path-style bucket addressing.
	// Empty means auto.
	AddressStyle endpoint.Style `mapstructure:"address_style" yaml:"address_style"`

	// AllowHTTP permits plain-HTTP endpoints. Intended for local test
	// servers such as MinIO; production endpoints must be HTTPS.
	AllowHTTP bool `mapstructure:"allow_http" yaml:"allow_http"`

	// Timeout bounds each HTTP request when HTTPClient is nil.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// HTTPClient overrides the transport. Optional.
	HTTPClient *http.Client `mapstructure:"-" yaml:"-"`

	// Logger receives debug-level request logs. Optional.
	Logger *zap.Logger `mapstructure:"-" yaml:"-"`

	// Quirks adjusts behavior for providers that deviate from AWS.
	// Nil selects defaults based on the endpoint host.
	Quirks *Quirks `mapstructure:"-" yaml:"-"`
}

// Quirks captures provider-specific protocol deviations.
type Quirks struct {
	// LeadingSlashPrefix is set for providers that treat list prefixes
	// and returned keys as rooted at "/" (observed on OVH object
	// storage). When set, the client prepends "/" to a non-empty list
	// prefix on requests and strips it from keys in responses, so
	// callers see plain keys on both sides.
	LeadingSlashPrefix bool
}

// QuirksForHost returns default quirks for a known provider host.
func QuirksForHost(host string) *Quirks {
	if strings.HasSuffix(host, ".cloud.ovh.net") || strings.Contains(host, ".ovh.") {
		return &Quirks{LeadingSlashPrefix: true}
	}
	return &Quirks{}
}

// DefaultTimeout bounds requests when no HTTP client is supplied.
const DefaultTimeout = 60 * time.Second

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "bucket", Message: "bucket name is required"}
	}
	if c.AccessKeyID == "" {
		return &ConfigError{Field: "access_key_id", Message: "access key ID is required"}
	}
	if c.SecretAccessKey == "" {
		return &ConfigError{Field: "secret_access_key", Message: "secret access key is required"}
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Endpoint == "" {
		c.Endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", c.Region)
	}
	if c.AddressStyle == "" {
		c.AddressStyle = endpoint.StyleAuto
	}
	if _, err := endpoint.ParseStyle(string(c.AddressStyle)); err != nil {
		return &ConfigError{Field: "address_style", Message: err.Error()}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}
