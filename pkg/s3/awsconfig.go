package s3

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// AWSFileOptions locates shared AWS config and credentials files.
type AWSFileOptions struct {
	// Profile selects the named profile. Empty means "default".
	Profile string

	// ConfigPath overrides the config file location. Defaults to
	// ~/.aws/config.
	ConfigPath string

	// CredentialsPath points at a shared credentials file. It is only
	// read when set; its values take precedence over the config file.
	CredentialsPath string
}

// ConfigFromAWSFiles builds a client Config for bucket from the shared
// AWS config file format. Resolution order per field: credentials file
// (when given), then config file, then the AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY and AWS_DEFAULT_REGION environment variables.
func ConfigFromAWSFiles(bucket string, opts AWSFileOptions) (Config, error) {
	profile := opts.Profile
	if profile == "" {
		profile = "default"
	}

	cfg := Config{Bucket: bucket}

	configPath := opts.ConfigPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("aws config: resolve home directory: %w", err)
		}
		configPath = filepath.Join(home, ".aws", "config")
	}

	// The config file names non-default sections "profile <name>";
	// the credentials file uses the bare profile name.
	configSection := profile
	if profile != "default" {
		configSection = "profile " + profile
	}

	if section, err := loadSection(configPath, configSection); err != nil {
		return Config{}, err
	} else if section != nil {
		cfg.AccessKeyID = section.Key("aws_access_key_id").String()
		cfg.SecretAccessKey = section.Key("aws_secret_access_key").String()
		cfg.Region = section.Key("region").String()
		cfg.Endpoint = section.Key("endpoint_url").String()
	}

	if opts.CredentialsPath != "" {
		section, err := loadSection(opts.CredentialsPath, profile)
		if err != nil {
			return Config{}, err
		}
		if section != nil {
			if v := section.Key("aws_access_key_id").String(); v != "" {
				cfg.AccessKeyID = v
			}
			if v := section.Key("aws_secret_access_key").String(); v != "" {
				cfg.SecretAccessKey = v
			}
		}
	}

	if cfg.AccessKeyID == "" {
		cfg.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if cfg.SecretAccessKey == "" {
		cfg.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_DEFAULT_REGION")
	}

	return cfg, nil
}

// NewFromAWSFiles builds a client for bucket from the shared AWS files.
func NewFromAWSFiles(bucket string, opts AWSFileOptions) (*Client, error) {
	cfg, err := ConfigFromAWSFiles(bucket, opts)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// loadSection reads one named section from an INI file. A missing file
// or section yields (nil, nil); callers fall through to environment
// variables.
func loadSection(path, name string) (*ini.Section, error) {
	file, err := ini.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("aws config: read %s: %w", path, err)
	}
	if !file.HasSection(name) {
		return nil, nil
	}
	return file.Section(name), nil
}
