package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/skiffhq/skiff/internal/observability"
	"github.com/skiffhq/skiff/pkg/s3"
)

// newStorageClient builds a client for bucket from the merged runtime
// configuration. Credential resolution order: explicit config/env
// values, the named AWS profile, then AWS_* environment variables.
func newStorageClient(bucket string) (*s3.Client, error) {
	st := runtimeCfg.Storage

	cfg := s3.Config{
		Endpoint:        st.Endpoint,
		Bucket:          bucket,
		Region:          st.Region,
		AccessKeyID:     st.AccessKeyID,
		SecretAccessKey: st.SecretAccessKey,
		AddressStyle:    st.AddressStyle,
		AllowHTTP:       st.AllowHTTP,
		Logger:          observability.CLILogger,
	}

	if cfg.AccessKeyID == "" && st.Profile != "" {
		fromFiles, err := s3.ConfigFromAWSFiles(bucket, s3.AWSFileOptions{Profile: st.Profile})
		if err != nil {
			return nil, exitError(ExitInvalidArgument, "Failed to read AWS profile", err)
		}
		cfg.AccessKeyID = fromFiles.AccessKeyID
		cfg.SecretAccessKey = fromFiles.SecretAccessKey
		if cfg.Region == "" {
			cfg.Region = fromFiles.Region
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = fromFiles.Endpoint
		}
	}

	if cfg.AccessKeyID == "" {
		cfg.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_DEFAULT_REGION")
	}

	client, err := s3.New(cfg)
	if err != nil {
		return nil, exitError(ExitInvalidArgument, "Invalid storage configuration", err)
	}
	return client, nil
}

// parseMetadata converts repeated key=value flags into a metadata map.
func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("metadata must be key=value, got %q", pair)
		}
		meta[k] = v
	}
	return meta, nil
}
