// Package cmd implements the skiff command-line interface.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/skiffhq/skiff/internal/config"
	"github.com/skiffhq/skiff/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "skiff",
	Short: "Object storage client for S3-compatible services",
	Long: `skiff talks to S3-compatible object storage using SigV4-signed
requests: upload, download, list, presign, and bucket management.

Credentials come from flags, SKIFF_* environment variables, or a shared
AWS config profile (--profile). Custom endpoints (OVH, MinIO, Ceph) are
selected with --endpoint.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
}

// versionInfo is populated at build time via SetVersionInfo.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = version
}

var (
	rootEndpoint     string
	rootRegion       string
	rootProfile      string
	rootAddressStyle string
	rootAllowHTTP    bool
	rootVerbose      bool
	rootLogFormat    string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootEndpoint, "endpoint", "", "Custom S3 endpoint URL")
	pf.StringVarP(&rootRegion, "region", "r", "", "Signing region")
	pf.StringVarP(&rootProfile, "profile", "p", "", "AWS config profile for credentials")
	pf.StringVar(&rootAddressStyle, "address-style", "", "Bucket addressing: auto, virtual-hosted, or path-style")
	pf.BoolVar(&rootAllowHTTP, "allow-http", false, "Permit plain-HTTP endpoints (local testing only)")
	pf.BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&rootLogFormat, "log-format", "", "Log format: console or json")
}

// runtimeCfg holds the merged configuration for the current invocation.
var runtimeCfg *config.Config

// initRuntime merges flags over file/env configuration and sets up
// logging before any command runs.
func initRuntime(cmd *cobra.Command, _ []string) error {
	storage := map[string]any{}
	logging := map[string]any{}

	if rootEndpoint != "" {
		storage["endpoint"] = rootEndpoint
	}
	if rootRegion != "" {
		storage["region"] = rootRegion
	}
	if rootProfile != "" {
		storage["profile"] = rootProfile
	}
	if rootAddressStyle != "" {
		storage["address_style"] = rootAddressStyle
	}
	if rootAllowHTTP {
		storage["allow_http"] = true
	}
	if rootVerbose {
		logging["level"] = "debug"
	}
	if rootLogFormat != "" {
		logging["format"] = rootLogFormat
	}

	overrides := map[string]any{}
	if len(storage) > 0 {
		overrides["storage"] = storage
	}
	if len(logging) > 0 {
		overrides["logging"] = logging
	}

	cfg, err := config.Load(cmd.Context(), overrides)
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid configuration", err)
	}
	runtimeCfg = cfg

	if err := observability.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return exitError(ExitInvalidArgument, "Invalid logging configuration", err)
	}
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	return rootCmd.ExecuteContext(ctx)
}
