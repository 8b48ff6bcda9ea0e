package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skiffhq/skiff/internal/observability"
	"github.com/skiffhq/skiff/pkg/s3"
)

var mbCmd = &cobra.Command{
	Use:   "mb <s3://bucket>",
	Short: "Create a bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runMb,
}

var (
	mbACL        string
	mbObjectLock bool
	mbOwnership  string
)

func init() {
	rootCmd.AddCommand(mbCmd)

	mbCmd.Flags().StringVar(&mbACL, "acl", "", "Canned ACL for the new bucket")
	mbCmd.Flags().BoolVar(&mbObjectLock, "object-lock", false, "Enable object lock")
	mbCmd.Flags().StringVar(&mbOwnership, "ownership", "", "Object ownership control")
}

func runMb(cmd *cobra.Command, args []string) error {
	parsed, err := ParseURI(args[0])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.Key != "" || parsed.IsPattern() {
		return exitError(ExitInvalidArgument, "mb takes a bucket URI",
			fmt.Errorf("expected s3://bucket, got %s", args[0]))
	}

	client, err := newStorageClient(parsed.Bucket)
	if err != nil {
		return err
	}

	result, err := client.CreateBucket(cmd.Context(), &s3.CreateBucketOptions{
		Region:            runtimeCfg.Storage.Region,
		ACL:               mbACL,
		ObjectLockEnabled: mbObjectLock,
		ObjectOwnership:   mbOwnership,
	})
	if err != nil {
		return storageError("Failed to create bucket", err)
	}

	observability.CLILogger.Info("bucket created",
		zap.String("bucket", parsed.Bucket),
		zap.String("location", result.Location),
	)
	return nil
}
