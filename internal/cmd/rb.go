package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skiffhq/skiff/internal/observability"
)

var rbCmd = &cobra.Command{
	Use:   "rb <s3://bucket>",
	Short: "Delete an empty bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runRb,
}

func init() {
	rootCmd.AddCommand(rbCmd)
}

func runRb(cmd *cobra.Command, args []string) error {
	parsed, err := ParseURI(args[0])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.Key != "" || parsed.IsPattern() {
		return exitError(ExitInvalidArgument, "rb takes a bucket URI",
			fmt.Errorf("expected s3://bucket, got %s", args[0]))
	}

	client, err := newStorageClient(parsed.Bucket)
	if err != nil {
		return err
	}

	if err := client.DeleteBucket(cmd.Context()); err != nil {
		return storageError("Failed to delete bucket", err)
	}

	observability.CLILogger.Info("bucket deleted", zap.String("bucket", parsed.Bucket))
	return nil
}
