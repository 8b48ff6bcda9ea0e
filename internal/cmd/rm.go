package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skiffhq/skiff/internal/observability"
)

var rmCmd = &cobra.Command{
	Use:   "rm <s3://bucket/key>",
	Short: "Delete an object",
	Long: `Delete one object. Deletion is idempotent: removing a key that
does not exist succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	parsed, err := ParseURI(args[0])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() || parsed.IsPrefix() {
		return exitError(ExitInvalidArgument, "rm requires an exact object key",
			fmt.Errorf("provide an exact object URI (no glob, no trailing '/'): %s", args[0]))
	}

	client, err := newStorageClient(parsed.Bucket)
	if err != nil {
		return err
	}

	result, err := client.DeleteObject(cmd.Context(), parsed.Key)
	if err != nil {
		return storageError("Failed to delete object", err)
	}

	observability.CLILogger.Info("object deleted",
		zap.String("key", parsed.Key),
		zap.Bool("delete_marker", result.DeleteMarker),
	)
	return nil
}
