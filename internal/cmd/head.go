package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skiffhq/skiff/pkg/output"
)

var headCmd = &cobra.Command{
	Use:   "head <s3://bucket/key>",
	Short: "Print an object's metadata without its content",
	Args:  cobra.ExactArgs(1),
	RunE:  runHead,
}

func init() {
	rootCmd.AddCommand(headCmd)
}

func runHead(cmd *cobra.Command, args []string) error {
	parsed, err := ParseURI(args[0])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() || parsed.IsPrefix() {
		return exitError(ExitInvalidArgument, "head requires an exact object key",
			fmt.Errorf("provide an exact object URI (no glob, no trailing '/'): %s", args[0]))
	}

	client, err := newStorageClient(parsed.Bucket)
	if err != nil {
		return err
	}

	info, err := client.HeadObject(cmd.Context(), parsed.Key)
	if err != nil {
		return storageError("Failed to fetch object metadata", err)
	}

	writer := output.NewJSONLWriter(cmd.OutOrStdout(), uuid.NewString(), parsed.Bucket)
	defer func() { _ = writer.Close() }()
	return writer.WriteObject(cmd.Context(), &output.ObjectRecord{
		Key:          info.Key,
		Size:         info.ContentLength,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
		Metadata:     info.Metadata,
	})
}
