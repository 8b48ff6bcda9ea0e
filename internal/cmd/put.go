package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skiffhq/skiff/pkg/output"
	"github.com/skiffhq/skiff/pkg/s3"
)

var putCmd = &cobra.Command{
	Use:   "put <file> <s3://bucket/key>",
	Short: "Store a file as a single object",
	Long: `Store a local file as one object with a single PUT request.

For large files, prefer "skiff upload", which switches to concurrent
multipart transfers above the configured threshold.`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

var (
	putContentType string
	putMetadata    []string
)

func init() {
	rootCmd.AddCommand(putCmd)

	putCmd.Flags().StringVar(&putContentType, "content-type", "", "Content-Type to store")
	putCmd.Flags().StringArrayVar(&putMetadata, "meta", nil, "User metadata as key=value (repeatable)")
}

func runPut(cmd *cobra.Command, args []string) error {
	path, uri := args[0], args[1]

	parsed, err := ParseURI(uri)
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() || parsed.IsPrefix() {
		return exitError(ExitInvalidArgument, "put requires an exact object key",
			fmt.Errorf("provide an exact object URI (no glob, no trailing '/'): %s", uri))
	}

	meta, err := parseMetadata(putMetadata)
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid metadata", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return exitError(ExitFileNotFound, "Failed to read input file", err)
	}

	client, err := newStorageClient(parsed.Bucket)
	if err != nil {
		return err
	}

	result, err := client.PutObject(cmd.Context(), parsed.Key, data, &s3.PutOptions{
		ContentType: putContentType,
		Metadata:    meta,
	})
	if err != nil {
		return storageError("Failed to store object", err)
	}

	writer := output.NewJSONLWriter(cmd.OutOrStdout(), uuid.NewString(), parsed.Bucket)
	defer func() { _ = writer.Close() }()
	return writer.WriteUpload(cmd.Context(), &output.UploadRecord{
		Key:   parsed.Key,
		ETag:  result.ETag,
		Bytes: int64(len(data)),
		Parts: 1,
	})
}
