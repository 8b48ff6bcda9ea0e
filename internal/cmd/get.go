package cmd

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skiffhq/skiff/internal/observability"
)

var getCmd = &cobra.Command{
	Use:   "get <s3://bucket/key> [dest]",
	Short: "Download an object",
	Long: `Download one object to a local file.

The destination defaults to the key's base name in the working
directory. Pass "-" to stream the content to stdout.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	parsed, err := ParseURI(args[0])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() || parsed.IsPrefix() {
		return exitError(ExitInvalidArgument, "get requires an exact object key",
			fmt.Errorf("provide an exact object URI (no glob, no trailing '/'): %s", args[0]))
	}

	dest := path.Base(parsed.Key)
	if len(args) == 2 {
		dest = args[1]
	}

	client, err := newStorageClient(parsed.Bucket)
	if err != nil {
		return err
	}

	obj, err := client.GetObject(cmd.Context(), parsed.Key)
	if err != nil {
		return storageError("Failed to fetch object", err)
	}
	defer func() { _ = obj.Body.Close() }()

	var out io.Writer
	if dest == "-" {
		out = cmd.OutOrStdout()
	} else {
		f, err := os.Create(dest)
		if err != nil {
			return exitError(ExitFileWriteError, "Failed to create output file", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	n, err := io.Copy(out, obj.Body)
	if err != nil {
		return exitError(ExitFileWriteError, "Failed to write object content", err)
	}

	observability.CLILogger.Info("object downloaded",
		zap.String("key", parsed.Key),
		zap.String("dest", dest),
		zap.Int64("bytes", n),
	)
	return nil
}
