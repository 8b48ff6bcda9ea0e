package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skiffhq/skiff/internal/observability"
	"github.com/skiffhq/skiff/pkg/output"
	"github.com/skiffhq/skiff/pkg/transfer"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file> <s3://bucket/key>",
	Short: "Upload a file, using multipart transfer for large files",
	Long: `Upload a local file. Files larger than the multipart threshold
are split into parts and uploaded concurrently; a failed transfer
aborts its multipart session so no partial object remains.`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

var (
	uploadContentType string
	uploadMetadata    []string
	uploadThreshold   int64
	uploadPartSize    int64
	uploadConcurrency int
	uploadLimitRate   int64
	uploadProgress    bool
)

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "Content-Type to store")
	uploadCmd.Flags().StringArrayVar(&uploadMetadata, "meta", nil, "User metadata as key=value (repeatable)")
	uploadCmd.Flags().Int64Var(&uploadThreshold, "threshold", 0, "Multipart threshold in bytes")
	uploadCmd.Flags().Int64Var(&uploadPartSize, "part-size", 0, "Part size in bytes")
	uploadCmd.Flags().IntVar(&uploadConcurrency, "concurrency", 0, "Parts in flight")
	uploadCmd.Flags().Int64Var(&uploadLimitRate, "limit-rate", 0, "Throughput cap in bytes per second")
	uploadCmd.Flags().BoolVar(&uploadProgress, "progress", false, "Print progress to stderr")
}

func runUpload(cmd *cobra.Command, args []string) error {
	path, uri := args[0], args[1]

	parsed, err := ParseURI(uri)
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() || parsed.IsPrefix() {
		return exitError(ExitInvalidArgument, "upload requires an exact object key",
			fmt.Errorf("provide an exact object URI (no glob, no trailing '/'): %s", uri))
	}

	meta, err := parseMetadata(uploadMetadata)
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid metadata", err)
	}

	client, err := newStorageClient(parsed.Bucket)
	if err != nil {
		return err
	}

	cfg := transfer.Config{
		MultipartThreshold: runtimeCfg.Transfer.MultipartThreshold,
		PartSize:           runtimeCfg.Transfer.PartSize,
		Concurrency:        runtimeCfg.Transfer.Concurrency,
		MaxBytesPerSecond:  runtimeCfg.Transfer.MaxBytesPerSecond,
	}
	if uploadThreshold > 0 {
		cfg.MultipartThreshold = uploadThreshold
	}
	if uploadPartSize > 0 {
		cfg.PartSize = uploadPartSize
	}
	if uploadConcurrency > 0 {
		cfg.Concurrency = uploadConcurrency
	}
	if uploadLimitRate > 0 {
		cfg.MaxBytesPerSecond = uploadLimitRate
	}

	opts := &transfer.Options{ContentType: uploadContentType, Metadata: meta}
	if uploadProgress {
		stderr := cmd.ErrOrStderr()
		var transferred, lastPercent atomic.Int64
		opts.Progress = func(n, total int64) {
			done := transferred.Add(n)
			percent := int64(100)
			if total > 0 {
				percent = done * 100 / total
			}
			if percent > lastPercent.Swap(percent) {
				fmt.Fprintf(stderr, "\r%s: %3d%%", parsed.Key, percent)
				if percent == 100 {
					fmt.Fprintln(stderr)
				}
			}
		}
	}

	up := transfer.New(client, cfg, observability.CLILogger)
	result, err := up.UploadFile(cmd.Context(), parsed.Key, path, opts)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return exitError(ExitFileNotFound, "Failed to read input file", err)
		}
		return storageError("Upload failed", err)
	}

	observability.CLILogger.Info("upload complete",
		zap.String("key", result.Key),
		zap.Int64("bytes", result.Size),
		zap.Bool("multipart", result.Multipart),
		zap.Int("parts", result.Parts),
	)

	writer := output.NewJSONLWriter(cmd.OutOrStdout(), uuid.NewString(), parsed.Bucket)
	defer func() { _ = writer.Close() }()
	return writer.WriteUpload(cmd.Context(), &output.UploadRecord{
		Key:        result.Key,
		ETag:       result.ETag,
		Bytes:      result.Size,
		Multipart:  result.Multipart,
		Parts:      result.Parts,
		DurationMS: result.Duration.Milliseconds(),
	})
}
