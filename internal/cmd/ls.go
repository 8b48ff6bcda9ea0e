package cmd

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skiffhq/skiff/pkg/match"
	"github.com/skiffhq/skiff/pkg/output"
	"github.com/skiffhq/skiff/pkg/s3"
)

var lsCmd = &cobra.Command{
	Use:   "ls <s3://bucket[/prefix or glob]>",
	Short: "List objects as JSONL records",
	Long: `List objects under a prefix, optionally filtered by glob patterns.

A glob in the URI becomes the include pattern; listing is narrowed to
the literal prefix before the first metacharacter. Examples:

  skiff ls s3://bucket/
  skiff ls s3://bucket/logs/2024/
  skiff ls 's3://bucket/logs/**/*.gz' --exclude 'logs/tmp/**'
`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

var (
	lsExcludes      []string
	lsMaxKeys       int
	lsIncludeHidden bool
	lsSummary       bool
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().StringArrayVar(&lsExcludes, "exclude", nil, "Glob patterns to exclude (repeatable)")
	lsCmd.Flags().IntVar(&lsMaxKeys, "max-keys", 0, "Page size requested from the service")
	lsCmd.Flags().BoolVar(&lsIncludeHidden, "include-hidden", false, "Include keys with dot-prefixed segments")
	lsCmd.Flags().BoolVar(&lsSummary, "summary", true, "Emit a trailing summary record")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	parsed, err := ParseURI(args[0])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}

	var matcher *match.Matcher
	if parsed.IsPattern() || len(lsExcludes) > 0 {
		include := parsed.Pattern
		if include == "" {
			include = parsed.Key + "**"
		}
		matcher, err = match.New(match.Config{
			Includes:      []string{include},
			Excludes:      lsExcludes,
			IncludeHidden: lsIncludeHidden,
		})
		if err != nil {
			return exitError(ExitInvalidArgument, "Invalid match patterns", err)
		}
	}

	client, err := newStorageClient(parsed.Bucket)
	if err != nil {
		return err
	}

	writer := output.NewJSONLWriter(cmd.OutOrStdout(), uuid.NewString(), parsed.Bucket)
	defer func() { _ = writer.Close() }()

	var objects, bytes int64
	opts := s3.ListOptions{Prefix: parsed.Key, MaxKeys: lsMaxKeys}
	for {
		page, err := client.ListObjects(ctx, opts)
		if err != nil {
			return storageError("Failed to list objects", err)
		}
		for _, obj := range page.Objects {
			if matcher != nil && !matcher.Match(obj.Key) {
				continue
			}
			if err := writer.WriteObject(ctx, &output.ObjectRecord{
				Key:          obj.Key,
				Size:         obj.Size,
				ETag:         obj.ETag,
				LastModified: obj.LastModified,
			}); err != nil {
				return exitError(ExitFileWriteError, "Failed to write record", err)
			}
			objects++
			bytes += obj.Size
		}
		if !page.IsTruncated || page.NextContinuationToken == "" {
			break
		}
		opts.ContinuationToken = page.NextContinuationToken
	}

	if lsSummary {
		return writer.WriteSummary(ctx, &output.SummaryRecord{
			Objects:    objects,
			Bytes:      bytes,
			DurationMS: time.Since(start).Milliseconds(),
		})
	}
	return nil
}
