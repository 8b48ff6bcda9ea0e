package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var presignCmd = &cobra.Command{
	Use:   "presign <s3://bucket/key>",
	Short: "Generate a presigned URL",
	Long: `Generate a presigned URL carrying its signature in the query
string. Anyone holding the URL can perform the signed method on the
object until it expires, without further credentials.`,
	Args: cobra.ExactArgs(1),
	RunE: runPresign,
}

var (
	presignExpires time.Duration
	presignMethod  string
)

func init() {
	rootCmd.AddCommand(presignCmd)

	presignCmd.Flags().DurationVar(&presignExpires, "expires", time.Hour, "Validity window (max 168h)")
	presignCmd.Flags().StringVar(&presignMethod, "method", http.MethodGet, "HTTP method to sign")
}

func runPresign(cmd *cobra.Command, args []string) error {
	parsed, err := ParseURI(args[0])
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.IsPattern() || parsed.IsPrefix() {
		return exitError(ExitInvalidArgument, "presign requires an exact object key",
			fmt.Errorf("provide an exact object URI (no glob, no trailing '/'): %s", args[0]))
	}

	client, err := newStorageClient(parsed.Bucket)
	if err != nil {
		return err
	}

	signed, err := client.PresignedURL(strings.ToUpper(presignMethod), parsed.Key, presignExpires)
	if err != nil {
		return exitError(ExitInvalidArgument, "Failed to presign URL", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), signed)
	return nil
}
