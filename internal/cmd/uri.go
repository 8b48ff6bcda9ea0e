package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skiffhq/skiff/pkg/match"
)

// URI parsing errors
var (
	// ErrInvalidURI indicates the URI could not be parsed.
	ErrInvalidURI = errors.New("invalid URI")

	// ErrUnsupportedScheme indicates the URI scheme is not supported.
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	// ErrMissingBucket indicates the URI is missing a bucket name.
	ErrMissingBucket = errors.New("missing bucket name")
)

// ObjectURI is a parsed object storage URI.
//
// Example URIs:
//   - s3://bucket
//   - s3://bucket/key/path.txt
//   - s3://bucket/prefix/
//   - s3://bucket/prefix/**/*.parquet
type ObjectURI struct {
	// Bucket is the bucket name.
	Bucket string

	// Key is the object key or prefix. May be empty for bucket root.
	Key string

	// Pattern is set if the key part contains glob characters. When
	// set, Key holds the literal prefix before the first glob.
	Pattern string
}

// String returns the URI in canonical form.
func (u *ObjectURI) String() string {
	if u.Pattern != "" {
		return fmt.Sprintf("s3://%s/%s", u.Bucket, u.Pattern)
	}
	if u.Key != "" {
		return fmt.Sprintf("s3://%s/%s", u.Bucket, u.Key)
	}
	return fmt.Sprintf("s3://%s/", u.Bucket)
}

// IsPattern reports whether the URI contains glob pattern characters.
func (u *ObjectURI) IsPattern() bool {
	return u.Pattern != ""
}

// IsPrefix reports whether the URI is a prefix (empty or ends with /).
func (u *ObjectURI) IsPrefix() bool {
	return u.Key == "" || strings.HasSuffix(u.Key, "/")
}

// ParseURI parses an s3:// URI into its components. The scheme and
// bucket are required; glob characters in the key switch the URI into
// pattern form.
//
// Parsing is manual: url.Parse would treat "?" in a glob as a query
// delimiter.
func ParseURI(uri string) (*ObjectURI, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty URI", ErrInvalidURI)
	}

	schemeEnd := strings.Index(uri, "://")
	if schemeEnd == -1 {
		return nil, fmt.Errorf("%w: missing scheme (expected s3://...)", ErrInvalidURI)
	}
	scheme := strings.ToLower(uri[:schemeEnd])
	if scheme != "s3" {
		return nil, fmt.Errorf("%w: %s (supported: s3)", ErrUnsupportedScheme, scheme)
	}

	remainder := uri[schemeEnd+3:]
	if remainder == "" {
		return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
	}

	bucket, key := remainder, ""
	if i := strings.Index(remainder, "/"); i != -1 {
		bucket, key = remainder[:i], remainder[i+1:]
	}
	if bucket == "" {
		return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
	}

	result := &ObjectURI{Bucket: bucket}
	if match.IsGlobPattern(key) {
		result.Pattern = key
		result.Key = match.DerivePrefix(key)
	} else {
		result.Key = unescapeKey(key)
	}
	return result, nil
}

// unescapeKey strips backslash escapes used to protect literal glob
// metacharacters, e.g. "file\*.txt" addresses the key "file*.txt".
func unescapeKey(key string) string {
	if !strings.Contains(key, `\`) {
		return key
	}
	var b strings.Builder
	escaped := false
	for _, r := range key {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
