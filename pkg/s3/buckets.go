package s3

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CreateBucketOptions carries optional attributes for bucket creation.
type CreateBucketOptions struct {
	// Region becomes the LocationConstraint. Empty means the endpoint's
	// default region (us-east-1 on AWS, which rejects an explicit
	// constraint for that region).
	Region string

	// ACL is a canned ACL, e.g. "private".
	ACL string

	// ObjectLockEnabled requests object lock on the new bucket.
	ObjectLockEnabled bool

	// ObjectOwnership sets the ownership control, e.g. "BucketOwnerEnforced".
	ObjectOwnership string
}

// CreateBucketResult reports the outcome of bucket creation.
type CreateBucketResult struct {
	Location string
}

// ListOptions controls a single list page.
type ListOptions struct {
	// Prefix limits results to keys beginning with it.
	Prefix string

	// MaxKeys caps the page size. Zero means the service default (1000).
	MaxKeys int

	// ContinuationToken resumes a truncated listing.
	ContinuationToken string
}

// ObjectSummary is one entry in a list page.
type ObjectSummary struct {
	Key          string    `xml:"Key"`
	LastModified time.Time `xml:"LastModified"`
	ETag         string    `xml:"ETag"`
	Size         int64     `xml:"Size"`
	StorageClass string    `xml:"StorageClass"`
}

// ListResult is one page of a bucket listing.
type ListResult struct {
	Objects               []ObjectSummary
	IsTruncated           bool
	NextContinuationToken string
}

type createBucketConfiguration struct {
	XMLName            xml.Name `xml:"CreateBucketConfiguration"`
	Xmlns              string   `xml:"xmlns,attr"`
	LocationConstraint string   `xml:"LocationConstraint,omitempty"`
}

type listBucketResult struct {
	XMLName               xml.Name        `xml:"ListBucketResult"`
	Contents              []ObjectSummary `xml:"Contents"`
	IsTruncated           bool            `xml:"IsTruncated"`
	NextContinuationToken string          `xml:"NextContinuationToken"`
}

const s3XMLNamespace = "http://s3.amazonaws.com/doc/2006-03-01/"

// CreateBucket creates the client's bucket.
func (c *Client) CreateBucket(ctx context.Context, opts *CreateBucketOptions) (*CreateBucketResult, error) {
	if opts == nil {
		opts = &CreateBucketOptions{}
	}

	var body []byte
	if opts.Region != "" && opts.Region != "us-east-1" {
		cfg := createBucketConfiguration{
			Xmlns:              s3XMLNamespace,
			LocationConstraint: opts.Region,
		}
		var err error
		body, err = xml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 CreateBucket: encode configuration: %w", err)
		}
	}

	headers := map[string]string{}
	if opts.ACL != "" {
		headers["x-amz-acl"] = opts.ACL
	}
	if opts.ObjectLockEnabled {
		headers["x-amz-bucket-object-lock-enabled"] = "true"
	}
	if opts.ObjectOwnership != "" {
		headers["x-amz-object-ownership"] = opts.ObjectOwnership
	}
	if body != nil {
		headers["content-length"] = contentLengthHeader(len(body))
	}

	resp, err := c.do(ctx, "CreateBucket", http.MethodPut, "", headers, nil, body)
	if err != nil {
		return nil, err
	}
	defer discardBody(resp)

	return &CreateBucketResult{Location: resp.Header.Get("Location")}, nil
}

// DeleteBucket removes the client's bucket. The bucket must be empty.
func (c *Client) DeleteBucket(ctx context.Context) error {
	resp, err := c.do(ctx, "DeleteBucket", http.MethodDelete, "", nil, nil, nil)
	if err != nil {
		return err
	}
	discardBody(resp)
	return nil
}

// ListObjects fetches one page of the bucket listing (list-type 2).
// Use the returned continuation token to page through truncated results.
func (c *Client) ListObjects(ctx context.Context, opts ListOptions) (*ListResult, error) {
	query := url.Values{"list-type": {"2"}}
	if opts.Prefix != "" {
		prefix := opts.Prefix
		if c.quirks.LeadingSlashPrefix && !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		query.Set("prefix", prefix)
	}
	if opts.MaxKeys > 0 {
		query.Set("max-keys", strconv.Itoa(opts.MaxKeys))
	}
	if opts.ContinuationToken != "" {
		query.Set("continuation-token", opts.ContinuationToken)
	}

	resp, err := c.do(ctx, "ListObjects", http.MethodGet, "", nil, query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 ListObjects: read response: %w", err)
	}
	var parsed listBucketResult
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("s3 ListObjects: decode response: %w", err)
	}

	result := &ListResult{
		Objects:               parsed.Contents,
		IsTruncated:           parsed.IsTruncated,
		NextContinuationToken: parsed.NextContinuationToken,
	}
	for i := range result.Objects {
		result.Objects[i].ETag = unquoteETag(result.Objects[i].ETag)
		if c.quirks.LeadingSlashPrefix {
			result.Objects[i].Key = strings.TrimPrefix(result.Objects[i].Key, "/")
		}
	}
	return result, nil
}

// ListAllObjects pages through the full listing under prefix.
func (c *Client) ListAllObjects(ctx context.Context, prefix string) ([]ObjectSummary, error) {
	var all []ObjectSummary
	opts := ListOptions{Prefix: prefix}
	for {
		page, err := c.ListObjects(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Objects...)
		if !page.IsTruncated || page.NextContinuationToken == "" {
			return all, nil
		}
		opts.ContinuationToken = page.NextContinuationToken
	}
}
