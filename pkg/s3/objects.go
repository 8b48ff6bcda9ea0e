package s3

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const metadataPrefix = "x-amz-meta-"

// PutOptions carries optional attributes for object writes.
type PutOptions struct {
	// ContentType sets the stored Content-Type. Defaults to
	// "application/octet-stream".
	ContentType string

	// Metadata is stored as user metadata (x-amz-meta-*) headers.
	// Keys are lowercased on the wire.
	Metadata map[string]string
}

// PutResult reports the outcome of a completed object write.
type PutResult struct {
	ETag                 string
	VersionID            string
	ServerSideEncryption string
}

// ObjectInfo describes a stored object's attributes.
type ObjectInfo struct {
	Key           string
	ContentType   string
	ContentLength int64
	ETag          string
	LastModified  time.Time
	VersionID     string
	Metadata      map[string]string
}

// Object is a retrieved object. The caller must close Body.
type Object struct {
	ObjectInfo
	Body io.ReadCloser
}

// DeleteResult reports the outcome of an object deletion.
type DeleteResult struct {
	DeleteMarker bool
	VersionID    string
}

// PutObject stores data under key.
func (c *Client) PutObject(ctx context.Context, key string, data []byte, opts *PutOptions) (*PutResult, error) {
	headers := putHeaders(data, opts)
	resp, err := c.do(ctx, "PutObject", http.MethodPut, key, headers, nil, data)
	if err != nil {
		return nil, err
	}
	defer discardBody(resp)

	return &PutResult{
		ETag:                 unquoteETag(resp.Header.Get("ETag")),
		VersionID:            resp.Header.Get("x-amz-version-id"),
		ServerSideEncryption: resp.Header.Get("x-amz-server-side-encryption"),
	}, nil
}

// GetObject retrieves key. The returned Object's Body streams the
// content and must be closed by the caller.
func (c *Client) GetObject(ctx context.Context, key string) (*Object, error) {
	resp, err := c.do(ctx, "GetObject", http.MethodGet, key, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	info := infoFromHeaders(key, resp.Header)
	info.ContentLength = resp.ContentLength
	return &Object{ObjectInfo: info, Body: resp.Body}, nil
}

// HeadObject retrieves key's attributes without its content.
func (c *Client) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	resp, err := c.do(ctx, "HeadObject", http.MethodHead, key, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	defer discardBody(resp)

	info := infoFromHeaders(key, resp.Header)
	if n, perr := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); perr == nil {
		info.ContentLength = n
	}
	return &info, nil
}

// DeleteObject removes key. Deleting a nonexistent key succeeds; the
// service treats deletion as idempotent.
func (c *Client) DeleteObject(ctx context.Context, key string) (*DeleteResult, error) {
	resp, err := c.do(ctx, "DeleteObject", http.MethodDelete, key, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	defer discardBody(resp)

	return &DeleteResult{
		DeleteMarker: resp.Header.Get("x-amz-delete-marker") == "true",
		VersionID:    resp.Header.Get("x-amz-version-id"),
	}, nil
}

func putHeaders(data []byte, opts *PutOptions) map[string]string {
	contentType := "application/octet-stream"
	headers := map[string]string{
		"content-length": contentLengthHeader(len(data)),
	}
	if opts != nil {
		if opts.ContentType != "" {
			contentType = opts.ContentType
		}
		for k, v := range opts.Metadata {
			headers[metadataPrefix+strings.ToLower(k)] = v
		}
	}
	headers["content-type"] = contentType
	return headers
}

func infoFromHeaders(key string, h http.Header) ObjectInfo {
	info := ObjectInfo{
		Key:         key,
		ContentType: h.Get("Content-Type"),
		ETag:        unquoteETag(h.Get("ETag")),
		VersionID:   h.Get("x-amz-version-id"),
	}
	if t, err := http.ParseTime(h.Get("Last-Modified")); err == nil {
		info.LastModified = t
	}
	for k, vs := range h {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, metadataPrefix) && len(vs) > 0 {
			if info.Metadata == nil {
				info.Metadata = make(map[string]string)
			}
			info.Metadata[strings.TrimPrefix(lk, metadataPrefix)] = vs[0]
		}
	}
	return info
}

// unquoteETag strips the surrounding double quotes services put on ETags.
func unquoteETag(etag string) string {
	return strings.Trim(etag, `"`)
}
