package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/skiffhq/skiff/pkg/endpoint"
	"github.com/skiffhq/skiff/pkg/sigv4"
)

// Client performs operations against a single bucket on an S3-compatible
// service. It is safe for concurrent use.
type Client struct {
	bucket string
	addr   *endpoint.Address
	signer *sigv4.Signer
	httpc  *http.Client
	log    *zap.Logger
	quirks Quirks
}

// New builds a client from cfg. The configuration is validated and
// the bucket address resolved once, up front.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	addr, err := endpoint.Resolve(cfg.Endpoint, cfg.Bucket, cfg.AddressStyle, endpoint.Options{
		AllowHTTP: cfg.AllowHTTP,
	})
	if err != nil {
		return nil, err
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.Timeout}
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	quirks := cfg.Quirks
	if quirks == nil {
		quirks = QuirksForHost(addr.URL.Hostname())
	}

	return &Client{
		bucket: cfg.Bucket,
		addr:   addr,
		signer: sigv4.New(sigv4.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Region:          cfg.Region,
		}),
		httpc:  httpc,
		log:    log.Named("s3"),
		quirks: *quirks,
	}, nil
}

// Bucket returns the bucket name this client operates on.
func (c *Client) Bucket() string {
	return c.bucket
}

// Style returns the resolved addressing style.
func (c *Client) Style() endpoint.Style {
	return c.addr.Style
}

// PresignedURL produces a presigned URL for method on key, valid for
// expires. The URL carries the signature in its query string; no
// headers beyond Host are required of the eventual caller.
func (c *Client) PresignedURL(method, key string, expires time.Duration) (string, error) {
	u := c.addr.ObjectURL(key)
	signed, err := c.signer.PresignURL(method, u, expires, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s %s: %w", method, key, err)
	}
	return signed.String(), nil
}

// do signs and dispatches one request and classifies non-2xx responses.
// key may be empty for bucket-level operations. The caller owns the
// response body on success.
func (c *Client) do(ctx context.Context, op, method, key string, headers map[string]string, query url.Values, body []byte) (*http.Response, error) {
	u := c.addr.ObjectURL(key)

	signed, err := c.signer.SignRequest(method, u, headers, body, query)
	if err != nil {
		return nil, fmt.Errorf("s3 %s: sign: %w", op, err)
	}

	// The wire form must match the canonical form the signature covers.
	u.RawPath = sigv4.EncodePath(u.Path)
	if len(query) > 0 {
		u.RawQuery = sigv4.CanonicalQueryString(query)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("s3 %s: build request: %w", op, err)
	}
	for k, v := range signed {
		if k == "host" {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	if body != nil {
		req.ContentLength = int64(len(body))
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("s3 %s: %s/%s: %w", op, c.bucket, key, err)
	}

	c.log.Debug("request complete",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("key", key),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, newResponseError(op, c.bucket, key, resp.StatusCode, resp.Body)
	}
	return resp, nil
}

// discardBody drains and closes a response body so the connection can
// be reused.
func discardBody(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes)) //nolint:errcheck
	resp.Body.Close()
}

// contentLengthHeader renders n for signing alongside the request body.
func contentLengthHeader(n int) string {
	return strconv.Itoa(n)
}
