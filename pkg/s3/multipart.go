package s3

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

// MaxPartNumber is the highest part number the protocol permits.
const MaxPartNumber = 10000

// ErrPartNumberRange indicates a part number outside [1, MaxPartNumber].
var ErrPartNumberRange = fmt.Errorf("part number must be between 1 and %d", MaxPartNumber)

// Part identifies one uploaded part of a multipart upload.
type Part struct {
	PartNumber int
	ETag       string
	Size       int64
}

// CompleteResult reports the outcome of assembling a multipart upload.
type CompleteResult struct {
	Location string `xml:"Location"`
	Bucket   string `xml:"Bucket"`
	Key      string `xml:"Key"`
	ETag     string `xml:"ETag"`
}

type initiateMultipartUploadResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	Bucket   string   `xml:"Bucket"`
	Key      string   `xml:"Key"`
	UploadID string   `xml:"UploadId"`
}

type completeMultipartUpload struct {
	XMLName xml.Name                      `xml:"CompleteMultipartUpload"`
	Parts   []completeMultipartUploadPart `xml:"Part"`
}

type completeMultipartUploadPart struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

type completeMultipartUploadResult struct {
	XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
	CompleteResult
}

// CreateMultipartUpload starts a multipart upload session for key and
// returns the session's upload ID.
func (c *Client) CreateMultipartUpload(ctx context.Context, key string, opts *PutOptions) (string, error) {
	headers := putHeaders(nil, opts)
	delete(headers, "content-length")

	query := url.Values{"uploads": {""}}
	resp, err := c.do(ctx, "CreateMultipartUpload", http.MethodPost, key, headers, query, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("s3 CreateMultipartUpload: read response: %w", err)
	}
	var parsed initiateMultipartUploadResult
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("s3 CreateMultipartUpload: decode response: %w", err)
	}
	if parsed.UploadID == "" {
		return "", fmt.Errorf("s3 CreateMultipartUpload: response missing upload ID")
	}
	return parsed.UploadID, nil
}

// UploadPart stores one part of an open multipart upload. partNumber
// must be in [1, MaxPartNumber].
func (c *Client) UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (Part, error) {
	if partNumber < 1 || partNumber > MaxPartNumber {
		return Part{}, fmt.Errorf("s3 UploadPart %s part %d: %w", key, partNumber, ErrPartNumberRange)
	}

	headers := map[string]string{
		"content-length": contentLengthHeader(len(data)),
	}
	query := url.Values{
		"partNumber": {strconv.Itoa(partNumber)},
		"uploadId":   {uploadID},
	}
	resp, err := c.do(ctx, "UploadPart", http.MethodPut, key, headers, query, data)
	if err != nil {
		return Part{}, err
	}
	defer discardBody(resp)

	etag := unquoteETag(resp.Header.Get("ETag"))
	if etag == "" {
		return Part{}, fmt.Errorf("s3 UploadPart %s part %d: response missing ETag", key, partNumber)
	}
	return Part{PartNumber: partNumber, ETag: etag, Size: int64(len(data))}, nil
}

// CompleteMultipartUpload assembles the uploaded parts into the final
// object. Parts are ordered by part number before encoding; the service
// rejects manifests that are out of order.
func (c *Client) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []Part) (*CompleteResult, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("s3 CompleteMultipartUpload %s: no parts", key)
	}

	ordered := make([]Part, len(parts))
	copy(ordered, parts)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PartNumber < ordered[j].PartNumber })

	manifest := completeMultipartUpload{Parts: make([]completeMultipartUploadPart, len(ordered))}
	for i, p := range ordered {
		manifest.Parts[i] = completeMultipartUploadPart{
			PartNumber: p.PartNumber,
			ETag:       `"` + p.ETag + `"`,
		}
	}
	body, err := xml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("s3 CompleteMultipartUpload %s: encode manifest: %w", key, err)
	}

	headers := map[string]string{
		"content-type":   "application/xml",
		"content-length": contentLengthHeader(len(body)),
	}
	query := url.Values{"uploadId": {uploadID}}
	resp, err := c.do(ctx, "CompleteMultipartUpload", http.MethodPost, key, headers, query, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 CompleteMultipartUpload %s: read response: %w", key, err)
	}
	// Some services report assembly failures inside a 200 response.
	var failed errorBody
	if err := xml.Unmarshal(raw, &failed); err == nil {
		return nil, newResponseError("CompleteMultipartUpload", c.bucket, key, resp.StatusCode, bytes.NewReader(raw))
	}

	var parsed completeMultipartUploadResult
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("s3 CompleteMultipartUpload %s: decode response: %w", key, err)
	}
	parsed.ETag = unquoteETag(parsed.ETag)
	result := parsed.CompleteResult
	return &result, nil
}

// AbortMultipartUpload discards an open multipart upload and any parts
// already stored under it.
func (c *Client) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	query := url.Values{"uploadId": {uploadID}}
	resp, err := c.do(ctx, "AbortMultipartUpload", http.MethodDelete, key, nil, query, nil)
	if err != nil {
		return err
	}
	discardBody(resp)
	return nil
}
