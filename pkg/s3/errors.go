package s3

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for remote service failures. Responses are classified
// by HTTP status and protocol error code at the response-interpretation
// boundary; callers use these to decide retry policy.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidRequest indicates the service rejected the request as malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrClientError is the generic category for other 4xx responses.
	ErrClientError = errors.New("client error")

	// ErrServerError is the generic category for 5xx responses.
	ErrServerError = errors.New("server error")
)

// ResponseError wraps a non-2xx service response with request context.
type ResponseError struct {
	// Op is the operation that failed (e.g., "PutObject").
	Op string

	// Bucket is the bucket name.
	Bucket string

	// Key is the object key, if applicable.
	Key string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the protocol error code from the XML body, if present.
	Code string

	// Message is the human-readable message from the XML body.
	Message string

	// Err is the sentinel category for errors.Is matching.
	Err error
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3 %s: %s/%s: %s (%d): %s", e.Op, e.Bucket, e.Key, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("s3 %s: %s: %s (%d): %s", e.Op, e.Bucket, e.Code, e.StatusCode, e.Message)
}

// Unwrap returns the sentinel category for errors.Is/As support.
func (e *ResponseError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates a missing object or bucket.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidRequest returns true if the service rejected the request as malformed.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsClientError returns true for any 4xx-category failure.
func IsClientError(err error) bool {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode >= 400 && re.StatusCode < 500
	}
	return errors.Is(err, ErrClientError)
}

// IsServerError returns true for any 5xx-category failure.
func IsServerError(err error) bool {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode >= 500
	}
	return errors.Is(err, ErrServerError)
}

// errorBody is the XML error document S3-compatible services return.
type errorBody struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// maxErrorBodyBytes bounds how much of an error response we read.
const maxErrorBodyBytes = 64 << 10

// newResponseError classifies a non-2xx response into the error taxonomy.
// The body reader is consumed but not closed.
func newResponseError(op, bucket, key string, status int, body io.Reader) *ResponseError {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))

	code, message := "Unknown", "unknown error"
	var parsed errorBody
	if err := xml.Unmarshal(raw, &parsed); err == nil {
		if parsed.Code != "" {
			code = parsed.Code
		}
		if parsed.Message != "" {
			message = parsed.Message
		}
	} else if len(raw) > 0 {
		message = string(raw)
	}

	re := &ResponseError{
		Op:         op,
		Bucket:     bucket,
		Key:        key,
		StatusCode: status,
		Code:       code,
		Message:    message,
	}

	switch {
	case code == "NoSuchBucket":
		re.Err = ErrBucketNotFound
	case status == http.StatusNotFound || code == "NoSuchKey" || code == "NotFound":
		re.Err = ErrNotFound
	case status == http.StatusForbidden || code == "AccessDenied":
		re.Err = ErrAccessDenied
	case code == "InvalidRequest":
		re.Err = ErrInvalidRequest
	case status >= 400 && status < 500:
		re.Err = ErrClientError
	default:
		re.Err = ErrServerError
	}
	return re
}
