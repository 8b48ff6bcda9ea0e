// Package output provides JSONL output for command results.
//
// Output is structured as typed record envelopes containing objects,
// uploads, errors, and summaries. Each line is a self-contained JSON
// object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: skiff.<type>.v<version>
const (
	// TypeObject identifies object listing records.
	TypeObject = "skiff.object.v1"

	// TypeUpload identifies completed upload records.
	TypeUpload = "skiff.upload.v1"

	// TypeError identifies error records.
	TypeError = "skiff.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "skiff.summary.v1"
)

// Record is the envelope for all JSONL output. The type field
// determines how to interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "skiff.object.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this invocation.
	JobID string `json:"job_id"`

	// Bucket is the bucket the command operated on.
	Bucket string `json:"bucket"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// ObjectRecord is the data payload for object listings.
type ObjectRecord struct {
	// Key is the full object key in the bucket.
	Key string `json:"key"`

	// Size is the object size in bytes.
	Size int64 `json:"size"`

	// ETag is the entity tag.
	ETag string `json:"etag"`

	// LastModified is when the object was last modified.
	LastModified time.Time `json:"last_modified"`

	// ContentType is the MIME type, when known.
	ContentType string `json:"content_type,omitempty"`

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// UploadRecord is the data payload for completed uploads.
type UploadRecord struct {
	// Key is the destination object key.
	Key string `json:"key"`

	// ETag is the entity tag of the stored object.
	ETag string `json:"etag"`

	// Bytes is the number of bytes transferred.
	Bytes int64 `json:"bytes"`

	// Multipart indicates the upload went through a multipart session.
	Multipart bool `json:"multipart"`

	// Parts is the number of parts transferred.
	Parts int `json:"parts"`

	// DurationMS is the wall-clock duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// ErrorRecord is the data payload for errors.
type ErrorRecord struct {
	// Code is a stable machine-readable error code.
	Code string `json:"code"`

	// Message is the human-readable error text.
	Message string `json:"message"`

	// Key is the object key involved, if any.
	Key string `json:"key,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeAccessDenied = "access_denied"
	ErrCodeInvalid      = "invalid_request"
	ErrCodeInternal     = "internal"
)

// SummaryRecord is the data payload for a final summary line.
type SummaryRecord struct {
	// Objects is the number of objects reported.
	Objects int64 `json:"objects"`

	// Bytes is the total size of reported objects.
	Bytes int64 `json:"bytes"`

	// Errors is the number of errors encountered.
	Errors int64 `json:"errors"`

	// DurationMS is the wall-clock duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = errors.New("writer is closed")

// WriteError wraps failures while emitting a record.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return "output " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
