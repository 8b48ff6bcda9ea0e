package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer emits JSONL records for command results.
//
// Implementations must be safe for concurrent use from multiple
// goroutines. Each Write* method emits a complete record as a single
// line of JSON followed by a newline.
type Writer interface {
	// WriteObject emits an object record.
	WriteObject(ctx context.Context, obj *ObjectRecord) error

	// WriteUpload emits a completed-upload record.
	WriteUpload(ctx context.Context, up *UploadRecord) error

	// WriteError emits an error record.
	WriteError(ctx context.Context, rec *ErrorRecord) error

	// WriteSummary emits a summary record.
	WriteSummary(ctx context.Context, sum *SummaryRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
// Writes are serialized with a mutex so lines never interleave.
type JSONLWriter struct {
	w      io.Writer
	jobID  string
	bucket string

	mu     sync.Mutex
	closed bool
}

// NewJSONLWriter creates a writer that stamps every record with jobID
// and bucket. The underlying writer is not closed by Close; the caller
// owns it.
func NewJSONLWriter(w io.Writer, jobID, bucket string) *JSONLWriter {
	return &JSONLWriter{w: w, jobID: jobID, bucket: bucket}
}

func (jw *JSONLWriter) WriteObject(ctx context.Context, obj *ObjectRecord) error {
	return jw.writeRecord(ctx, TypeObject, obj)
}

func (jw *JSONLWriter) WriteUpload(ctx context.Context, up *UploadRecord) error {
	return jw.writeRecord(ctx, TypeUpload, up)
}

func (jw *JSONLWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, rec)
}

func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, sum)
}

// Close marks the writer as closed. Further writes fail with
// ErrWriterClosed.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.closed = true
	return nil
}

// writeRecord marshals data into a Record envelope and writes one line.
// The mutex is held for the write so lines stay atomic.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	record := Record{
		Type:   recordType,
		TS:     time.Now().UTC(),
		JobID:  jw.jobID,
		Bucket: jw.bucket,
		Data:   dataBytes,
	}
	line, err := json.Marshal(&record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}
	line = append(line, '\n')

	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closed {
		return ErrWriterClosed
	}
	if _, err := jw.w.Write(line); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}
