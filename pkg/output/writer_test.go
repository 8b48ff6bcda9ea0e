package output

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []Record {
	t.Helper()
	var records []Record
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestJSONLWriterEnvelope(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-1", "data")
	ctx := context.Background()

	require.NoError(t, w.WriteObject(ctx, &ObjectRecord{
		Key:          "logs/app.log",
		Size:         42,
		ETag:         "abc",
		LastModified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}))
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{Objects: 1, Bytes: 42}))

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, TypeObject, records[0].Type)
	assert.Equal(t, "job-1", records[0].JobID)
	assert.Equal(t, "data", records[0].Bucket)
	assert.False(t, records[0].TS.IsZero())

	var obj ObjectRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &obj))
	assert.Equal(t, "logs/app.log", obj.Key)
	assert.Equal(t, int64(42), obj.Size)

	assert.Equal(t, TypeSummary, records[1].Type)
}

func TestJSONLWriterUploadAndErrorRecords(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-2", "data")
	ctx := context.Background()

	require.NoError(t, w.WriteUpload(ctx, &UploadRecord{Key: "big.bin", Bytes: 1 << 20, Multipart: true, Parts: 3}))
	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeNotFound, Message: "gone", Key: "x"}))

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, TypeUpload, records[0].Type)
	assert.Equal(t, TypeError, records[1].Type)

	var rec ErrorRecord
	require.NoError(t, json.Unmarshal(records[1].Data, &rec))
	assert.Equal(t, ErrCodeNotFound, rec.Code)
}

func TestJSONLWriterClosed(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job", "data")
	require.NoError(t, w.Close())

	err := w.WriteObject(context.Background(), &ObjectRecord{Key: "k"})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriterCanceledContext(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job", "data")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.WriteObject(ctx, &ObjectRecord{Key: "k"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestJSONLWriterConcurrentLinesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job", "data")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.WriteObject(ctx, &ObjectRecord{Key: strings.Repeat("k", 100)})
		}()
	}
	wg.Wait()

	records := decodeLines(t, &buf)
	assert.Len(t, records, 20)
}
