package transfer_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skiffhq/skiff/internal/s3test"
	"github.com/skiffhq/skiff/pkg/endpoint"
	"github.com/skiffhq/skiff/pkg/s3"
	"github.com/skiffhq/skiff/pkg/transfer"
)

const mib = 1 << 20

func newBackend(t *testing.T) (*s3test.Server, *s3.Client) {
	t.Helper()
	srv := s3test.New(t)
	srv.CreateBucket("data")
	client, err := s3.New(s3.Config{
		Endpoint:        srv.URL(),
		Bucket:          "data",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		AddressStyle:    endpoint.StylePath,
		AllowHTTP:       true,
	})
	require.NoError(t, err)
	return srv, client
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestUploadSingleShot(t *testing.T) {
	srv, client := newBackend(t)
	up := transfer.New(client, transfer.DefaultConfig(), nil)

	data := pattern(64 * 1024)
	var calls atomic.Int32
	result, err := up.Upload(context.Background(), "small.bin", bytes.NewReader(data), int64(len(data)), &transfer.Options{
		ContentType: "application/octet-stream",
		Progress: func(n, total int64) {
			calls.Add(1)
			assert.Equal(t, int64(len(data)), n)
			assert.Equal(t, int64(len(data)), total)
		},
	})
	require.NoError(t, err)

	assert.False(t, result.Multipart)
	assert.Equal(t, 1, result.Parts)
	assert.Equal(t, int64(len(data)), result.Size)
	assert.NotEmpty(t, result.ETag)
	assert.Equal(t, int32(1), calls.Load())

	got, ok := srv.Object("data", "small.bin")
	require.True(t, ok)
	assert.Equal(t, data, got)
}

func TestUploadExactlyThresholdStaysSingleShot(t *testing.T) {
	srv, client := newBackend(t)
	cfg := transfer.Config{MultipartThreshold: 64 * 1024}
	up := transfer.New(client, cfg, nil)

	data := pattern(64 * 1024)
	result, err := up.Upload(context.Background(), "edge.bin", bytes.NewReader(data), int64(len(data)), nil)
	require.NoError(t, err)

	assert.False(t, result.Multipart)
	assert.Equal(t, 0, srv.CompleteCount)
}

func TestUploadMultipart(t *testing.T) {
	srv, client := newBackend(t)
	cfg := transfer.Config{
		MultipartThreshold: 4 * mib,
		PartSize:           5 * mib,
		Concurrency:        4,
		MaxBytesPerSecond:  512 * mib,
	}
	up := transfer.New(client, cfg, nil)

	data := pattern(12 * mib)
	var reported atomic.Int64
	var calls atomic.Int32
	result, err := up.Upload(context.Background(), "big.bin", bytes.NewReader(data), int64(len(data)), &transfer.Options{
		// Each call carries one part's contribution; the sum over all
		// calls is the object size.
		Progress: func(n, total int64) {
			calls.Add(1)
			reported.Add(n)
			assert.Equal(t, int64(len(data)), total)
		},
	})
	require.NoError(t, err)

	assert.True(t, result.Multipart)
	assert.Equal(t, 3, result.Parts, "12 MiB at 5 MiB parts")
	assert.Equal(t, int64(5*mib), result.PartSize)
	assert.Contains(t, result.ETag, "-3")
	assert.Equal(t, int32(3), calls.Load(), "one progress call per part")
	assert.Equal(t, int64(len(data)), reported.Load())

	got, ok := srv.Object("data", "big.bin")
	require.True(t, ok)
	assert.Equal(t, data, got)
	assert.Equal(t, 1, srv.CompleteCount)
	assert.Equal(t, 0, srv.AbortCount)
	assert.Equal(t, 0, srv.OpenUploads("data"))
}

func TestUploadMultipartAbortsOnPartFailure(t *testing.T) {
	srv, client := newBackend(t)
	srv.PartFailures[2] = 1

	cfg := transfer.Config{
		MultipartThreshold: 4 * mib,
		PartSize:           5 * mib,
		Concurrency:        2,
	}
	up := transfer.New(client, cfg, nil)

	data := pattern(12 * mib)
	_, err := up.Upload(context.Background(), "doomed.bin", bytes.NewReader(data), int64(len(data)), nil)
	require.Error(t, err)
	assert.True(t, s3.IsServerError(err))

	assert.Equal(t, 1, srv.AbortCount, "failed session must be aborted")
	assert.Equal(t, 0, srv.OpenUploads("data"))
	_, ok := srv.Object("data", "doomed.bin")
	assert.False(t, ok, "no partial object may remain")
}

func TestUploadMultipartAbortsOnCompleteFailure(t *testing.T) {
	srv, client := newBackend(t)
	srv.FailComplete = true

	cfg := transfer.Config{
		MultipartThreshold: 4 * mib,
		PartSize:           5 * mib,
	}
	up := transfer.New(client, cfg, nil)

	data := pattern(6 * mib)
	_, err := up.Upload(context.Background(), "doomed.bin", bytes.NewReader(data), int64(len(data)), nil)
	require.Error(t, err)

	assert.Equal(t, 1, srv.CompleteCount)
	assert.Equal(t, 1, srv.AbortCount)
	assert.Equal(t, 0, srv.OpenUploads("data"))
}

func TestUploadRejectsUnknownSize(t *testing.T) {
	_, client := newBackend(t)
	up := transfer.New(client, transfer.DefaultConfig(), nil)

	_, err := up.Upload(context.Background(), "x", bytes.NewReader(nil), -1, nil)
	assert.ErrorIs(t, err, transfer.ErrUnknownSize)
}

func TestUploadTruncatedSource(t *testing.T) {
	_, client := newBackend(t)
	up := transfer.New(client, transfer.DefaultConfig(), nil)

	// Claim more bytes than the reader holds.
	_, err := up.Upload(context.Background(), "short.bin", bytes.NewReader(pattern(10)), 100, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestUploadFile(t *testing.T) {
	srv, client := newBackend(t)
	up := transfer.New(client, transfer.DefaultConfig(), nil)

	path := filepath.Join(t.TempDir(), "payload.bin")
	data := pattern(128 * 1024)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	result, err := up.UploadFile(context.Background(), "from-disk.bin", path, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), result.Size)

	got, ok := srv.Object("data", "from-disk.bin")
	require.True(t, ok)
	assert.Equal(t, data, got)
}

func TestUploadFileMissing(t *testing.T) {
	_, client := newBackend(t)
	up := transfer.New(client, transfer.DefaultConfig(), nil)

	_, err := up.UploadFile(context.Background(), "x", filepath.Join(t.TempDir(), "nope"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
