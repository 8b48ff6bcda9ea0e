package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/skiffhq/skiff/pkg/s3"
)

// ErrUnknownSize indicates the upload source's size could not be
// determined. The orchestrator needs the size up front to pick a
// strategy and split parts.
var ErrUnknownSize = errors.New("upload source size unknown")

// Client is the storage surface the uploader drives. *s3.Client
// satisfies it.
type Client interface {
	PutObject(ctx context.Context, key string, data []byte, opts *s3.PutOptions) (*s3.PutResult, error)
	CreateMultipartUpload(ctx context.Context, key string, opts *s3.PutOptions) (string, error)
	UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (s3.Part, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []s3.Part) (*s3.CompleteResult, error)
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

// Progress is called once per stored part with the byte count that
// part contributed and the final size; callers accumulate n to track
// the running total. Multipart progress arrives from concurrent
// workers, so implementations must be safe for concurrent use.
type Progress func(n, total int64)

// Options carries per-upload attributes.
type Options struct {
	ContentType string
	Metadata    map[string]string
	Progress    Progress
}

// Result reports a finished upload.
type Result struct {
	Key       string
	ETag      string
	Size      int64
	Multipart bool
	Parts     int
	PartSize  int64
	Duration  time.Duration
}

// Uploader performs size-aware uploads through a Client.
type Uploader struct {
	client  Client
	cfg     Config
	log     *zap.Logger
	limiter *rate.Limiter
}

// New builds an Uploader. Zero config fields take defaults. A nil
// logger disables logging.
func New(client Client, cfg Config, log *zap.Logger) *Uploader {
	if cfg.MultipartThreshold <= 0 {
		cfg.MultipartThreshold = DefaultMultipartThreshold
	}
	if cfg.PartSize <= 0 {
		cfg.PartSize = DefaultPartSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.MaxBytesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxBytesPerSecond), int(cfg.MaxBytesPerSecond))
	}

	return &Uploader{client: client, cfg: cfg, log: log.Named("transfer"), limiter: limiter}
}

// UploadFile uploads the file at path under key.
func (u *Uploader) UploadFile(ctx context.Context, key, path string, opts *Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	return u.Upload(ctx, key, f, info.Size(), opts)
}

// Upload stores size bytes from r under key. Objects strictly larger
// than the multipart threshold are split into concurrently uploaded
// parts; on any part or assembly failure the multipart session is
// aborted so no partial object remains billed.
func (u *Uploader) Upload(ctx context.Context, key string, r io.Reader, size int64, opts *Options) (*Result, error) {
	if size < 0 {
		return nil, fmt.Errorf("upload %s: %w", key, ErrUnknownSize)
	}
	if opts == nil {
		opts = &Options{}
	}
	start := time.Now()

	if !UseMultipart(size, u.cfg.MultipartThreshold) {
		result, err := u.uploadSingle(ctx, key, r, size, opts)
		if err != nil {
			return nil, err
		}
		result.Duration = time.Since(start)
		return result, nil
	}

	result, err := u.uploadMultipart(ctx, key, r, size, opts)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (u *Uploader) uploadSingle(ctx context.Context, key string, r io.Reader, size int64, opts *Options) (*Result, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("upload %s: read source: %w", key, err)
	}
	if err := u.throttle(ctx, len(data)); err != nil {
		return nil, err
	}

	put, err := u.client.PutObject(ctx, key, data, putOptions(opts))
	if err != nil {
		return nil, err
	}
	if opts.Progress != nil {
		opts.Progress(size, size)
	}

	u.log.Debug("single-shot upload complete",
		zap.String("key", key),
		zap.Int64("size", size),
	)
	return &Result{Key: key, ETag: put.ETag, Size: size, Parts: 1}, nil
}

func (u *Uploader) uploadMultipart(ctx context.Context, key string, r io.Reader, size int64, opts *Options) (*Result, error) {
	partSize := AdjustPartSize(u.cfg.PartSize, size)

	uploadID, err := u.client.CreateMultipartUpload(ctx, key, putOptions(opts))
	if err != nil {
		return nil, err
	}

	u.log.Debug("multipart upload started",
		zap.String("key", key),
		zap.String("upload_id", uploadID),
		zap.Int64("size", size),
		zap.Int64("part_size", partSize),
	)

	parts, err := u.uploadParts(ctx, key, uploadID, r, size, partSize, opts.Progress)
	if err != nil {
		u.abort(key, uploadID)
		return nil, err
	}

	completed, err := u.client.CompleteMultipartUpload(ctx, key, uploadID, parts)
	if err != nil {
		u.abort(key, uploadID)
		return nil, err
	}

	return &Result{
		Key:       key,
		ETag:      completed.ETag,
		Size:      size,
		Multipart: true,
		Parts:     len(parts),
		PartSize:  partSize,
	}, nil
}

// uploadParts reads the source sequentially and fans part uploads out
// to a bounded worker group. At most Concurrency+1 parts are resident
// in memory at once: the in-flight set plus the one being read.
func (u *Uploader) uploadParts(ctx context.Context, key, uploadID string, r io.Reader, size, partSize int64, progress Progress) ([]s3.Part, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Concurrency)

	var (
		mu    sync.Mutex
		parts []s3.Part
	)

	var readErr error
	partNumber := 0
	for offset := int64(0); offset < size; offset += partSize {
		if gctx.Err() != nil {
			break
		}

		partNumber++
		buf := make([]byte, min(partSize, size-offset))
		if _, err := io.ReadFull(r, buf); err != nil {
			readErr = fmt.Errorf("upload %s: read part %d: %w", key, partNumber, err)
			break
		}

		num := partNumber
		g.Go(func() error {
			if err := u.throttle(gctx, len(buf)); err != nil {
				return err
			}
			part, err := u.client.UploadPart(gctx, key, uploadID, num, buf)
			if err != nil {
				return err
			}
			mu.Lock()
			parts = append(parts, part)
			mu.Unlock()
			if progress != nil {
				progress(int64(len(buf)), size)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	return parts, nil
}

// abort discards a failed multipart session. The primary error is what
// the caller reports; an abort failure is only logged, since the
// service expires unfinished uploads on its own schedule.
func (u *Uploader) abort(key, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := u.client.AbortMultipartUpload(ctx, key, uploadID); err != nil {
		u.log.Warn("abort of failed multipart upload did not succeed",
			zap.String("key", key),
			zap.String("upload_id", uploadID),
			zap.Error(err),
		)
	}
}

// throttle blocks until the rate limiter admits n bytes.
func (u *Uploader) throttle(ctx context.Context, n int) error {
	if u.limiter == nil {
		return nil
	}
	for n > 0 {
		chunk := min(n, u.limiter.Burst())
		if err := u.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func putOptions(opts *Options) *s3.PutOptions {
	if opts == nil {
		return nil
	}
	return &s3.PutOptions{ContentType: opts.ContentType, Metadata: opts.Metadata}
}
