// Package transfer orchestrates uploads to object storage, switching
// between single-shot and concurrent multipart transfers based on size.
package transfer

// Protocol limits for multipart uploads.
const (
	// MinPartSize is the smallest allowed part, except for the final part.
	MinPartSize = 5 << 20 // 5 MiB

	// MaxPartSize is the largest allowed part.
	MaxPartSize = 5 << 30 // 5 GiB

	// MaxParts is the most parts a single upload may have.
	MaxParts = 10000
)

// Defaults matching s3transfer's tuning.
const (
	DefaultMultipartThreshold = 8 << 20
	DefaultPartSize           = 8 << 20
	DefaultConcurrency        = 10
)

type Config struct {
	// MultipartThreshold is the size above which uploads go multipart.
	// An object of exactly this size is still sent single-shot.
	MultipartThreshold int64

	// PartSize is the preferred part size. It is grown automatically
	// when the object would otherwise exceed MaxParts, and clamped to
	// the protocol's part size limits.
	PartSize int64

	// Concurrency bounds the number of parts in flight.
	Concurrency int

	// MaxBytesPerSecond throttles upload throughput. Zero means
	// unlimited.
	MaxBytesPerSecond int64
}

func DefaultConfig() Config {
	return Config{
		MultipartThreshold: DefaultMultipartThreshold,
		PartSize:           DefaultPartSize,
		Concurrency:        DefaultConcurrency,
	}
}

// UseMultipart reports whether an object of size bytes should be
// uploaded in parts. The comparison is strictly greater: an object of
// exactly threshold bytes stays single-shot.
func UseMultipart(size, threshold int64) bool {
	return size > threshold
}

// AdjustPartSize grows partSize until an object of fileSize bytes fits
// in MaxParts parts, then clamps the result to the protocol limits.
// Doubling mirrors s3transfer's chunk size adjuster.
func AdjustPartSize(partSize, fileSize int64) int64 {
	if partSize <= 0 {
		partSize = DefaultPartSize
	}

	for numParts(fileSize, partSize) > MaxParts {
		partSize *= 2
	}

	if partSize > MaxPartSize {
		return MaxPartSize
	}
	if partSize < MinPartSize {
		return MinPartSize
	}
	return partSize
}

func numParts(fileSize, partSize int64) int64 {
	if fileSize == 0 {
		return 1
	}
	return (fileSize + partSize - 1) / partSize
}
