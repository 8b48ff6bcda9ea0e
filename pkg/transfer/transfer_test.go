package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUseMultipart(t *testing.T) {
	const threshold = DefaultMultipartThreshold

	assert.False(t, UseMultipart(0, threshold))
	assert.False(t, UseMultipart(threshold-1, threshold))
	assert.False(t, UseMultipart(threshold, threshold), "exactly threshold stays single-shot")
	assert.True(t, UseMultipart(threshold+1, threshold))
}

func TestAdjustPartSize(t *testing.T) {
	const (
		mib = int64(1) << 20
		gib = int64(1) << 30
	)

	tests := []struct {
		name     string
		partSize int64
		fileSize int64
		want     int64
	}{
		{
			name:     "default size fits small file",
			partSize: DefaultPartSize,
			fileSize: 100 * mib,
			want:     DefaultPartSize,
		},
		{
			name:     "below minimum is raised",
			partSize: 1 * mib,
			fileSize: 10 * mib,
			want:     MinPartSize,
		},
		{
			name:     "above maximum is clamped",
			partSize: 6 * gib,
			fileSize: 10 * gib,
			want:     MaxPartSize,
		},
		{
			name:     "doubled until part count fits",
			partSize: 8 * mib,
			fileSize: 100 * gib, // 12800 parts at 8 MiB
			want:     16 * mib,  // 6400 parts
		},
		{
			name:     "doubled twice for larger file",
			partSize: 8 * mib,
			fileSize: 200 * gib,
			want:     32 * mib,
		},
		{
			name:     "clamped to maximum for enormous file",
			partSize: 8 * mib,
			fileSize: 100 * 1024 * gib, // beyond MaxParts * MaxPartSize
			want:     MaxPartSize,
		},
		{
			name:     "zero part size takes default",
			partSize: 0,
			fileSize: 10 * mib,
			want:     DefaultPartSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdjustPartSize(tt.partSize, tt.fileSize))
		})
	}
}

func TestAdjustPartSizeRespectsMaxParts(t *testing.T) {
	const gib = int64(1) << 30

	sizes := []int64{0, 1, 5 * gib, 48 * gib, 1024 * gib, 10 * 1024 * gib}
	for _, fileSize := range sizes {
		partSize := AdjustPartSize(DefaultPartSize, fileSize)
		assert.GreaterOrEqual(t, partSize, int64(MinPartSize))
		assert.LessOrEqual(t, partSize, int64(MaxPartSize))
		if fileSize <= int64(MaxParts)*MaxPartSize {
			assert.LessOrEqual(t, numParts(fileSize, partSize), int64(MaxParts),
				"file of %d bytes must fit in %d parts", fileSize, MaxParts)
		}
	}
}
