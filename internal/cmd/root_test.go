package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetVersionInfo(t *testing.T) {
	// Save original values
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
		rootCmd.Version = origVersion
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2024-01-15",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
			assert.Equal(t, tt.version, rootCmd.Version)
		})
	}
}

func TestParseMetadata(t *testing.T) {
	meta, err := parseMetadata([]string{"owner=data-team", "tier=hot"})
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "data-team", "tier": "hot"}, meta)

	meta, err = parseMetadata(nil)
	assert.NoError(t, err)
	assert.Nil(t, meta)

	_, err = parseMetadata([]string{"no-separator"})
	assert.Error(t, err)

	_, err = parseMetadata([]string{"=value"})
	assert.Error(t, err)
}
