package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresIncludes(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoIncludes)
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	_, err := New(Config{Includes: []string{"data/["}})
	require.Error(t, err)

	var pe *PatternError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "data/[", pe.Pattern)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		key  string
		want bool
	}{
		{
			name: "simple glob",
			cfg:  Config{Includes: []string{"logs/*.log"}},
			key:  "logs/app.log",
			want: true,
		},
		{
			name: "glob does not cross separators",
			cfg:  Config{Includes: []string{"logs/*.log"}},
			key:  "logs/2024/app.log",
			want: false,
		},
		{
			name: "doublestar crosses separators",
			cfg:  Config{Includes: []string{"logs/**/*.log"}},
			key:  "logs/2024/01/app.log",
			want: true,
		},
		{
			name: "exclude wins",
			cfg:  Config{Includes: []string{"**/*.csv"}, Excludes: []string{"tmp/**"}},
			key:  "tmp/out.csv",
			want: false,
		},
		{
			name: "hidden segment rejected by default",
			cfg:  Config{Includes: []string{"**"}},
			key:  "data/.cache/blob",
			want: false,
		},
		{
			name: "hidden segment admitted when enabled",
			cfg:  Config{Includes: []string{"**"}, IncludeHidden: true},
			key:  "data/.cache/blob",
			want: true,
		},
		{
			name: "no include match",
			cfg:  Config{Includes: []string{"reports/*.pdf"}},
			key:  "logs/app.log",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Match(tt.key))
		})
	}
}

func TestPrefixes(t *testing.T) {
	tests := []struct {
		name     string
		includes []string
		want     []string
	}{
		{
			name:     "literal prefix before glob",
			includes: []string{"logs/2024/*.log"},
			want:     []string{"logs/2024/"},
		},
		{
			name:     "exact key is its own prefix",
			includes: []string{"logs/app.log"},
			want:     []string{"logs/app.log"},
		},
		{
			name:     "unbounded pattern forces full listing",
			includes: []string{"**/*.log"},
			want:     []string{""},
		},
		{
			name:     "shadowed prefixes collapse",
			includes: []string{"data/2024/*.csv", "data/**"},
			want:     []string{"data/"},
		},
		{
			name:     "distinct prefixes kept",
			includes: []string{"logs/**", "reports/**"},
			want:     []string{"logs/", "reports/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(Config{Includes: tt.includes})
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Prefixes())
		})
	}
}

func TestIsGlobPattern(t *testing.T) {
	assert.True(t, IsGlobPattern("logs/*.log"))
	assert.True(t, IsGlobPattern("logs/**"))
	assert.True(t, IsGlobPattern("file?.txt"))
	assert.False(t, IsGlobPattern("logs/app.log"))
	assert.False(t, IsGlobPattern(`literal\*star`))
}
