package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeDefaultPatterns(t *testing.T) {
	cd, err := NewCategoryDetector(DefaultPatterns())
	require.NoError(t, err)

	tests := []struct {
		name         string
		merchantKey  string
		wantCategory string
	}{
		{"netflix", "NETFLIX.COM", "Streaming"},
		{"hulu", "HULU", "Streaming"},
		{"spotify", "SPOTIFY USA", "Music"},
		{"planet fitness", "PLANET FITNESS", "Fitness"},
		{"lowercase input", "dropbox", "Cloud Storage"},
		{"github", "GITHUB.COM", "Software"},
		{"unmatched merchant", "ACME HARDWARE", ""},
		{"empty key", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := cd.Categorize(tt.merchantKey)
			if tt.wantCategory == "" {
				assert.Nil(t, match)
				return
			}
			require.NotNil(t, match)
			assert.Equal(t, tt.wantCategory, match.Category)
			assert.Greater(t, match.Confidence, 0.0)
		})
	}
}

func TestCategorizeHonorsPriority(t *testing.T) {
	cd, err := NewCategoryDetector([]Pattern{
		{Category: "Generic", Regex: `ACME`, Priority: 10, Confidence: 0.5},
		{Category: "Specific", Regex: `ACME\s*STREAMING`, Priority: 90, Confidence: 0.9},
	})
	require.NoError(t, err)

	match := cd.Categorize("ACME STREAMING")
	require.NotNil(t, match)
	assert.Equal(t, "Specific", match.Category)
}

func TestUpdatePatternsReplacesSet(t *testing.T) {
	cd, err := NewCategoryDetector([]Pattern{
		{Category: "Streaming", Regex: `NETFLIX`, Priority: 100, Confidence: 0.95},
	})
	require.NoError(t, err)
	require.Equal(t, 1, cd.PatternCount())

	err = cd.UpdatePatterns([]Pattern{
		{Category: "Music", Regex: `SPOTIFY`, Priority: 100, Confidence: 0.95},
		{Category: "Fitness", Regex: `GYM`, Priority: 90, Confidence: 0.85},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cd.PatternCount())
	assert.Nil(t, cd.Categorize("NETFLIX.COM"))

	match := cd.Categorize("SPOTIFY USA")
	require.NotNil(t, match)
	assert.Equal(t, "Music", match.Category)
}

func TestUpdatePatternsRejectsBadRegex(t *testing.T) {
	cd, err := NewCategoryDetector(DefaultPatterns())
	require.NoError(t, err)
	before := cd.PatternCount()

	err = cd.UpdatePatterns([]Pattern{
		{Category: "Broken", Regex: `(`, Priority: 1, Confidence: 0.1},
	})
	require.Error(t, err)

	// A rejected update leaves the loaded set untouched.
	assert.Equal(t, before, cd.PatternCount())
	require.NotNil(t, cd.Categorize("NETFLIX.COM"))
}
