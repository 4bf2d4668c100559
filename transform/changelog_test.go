package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aifdocs/aifdocs/transform"
)

func TestIsChangelog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"CHANGELOG.md", true},
		{"changelog.md", true},
		{"CHANGES.md", true},
		{"HISTORY.md", true},
		{"history", true},
		{"docs/CHANGELOG.md", true},
		{"README.md", false},
		{"CHANGELOG-old/notes.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, transform.IsChangelog(tt.path))
		})
	}
}

const sampleChangelog = `# Changelog

## [0.13.1] - 2024-01-15
- Fix bug

## [0.13.0] - 2024-01-01
- New feature

## [0.12.0] - 2023-12-01
- Old feature

## [0.11.0] - 2023-11-01
- Ancient feature
`

func TestTrimChangelog(t *testing.T) {
	t.Parallel()

	t.Run("keeps current and previous minor series", func(t *testing.T) {
		t.Parallel()

		got := transform.TrimChangelog(sampleChangelog, "0.13.1")

		assert.Contains(t, got, "0.13.1")
		assert.Contains(t, got, "0.13.0")
		assert.Contains(t, got, "0.12.0")
		assert.NotContains(t, got, "0.11.0")
		assert.Contains(t, got, transform.ChangelogMarker)
	})

	t.Run("returns content without version headings unchanged", func(t *testing.T) {
		t.Parallel()

		content := "Just some text without versions."
		assert.Equal(t, content, transform.TrimChangelog(content, "1.0.0"))
	})

	t.Run("keeps the two newest headings when current version is absent", func(t *testing.T) {
		t.Parallel()

		got := transform.TrimChangelog(sampleChangelog, "9.9.9")
		assert.Contains(t, got, "0.13.1")
		assert.Contains(t, got, "0.13.0")
		assert.NotContains(t, got, "0.12.0")
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		once := transform.TrimChangelog(sampleChangelog, "0.13.1")
		twice := transform.TrimChangelog(once, "0.13.1")
		assert.Equal(t, once, twice)
	})

	t.Run("recognizes v-prefixed and unbracketed headings", func(t *testing.T) {
		t.Parallel()

		content := "## v2.1.0\n- a\n\n## 2.0.3\n- b\n\n## v1.9.0\n- c\n\n## v1.8.0\n- d\n"
		got := transform.TrimChangelog(content, "2.1.0")
		assert.Contains(t, got, "2.1.0")
		assert.Contains(t, got, "2.0.3")
		assert.NotContains(t, got, "1.9.0")
	})
}
