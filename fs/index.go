package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aifdocs/aifdocs"
)

// WriteIndex rewrites the global _INDEX.md from entries the orchestrator
// already sorted. Fallback entries carry a visible suffix.
func (s *Store) WriteIndex(entries []aifdocs.IndexEntry) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return aifdocs.Errorf(aifdocs.EIO, "create output root %s: %v", s.root, err)
	}

	var b strings.Builder
	b.WriteString("# Vendored documentation index\n\n")
	b.WriteString("Generated by aifdocs. One entry per synced package directory.\n\n")
	for _, e := range entries {
		if e.Fallback {
			fmt.Fprintf(&b, "- `%s@%s` (fallback)\n", e.Name, e.Version)
		} else {
			fmt.Fprintf(&b, "- `%s@%s`\n", e.Name, e.Version)
		}
	}

	path := filepath.Join(s.root, aifdocs.IndexFilename)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return aifdocs.Errorf(aifdocs.EIO, "write index %s: %v", path, err)
	}
	return nil
}
