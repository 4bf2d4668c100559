package fs

import (
	"fmt"
	"strings"

	"github.com/aifdocs/aifdocs"
)

// FormatSummary renders the per-package _SUMMARY.md: an AI-notes section,
// a files table, and provenance from the metadata record.
func FormatSummary(c *aifdocs.Commit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s@%s\n\n", c.Package.Name, c.Version)

	if c.Package.AINotes != "" {
		b.WriteString("## AI notes\n\n")
		b.WriteString(strings.TrimSpace(c.Package.AINotes))
		b.WriteString("\n\n")
	}

	b.WriteString("## Files\n\n")
	b.WriteString("| File | Bytes |\n")
	b.WriteString("| --- | --- |\n")
	for _, f := range c.Files {
		fmt.Fprintf(&b, "| %s | %d |\n", f.Name, len(f.Content))
	}
	b.WriteString("\n")

	b.WriteString("## Provenance\n\n")
	fmt.Fprintf(&b, "- ref: `%s`\n", c.Meta.GitRef)
	fmt.Fprintf(&b, "- fetched: %s\n", c.Meta.FetchedAt)
	if c.Meta.SourceKind != "" {
		fmt.Fprintf(&b, "- source: %s\n", c.Meta.SourceKind)
	}
	if c.Meta.IsFallback {
		b.WriteString("- fallback: the exact version tag was not found upstream\n")
	}
	return b.String()
}
