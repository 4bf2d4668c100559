package transform

import (
	"fmt"
	"strings"
)

// headerPrefix starts every injected provenance comment. Content already
// carrying it is left untouched so the pipeline stays idempotent.
const headerPrefix = "<!-- AIFDOCS:"

// Provenance describes where a file's bytes came from.
type Provenance struct {
	Source      string // e.g. "github.com/serde-rs/serde"
	Ref         string // tag, branch, or "registry-archive"
	Path        string // original repo-relative path
	URL         string // exact download URL
	FetchedDate string // ISO date
	IsFallback  bool   // ref is a default branch, not the version tag
	Version     string // target version, named in the fallback warning
}

// InjectHeader prepends provenance comments to markdown and HTML files.
// Fallback references get an extra warning line. Other file types are
// returned unchanged.
func InjectHeader(relPath, content string, p Provenance) string {
	if !headerEligible(relPath) {
		return content
	}
	if strings.HasPrefix(content, headerPrefix) {
		return content
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s source=%s ref=%s path=%s fetched=%s -->\n", headerPrefix, p.Source, p.Ref, p.Path, p.FetchedDate)
	if p.URL != "" {
		fmt.Fprintf(&b, "%s url=%s -->\n", headerPrefix, p.URL)
	}
	if p.IsFallback {
		fmt.Fprintf(&b, "%s WARNING: no tag found for version %s; fetched from %q. Content may not match the installed version. -->\n", headerPrefix, p.Version, p.Ref)
	}
	b.WriteString("\n")
	b.WriteString(content)
	return b.String()
}

func headerEligible(relPath string) bool {
	lower := strings.ToLower(relPath)
	return strings.HasSuffix(lower, ".md") ||
		strings.HasSuffix(lower, ".html") ||
		strings.HasSuffix(lower, ".htm")
}
