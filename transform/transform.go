package transform

import (
	"github.com/aifdocs/aifdocs"
)

// Options configures the per-file pipeline.
type Options struct {
	Version     string // target version, drives changelog trimming
	MaxFileKB   int    // size cap
	Source      string // provenance: host-qualified repo or service
	Ref         string // provenance: resolved reference token
	IsFallback  bool
	FetchedDate string // ISO date recorded in the header
}

// Apply runs the full pipeline on one fetched file: changelog trimming,
// size cap, header injection, and filename flattening. It is pure and
// idempotent with respect to the content transforms.
func Apply(file aifdocs.FetchedFile, opts Options) (aifdocs.PersistedFile, bool) {
	content := string(file.Content)

	if IsChangelog(file.Path) && opts.Version != "" {
		content = TrimChangelog(content, opts.Version)
	}

	content, truncated := Truncate(content, opts.MaxFileKB)

	content = InjectHeader(file.Path, content, Provenance{
		Source:      opts.Source,
		Ref:         opts.Ref,
		Path:        file.Path,
		URL:         file.SourceURL,
		FetchedDate: opts.FetchedDate,
		IsFallback:  opts.IsFallback,
		Version:     opts.Version,
	})

	return aifdocs.PersistedFile{
		Name:    FlattenFilename(file.Path),
		Content: []byte(content),
	}, truncated
}
