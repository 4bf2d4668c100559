package registry

import (
	"bytes"
	"context"

	"github.com/aifdocs/aifdocs"
	aifdhttp "github.com/aifdocs/aifdocs/http"
)

// Ensure Source implements the fetch contract and version resolution.
var (
	_ aifdocs.Source          = (*Source)(nil)
	_ aifdocs.VersionResolver = (*Source)(nil)
)

// Source fetches documentation from published registry archives. The
// resolved reference is always the registry-archive sentinel and never a
// fallback.
type Source struct {
	client   *aifdhttp.Client
	registry Registry
}

// NewSource creates a registry-archive adapter over the given registry.
func NewSource(client *aifdhttp.Client, registry Registry) *Source {
	return &Source{client: client, registry: registry}
}

// Kind identifies this adapter.
func (s *Source) Kind() aifdocs.SourceKind {
	return aifdocs.KindRegistryArchive
}

// LatestVersion resolves the newest stable version from the registry.
func (s *Source) LatestVersion(ctx context.Context, name string) (string, error) {
	return s.registry.Latest(ctx, name)
}

// Fetch downloads the published archive and extracts the requested files.
// When the only requested file is the package README and the registry
// serves it inline, the archive download is skipped entirely.
func (s *Source) Fetch(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
	meta, err := s.registry.VersionMeta(ctx, pkg.Name, version)
	if err != nil {
		return nil, err
	}

	ref := aifdocs.ResolvedRef{Ref: aifdocs.RefRegistryArchive}

	if readmeOnly(pkg.Files) && meta.InlineReadme != "" {
		return &aifdocs.FetchResult{
			Files: []aifdocs.FetchedFile{{
				Path:      pkg.Files[0],
				SourceURL: meta.ArchiveURL,
				Content:   []byte(meta.InlineReadme),
			}},
			Ref:  ref,
			Kind: aifdocs.KindRegistryArchive,
		}, nil
	}

	resp, err := s.client.Get(ctx, meta.ArchiveURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, aifdocs.Errorf(aifdocs.ETARBALL, "archive not found at %s", meta.ArchiveURL)
	}
	if resp.StatusCode != 200 {
		return nil, aifdhttp.ClassifyStatus(meta.ArchiveURL, resp.StatusCode)
	}

	files, err := ExtractDocs(bytes.NewReader(resp.Body), meta.ArchiveURL, pkg.Subpath, pkg.Files)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, aifdocs.Errorf(aifdocs.ENOTFOUND, "archive %s has no documentation files", meta.ArchiveURL)
	}

	return &aifdocs.FetchResult{
		Files: files,
		Ref:   ref,
		Kind:  aifdocs.KindRegistryArchive,
	}, nil
}

// readmeOnly reports whether the explicit file list is exactly the
// package README.
func readmeOnly(files []string) bool {
	if len(files) != 1 {
		return false
	}
	switch files[0] {
	case "README.md", "README", "readme.md":
		return true
	}
	return false
}
