package docsrs

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aifdocs/aifdocs"
	aifdhttp "github.com/aifdocs/aifdocs/http"
)

// Ensure Source implements aifdocs.Source at compile time.
var _ aifdocs.Source = (*Source)(nil)

// Source fetches a single canonical rendered page per package version and
// emits the normalized API.md artifact. Used as the primary adapter in
// latest-docs mode.
type Source struct {
	client     *aifdhttp.Client
	normalizer *Normalizer
	base       string
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL overrides the rendered-docs service endpoint. Used in tests.
func WithBaseURL(base string) Option {
	return func(s *Source) {
		s.base = strings.TrimSuffix(base, "/")
	}
}

// NewSource creates a rendered-docs adapter against docs.rs.
func NewSource(client *aifdhttp.Client, opts ...Option) *Source {
	s := &Source{
		client:     client,
		normalizer: NewNormalizer(),
		base:       "https://docs.rs",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind identifies this adapter.
func (s *Source) Kind() aifdocs.SourceKind {
	return aifdocs.KindRendered
}

// Fetch retrieves the canonical page for (name, version) and normalizes
// it. A degraded normalization is returned as a result, not an error, so
// the orchestrator can decide whether to chain to the git-host adapter.
func (s *Source) Fetch(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
	pageURL := fmt.Sprintf("%s/crate/%s/%s", s.base, url.PathEscape(pkg.Name), url.PathEscape(version))

	resp, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, aifdhttp.ClassifyStatus(pageURL, resp.StatusCode)
	}

	markdown, degraded := s.normalizer.Normalize(pkg.Name, version, pageURL, string(resp.Body))

	return &aifdocs.FetchResult{
		Files: []aifdocs.FetchedFile{{
			Path:      ArtifactName,
			SourceURL: pageURL,
			Content:   []byte(markdown),
		}},
		Ref:      aifdocs.ResolvedRef{Ref: "latest/" + version},
		Kind:     aifdocs.KindRendered,
		Degraded: degraded,
	}, nil
}
