// Package mock provides function-field mocks for core interfaces.
package mock

import (
	"context"

	"github.com/aifdocs/aifdocs"
)

var _ aifdocs.Source = (*Source)(nil)

// Source is a mock implementation of aifdocs.Source.
type Source struct {
	KindFn  func() aifdocs.SourceKind
	FetchFn func(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error)
}

func (s *Source) Kind() aifdocs.SourceKind {
	if s.KindFn != nil {
		return s.KindFn()
	}
	return aifdocs.KindGitHost
}

func (s *Source) Fetch(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
	return s.FetchFn(ctx, pkg, version)
}

var _ aifdocs.VersionResolver = (*VersionResolver)(nil)

// VersionResolver is a mock implementation of aifdocs.VersionResolver.
type VersionResolver struct {
	LatestVersionFn func(ctx context.Context, name string) (string, error)
}

func (r *VersionResolver) LatestVersion(ctx context.Context, name string) (string, error) {
	return r.LatestVersionFn(ctx, name)
}
