package mock

import (
	"context"

	"github.com/aifdocs/aifdocs"
)

var _ aifdocs.Store = (*Store)(nil)

// Store is a mock implementation of aifdocs.Store.
type Store struct {
	ReadMetaFn   func(name, version string) (*aifdocs.Meta, error)
	CommitFn     func(ctx context.Context, c *aifdocs.Commit) error
	PruneFn      func(targets aifdocs.VersionMap, configured map[string]bool) ([]string, error)
	WriteIndexFn func(entries []aifdocs.IndexEntry) error
	ScanFn       func() ([]aifdocs.DirEntry, error)
}

func (s *Store) ReadMeta(name, version string) (*aifdocs.Meta, error) {
	return s.ReadMetaFn(name, version)
}

func (s *Store) Commit(ctx context.Context, c *aifdocs.Commit) error {
	return s.CommitFn(ctx, c)
}

func (s *Store) Prune(targets aifdocs.VersionMap, configured map[string]bool) ([]string, error) {
	if s.PruneFn != nil {
		return s.PruneFn(targets, configured)
	}
	return nil, nil
}

func (s *Store) WriteIndex(entries []aifdocs.IndexEntry) error {
	if s.WriteIndexFn != nil {
		return s.WriteIndexFn(entries)
	}
	return nil
}

func (s *Store) Scan() ([]aifdocs.DirEntry, error) {
	if s.ScanFn != nil {
		return s.ScanFn()
	}
	return nil, nil
}
