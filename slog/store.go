package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/aifdocs/aifdocs"
)

// Ensure LoggingStore implements aifdocs.Store.
var _ aifdocs.Store = (*LoggingStore)(nil)

// LoggingStore wraps a Store with commit and prune logging.
type LoggingStore struct {
	next   aifdocs.Store
	logger *slog.Logger
}

// NewLoggingStore creates a LoggingStore.
func NewLoggingStore(next aifdocs.Store, logger *slog.Logger) *LoggingStore {
	return &LoggingStore{next: next, logger: logger}
}

// ReadMeta delegates to the wrapped store.
func (s *LoggingStore) ReadMeta(name, version string) (*aifdocs.Meta, error) {
	return s.next.ReadMeta(name, version)
}

// Commit delegates to the wrapped store, logging the outcome.
func (s *LoggingStore) Commit(ctx context.Context, c *aifdocs.Commit) error {
	begin := time.Now()
	err := s.next.Commit(ctx, c)
	if err != nil {
		s.logger.Error("commit failed",
			"package", c.Package.Name,
			"version", c.Version,
			"code", aifdocs.ErrorCode(err),
		)
		return err
	}
	s.logger.Info("commit",
		"package", c.Package.Name,
		"version", c.Version,
		"files", len(c.Files),
		"duration", time.Since(begin),
	)
	return nil
}

// Prune delegates to the wrapped store, logging removed directories.
func (s *LoggingStore) Prune(targets aifdocs.VersionMap, configured map[string]bool) ([]string, error) {
	removed, err := s.next.Prune(targets, configured)
	for _, dir := range removed {
		s.logger.Info("pruned", "dir", dir)
	}
	return removed, err
}

// WriteIndex delegates to the wrapped store.
func (s *LoggingStore) WriteIndex(entries []aifdocs.IndexEntry) error {
	return s.next.WriteIndex(entries)
}

// Scan delegates to the wrapped store.
func (s *LoggingStore) Scan() ([]aifdocs.DirEntry, error) {
	return s.next.Scan()
}
