// Package slog provides logging decorators for core services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/aifdocs/aifdocs"
)

// Ensure LoggingSource implements aifdocs.Source.
var _ aifdocs.Source = (*LoggingSource)(nil)

// LoggingSource wraps a Source with structured fetch logging.
type LoggingSource struct {
	next   aifdocs.Source
	logger *slog.Logger
}

// NewLoggingSource creates a LoggingSource.
func NewLoggingSource(next aifdocs.Source, logger *slog.Logger) *LoggingSource {
	return &LoggingSource{next: next, logger: logger}
}

// Kind delegates to the wrapped source.
func (s *LoggingSource) Kind() aifdocs.SourceKind {
	return s.next.Kind()
}

// Fetch delegates to the wrapped source, logging outcome and duration.
func (s *LoggingSource) Fetch(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
	begin := time.Now()
	res, err := s.next.Fetch(ctx, pkg, version)
	if err != nil {
		s.logger.Warn("fetch failed",
			"source", string(s.next.Kind()),
			"package", pkg.Name,
			"version", version,
			"code", aifdocs.ErrorCode(err),
			"duration", time.Since(begin),
		)
		return nil, err
	}
	s.logger.Info("fetch",
		"source", string(res.Kind),
		"package", pkg.Name,
		"version", version,
		"files", len(res.Files),
		"ref", res.Ref.Ref,
		"fallback", res.Ref.IsFallback,
		"duration", time.Since(begin),
	)
	return res, nil
}
