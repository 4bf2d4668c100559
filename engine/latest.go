package engine

import (
	"context"
	"time"

	"github.com/aifdocs/aifdocs"
)

// ReasonLatestMissing reports a latest-docs package with no artifacts and
// no resolvable upstream version.
const ReasonLatestMissing = "latest_missing"

// processLatest runs one package through latest-docs mode: TTL-gated cache
// decision, registry version resolution, rendered-docs fetch with git-host
// fallback, and a commit carrying the latest-mode metadata fields.
func (e *Engine) processLatest(ctx context.Context, pkg *aifdocs.Package, now time.Time) jobResult {
	mode := string(aifdocs.ModeLatestDocs)

	decision, existing, meta := e.decideLatest(pkg, now)
	if decision == DecisionHit {
		status := aifdocs.StatusSynced
		code := aifdocs.ReasonLatestCacheHitTTL
		if meta.IsFallback || meta.SourceKind == string(aifdocs.KindGitFallback) {
			status = aifdocs.StatusSyncedFallback
			code = aifdocs.ReasonLatestOKFallback
		}
		e.emit(Event{Type: EventCached, Package: pkg.Name, Version: existing})
		return jobResult{
			status: aifdocs.PackageStatus{
				Name:        pkg.Name,
				DocsVersion: existing,
				Status:      status,
				Reason:      "cached within TTL",
				Mode:        mode,
				SourceKind:  meta.SourceKind,
				ReasonCode:  code,
			},
			index: &aifdocs.IndexEntry{Name: pkg.Name, Version: existing, Fallback: status == aifdocs.StatusSyncedFallback},
		}
	}

	version, err := e.resolveLatest(ctx, pkg.Name)
	if err != nil {
		e.emit(Event{Type: EventFailed, Package: pkg.Name, Err: err})
		if existing != "" {
			return jobResult{
				status: aifdocs.PackageStatus{
					Name:        pkg.Name,
					DocsVersion: existing,
					Status:      aifdocs.StatusOutdated,
					Reason:      "upstream refresh failed: " + aifdocs.ErrorMessage(err),
					Mode:        mode,
					ReasonCode:  aifdocs.ReasonLatestOutdatedRefresh,
				},
				attempts: []attempt{{code: aifdocs.ErrorCode(err)}},
				failed:   true,
			}
		}
		return jobResult{
			status: aifdocs.PackageStatus{
				Name:       pkg.Name,
				Status:     aifdocs.StatusMissing,
				Reason:     "registry resolve failed: " + aifdocs.ErrorMessage(err),
				Mode:       mode,
				ReasonCode: ReasonLatestMissing,
			},
			attempts: []attempt{{code: aifdocs.ErrorCode(err)}},
			failed:   true,
		}
	}

	res, attempts, fetchErr := e.fetchLatest(ctx, pkg, version)
	if fetchErr != nil {
		e.emit(Event{Type: EventFailed, Package: pkg.Name, Version: version, Err: fetchErr})
		status := aifdocs.PackageStatus{
			Name:       pkg.Name,
			Status:     aifdocs.StatusMissing,
			Reason:     aifdocs.ErrorMessage(fetchErr),
			Mode:       mode,
			ReasonCode: ReasonLatestMissing,
		}
		if existing != "" {
			status.DocsVersion = existing
			status.Status = aifdocs.StatusOutdated
			status.Reason = "refresh failed: " + aifdocs.ErrorMessage(fetchErr)
			status.ReasonCode = aifdocs.ReasonLatestOutdatedRefresh
		}
		return jobResult{status: status, attempts: attempts, failed: true}
	}

	ttl := time.Duration(e.Config.Settings.LatestTTLHours) * time.Hour
	extra := func(m *aifdocs.Meta) {
		m.SyncMode = mode
		m.UpstreamLatestVersion = version
		m.UpstreamCheckedAt = now.UTC().Format(aifdocs.DateFormat)
		m.TTLExpiresAt = now.UTC().Add(ttl).Format(time.RFC3339)
		m.ArtifactFormat = "markdown"
	}

	if commitErr := e.commit(ctx, pkg, version, res, now, extra); commitErr != nil {
		e.emit(Event{Type: EventFailed, Package: pkg.Name, Version: version, Err: commitErr})
		attempts = append(attempts, attempt{code: aifdocs.ErrorCode(commitErr)})
		return jobResult{
			status: aifdocs.PackageStatus{
				Name:       pkg.Name,
				Status:     aifdocs.StatusMissing,
				Reason:     aifdocs.ErrorMessage(commitErr),
				Mode:       mode,
				ReasonCode: ReasonLatestMissing,
			},
			attempts: attempts,
			failed:   true,
		}
	}

	status := aifdocs.StatusSynced
	code := aifdocs.ReasonLatestOKRendered
	eventType := EventSynced
	reason := "synced latest docs"
	if res.Kind != aifdocs.KindRendered || res.Degraded {
		status = aifdocs.StatusSyncedFallback
		code = aifdocs.ReasonLatestOKFallback
		eventType = EventFallback
		if res.Degraded {
			reason = "rendered docs degraded; artifact persisted with reduced content"
		} else {
			reason = "synced latest docs via git-host fallback"
		}
	}
	e.emit(Event{Type: eventType, Package: pkg.Name, Version: version, Message: string(res.Kind)})

	return jobResult{
		status: aifdocs.PackageStatus{
			Name:        pkg.Name,
			DocsVersion: version,
			Status:      status,
			Reason:      reason,
			Mode:        mode,
			SourceKind:  string(res.Kind),
			ReasonCode:  code,
		},
		index:    &aifdocs.IndexEntry{Name: pkg.Name, Version: version, Fallback: status == aifdocs.StatusSyncedFallback},
		attempts: attempts,
	}
}

func (e *Engine) resolveLatest(ctx context.Context, name string) (string, error) {
	if e.Resolver == nil {
		return "", aifdocs.Errorf(aifdocs.EINVALID, "no version resolver configured for latest-docs mode")
	}
	return e.Resolver.LatestVersion(ctx, name)
}

// fetchLatest tries the rendered-docs adapter first and chains to the
// git-host on fallback-eligible failures. A degraded rendered result is
// kept only when the git-host cannot do better.
func (e *Engine) fetchLatest(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, []attempt, error) {
	var attempts []attempt
	var degraded *aifdocs.FetchResult
	var lastErr error

	if e.Rendered != nil {
		res, err := e.Rendered.Fetch(ctx, pkg, version)
		switch {
		case err != nil:
			attempts = append(attempts, attempt{kind: aifdocs.KindRendered, code: aifdocs.ErrorCode(err)})
			lastErr = err
			if !aifdocs.FallbackEligible(err) {
				return nil, attempts, err
			}
		case res.Degraded:
			attempts = append(attempts, attempt{kind: aifdocs.KindRendered, code: aifdocs.EDEGRADED})
			degraded = res
		case len(res.Files) == 0:
			attempts = append(attempts, attempt{kind: aifdocs.KindRendered, code: aifdocs.ENOTFOUND})
			lastErr = aifdocs.Errorf(aifdocs.ENOTFOUND, "rendered docs empty for %s@%s", pkg.Name, version)
		default:
			attempts = append(attempts, attempt{kind: aifdocs.KindRendered, ok: true})
			return res, attempts, nil
		}
	}

	if e.GitHost != nil && pkg.Repo != "" {
		res, err := e.GitHost.Fetch(ctx, pkg, version)
		if err == nil && len(res.Files) > 0 {
			attempts = append(attempts, attempt{kind: aifdocs.KindGitHost, ok: true})
			res.Kind = aifdocs.KindGitFallback
			return res, attempts, nil
		}
		if err != nil {
			attempts = append(attempts, attempt{kind: aifdocs.KindGitHost, code: aifdocs.ErrorCode(err)})
			lastErr = err
		} else {
			attempts = append(attempts, attempt{kind: aifdocs.KindGitHost, code: aifdocs.ENOTFOUND})
			lastErr = aifdocs.Errorf(aifdocs.ENOTFOUND, "no documentation files found for %s@%s via git host", pkg.Name, version)
		}
	}

	if degraded != nil {
		return degraded, attempts, nil
	}
	if lastErr == nil {
		lastErr = aifdocs.Errorf(aifdocs.EINVALID, "no source adapter available for %q", pkg.Name)
	}
	return nil, attempts, lastErr
}
