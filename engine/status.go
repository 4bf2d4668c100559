package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/aifdocs/aifdocs"
)

// CollectStatus inspects the on-disk state without syncing. Lockfile mode
// is purely local; latest-docs mode probes the registry only for records
// whose TTL has expired.
func (e *Engine) CollectStatus(ctx context.Context, versions aifdocs.VersionMap) []aifdocs.PackageStatus {
	now := e.now()
	statuses := make([]aifdocs.PackageStatus, 0, len(e.Config.Packages))
	for _, pkg := range e.Config.Packages {
		if e.Config.Settings.SyncMode == aifdocs.ModeLatestDocs {
			statuses = append(statuses, e.latestStatus(ctx, pkg, now))
		} else {
			statuses = append(statuses, e.lockfileStatus(pkg, versions))
		}
	}
	return statuses
}

func (e *Engine) lockfileStatus(pkg *aifdocs.Package, versions aifdocs.VersionMap) aifdocs.PackageStatus {
	mode := string(e.Config.Settings.SyncMode)

	lockVersion, inLock := versions[pkg.Name]
	if !inLock {
		return aifdocs.PackageStatus{
			Name:       pkg.Name,
			Status:     aifdocs.StatusMissing,
			Reason:     "package missing in lockfile",
			Mode:       mode,
			ReasonCode: aifdocs.ReasonLockfileMissing,
		}
	}

	meta, err := e.Store.ReadMeta(pkg.Name, lockVersion)
	if err != nil {
		switch aifdocs.ErrorCode(err) {
		case aifdocs.ENOTEXIST:
			if existing, ok := e.bestExistingVersion(pkg.Name); ok && existing != lockVersion {
				return aifdocs.PackageStatus{
					Name:        pkg.Name,
					LockVersion: lockVersion,
					DocsVersion: existing,
					Status:      aifdocs.StatusOutdated,
					Reason:      fmt.Sprintf("cached docs version %s differs from lock version %s", existing, lockVersion),
					Mode:        mode,
					ReasonCode:  aifdocs.ReasonLockfileOutdated,
				}
			}
			return aifdocs.PackageStatus{
				Name:        pkg.Name,
				LockVersion: lockVersion,
				Status:      aifdocs.StatusMissing,
				Reason:      "no synced docs found for this package",
				Mode:        mode,
				ReasonCode:  aifdocs.ReasonLockfileMissing,
			}
		default:
			return aifdocs.PackageStatus{
				Name:        pkg.Name,
				LockVersion: lockVersion,
				DocsVersion: lockVersion,
				Status:      aifdocs.StatusCorrupted,
				Reason:      aifdocs.ErrorMessage(err),
				Mode:        mode,
				ReasonCode:  aifdocs.ReasonLockfileCorruptedMeta,
			}
		}
	}

	if meta.Version != lockVersion {
		return aifdocs.PackageStatus{
			Name:        pkg.Name,
			LockVersion: lockVersion,
			DocsVersion: meta.Version,
			Status:      aifdocs.StatusOutdated,
			Reason:      fmt.Sprintf("metadata version %s differs from lock version %s", meta.Version, lockVersion),
			Mode:        mode,
			SourceKind:  meta.SourceKind,
			ReasonCode:  aifdocs.ReasonLockfileOutdated,
		}
	}

	if meta.ConfigHash == "" || meta.ConfigHash != pkg.Fingerprint() {
		return aifdocs.PackageStatus{
			Name:        pkg.Name,
			LockVersion: lockVersion,
			DocsVersion: meta.Version,
			Status:      aifdocs.StatusOutdated,
			Reason:      "package configuration changed since last sync",
			Mode:        mode,
			SourceKind:  meta.SourceKind,
			ReasonCode:  aifdocs.ReasonLockfileOutdated,
		}
	}

	if meta.IsFallback {
		return aifdocs.PackageStatus{
			Name:        pkg.Name,
			LockVersion: lockVersion,
			DocsVersion: meta.Version,
			Status:      aifdocs.StatusSyncedFallback,
			Reason:      "synced from fallback branch (no exact tag found)",
			Mode:        mode,
			SourceKind:  meta.SourceKind,
			ReasonCode:  aifdocs.ReasonLockfileOK,
		}
	}

	return aifdocs.PackageStatus{
		Name:        pkg.Name,
		LockVersion: lockVersion,
		DocsVersion: meta.Version,
		Status:      aifdocs.StatusSynced,
		Reason:      "up to date",
		Mode:        mode,
		SourceKind:  meta.SourceKind,
		ReasonCode:  aifdocs.ReasonLockfileOK,
	}
}

func (e *Engine) latestStatus(ctx context.Context, pkg *aifdocs.Package, now time.Time) aifdocs.PackageStatus {
	mode := string(aifdocs.ModeLatestDocs)

	existing, ok := e.bestExistingVersion(pkg.Name)
	if !ok {
		return aifdocs.PackageStatus{
			Name:       pkg.Name,
			Status:     aifdocs.StatusMissing,
			Reason:     "no synced docs found for this package",
			Mode:       mode,
			ReasonCode: ReasonLatestMissing,
		}
	}

	meta, err := e.Store.ReadMeta(pkg.Name, existing)
	if err != nil {
		return aifdocs.PackageStatus{
			Name:        pkg.Name,
			DocsVersion: existing,
			Status:      aifdocs.StatusCorrupted,
			Reason:      aifdocs.ErrorMessage(err),
			Mode:        mode,
			ReasonCode:  aifdocs.ReasonLatestCorruptedMeta,
		}
	}

	fallback := meta.IsFallback || meta.SourceKind == string(aifdocs.KindGitFallback)
	status := aifdocs.StatusSynced
	code := aifdocs.ReasonLatestOKRendered
	reason := "latest docs up to date"
	if fallback {
		status = aifdocs.StatusSyncedFallback
		code = aifdocs.ReasonLatestOKFallback
		reason = "latest docs synced via git-host fallback"
	}

	// Probe upstream only after the record's TTL has lapsed. A probe
	// failure keeps the current status; staleness checking is best-effort.
	if meta.TTLExpired(now) && e.Resolver != nil {
		if latest, err := e.Resolver.LatestVersion(ctx, pkg.Name); err == nil && latest != existing {
			return aifdocs.PackageStatus{
				Name:        pkg.Name,
				DocsVersion: existing,
				Status:      aifdocs.StatusOutdated,
				Reason:      fmt.Sprintf("upstream version %s is newer than cached %s", latest, existing),
				Mode:        mode,
				SourceKind:  meta.SourceKind,
				ReasonCode:  aifdocs.ReasonLatestOutdatedUpstream,
			}
		}
	}

	return aifdocs.PackageStatus{
		Name:        pkg.Name,
		DocsVersion: existing,
		Status:      status,
		Reason:      reason,
		Mode:        mode,
		SourceKind:  meta.SourceKind,
		ReasonCode:  code,
	}
}
