// Package engine drives the per-package sync state machine concurrently
// under a bound: cache decision, fetch with per-mode fallback chains,
// content transformation, atomic commit, and report assembly. Single
// package failures never abort a run; the only join point is the barrier
// before the global index is written.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aifdocs/aifdocs"
	"github.com/aifdocs/aifdocs/transform"
)

// State names the steps of the per-package state machine. Terminal states
// are Committed, Skipped, and Failed.
type State string

// States.
const (
	StatePlanned     State = "planned"
	StateDecided     State = "decided"
	StateFetched     State = "fetched"
	StateTransformed State = "transformed"
	StateCommitted   State = "committed"
	StateSkipped     State = "skipped"
	StateFailed      State = "failed"
)

// EventType tags progress events emitted to the reporter sink.
type EventType int

// Event types.
const (
	EventPruned EventType = iota
	EventCached
	EventSynced
	EventFallback
	EventSkipped
	EventFailed
	EventFinished
)

// Event is one progress notification. The engine never writes to process
// globals; all user-visible output flows through the sink.
type Event struct {
	Type    EventType
	Package string
	Version string
	Message string
	Err     error
}

// EventFunc receives progress events. May be nil.
type EventFunc func(Event)

// Engine orchestrates a sync run.
type Engine struct {
	Config *aifdocs.Config
	Store  aifdocs.Store

	// Adapters. Nil adapters are simply absent from fallback chains.
	GitHost  aifdocs.Source
	Registry aifdocs.Source
	Rendered aifdocs.Source

	// Resolver supplies latest versions in latest-docs mode.
	Resolver aifdocs.VersionResolver

	Logger   *slog.Logger
	Force    bool
	Progress EventFunc

	// Now is the clock, injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) emit(ev Event) {
	if e.Progress != nil {
		e.Progress(ev)
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// attempt records one adapter try for sourceStats and errorCodes.
type attempt struct {
	kind aifdocs.SourceKind
	ok   bool
	code string
}

// jobResult is the terminal outcome of one package job.
type jobResult struct {
	status   aifdocs.PackageStatus
	index    *aifdocs.IndexEntry
	attempts []attempt
	failed   bool
}

// Run executes the pipeline: prune, schedule all package jobs on a worker
// pool, await the barrier, write the global index, and assemble the
// report. The returned error covers only global failures; per-package
// failures land in the report.
func (e *Engine) Run(ctx context.Context, versions aifdocs.VersionMap) (*aifdocs.Report, error) {
	now := e.now()
	mode := e.Config.Settings.SyncMode

	if mode == aifdocs.ModeLockfile && e.Config.Settings.Prune {
		configured := make(map[string]bool, len(e.Config.Packages))
		for _, p := range e.Config.Packages {
			configured[p.Name] = true
		}
		removed, err := e.Store.Prune(versions, configured)
		if err != nil {
			return nil, err
		}
		for _, dir := range removed {
			e.emit(Event{Type: EventPruned, Message: dir})
		}
	}

	concurrency := e.Config.Settings.SyncConcurrency
	if concurrency <= 0 {
		concurrency = aifdocs.DefaultSyncConcurrency
	}
	if concurrency > aifdocs.MaxSyncConcurrency {
		concurrency = aifdocs.MaxSyncConcurrency
	}

	resultCh := make(chan jobResult, len(e.Config.Packages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for _, pkg := range e.Config.Packages {
			pkg := pkg
			g.Go(func() error {
				resultCh <- e.processPackage(gctx, pkg, versions, now)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	var results []jobResult
	for result := range resultCh {
		results = append(results, result)
	}

	report := e.assemble(results)

	var indexEntries []aifdocs.IndexEntry
	for _, r := range results {
		if r.index != nil {
			indexEntries = append(indexEntries, *r.index)
		}
	}
	sort.Slice(indexEntries, func(i, j int) bool {
		if indexEntries[i].Name != indexEntries[j].Name {
			return indexEntries[i].Name < indexEntries[j].Name
		}
		return indexEntries[i].Version < indexEntries[j].Version
	})
	if err := e.Store.WriteIndex(indexEntries); err != nil {
		return report, err
	}

	e.emit(Event{Type: EventFinished})
	return report, nil
}

// assemble builds the structured report from terminal job results.
func (e *Engine) assemble(results []jobResult) *aifdocs.Report {
	statuses := make([]aifdocs.PackageStatus, 0, len(results))
	sourceStats := make(map[string]aifdocs.SourceStat)
	errorCodes := make(map[string]int)
	var issues []string

	for _, r := range results {
		statuses = append(statuses, r.status)

		for _, a := range r.attempts {
			if a.kind == "" {
				continue // resolution and commit failures have no adapter
			}
			stat := sourceStats[string(a.kind)]
			if a.ok {
				stat.Synced++
			} else {
				stat.Failed++
			}
			sourceStats[string(a.kind)] = stat
		}

		// Fallback-absorbed errors stay out of the histogram; only
		// terminally failed packages contribute their classifications.
		if r.failed {
			for _, a := range r.attempts {
				if !a.ok && a.code != "" {
					errorCodes[a.code]++
				}
			}
		}

		if !r.status.Status.OK() {
			issues = append(issues, fmt.Sprintf("%s [%s]: %s", r.status.Name, r.status.Status, r.status.Reason))
		}
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	sort.Strings(issues)

	return &aifdocs.Report{
		Summary:     aifdocs.Summarize(statuses),
		Statuses:    statuses,
		SourceStats: sourceStats,
		ErrorCodes:  errorCodes,
		Issues:      issues,
	}
}

// processPackage runs one package through the state machine to a terminal
// state.
func (e *Engine) processPackage(ctx context.Context, pkg *aifdocs.Package, versions aifdocs.VersionMap, now time.Time) jobResult {
	if e.Config.Settings.SyncMode == aifdocs.ModeLatestDocs {
		return e.processLatest(ctx, pkg, now)
	}
	return e.processLockfile(ctx, pkg, versions, now)
}

func (e *Engine) processLockfile(ctx context.Context, pkg *aifdocs.Package, versions aifdocs.VersionMap, now time.Time) jobResult {
	mode := string(e.Config.Settings.SyncMode)

	version, inLock := versions[pkg.Name]
	if !inLock {
		e.emit(Event{Type: EventSkipped, Package: pkg.Name, Message: "not in lockfile"})
		return jobResult{
			status: aifdocs.PackageStatus{
				Name:       pkg.Name,
				Status:     aifdocs.StatusMissing,
				Reason:     "package missing in lockfile",
				Mode:       mode,
				ReasonCode: aifdocs.ReasonLockfileMissing,
			},
			attempts: []attempt{{code: aifdocs.ENOTINLOCK}},
			failed:   true,
		}
	}

	decision, meta := e.decide(pkg, version)
	if decision == DecisionHit {
		status := aifdocs.StatusSynced
		if meta.IsFallback {
			status = aifdocs.StatusSyncedFallback
		}
		e.emit(Event{Type: EventCached, Package: pkg.Name, Version: version})
		return jobResult{
			status: aifdocs.PackageStatus{
				Name:        pkg.Name,
				LockVersion: version,
				DocsVersion: version,
				Status:      status,
				Reason:      "up to date (cached)",
				Mode:        mode,
				SourceKind:  meta.SourceKind,
				ReasonCode:  aifdocs.ReasonLockfileOK,
			},
			index: &aifdocs.IndexEntry{Name: pkg.Name, Version: version, Fallback: meta.IsFallback},
		}
	}

	res, attempts, err := e.fetch(ctx, pkg, version)
	if err != nil {
		e.emit(Event{Type: EventFailed, Package: pkg.Name, Version: version, Err: err})
		return jobResult{
			status: aifdocs.PackageStatus{
				Name:        pkg.Name,
				LockVersion: version,
				Status:      aifdocs.StatusMissing,
				Reason:      aifdocs.ErrorMessage(err),
				Mode:        mode,
				ReasonCode:  aifdocs.ReasonLockfileMissing,
			},
			attempts: attempts,
			failed:   true,
		}
	}

	usedFallback := res.Ref.IsFallback || res.Degraded
	if e.Config.Settings.SyncMode == aifdocs.ModeHybrid {
		// In hybrid mode the mixed kind is the expected outcome, not a
		// fallback transition; any other kind means the registry archive
		// failed and the git host took over.
		usedFallback = usedFallback || res.Kind != aifdocs.KindMixed
	} else {
		usedFallback = usedFallback || res.Kind != e.primaryKind()
	}
	if commitErr := e.commit(ctx, pkg, version, res, now, nil); commitErr != nil {
		e.emit(Event{Type: EventFailed, Package: pkg.Name, Version: version, Err: commitErr})
		attempts = append(attempts, attempt{code: aifdocs.ErrorCode(commitErr)})
		return jobResult{
			status: aifdocs.PackageStatus{
				Name:        pkg.Name,
				LockVersion: version,
				Status:      aifdocs.StatusMissing,
				Reason:      aifdocs.ErrorMessage(commitErr),
				Mode:        mode,
				ReasonCode:  aifdocs.ReasonLockfileMissing,
			},
			attempts: attempts,
			failed:   true,
		}
	}

	status := aifdocs.StatusSynced
	eventType := EventSynced
	if usedFallback {
		status = aifdocs.StatusSyncedFallback
		eventType = EventFallback
	}
	e.emit(Event{Type: eventType, Package: pkg.Name, Version: version, Message: string(res.Kind)})

	return jobResult{
		status: aifdocs.PackageStatus{
			Name:        pkg.Name,
			LockVersion: version,
			DocsVersion: version,
			Status:      status,
			Reason:      fmt.Sprintf("synced from %s at %s", res.Kind, res.Ref.Ref),
			Mode:        mode,
			SourceKind:  string(res.Kind),
			ReasonCode:  aifdocs.ReasonLockfileOK,
		},
		index:    &aifdocs.IndexEntry{Name: pkg.Name, Version: version, Fallback: usedFallback},
		attempts: attempts,
	}
}

// primaryKind is the adapter the configuration names as first choice.
func (e *Engine) primaryKind() aifdocs.SourceKind {
	if e.Config.Settings.SyncMode == aifdocs.ModeLatestDocs {
		return aifdocs.KindRendered
	}
	if e.Config.Settings.DocsSource == aifdocs.SourceRegistryArchive {
		return aifdocs.KindRegistryArchive
	}
	return aifdocs.KindGitHost
}

// fetch walks the mode's adapter chain until a non-empty result. A
// fallback-eligible failure or an empty file list moves to the next
// adapter; anything else fails the package.
func (e *Engine) fetch(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, []attempt, error) {
	if e.Config.Settings.SyncMode == aifdocs.ModeHybrid {
		return e.fetchHybrid(ctx, pkg, version)
	}

	chain := e.chain(pkg)
	if len(chain) == 0 {
		return nil, nil, aifdocs.Errorf(aifdocs.EINVALID, "no source adapter available for %q", pkg.Name)
	}

	var attempts []attempt
	var lastErr error
	for i, src := range chain {
		res, err := src.Fetch(ctx, pkg, version)
		if err != nil {
			attempts = append(attempts, attempt{kind: src.Kind(), code: aifdocs.ErrorCode(err)})
			lastErr = err
			if aifdocs.FallbackEligible(err) && i < len(chain)-1 {
				e.logger().Warn("source fallback",
					"package", pkg.Name,
					"from", string(src.Kind()),
					"error", aifdocs.ErrorMessage(err),
				)
				continue
			}
			return nil, attempts, err
		}
		if len(res.Files) == 0 {
			attempts = append(attempts, attempt{kind: src.Kind(), code: aifdocs.ENOTFOUND})
			lastErr = aifdocs.Errorf(aifdocs.ENOTFOUND, "no documentation files found for %s@%s via %s", pkg.Name, version, src.Kind())
			continue
		}
		attempts = append(attempts, attempt{kind: src.Kind(), ok: true})
		return res, attempts, nil
	}
	return nil, attempts, lastErr
}

// chain returns the ordered adapter list for the current mode.
func (e *Engine) chain(pkg *aifdocs.Package) []aifdocs.Source {
	var chain []aifdocs.Source
	switch {
	case e.Config.Settings.SyncMode == aifdocs.ModeLatestDocs:
		if e.Rendered != nil {
			chain = append(chain, e.Rendered)
		}
		if e.GitHost != nil && pkg.Repo != "" {
			chain = append(chain, e.GitHost)
		}
	case e.Config.Settings.DocsSource == aifdocs.SourceRegistryArchive:
		// No automatic fallback for an explicit registry-archive choice.
		if e.Registry != nil {
			chain = append(chain, e.Registry)
		}
	default:
		if e.GitHost != nil {
			chain = append(chain, e.GitHost)
		}
		if e.Registry != nil {
			chain = append(chain, e.Registry)
		}
	}
	return chain
}

// commit transforms the fetched files and writes the artifact set
// atomically. extraMeta, when set, mutates the metadata record before the
// write (latest-docs fields).
func (e *Engine) commit(ctx context.Context, pkg *aifdocs.Package, version string, res *aifdocs.FetchResult, now time.Time, extraMeta func(*aifdocs.Meta)) error {
	date := now.UTC().Format(aifdocs.DateFormat)

	opts := transform.Options{
		Version:     version,
		MaxFileKB:   e.Config.Settings.MaxFileSizeKB,
		Source:      e.sourceLabel(pkg, res),
		Ref:         res.Ref.Ref,
		IsFallback:  res.Ref.IsFallback,
		FetchedDate: date,
	}

	files := make([]aifdocs.PersistedFile, 0, len(res.Files))
	truncated := false
	var artifactBytes int64
	hash := sha256.New()
	for _, f := range res.Files {
		persisted, wasTruncated := transform.Apply(f, opts)
		truncated = truncated || wasTruncated
		artifactBytes += int64(len(persisted.Content))
		hash.Write(persisted.Content)
		files = append(files, persisted)
	}

	meta := &aifdocs.Meta{
		SchemaVersion:  aifdocs.MetaSchemaVersion,
		Version:        version,
		GitRef:         res.Ref.Ref,
		IsFallback:     res.Ref.IsFallback,
		FetchedAt:      date,
		ConfigHash:     pkg.Fingerprint(),
		SourceKind:     string(res.Kind),
		ArtifactBytes:  artifactBytes,
		ArtifactSHA256: hex.EncodeToString(hash.Sum(nil)),
		Truncated:      truncated,
	}
	if extraMeta != nil {
		extraMeta(meta)
	}

	return e.Store.Commit(ctx, &aifdocs.Commit{
		Package: pkg,
		Version: version,
		Files:   files,
		Meta:    meta,
	})
}

// sourceLabel builds the provenance source string for injected headers.
func (e *Engine) sourceLabel(pkg *aifdocs.Package, res *aifdocs.FetchResult) string {
	switch res.Kind {
	case aifdocs.KindRegistryArchive:
		return "registry:" + pkg.Name
	case aifdocs.KindRendered:
		return "docs:" + pkg.Name
	default:
		if pkg.Repo != "" {
			return "github.com/" + pkg.Repo
		}
		return pkg.Name
	}
}
