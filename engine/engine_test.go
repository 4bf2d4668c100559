package engine_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aifdocs/aifdocs"
	"github.com/aifdocs/aifdocs/engine"
	"github.com/aifdocs/aifdocs/fs"
	"github.com/aifdocs/aifdocs/mock"
)

func testConfig(pkgs ...*aifdocs.Package) *aifdocs.Config {
	cfg := &aifdocs.Config{
		Ecosystem: aifdocs.EcosystemRust,
		Settings:  aifdocs.DefaultSettings(aifdocs.EcosystemRust),
		Packages:  pkgs,
	}
	aifdocs.SortPackages(cfg.Packages)
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okFetch(kind aifdocs.SourceKind, ref string, fallback bool) func(context.Context, *aifdocs.Package, string) (*aifdocs.FetchResult, error) {
	return func(_ context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
		return &aifdocs.FetchResult{
			Files: []aifdocs.FetchedFile{{
				Path:      "README.md",
				SourceURL: "https://example.com/README.md",
				Content:   []byte("# " + pkg.Name + " " + version),
			}},
			Ref:  aifdocs.ResolvedRef{Ref: ref, IsFallback: fallback},
			Kind: kind,
		}, nil
	}
}

func failFetch(code string) func(context.Context, *aifdocs.Package, string) (*aifdocs.FetchResult, error) {
	return func(context.Context, *aifdocs.Package, string) (*aifdocs.FetchResult, error) {
		return nil, aifdocs.Errorf(code, "induced %s", code)
	}
}

func TestEngine_Run(t *testing.T) {
	t.Parallel()

	t.Run("syncs a package from the primary source", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(&aifdocs.Package{Name: "demo", Repo: "owner/demo"})
		store := fs.NewStore(t.TempDir())
		e := &engine.Engine{
			Config:  cfg,
			Store:   store,
			GitHost: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindGitHost }, FetchFn: okFetch(aifdocs.KindGitHost, "v1.0.0", false)},
			Logger:  quietLogger(),
		}

		report, err := e.Run(context.Background(), aifdocs.VersionMap{"demo": "1.0.0"})
		require.NoError(t, err)

		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusSynced, report.Statuses[0].Status)
		assert.Equal(t, aifdocs.ReasonLockfileOK, report.Statuses[0].ReasonCode)
		assert.Equal(t, 1, report.Summary.Synced)
		assert.True(t, report.Passing())

		meta, err := store.ReadMeta("demo", "1.0.0")
		require.NoError(t, err)
		assert.Equal(t, "v1.0.0", meta.GitRef)
		assert.Equal(t, cfg.Packages[0].Fingerprint(), meta.ConfigHash)

		index, err := os.ReadFile(filepath.Join(store.Root(), aifdocs.IndexFilename))
		require.NoError(t, err)
		assert.Contains(t, string(index), "`demo@1.0.0`")
	})

	t.Run("cache hit issues no fetch", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(&aifdocs.Package{Name: "demo", Repo: "owner/demo", AINotes: "v1"})
		store := fs.NewStore(t.TempDir())

		seed := &engine.Engine{
			Config:  cfg,
			Store:   store,
			GitHost: &mock.Source{FetchFn: okFetch(aifdocs.KindGitHost, "v1.0.0", false)},
			Logger:  quietLogger(),
		}
		_, err := seed.Run(context.Background(), aifdocs.VersionMap{"demo": "1.0.0"})
		require.NoError(t, err)

		// Changing ai_notes alone must keep the fingerprint and hit the cache.
		cfg.Packages[0].AINotes = "v2"

		e := &engine.Engine{
			Config: cfg,
			Store:  store,
			GitHost: &mock.Source{FetchFn: func(context.Context, *aifdocs.Package, string) (*aifdocs.FetchResult, error) {
				t.Fatal("cache hit must not fetch")
				return nil, nil
			}},
			Logger: quietLogger(),
		}

		report, err := e.Run(context.Background(), aifdocs.VersionMap{"demo": "1.0.0"})
		require.NoError(t, err)
		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusSynced, report.Statuses[0].Status)
		assert.Equal(t, "up to date (cached)", report.Statuses[0].Reason)
	})

	t.Run("rate-limited git host falls back to the registry archive", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(&aifdocs.Package{Name: "lodash", Repo: "lodash/lodash"})
		store := fs.NewStore(t.TempDir())
		e := &engine.Engine{
			Config:   cfg,
			Store:    store,
			GitHost:  &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindGitHost }, FetchFn: failFetch(aifdocs.ERATELIMIT)},
			Registry: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindRegistryArchive }, FetchFn: okFetch(aifdocs.KindRegistryArchive, aifdocs.RefRegistryArchive, false)},
			Logger:   quietLogger(),
		}

		report, err := e.Run(context.Background(), aifdocs.VersionMap{"lodash": "4.17.21"})
		require.NoError(t, err)

		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusSyncedFallback, report.Statuses[0].Status)
		assert.Equal(t, string(aifdocs.KindRegistryArchive), report.Statuses[0].SourceKind)

		assert.Equal(t, 1, report.SourceStats[string(aifdocs.KindRegistryArchive)].Synced)
		assert.Equal(t, 0, report.SourceStats[string(aifdocs.KindGitHost)].Synced)
		assert.Equal(t, 1, report.SourceStats[string(aifdocs.KindGitHost)].Failed)

		// The absorbed rate limit stays out of the package-level histogram.
		assert.Empty(t, report.ErrorCodes)
		assert.True(t, report.Passing())

		meta, err := store.ReadMeta("lodash", "4.17.21")
		require.NoError(t, err)
		assert.Equal(t, aifdocs.RefRegistryArchive, meta.GitRef)
	})

	t.Run("both sources failing marks the package Missing", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(&aifdocs.Package{Name: "lodash", Repo: "lodash/lodash"})
		e := &engine.Engine{
			Config:   cfg,
			Store:    fs.NewStore(t.TempDir()),
			GitHost:  &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindGitHost }, FetchFn: failFetch(aifdocs.ERATELIMIT)},
			Registry: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindRegistryArchive }, FetchFn: failFetch(aifdocs.ENOTFOUND)},
			Logger:   quietLogger(),
		}

		report, err := e.Run(context.Background(), aifdocs.VersionMap{"lodash": "4.17.21"})
		require.NoError(t, err)

		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusMissing, report.Statuses[0].Status)
		assert.Equal(t, aifdocs.ReasonLockfileMissing, report.Statuses[0].ReasonCode)
		assert.Equal(t, 1, report.ErrorCodes[aifdocs.ERATELIMIT])
		assert.Equal(t, 1, report.ErrorCodes[aifdocs.ENOTFOUND])
		assert.False(t, report.Passing())
	})

	t.Run("single package failures never abort peers", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(
			&aifdocs.Package{Name: "broken", Repo: "o/broken"},
			&aifdocs.Package{Name: "healthy", Repo: "o/healthy"},
		)
		store := fs.NewStore(t.TempDir())
		e := &engine.Engine{
			Config: cfg,
			Store:  store,
			GitHost: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindGitHost }, FetchFn: func(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
				if pkg.Name == "broken" {
					return nil, aifdocs.Errorf(aifdocs.ERATELIMIT, "slow down")
				}
				return okFetch(aifdocs.KindGitHost, "v"+version, false)(ctx, pkg, version)
			}},
			Logger: quietLogger(),
		}

		report, err := e.Run(context.Background(), aifdocs.VersionMap{"broken": "1.0.0", "healthy": "2.0.0"})
		require.NoError(t, err)

		require.Len(t, report.Statuses, 2)
		assert.Equal(t, "broken", report.Statuses[0].Name)
		assert.Equal(t, aifdocs.StatusMissing, report.Statuses[0].Status)
		assert.Equal(t, "healthy", report.Statuses[1].Name)
		assert.Equal(t, aifdocs.StatusSynced, report.Statuses[1].Status)

		index, err := os.ReadFile(filepath.Join(store.Root(), aifdocs.IndexFilename))
		require.NoError(t, err)
		assert.Contains(t, string(index), "healthy@2.0.0")
		assert.NotContains(t, string(index), "broken")
	})

	t.Run("package absent from the lockfile is skipped", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(&aifdocs.Package{Name: "ghost", Repo: "o/ghost"})
		e := &engine.Engine{
			Config: cfg,
			Store:  fs.NewStore(t.TempDir()),
			GitHost: &mock.Source{FetchFn: func(context.Context, *aifdocs.Package, string) (*aifdocs.FetchResult, error) {
				t.Fatal("must not fetch a package outside the lockfile")
				return nil, nil
			}},
			Logger: quietLogger(),
		}

		report, err := e.Run(context.Background(), aifdocs.VersionMap{})
		require.NoError(t, err)
		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusMissing, report.Statuses[0].Status)
		assert.Equal(t, aifdocs.ReasonLockfileMissing, report.Statuses[0].ReasonCode)
	})

	t.Run("prunes stale directories before syncing", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(&aifdocs.Package{Name: "demo", Repo: "o/demo"})
		store := fs.NewStore(t.TempDir())

		stale := filepath.Join(store.Root(), "gone@0.1.0")
		require.NoError(t, os.MkdirAll(stale, 0o755))

		e := &engine.Engine{
			Config:  cfg,
			Store:   store,
			GitHost: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindGitHost }, FetchFn: okFetch(aifdocs.KindGitHost, "v1.0.0", false)},
			Logger:  quietLogger(),
		}

		_, err := e.Run(context.Background(), aifdocs.VersionMap{"demo": "1.0.0"})
		require.NoError(t, err)

		_, err = os.Stat(stale)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("identical reruns produce identical bytes", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(&aifdocs.Package{Name: "demo", Repo: "o/demo"})
		store := fs.NewStore(t.TempDir())
		e := &engine.Engine{
			Config:  cfg,
			Store:   store,
			GitHost: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindGitHost }, FetchFn: okFetch(aifdocs.KindGitHost, "v1.0.0", false)},
			Logger:  quietLogger(),
		}

		_, err := e.Run(context.Background(), aifdocs.VersionMap{"demo": "1.0.0"})
		require.NoError(t, err)
		first, err := os.ReadFile(filepath.Join(store.PackageDir("demo", "1.0.0"), "README.md"))
		require.NoError(t, err)
		firstIndex, err := os.ReadFile(filepath.Join(store.Root(), aifdocs.IndexFilename))
		require.NoError(t, err)

		_, err = e.Run(context.Background(), aifdocs.VersionMap{"demo": "1.0.0"})
		require.NoError(t, err)
		second, err := os.ReadFile(filepath.Join(store.PackageDir("demo", "1.0.0"), "README.md"))
		require.NoError(t, err)
		secondIndex, err := os.ReadFile(filepath.Join(store.Root(), aifdocs.IndexFilename))
		require.NoError(t, err)

		assert.Equal(t, string(first), string(second))
		assert.Equal(t, string(firstIndex), string(secondIndex))
	})

	t.Run("force refetches despite a valid cache", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(&aifdocs.Package{Name: "demo", Repo: "o/demo"})
		store := fs.NewStore(t.TempDir())

		seed := &engine.Engine{
			Config:  cfg,
			Store:   store,
			GitHost: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindGitHost }, FetchFn: okFetch(aifdocs.KindGitHost, "v1.0.0", false)},
			Logger:  quietLogger(),
		}
		_, err := seed.Run(context.Background(), aifdocs.VersionMap{"demo": "1.0.0"})
		require.NoError(t, err)

		var fetched bool
		e := &engine.Engine{
			Config: cfg,
			Store:  store,
			Force:  true,
			GitHost: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindGitHost }, FetchFn: func(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
				fetched = true
				return okFetch(aifdocs.KindGitHost, "v1.0.0", false)(ctx, pkg, version)
			}},
			Logger: quietLogger(),
		}
		_, err = e.Run(context.Background(), aifdocs.VersionMap{"demo": "1.0.0"})
		require.NoError(t, err)
		assert.True(t, fetched)
	})
}

func TestEngine_RunLatest(t *testing.T) {
	t.Parallel()

	latestConfig := func(pkgs ...*aifdocs.Package) *aifdocs.Config {
		cfg := testConfig(pkgs...)
		cfg.Settings.SyncMode = aifdocs.ModeLatestDocs
		return cfg
	}

	t.Run("syncs rendered docs at the registry's latest version", func(t *testing.T) {
		t.Parallel()

		cfg := latestConfig(&aifdocs.Package{Name: "serde"})
		store := fs.NewStore(t.TempDir())
		e := &engine.Engine{
			Config:   cfg,
			Store:    store,
			Rendered: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindRendered }, FetchFn: okFetch(aifdocs.KindRendered, "latest/1.0.200", false)},
			Resolver: &mock.VersionResolver{LatestVersionFn: func(context.Context, string) (string, error) { return "1.0.200", nil }},
			Logger:   quietLogger(),
		}

		report, err := e.Run(context.Background(), nil)
		require.NoError(t, err)

		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusSynced, report.Statuses[0].Status)
		assert.Equal(t, aifdocs.ReasonLatestOKRendered, report.Statuses[0].ReasonCode)
		assert.Equal(t, "1.0.200", report.Statuses[0].DocsVersion)

		meta, err := store.ReadMeta("serde", "1.0.200")
		require.NoError(t, err)
		assert.Equal(t, "latest_docs", meta.SyncMode)
		assert.Equal(t, string(aifdocs.KindRendered), meta.SourceKind)
		assert.Equal(t, "1.0.200", meta.UpstreamLatestVersion)
		assert.NotEmpty(t, meta.TTLExpiresAt)
	})

	t.Run("cache hit within TTL issues no network calls", func(t *testing.T) {
		t.Parallel()

		cfg := latestConfig(&aifdocs.Package{Name: "serde"})
		store := fs.NewStore(t.TempDir())

		seed := &engine.Engine{
			Config:   cfg,
			Store:    store,
			Rendered: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindRendered }, FetchFn: okFetch(aifdocs.KindRendered, "latest/1.0.200", false)},
			Resolver: &mock.VersionResolver{LatestVersionFn: func(context.Context, string) (string, error) { return "1.0.200", nil }},
			Logger:   quietLogger(),
		}
		_, err := seed.Run(context.Background(), nil)
		require.NoError(t, err)

		e := &engine.Engine{
			Config: cfg,
			Store:  store,
			Rendered: &mock.Source{FetchFn: func(context.Context, *aifdocs.Package, string) (*aifdocs.FetchResult, error) {
				t.Fatal("TTL cache hit must not fetch")
				return nil, nil
			}},
			Resolver: &mock.VersionResolver{LatestVersionFn: func(context.Context, string) (string, error) {
				t.Fatal("TTL cache hit must not resolve")
				return "", nil
			}},
			Logger: quietLogger(),
		}

		report, err := e.Run(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusSynced, report.Statuses[0].Status)
		assert.Equal(t, aifdocs.ReasonLatestCacheHitTTL, report.Statuses[0].ReasonCode)
	})

	t.Run("expired TTL with changed upstream refreshes fully", func(t *testing.T) {
		t.Parallel()

		cfg := latestConfig(&aifdocs.Package{Name: "serde"})
		store := fs.NewStore(t.TempDir())

		past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		seed := &engine.Engine{
			Config:   cfg,
			Store:    store,
			Rendered: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindRendered }, FetchFn: okFetch(aifdocs.KindRendered, "latest/1.0.200", false)},
			Resolver: &mock.VersionResolver{LatestVersionFn: func(context.Context, string) (string, error) { return "1.0.200", nil }},
			Logger:   quietLogger(),
			Now:      func() time.Time { return past },
		}
		_, err := seed.Run(context.Background(), nil)
		require.NoError(t, err)

		e := &engine.Engine{
			Config:   cfg,
			Store:    store,
			Rendered: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindRendered }, FetchFn: okFetch(aifdocs.KindRendered, "latest/1.0.201", false)},
			Resolver: &mock.VersionResolver{LatestVersionFn: func(context.Context, string) (string, error) { return "1.0.201", nil }},
			Logger:   quietLogger(),
		}

		report, err := e.Run(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusSynced, report.Statuses[0].Status)
		assert.Equal(t, "1.0.201", report.Statuses[0].DocsVersion)

		meta, err := store.ReadMeta("serde", "1.0.201")
		require.NoError(t, err)
		assert.Equal(t, "1.0.201", meta.UpstreamLatestVersion)
	})

	t.Run("degraded rendered docs fall back to the git host", func(t *testing.T) {
		t.Parallel()

		cfg := latestConfig(&aifdocs.Package{Name: "serde", Repo: "serde-rs/serde"})
		store := fs.NewStore(t.TempDir())
		e := &engine.Engine{
			Config: cfg,
			Store:  store,
			Rendered: &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindRendered }, FetchFn: func(_ context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
				res, _ := okFetch(aifdocs.KindRendered, "latest/"+version, false)(context.Background(), pkg, version)
				res.Degraded = true
				return res, nil
			}},
			GitHost:  &mock.Source{KindFn: func() aifdocs.SourceKind { return aifdocs.KindGitHost }, FetchFn: okFetch(aifdocs.KindGitHost, "v1.0.200", false)},
			Resolver: &mock.VersionResolver{LatestVersionFn: func(context.Context, string) (string, error) { return "1.0.200", nil }},
			Logger:   quietLogger(),
		}

		report, err := e.Run(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusSyncedFallback, report.Statuses[0].Status)
		assert.Equal(t, aifdocs.ReasonLatestOKFallback, report.Statuses[0].ReasonCode)
		assert.Equal(t, string(aifdocs.KindGitFallback), report.Statuses[0].SourceKind)
	})

	t.Run("resolver failure without cached docs is Missing", func(t *testing.T) {
		t.Parallel()

		cfg := latestConfig(&aifdocs.Package{Name: "serde"})
		e := &engine.Engine{
			Config:   cfg,
			Store:    fs.NewStore(t.TempDir()),
			Resolver: &mock.VersionResolver{LatestVersionFn: func(context.Context, string) (string, error) { return "", aifdocs.Errorf(aifdocs.ENETWORK, "registry unreachable") }},
			Logger:   quietLogger(),
		}

		report, err := e.Run(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, report.Statuses, 1)
		assert.Equal(t, aifdocs.StatusMissing, report.Statuses[0].Status)
	})
}
