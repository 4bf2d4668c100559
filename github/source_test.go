package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aifdocs/aifdocs"
	"github.com/aifdocs/aifdocs/github"
	aifdhttp "github.com/aifdocs/aifdocs/http"
)

func testClient() *aifdhttp.Client {
	return aifdhttp.NewClient(aifdhttp.WithRetryDelays([]time.Duration{time.Millisecond}))
}

func newServer(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func respond(status int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestSource_ResolveRef(t *testing.T) {
	t.Parallel()

	t.Run("finds the v-prefixed tag first", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/repos/owner/repo/git/ref/tags/v1.2.3": respond(200, `{"ref":"refs/tags/v1.2.3"}`),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		ref, err := src.ResolveRef(context.Background(), "owner/repo", "demo", "1.2.3")
		require.NoError(t, err)
		assert.Equal(t, "v1.2.3", ref.Ref)
		assert.False(t, ref.IsFallback)
	})

	t.Run("probes candidates in order until one matches", func(t *testing.T) {
		t.Parallel()

		var probed []string
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/owner/repo/git/ref/tags/", func(w http.ResponseWriter, r *http.Request) {
			probed = append(probed, r.URL.Path)
			if r.URL.Path == "/repos/owner/repo/git/ref/tags/demo-v1.2.3" {
				w.WriteHeader(200)
				return
			}
			w.WriteHeader(404)
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		ref, err := src.ResolveRef(context.Background(), "owner/repo", "demo", "1.2.3")
		require.NoError(t, err)
		assert.Equal(t, "demo-v1.2.3", ref.Ref)
		require.Len(t, probed, 3)
		assert.Equal(t, "/repos/owner/repo/git/ref/tags/v1.2.3", probed[0])
		assert.Equal(t, "/repos/owner/repo/git/ref/tags/1.2.3", probed[1])
	})

	t.Run("falls back to the default branch when no tag matches", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/repos/owner/repo/git/ref/tags/": respond(404, ""),
			"/repos/owner/repo":               respond(200, `{"default_branch":"trunk"}`),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		ref, err := src.ResolveRef(context.Background(), "owner/repo", "demo", "1.2.3")
		require.NoError(t, err)
		assert.Equal(t, "trunk", ref.Ref)
		assert.True(t, ref.IsFallback)
	})

	t.Run("probes main then master when repo metadata is unavailable", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/repos/owner/repo/git/ref/tags/":        respond(404, ""),
			"/repos/owner/repo":                      respond(404, ""),
			"/repos/owner/repo/git/ref/heads/main":   respond(404, ""),
			"/repos/owner/repo/git/ref/heads/master": respond(200, `{}`),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		ref, err := src.ResolveRef(context.Background(), "owner/repo", "demo", "1.2.3")
		require.NoError(t, err)
		assert.Equal(t, "master", ref.Ref)
		assert.True(t, ref.IsFallback)
	})

	t.Run("returns NO_REF when nothing resolves", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/": respond(404, ""),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		_, err := src.ResolveRef(context.Background(), "owner/repo", "demo", "1.2.3")
		require.Error(t, err)
		assert.Equal(t, aifdocs.ENOREF, aifdocs.ErrorCode(err))
	})

	t.Run("classifies 401 as AUTH without fallback probing", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/": respond(401, ""),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		_, err := src.ResolveRef(context.Background(), "owner/repo", "demo", "1.2.3")
		require.Error(t, err)
		assert.Equal(t, aifdocs.EAUTH, aifdocs.ErrorCode(err))
	})
}

func TestSource_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("downloads explicit files verbatim", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/repos/owner/repo/git/ref/tags/v1.0.0": respond(200, `{}`),
			"/owner/repo/v1.0.0/README.md":          respond(200, "# readme"),
			"/owner/repo/v1.0.0/docs/guide.md":      respond(200, "# guide"),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		pkg := &aifdocs.Package{Name: "demo", Repo: "owner/repo", Files: []string{"README.md", "docs/guide.md"}}
		res, err := src.Fetch(context.Background(), pkg, "1.0.0")
		require.NoError(t, err)
		require.Len(t, res.Files, 2)
		assert.Equal(t, "README.md", res.Files[0].Path)
		assert.Equal(t, "# readme", string(res.Files[0].Content))
		assert.Equal(t, aifdocs.KindGitHost, res.Kind)
	})

	t.Run("missing explicit file is a fatal NOT_FOUND", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/repos/owner/repo/git/ref/tags/v1.0.0": respond(200, `{}`),
			"/owner/repo/v1.0.0/README.md":          respond(404, ""),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		pkg := &aifdocs.Package{Name: "demo", Repo: "owner/repo", Files: []string{"README.md"}}
		_, err := src.Fetch(context.Background(), pkg, "1.0.0")
		require.Error(t, err)
		assert.Equal(t, aifdocs.ENOTFOUND, aifdocs.ErrorCode(err))
	})

	t.Run("selects the preferred set from the tree listing", func(t *testing.T) {
		t.Parallel()

		tree := `{"tree":[
			{"path":"README.md","type":"blob"},
			{"path":"CHANGELOG.md","type":"blob"},
			{"path":"src/lib.rs","type":"blob"},
			{"path":"docs/intro.md","type":"blob"},
			{"path":"docs","type":"tree"}
		]}`
		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/repos/owner/repo/git/ref/tags/v1.0.0": respond(200, `{}`),
			"/repos/owner/repo/git/trees/v1.0.0":    respond(200, tree),
			"/owner/repo/v1.0.0/README.md":          respond(200, "readme"),
			"/owner/repo/v1.0.0/CHANGELOG.md":       respond(200, "changelog"),
			"/owner/repo/v1.0.0/docs/intro.md":      respond(200, "intro"),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		pkg := &aifdocs.Package{Name: "demo", Repo: "owner/repo"}
		res, err := src.Fetch(context.Background(), pkg, "1.0.0")
		require.NoError(t, err)

		var paths []string
		for _, f := range res.Files {
			paths = append(paths, f.Path)
		}
		assert.Equal(t, []string{"CHANGELOG.md", "README.md", "docs/intro.md"}, paths)
	})

	t.Run("scopes to the configured subpath", func(t *testing.T) {
		t.Parallel()

		tree := `{"tree":[
			{"path":"crates/demo/README.md","type":"blob"},
			{"path":"README.md","type":"blob"}
		]}`
		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/repos/owner/repo/git/ref/tags/v1.0.0":    respond(200, `{}`),
			"/repos/owner/repo/git/trees/v1.0.0":       respond(200, tree),
			"/owner/repo/v1.0.0/crates/demo/README.md": respond(200, "scoped readme"),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		pkg := &aifdocs.Package{Name: "demo", Repo: "owner/repo", Subpath: "crates/demo"}
		res, err := src.Fetch(context.Background(), pkg, "1.0.0")
		require.NoError(t, err)
		require.Len(t, res.Files, 1)
		assert.Equal(t, "README.md", res.Files[0].Path)
		assert.Equal(t, "scoped readme", string(res.Files[0].Content))
	})

	t.Run("classifies 429 on the tree call as RATE_LIMIT", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/repos/owner/repo/git/ref/tags/v1.0.0": respond(200, `{}`),
			"/repos/owner/repo/git/trees/v1.0.0":    respond(429, ""),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		pkg := &aifdocs.Package{Name: "demo", Repo: "owner/repo"}
		_, err := src.Fetch(context.Background(), pkg, "1.0.0")
		require.Error(t, err)
		assert.Equal(t, aifdocs.ERATELIMIT, aifdocs.ErrorCode(err))
	})

	t.Run("marks default-branch fetches as git fallback", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/repos/owner/repo/git/ref/tags/": respond(404, ""),
			"/repos/owner/repo":               respond(200, `{"default_branch":"main"}`),
			"/owner/repo/main/README.md":      respond(200, "readme"),
		})
		src := github.NewSource(testClient(), github.WithBaseURLs(srv.URL, srv.URL))

		pkg := &aifdocs.Package{Name: "demo", Repo: "owner/repo", Files: []string{"README.md"}}
		res, err := src.Fetch(context.Background(), pkg, "1.0.0")
		require.NoError(t, err)
		assert.True(t, res.Ref.IsFallback)
		assert.Equal(t, aifdocs.KindGitFallback, res.Kind)
	})
}
