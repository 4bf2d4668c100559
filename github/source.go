// Package github implements the git-host source adapter against the
// GitHub API: tag probing, default-branch fallback, recursive tree
// listing, and raw file downloads.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aifdocs/aifdocs"
	aifdhttp "github.com/aifdocs/aifdocs/http"
)

// Ensure Source implements aifdocs.Source at compile time.
var _ aifdocs.Source = (*Source)(nil)

// Source fetches documentation files from a GitHub repository at the ref
// matching the target version, falling back to the default branch when no
// tag matches.
type Source struct {
	client  *aifdhttp.Client
	apiBase string
	rawBase string
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURLs overrides the API and raw-content endpoints. Used in tests.
func WithBaseURLs(apiBase, rawBase string) Option {
	return func(s *Source) {
		s.apiBase = strings.TrimSuffix(apiBase, "/")
		s.rawBase = strings.TrimSuffix(rawBase, "/")
	}
}

// NewSource creates a git-host adapter using the shared HTTP client.
func NewSource(client *aifdhttp.Client, opts ...Option) *Source {
	s := &Source{
		client:  client,
		apiBase: "https://api.github.com",
		rawBase: "https://raw.githubusercontent.com",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind identifies this adapter.
func (s *Source) Kind() aifdocs.SourceKind {
	return aifdocs.KindGitHost
}

// Fetch resolves a reference for the version and downloads either the
// explicit file list or the preferred default set from the repository tree.
func (s *Source) Fetch(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
	if pkg.Repo == "" {
		return nil, aifdocs.Errorf(aifdocs.EINVALID, "package %q has no repo configured", pkg.Name)
	}

	ref, err := s.ResolveRef(ctx, pkg.Repo, pkg.Name, version)
	if err != nil {
		return nil, err
	}

	subpath := aifdocs.CanonicalSubpath(pkg.Subpath)

	var paths []string
	if len(pkg.Files) > 0 {
		paths = pkg.Files
	} else {
		listing, err := s.listTree(ctx, pkg.Repo, ref.Ref, subpath)
		if err != nil {
			return nil, err
		}
		paths = aifdocs.SelectDefaultFiles(listing)
	}

	files := make([]aifdocs.FetchedFile, 0, len(paths))
	for _, p := range paths {
		file, err := s.fetchFile(ctx, pkg.Repo, ref.Ref, subpath, p, len(pkg.Files) > 0)
		if err != nil {
			return nil, err
		}
		if file != nil {
			files = append(files, *file)
		}
	}
	if len(files) == 0 {
		return nil, aifdocs.Errorf(aifdocs.ENOTFOUND, "no documentation files found in %s at %s", pkg.Repo, ref.Ref)
	}

	kind := aifdocs.KindGitHost
	if ref.IsFallback {
		kind = aifdocs.KindGitFallback
	}
	return &aifdocs.FetchResult{
		Files: files,
		Ref:   ref,
		Kind:  kind,
	}, nil
}

// ResolveRef probes candidate tag names in order, then the default branch.
// Returns NO_REF when neither tags nor a default branch resolve.
func (s *Source) ResolveRef(ctx context.Context, repo, name, version string) (aifdocs.ResolvedRef, error) {
	candidates := []string{
		"v" + version,
		version,
		name + "-v" + version,
		name + "-" + version,
	}

	for _, tag := range candidates {
		resp, err := s.client.Get(ctx, s.tagURL(repo, tag))
		if err != nil {
			return aifdocs.ResolvedRef{}, err
		}
		if resp.StatusCode == 200 {
			return aifdocs.ResolvedRef{Ref: tag}, nil
		}
		if resp.StatusCode != 404 {
			return aifdocs.ResolvedRef{}, aifdhttp.ClassifyStatus(s.tagURL(repo, tag), resp.StatusCode)
		}
	}

	// No tag matched: take the repository's default branch, probing the
	// conventional names when the metadata endpoint is unavailable.
	if branch, err := s.defaultBranch(ctx, repo); err == nil && branch != "" {
		return aifdocs.ResolvedRef{Ref: branch, IsFallback: true}, nil
	}
	for _, branch := range []string{"main", "master"} {
		resp, err := s.client.Get(ctx, s.branchURL(repo, branch))
		if err != nil {
			return aifdocs.ResolvedRef{}, err
		}
		if resp.StatusCode == 200 {
			return aifdocs.ResolvedRef{Ref: branch, IsFallback: true}, nil
		}
		if resp.StatusCode != 404 {
			return aifdocs.ResolvedRef{}, aifdhttp.ClassifyStatus(s.branchURL(repo, branch), resp.StatusCode)
		}
	}

	return aifdocs.ResolvedRef{}, aifdocs.Errorf(aifdocs.ENOREF, "no tag or default branch found for %s@%s in %s", name, version, repo)
}

func (s *Source) defaultBranch(ctx context.Context, repo string) (string, error) {
	resp, err := s.client.Get(ctx, s.apiBase+"/repos/"+escapeRepo(repo))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 {
		return "", aifdhttp.ClassifyStatus(repo, resp.StatusCode)
	}
	var info struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return "", aifdocs.Errorf(aifdocs.EPARSE, "repo metadata for %s: %v", repo, err)
	}
	return info.DefaultBranch, nil
}

// listTree returns blob paths relative to subpath from the recursive tree
// listing at ref.
func (s *Source) listTree(ctx context.Context, repo, ref, subpath string) ([]string, error) {
	u := fmt.Sprintf("%s/repos/%s/git/trees/%s?recursive=1", s.apiBase, escapeRepo(repo), url.PathEscape(ref))
	resp, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, aifdhttp.ClassifyStatus(u, resp.StatusCode)
	}

	var tree struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
	}
	if err := json.Unmarshal(resp.Body, &tree); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "tree listing for %s@%s: %v", repo, ref, err)
	}

	prefix := ""
	if subpath != "" {
		prefix = subpath + "/"
	}

	var paths []string
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		if prefix != "" {
			rel, ok := strings.CutPrefix(entry.Path, prefix)
			if !ok {
				continue
			}
			paths = append(paths, rel)
		} else {
			paths = append(paths, entry.Path)
		}
	}
	return paths, nil
}

// fetchFile downloads one file. Explicit files are required: a 404 is a
// fatal per-file error. Default-set files that disappeared between listing
// and download are skipped.
func (s *Source) fetchFile(ctx context.Context, repo, ref, subpath, relPath string, required bool) (*aifdocs.FetchedFile, error) {
	full := relPath
	if subpath != "" {
		full = subpath + "/" + relPath
	}
	u := s.rawURL(repo, ref, full)

	resp, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		if required {
			return nil, aifdocs.Errorf(aifdocs.ENOTFOUND, "file %q not found in %s at %s", full, repo, ref)
		}
		return nil, nil
	}
	if resp.StatusCode != 200 {
		return nil, aifdhttp.ClassifyStatus(u, resp.StatusCode)
	}

	return &aifdocs.FetchedFile{
		Path:      relPath,
		SourceURL: u,
		Content:   resp.Body,
	}, nil
}

func (s *Source) tagURL(repo, tag string) string {
	return fmt.Sprintf("%s/repos/%s/git/ref/tags/%s", s.apiBase, escapeRepo(repo), url.PathEscape(tag))
}

func (s *Source) branchURL(repo, branch string) string {
	return fmt.Sprintf("%s/repos/%s/git/ref/heads/%s", s.apiBase, escapeRepo(repo), url.PathEscape(branch))
}

func (s *Source) rawURL(repo, ref, path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s/%s", s.rawBase, escapeRepo(repo), url.PathEscape(ref), strings.Join(segments, "/"))
}

// escapeRepo percent-encodes the owner and name segments of "owner/name".
func escapeRepo(repo string) string {
	owner, name, found := strings.Cut(repo, "/")
	if !found {
		return url.PathEscape(repo)
	}
	return url.PathEscape(owner) + "/" + url.PathEscape(name)
}
