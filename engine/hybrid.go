package engine

import (
	"context"

	"github.com/aifdocs/aifdocs"
	"github.com/aifdocs/aifdocs/transform"
)

// fetchHybrid combines sources: the registry archive supplies README and
// general docs while the git host supplies changelog-family files pinned
// to the exact tag. A registry failure falls back entirely to the git
// host; a git-host failure with registry success emits the partial
// artifact as "mixed".
func (e *Engine) fetchHybrid(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, []attempt, error) {
	var attempts []attempt

	regRes, regErr := e.registryFetch(ctx, pkg, version)
	if regErr != nil {
		attempts = append(attempts, attempt{kind: aifdocs.KindRegistryArchive, code: aifdocs.ErrorCode(regErr)})
		if !aifdocs.FallbackEligible(regErr) {
			return nil, attempts, regErr
		}
	} else {
		attempts = append(attempts, attempt{kind: aifdocs.KindRegistryArchive, ok: true})
	}

	gitRes, gitErr := e.gitFetch(ctx, pkg, version)
	if gitErr != nil {
		attempts = append(attempts, attempt{kind: aifdocs.KindGitHost, code: aifdocs.ErrorCode(gitErr)})
	} else {
		attempts = append(attempts, attempt{kind: aifdocs.KindGitHost, ok: true})
	}

	switch {
	case regErr != nil && gitErr != nil:
		return nil, attempts, gitErr
	case regErr != nil:
		// Registry unavailable: the git host covers everything.
		return gitRes, attempts, nil
	case gitErr != nil:
		// Partial artifact: registry docs without version-pinned
		// changelogs. Marked mixed so the report surfaces the gap.
		regRes.Kind = aifdocs.KindMixed
		regRes.Degraded = true
		return regRes, attempts, nil
	}

	merged := make([]aifdocs.FetchedFile, 0, len(regRes.Files)+len(gitRes.Files))
	for _, f := range regRes.Files {
		if transform.IsChangelog(f.Path) {
			continue
		}
		merged = append(merged, f)
	}
	for _, f := range gitRes.Files {
		if transform.IsChangelog(f.Path) {
			merged = append(merged, f)
		}
	}
	if len(merged) == 0 {
		merged = regRes.Files
	}

	return &aifdocs.FetchResult{
		Files: merged,
		Ref:   gitRes.Ref,
		Kind:  aifdocs.KindMixed,
	}, attempts, nil
}

func (e *Engine) registryFetch(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
	if e.Registry == nil {
		return nil, aifdocs.Errorf(aifdocs.ENOTFOUND, "registry adapter not configured")
	}
	res, err := e.Registry.Fetch(ctx, pkg, version)
	if err != nil {
		return nil, err
	}
	if len(res.Files) == 0 {
		return nil, aifdocs.Errorf(aifdocs.ENOTFOUND, "registry archive for %s@%s has no documentation files", pkg.Name, version)
	}
	return res, nil
}

func (e *Engine) gitFetch(ctx context.Context, pkg *aifdocs.Package, version string) (*aifdocs.FetchResult, error) {
	if e.GitHost == nil {
		return nil, aifdocs.Errorf(aifdocs.ENOTFOUND, "git-host adapter not configured")
	}
	res, err := e.GitHost.Fetch(ctx, pkg, version)
	if err != nil {
		return nil, err
	}
	if len(res.Files) == 0 {
		return nil, aifdocs.Errorf(aifdocs.ENOTFOUND, "git host has no documentation files for %s@%s", pkg.Name, version)
	}
	return res, nil
}
