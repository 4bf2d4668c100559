package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aifdocs/aifdocs"
	aifdhttp "github.com/aifdocs/aifdocs/http"
)

// Ensure CratesIO implements Registry at compile time.
var _ Registry = (*CratesIO)(nil)

// CratesIO talks to the crates.io API.
type CratesIO struct {
	client *aifdhttp.Client
	base   string
}

// NewCratesIO creates a crates.io registry client.
func NewCratesIO(client *aifdhttp.Client) *CratesIO {
	return &CratesIO{client: client, base: "https://crates.io"}
}

// NewCratesIOWithBase creates a client against a custom base URL. Used in
// tests.
func NewCratesIOWithBase(client *aifdhttp.Client, base string) *CratesIO {
	return &CratesIO{client: client, base: strings.TrimSuffix(base, "/")}
}

type cratesIOCrate struct {
	Crate struct {
		MaxStableVersion string `json:"max_stable_version"`
		MaxVersion       string `json:"max_version"`
		Repository       string `json:"repository"`
		Homepage         string `json:"homepage"`
	} `json:"crate"`
}

type cratesIOVersion struct {
	Version struct {
		DLPath string `json:"dl_path"`
		Num    string `json:"num"`
	} `json:"version"`
}

// VersionMeta resolves the crate download path for an exact version.
func (c *CratesIO) VersionMeta(ctx context.Context, name, version string) (*VersionMeta, error) {
	u := fmt.Sprintf("%s/api/v1/crates/%s/%s", c.base, url.PathEscape(name), url.PathEscape(version))
	resp, err := c.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, aifdocs.Errorf(aifdocs.ETARBALL, "crates.io has no version %s of %s", version, name)
	}
	if resp.StatusCode != 200 {
		return nil, aifdhttp.ClassifyStatus(u, resp.StatusCode)
	}

	var body cratesIOVersion
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "crates.io version metadata for %s@%s: %v", name, version, err)
	}

	archive := body.Version.DLPath
	if archive == "" {
		archive = fmt.Sprintf("/api/v1/crates/%s/%s/download", url.PathEscape(name), url.PathEscape(version))
	}
	return &VersionMeta{ArchiveURL: c.base + archive}, nil
}

// Latest returns max_stable_version, falling back to max_version.
func (c *CratesIO) Latest(ctx context.Context, name string) (string, error) {
	crate, err := c.crate(ctx, name)
	if err != nil {
		return "", err
	}
	if v := strings.TrimSpace(crate.Crate.MaxStableVersion); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(crate.Crate.MaxVersion); v != "" {
		return v, nil
	}
	return "", aifdocs.Errorf(aifdocs.EPARSE, "crates.io response for %q has no max version", name)
}

// Repository infers the GitHub repository from crate metadata.
func (c *CratesIO) Repository(ctx context.Context, name string) (string, error) {
	crate, err := c.crate(ctx, name)
	if err != nil {
		return "", err
	}
	if repo := ExtractGitHubRepo(crate.Crate.Repository); repo != "" {
		return repo, nil
	}
	return ExtractGitHubRepo(crate.Crate.Homepage), nil
}

func (c *CratesIO) crate(ctx context.Context, name string) (*cratesIOCrate, error) {
	u := fmt.Sprintf("%s/api/v1/crates/%s", c.base, url.PathEscape(name))
	resp, err := c.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, aifdhttp.ClassifyStatus(u, resp.StatusCode)
	}
	var body cratesIOCrate
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "crates.io metadata for %q: %v", name, err)
	}
	return &body, nil
}

// ExtractGitHubRepo pulls "owner/name" out of a github.com URL, tolerating
// trailing slashes and ".git" suffixes. Returns "" for non-GitHub URLs.
func ExtractGitHubRepo(rawURL string) string {
	normalized := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(rawURL), "/"), ".git")

	const marker = "github.com/"
	idx := strings.Index(normalized, marker)
	if idx < 0 {
		return ""
	}

	var parts []string
	for _, p := range strings.Split(normalized[idx+len(marker):], "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "/" + parts[1]
}
