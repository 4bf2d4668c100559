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

// Ensure NPM implements Registry at compile time.
var _ Registry = (*NPM)(nil)

// NPM talks to an npm-style registry.
type NPM struct {
	client *aifdhttp.Client
	base   string
}

// NewNPM creates a client for the public npm registry.
func NewNPM(client *aifdhttp.Client) *NPM {
	return &NPM{client: client, base: "https://registry.npmjs.org"}
}

// NewNPMWithBase creates a client against a custom base URL. Used in tests.
func NewNPMWithBase(client *aifdhttp.Client, base string) *NPM {
	return &NPM{client: client, base: strings.TrimSuffix(base, "/")}
}

type npmVersionDoc struct {
	Dist struct {
		Tarball string `json:"tarball"`
	} `json:"dist"`
	Readme string `json:"readme"`
}

type npmPackument struct {
	DistTags map[string]string `json:"dist-tags"`
	Readme   string            `json:"readme"`
	Repository struct {
		URL string `json:"url"`
	} `json:"repository"`
	Homepage string `json:"homepage"`
}

// VersionMeta resolves the tarball URL for an exact version, carrying the
// inline README when the registry serves one.
func (n *NPM) VersionMeta(ctx context.Context, name, version string) (*VersionMeta, error) {
	u := fmt.Sprintf("%s/%s/%s", n.base, escapeName(name), url.PathEscape(version))
	resp, err := n.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 404 {
		return nil, aifdocs.Errorf(aifdocs.ETARBALL, "registry has no version %s of %s", version, name)
	}
	if resp.StatusCode != 200 {
		return nil, aifdhttp.ClassifyStatus(u, resp.StatusCode)
	}

	var doc npmVersionDoc
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "registry version metadata for %s@%s: %v", name, version, err)
	}
	if doc.Dist.Tarball == "" {
		return nil, aifdocs.Errorf(aifdocs.ETARBALL, "registry metadata for %s@%s has no tarball", name, version)
	}
	return &VersionMeta{
		ArchiveURL:   doc.Dist.Tarball,
		InlineReadme: doc.Readme,
	}, nil
}

// Latest returns the "latest" dist-tag, which npm keeps pointed at the
// newest stable release.
func (n *NPM) Latest(ctx context.Context, name string) (string, error) {
	doc, err := n.packument(ctx, name)
	if err != nil {
		return "", err
	}
	if v := doc.DistTags["latest"]; v != "" {
		return v, nil
	}
	return "", aifdocs.Errorf(aifdocs.EPARSE, "registry response for %q has no latest tag", name)
}

// Repository infers the GitHub repository from the packument.
func (n *NPM) Repository(ctx context.Context, name string) (string, error) {
	doc, err := n.packument(ctx, name)
	if err != nil {
		return "", err
	}
	if repo := ExtractGitHubRepo(doc.Repository.URL); repo != "" {
		return repo, nil
	}
	return ExtractGitHubRepo(doc.Homepage), nil
}

func (n *NPM) packument(ctx context.Context, name string) (*npmPackument, error) {
	u := fmt.Sprintf("%s/%s", n.base, escapeName(name))
	resp, err := n.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, aifdhttp.ClassifyStatus(u, resp.StatusCode)
	}
	var doc npmPackument
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "registry metadata for %q: %v", name, err)
	}
	return &doc, nil
}

// escapeName percent-encodes a package name, keeping the scope separator
// encoded the way the npm registry expects (@scope%2fname).
func escapeName(name string) string {
	if scope, rest, ok := strings.Cut(name, "/"); ok {
		return url.PathEscape(scope) + "%2f" + url.PathEscape(rest)
	}
	return url.PathEscape(name)
}
