package aifdocs

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Ecosystem selects the language profile the engine runs under.
type Ecosystem string

// Supported ecosystems.
const (
	EcosystemRust Ecosystem = "rust"
	EcosystemNode Ecosystem = "node"
)

// SyncMode selects how target versions are resolved.
type SyncMode string

// Sync modes.
const (
	ModeLockfile   SyncMode = "lockfile"
	ModeLatestDocs SyncMode = "latest_docs"
	ModeHybrid     SyncMode = "hybrid"
)

// ParseSyncMode parses a mode string, accepting the historical
// "latest-docs" spelling.
func ParseSyncMode(s string) (SyncMode, error) {
	switch s {
	case "lockfile":
		return ModeLockfile, nil
	case "latest_docs", "latest-docs":
		return ModeLatestDocs, nil
	case "hybrid":
		return ModeHybrid, nil
	}
	return "", Errorf(EINVALID, "settings.sync_mode must be %q, %q, or %q, got: %s", ModeLockfile, ModeLatestDocs, ModeHybrid, s)
}

// DocsSource selects the primary adapter for lockfile mode.
type DocsSource string

// Docs sources.
const (
	SourceGitHost         DocsSource = "git_host"
	SourceRegistryArchive DocsSource = "registry_archive"
)

// ParseDocsSource parses a docs_source string.
func ParseDocsSource(s string) (DocsSource, error) {
	switch s {
	case "git_host":
		return SourceGitHost, nil
	case "registry_archive":
		return SourceRegistryArchive, nil
	}
	return "", Errorf(EINVALID, "settings.docs_source must be %q or %q, got: %s", SourceGitHost, SourceRegistryArchive, s)
}

// Concurrency bounds for the sync worker pool.
const (
	DefaultSyncConcurrency = 8
	MaxSyncConcurrency     = 50
)

// Settings holds the engine-wide options from the [settings] table.
type Settings struct {
	OutputDir       string     `json:"outputDir"`
	MaxFileSizeKB   int        `json:"maxFileSizeKb"`
	Prune           bool       `json:"prune"`
	SyncConcurrency int        `json:"syncConcurrency"`
	DocsSource      DocsSource `json:"docsSource"`
	SyncMode        SyncMode   `json:"syncMode"`
	LatestTTLHours  int        `json:"latestTtlHours"`
}

// DefaultSettings returns the profile defaults for an ecosystem.
func DefaultSettings(eco Ecosystem) Settings {
	s := Settings{
		Prune:           true,
		SyncConcurrency: DefaultSyncConcurrency,
		SyncMode:        ModeLockfile,
		LatestTTLHours:  24,
	}
	switch eco {
	case EcosystemNode:
		s.OutputDir = "fdocs/node"
		s.MaxFileSizeKB = 512
		s.DocsSource = SourceRegistryArchive
	default:
		s.OutputDir = "fdocs/rust"
		s.MaxFileSizeKB = 200
		s.DocsSource = SourceGitHost
	}
	return s
}

// ResolveOutputDir appends the ecosystem segment to a configured output
// directory unless the path already ends in it. Package directories live
// directly under the resolved path.
func ResolveOutputDir(dir string, eco Ecosystem) string {
	if path.Base(strings.ReplaceAll(dir, "\\", "/")) == string(eco) {
		return dir
	}
	return path.Join(dir, string(eco))
}

// Package is a configured unit of documentation to mirror.
type Package struct {
	Name    string   `json:"name"`
	Repo    string   `json:"repo,omitempty"`    // "owner/name"
	Subpath string   `json:"subpath,omitempty"` // monorepo subdirectory
	Files   []string `json:"files,omitempty"`   // explicit paths, all mandatory
	AINotes string   `json:"aiNotes,omitempty"` // free text, excluded from the fingerprint
}

// Validate returns an error if the package entry contains invalid fields.
func (p *Package) Validate() error {
	if p.Name == "" {
		return Errorf(EINVALID, "package name required")
	}
	for _, f := range p.Files {
		if strings.TrimSpace(f) == "" {
			return Errorf(EINVALID, "package %q: files must be non-empty strings", p.Name)
		}
	}
	return nil
}

// CanonicalSubpath normalizes a subpath for fingerprinting and fetching:
// forward-slash separators, empty boundary segments stripped.
func CanonicalSubpath(subpath string) string {
	s := strings.ReplaceAll(subpath, "\\", "/")
	parts := strings.Split(s, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

// Fingerprint computes the 16-hex-char digest over the fields that affect
// fetch output: canonical repo, canonical subpath, and files sorted
// lexicographically. AINotes is excluded so editing it never invalidates
// the cache.
func (p *Package) Fingerprint() string {
	var b strings.Builder
	b.WriteString("repo:")
	b.WriteString(strings.TrimSpace(p.Repo))
	b.WriteString("|subpath:")
	b.WriteString(CanonicalSubpath(p.Subpath))
	b.WriteString("|files:")
	files := make([]string, len(p.Files))
	copy(files, p.Files)
	sort.Strings(files)
	for _, f := range files {
		b.WriteString(f)
		b.WriteString(",")
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

// Config is the parsed and validated project configuration.
type Config struct {
	Ecosystem Ecosystem  `json:"ecosystem"`
	Settings  Settings   `json:"settings"`
	Packages  []*Package `json:"packages"` // sorted by name
}

// Package returns the entry with the given name, or nil.
func (c *Config) Package(name string) *Package {
	for _, p := range c.Packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// OutputDir returns the resolved output directory for this configuration.
func (c *Config) OutputDir() string {
	return ResolveOutputDir(c.Settings.OutputDir, c.Ecosystem)
}

// Validate checks settings bounds and the mode-specific package rules:
// lockfile mode with a git-host source and hybrid mode both require every
// package to define a repo; registry_archive mode does not.
func (c *Config) Validate() error {
	if c.Settings.MaxFileSizeKB <= 0 {
		return Errorf(EINVALID, "settings.max_file_size_kb must be greater than 0")
	}
	if c.Settings.SyncConcurrency <= 0 {
		return Errorf(EINVALID, "settings.sync_concurrency must be greater than 0")
	}
	if c.Settings.SyncConcurrency > MaxSyncConcurrency {
		return Errorf(EINVALID, "settings.sync_concurrency must not exceed %d to avoid rate limiting", MaxSyncConcurrency)
	}
	if c.Settings.LatestTTLHours <= 0 {
		return Errorf(EINVALID, "settings.latest_ttl_hours must be greater than 0")
	}

	requireRepo := c.Settings.SyncMode == ModeHybrid ||
		(c.Settings.SyncMode == ModeLockfile && c.Settings.DocsSource == SourceGitHost)

	for _, p := range c.Packages {
		if err := p.Validate(); err != nil {
			return err
		}
		if requireRepo && p.Repo == "" {
			return Errorf(EINVALID, "package %q must define repo for %s mode with %s source", p.Name, c.Settings.SyncMode, c.Settings.DocsSource)
		}
	}
	return nil
}

// SortPackages orders entries by name so every downstream iteration is
// deterministic.
func SortPackages(pkgs []*Package) {
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
}
