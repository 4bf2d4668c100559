// Package lockfile resolves exact dependency versions from ecosystem
// lockfiles. Supported shapes: Cargo-style TOML, npm-style JSON,
// pnpm-style YAML, and flat yarn-style text. The first lockfile present
// at the project root wins, in that order.
package lockfile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aifdocs/aifdocs"
)

// Ensure Resolver implements aifdocs.LockResolver at compile time.
var _ aifdocs.LockResolver = (*Resolver)(nil)

type parser struct {
	filename string
	parse    func(data []byte) (aifdocs.VersionMap, error)
}

// Resolver reads the first supported lockfile found at the project root.
type Resolver struct {
	parsers []parser
}

// NewResolver creates a Resolver with the default lockfile precedence.
func NewResolver() *Resolver {
	return &Resolver{
		parsers: []parser{
			{"Cargo.lock", ParseCargo},
			{"package-lock.json", ParseNPM},
			{"pnpm-lock.yaml", ParsePNPM},
			{"yarn.lock", ParseYarn},
		},
	}
}

// Resolve returns the name→version map from the first lockfile present.
// Returns LOCKFILE_NOT_FOUND when none exist.
func (r *Resolver) Resolve(ctx context.Context, root string) (aifdocs.VersionMap, error) {
	for _, p := range r.parsers {
		path := filepath.Join(root, p.filename)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return nil, aifdocs.Errorf(aifdocs.EIO, "read lockfile %s: %v", path, err)
		}
		versions, err := p.parse(data)
		if err != nil {
			return nil, err
		}
		return versions, nil
	}
	return nil, aifdocs.Errorf(aifdocs.ELOCKFILE, "no lockfile found at %s (looked for Cargo.lock, package-lock.json, pnpm-lock.yaml, yarn.lock)", root)
}
