package aifdocs

import "context"

// VersionMap maps package name to the exact version the project compiles
// against. Versions are opaque semver-like strings.
type VersionMap map[string]string

// LockResolver produces the version map for a project root. In lockfile
// mode it reads the ecosystem lockfile; in latest-docs mode an adapter
// queries the registry instead.
type LockResolver interface {
	// Resolve reads the first lockfile present at root and returns the
	// version map. Returns ELOCKFILE if none of the supported lockfiles
	// exist.
	Resolve(ctx context.Context, root string) (VersionMap, error)
}
