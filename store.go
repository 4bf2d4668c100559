package aifdocs

import "context"

// PersistedFile is one transformed artifact ready to be written, keyed by
// its flattened filename.
type PersistedFile struct {
	Name    string
	Content []byte
}

// Commit is the complete artifact set for one <name>@<version> directory.
// The store writes it atomically: either the previous directory or the new
// one is visible, never a partial mix.
type Commit struct {
	Package *Package
	Version string
	Files   []PersistedFile
	Meta    *Meta
}

// DirEntry is one <name>@<version> directory found in the output root.
type DirEntry struct {
	Name    string
	Version string
}

// IndexEntry is one row of the global _INDEX.md.
type IndexEntry struct {
	Name     string
	Version  string
	Fallback bool
}

// Store persists package artifact sets and the global index.
type Store interface {
	// ReadMeta loads the metadata record for a package directory.
	// Returns ENOTEXIST when the metadata file is missing and EPARSE when
	// it fails to parse or declares an unsupported future schema_version.
	ReadMeta(name, version string) (*Meta, error)

	// Commit writes the artifact set atomically, replacing any existing
	// directory for the same name@version.
	Commit(ctx context.Context, c *Commit) error

	// Prune removes directories whose name is not configured or whose
	// version no longer matches the target. Returns the removed directory
	// names. Only called in lockfile mode.
	Prune(targets VersionMap, configured map[string]bool) ([]string, error)

	// WriteIndex rewrites _INDEX.md from the given entries. Callers pass
	// entries already sorted; the store writes them verbatim.
	WriteIndex(entries []IndexEntry) error

	// Scan lists the package directories under the output root.
	Scan() ([]DirEntry, error)
}
