// Package fs persists package artifact sets as versioned directories under
// the output root. Commits are atomic: a fully populated temporary sibling
// directory replaces the final directory in a single rename step, so a
// reader observes either the previous committed state or the new one.
package fs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/aifdocs/aifdocs"
	aifdtoml "github.com/aifdocs/aifdocs/toml"
)

// Ensure Store implements aifdocs.Store at compile time.
var _ aifdocs.Store = (*Store)(nil)

// Store writes package directories under a single output root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the resolved output directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the output root path.
func (s *Store) Root() string {
	return s.root
}

// PackageDir returns the final directory path for name@version.
func (s *Store) PackageDir(name, version string) string {
	return filepath.Join(s.root, name+"@"+version)
}

// ReadMeta loads and validates the metadata record for a package
// directory. ENOTEXIST means the metadata file is missing; EPARSE means
// the record is corrupted or declares a future schema.
func (s *Store) ReadMeta(name, version string) (*aifdocs.Meta, error) {
	path := filepath.Join(s.PackageDir(name, version), aifdocs.MetaFilename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, aifdocs.Errorf(aifdocs.ENOTEXIST, "no metadata at %s", path)
	} else if err != nil {
		return nil, aifdocs.Errorf(aifdocs.EIO, "read metadata %s: %v", path, err)
	}
	return aifdtoml.DecodeMeta(data)
}

// Commit writes the artifact set to a temporary sibling directory and
// swaps it into place. On any failure the temporary directory is removed
// and the previous final directory is left intact.
func (s *Store) Commit(ctx context.Context, c *aifdocs.Commit) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return aifdocs.Errorf(aifdocs.EIO, "create output root %s: %v", s.root, err)
	}

	final := s.PackageDir(c.Package.Name, c.Version)
	tmp := final + ".tmp-" + uuid.NewString()[:8]

	if err := os.Mkdir(tmp, 0o755); err != nil {
		return aifdocs.Errorf(aifdocs.EIO, "create temp dir %s: %v", tmp, err)
	}
	defer os.RemoveAll(tmp)

	// Respect cancellation before doing the bulk of the writes: an
	// interrupted run must abandon the temp directory without touching the
	// final one.
	if err := ctx.Err(); err != nil {
		return aifdocs.Errorf(aifdocs.EIO, "commit canceled for %s@%s: %v", c.Package.Name, c.Version, err)
	}

	for _, file := range c.Files {
		if err := os.WriteFile(filepath.Join(tmp, file.Name), file.Content, 0o644); err != nil {
			return aifdocs.Errorf(aifdocs.EIO, "write %s: %v", file.Name, err)
		}
	}

	summary := FormatSummary(c)
	if err := os.WriteFile(filepath.Join(tmp, aifdocs.SummaryFilename), []byte(summary), 0o644); err != nil {
		return aifdocs.Errorf(aifdocs.EIO, "write summary: %v", err)
	}

	meta, err := aifdtoml.EncodeMeta(c.Meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, aifdocs.MetaFilename), meta, 0o644); err != nil {
		return aifdocs.Errorf(aifdocs.EIO, "write metadata: %v", err)
	}

	return s.swap(tmp, final)
}

// swap replaces final with tmp. A direct rename covers the fresh case;
// when final exists, a three-phase rename (final → old, tmp → final,
// remove old) keeps a complete directory visible at every step.
func (s *Store) swap(tmp, final string) error {
	if _, err := os.Stat(final); os.IsNotExist(err) {
		if err := os.Rename(tmp, final); err != nil {
			return aifdocs.Errorf(aifdocs.EATOMICITY, "rename %s to %s: %v", tmp, final, err)
		}
		return nil
	}

	old := final + ".old-" + uuid.NewString()[:8]
	if err := os.Rename(final, old); err != nil {
		return aifdocs.Errorf(aifdocs.EATOMICITY, "move previous %s aside: %v", final, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		// Restore the previous directory so the failed commit leaves the
		// prior state visible.
		_ = os.Rename(old, final)
		return aifdocs.Errorf(aifdocs.EATOMICITY, "rename %s to %s: %v", tmp, final, err)
	}
	if err := os.RemoveAll(old); err != nil {
		return aifdocs.Errorf(aifdocs.EIO, "remove previous %s: %v", old, err)
	}
	return nil
}

// Prune removes package directories whose name is not configured or whose
// version no longer matches the target, plus any leftover temporary
// directories from interrupted runs.
func (s *Store) Prune(targets aifdocs.VersionMap, configured map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, aifdocs.Errorf(aifdocs.EIO, "read output root %s: %v", s.root, err)
	}

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirName := entry.Name()

		if strings.Contains(dirName, ".tmp-") || strings.Contains(dirName, ".old-") {
			if err := os.RemoveAll(filepath.Join(s.root, dirName)); err != nil {
				return removed, aifdocs.Errorf(aifdocs.EIO, "remove stale %s: %v", dirName, err)
			}
			continue
		}

		name, version, ok := SplitNameVersion(dirName)
		if !ok {
			continue
		}

		keep := configured[name]
		if keep {
			target, inLock := targets[name]
			keep = inLock && target == version
		}
		if keep {
			continue
		}

		if err := os.RemoveAll(filepath.Join(s.root, dirName)); err != nil {
			return removed, aifdocs.Errorf(aifdocs.EIO, "prune %s: %v", dirName, err)
		}
		removed = append(removed, dirName)
	}

	sort.Strings(removed)
	return removed, nil
}

// Scan lists the package directories under the output root.
func (s *Store) Scan() ([]aifdocs.DirEntry, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, aifdocs.Errorf(aifdocs.EIO, "read output root %s: %v", s.root, err)
	}

	var dirs []aifdocs.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name, version, ok := SplitNameVersion(entry.Name())
		if !ok {
			continue
		}
		dirs = append(dirs, aifdocs.DirEntry{Name: name, Version: version})
	}
	sort.Slice(dirs, func(i, j int) bool {
		if dirs[i].Name != dirs[j].Name {
			return dirs[i].Name < dirs[j].Name
		}
		return dirs[i].Version < dirs[j].Version
	})
	return dirs, nil
}

// SplitNameVersion splits "<name>@<version>" on the last separator so
// scoped names like "@scope/pkg@1.0.0" keep their prefix.
func SplitNameVersion(dirName string) (name, version string, ok bool) {
	idx := strings.LastIndexByte(dirName, '@')
	if idx <= 0 || idx == len(dirName)-1 {
		return "", "", false
	}
	name, version = dirName[:idx], dirName[idx+1:]
	if strings.Contains(version, ".tmp-") || strings.Contains(version, ".old-") {
		return "", "", false
	}
	return name, version, true
}
