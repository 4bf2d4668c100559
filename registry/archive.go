package registry

import (
	"archive/tar"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/aifdocs/aifdocs"
)

// maxEntryBytes bounds a single archive entry read so a malformed header
// cannot balloon memory.
const maxEntryBytes = 32 << 20

// ExtractDocs streams a gzipped tarball and returns the documentation
// files selected by the explicit list (all mandatory, user order) or the
// preferred set (lexicographic, capped). Entry names have their leading
// archive directory stripped; absolute paths and ".." segments are
// rejected as malformed.
func ExtractDocs(r io.Reader, archiveURL, subpath string, explicit []string) ([]aifdocs.FetchedFile, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, aifdocs.Errorf(aifdocs.EARCHIVE, "gunzip %s: %v", archiveURL, err)
	}
	defer gz.Close()

	subpath = aifdocs.CanonicalSubpath(subpath)
	prefix := ""
	if subpath != "" {
		prefix = subpath + "/"
	}

	want := make(map[string]bool, len(explicit))
	for _, f := range explicit {
		want[f] = true
	}

	found := make(map[string]aifdocs.FetchedFile)

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, aifdocs.Errorf(aifdocs.EARCHIVE, "read tar %s: %v", archiveURL, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name, err := normalizeEntry(hdr.Name)
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}

		rel := name
		if prefix != "" {
			var ok bool
			rel, ok = strings.CutPrefix(name, prefix)
			if !ok {
				continue
			}
		}

		if len(explicit) > 0 {
			if !want[rel] {
				continue
			}
		} else if !aifdocs.PreferredFile(rel) {
			continue
		}
		if _, dup := found[rel]; dup {
			continue
		}

		content, err := io.ReadAll(io.LimitReader(tr, maxEntryBytes))
		if err != nil {
			return nil, aifdocs.Errorf(aifdocs.EARCHIVE, "read entry %q from %s: %v", hdr.Name, archiveURL, err)
		}
		found[rel] = aifdocs.FetchedFile{
			Path:      rel,
			SourceURL: archiveURL,
			Content:   content,
		}
	}

	if len(explicit) > 0 {
		files := make([]aifdocs.FetchedFile, 0, len(explicit))
		for _, f := range explicit {
			file, ok := found[f]
			if !ok {
				return nil, aifdocs.Errorf(aifdocs.ENOTFOUND, "file %q not present in archive %s", f, archiveURL)
			}
			files = append(files, file)
		}
		return files, nil
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > aifdocs.MaxDefaultFiles {
		names = names[:aifdocs.MaxDefaultFiles]
	}
	files := make([]aifdocs.FetchedFile, 0, len(names))
	for _, name := range names {
		files = append(files, found[name])
	}
	return files, nil
}

// normalizeEntry strips the archive's single leading directory (e.g.
// "serde-1.0.0/" or "package/") and rejects unsafe paths. Returns "" for
// entries with no path left after stripping.
func normalizeEntry(name string) (string, error) {
	n := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(n, "/") {
		return "", aifdocs.Errorf(aifdocs.EARCHIVE, "archive entry %q has an absolute path", name)
	}
	cleaned := path.Clean(n)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return "", aifdocs.Errorf(aifdocs.EARCHIVE, "archive entry %q escapes the archive root", name)
	}

	_, rest, ok := strings.Cut(cleaned, "/")
	if !ok {
		return "", nil
	}
	return rest, nil
}
