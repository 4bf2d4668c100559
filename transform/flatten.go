package transform

import "strings"

// FlattenFilename replaces path separators with a double underscore so a
// package's files live flat in its directory. Originals are unique within
// a package, so flattened names are too.
func FlattenFilename(relPath string) string {
	p := strings.ReplaceAll(relPath, "\\", "/")
	p = strings.Trim(p, "/")
	return strings.ReplaceAll(p, "/", "__")
}
