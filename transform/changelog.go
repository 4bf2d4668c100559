// Package transform normalizes fetched bytes into persisted artifacts:
// changelog trimming, size-capped truncation, provenance header injection,
// and filename flattening. Every transform is a pure function of its
// inputs and is idempotent, so re-running the pipeline on its own output
// yields byte-identical results.
package transform

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// ChangelogMarker ends a trimmed changelog. Stable across releases so
// repeated runs recognize already-trimmed content.
const ChangelogMarker = "*[Earlier entries truncated by aifdocs]*"

var changelogName = regexp.MustCompile(`(?i)^(changelog|changes|history)(\.[a-z]+)?$`)

// IsChangelog reports whether a path's basename identifies a changelog.
func IsChangelog(relPath string) bool {
	return changelogName.MatchString(path.Base(strings.ReplaceAll(relPath, "\\", "/")))
}

var headingVersion = regexp.MustCompile(`(?m)^#{1,3}\s+.*?\[?v?(\d+\.\d+\.\d+(?:-[\w.]+)?)\]?`)

// TrimChangelog keeps the current version's minor series plus the
// immediately previous minor series and drops everything older, appending
// ChangelogMarker. Content without recognizable version headings is
// returned unchanged.
func TrimChangelog(content, currentVersion string) string {
	matches := headingVersion.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	type heading struct {
		pos     int
		version string
	}
	headings := make([]heading, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, heading{pos: m[0], version: content[m[2]:m[3]]})
	}

	currentMinor, currentOK := minorSeries(currentVersion)

	var foundCurrent, foundPrevious bool
	cut := -1
	for _, h := range headings {
		if h.version == currentVersion {
			foundCurrent = true
			continue
		}
		if foundCurrent && !foundPrevious {
			if minor, ok := minorSeries(h.version); !ok || !currentOK || minor != currentMinor {
				foundPrevious = true
			}
			continue
		}
		if foundPrevious {
			cut = h.pos
			break
		}
	}

	// Without the current version present, keep the two newest version
	// headings, whatever series they belong to.
	if !foundCurrent && len(headings) > 2 {
		cut = headings[2].pos
	}

	if cut < 0 {
		return content
	}
	return strings.TrimRight(content[:cut], " \t\n") + "\n\n---\n\n" + ChangelogMarker + "\n"
}

// minorSeries parses "major.minor" out of a semver-like version.
func minorSeries(version string) (string, bool) {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return "", false
	}
	major, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return "", false
	}
	minor, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%d.%d", major, minor), true
}
