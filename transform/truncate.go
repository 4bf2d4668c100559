package transform

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncationMarker returns the marker appended to size-capped content.
// Marker bytes do not count against the limit.
func TruncationMarker(maxKB int) string {
	return fmt.Sprintf("[TRUNCATED by aifdocs at %dKB]", maxKB)
}

// Truncate caps content at maxKB*1024 bytes, cutting at a safe markdown
// boundary (paragraph or heading, never inside a fenced code block) and
// appending the truncation marker. Content at or under the limit is
// returned unchanged, as is content already ending in the marker.
func Truncate(content string, maxKB int) (string, bool) {
	maxBytes := maxKB * 1024
	if len(content) <= maxBytes {
		return content, false
	}
	if strings.HasSuffix(strings.TrimRight(content, "\n"), TruncationMarker(maxKB)) {
		return content, true
	}

	cut := safeBoundary(content, maxBytes)
	return strings.TrimRight(content[:cut], "\n") + "\n\n" + TruncationMarker(maxKB) + "\n", true
}

// safeBoundary finds the byte offset to cut at: the last paragraph break
// at or before limit, moved out of any fenced code block it would split.
// Falls back to a UTF-8 rune boundary at the limit.
func safeBoundary(content string, limit int) int {
	cut := floorRuneBoundary(content, limit)

	// Prefer a paragraph or section boundary.
	if idx := strings.LastIndex(content[:cut], "\n\n"); idx > 0 {
		cut = idx + 1
	}

	// Never cut inside a fenced code block: an odd number of fences before
	// the cut means it is open, so retreat to just before the opening fence.
	if fence := openFenceStart(content[:cut]); fence >= 0 {
		cut = fence
	}

	if cut <= 0 {
		cut = floorRuneBoundary(content, limit)
	}
	return cut
}

// openFenceStart returns the offset of the last unclosed ``` fence in s,
// or -1 when every fence is balanced.
func openFenceStart(s string) int {
	open := -1
	offset := 0
	for _, line := range strings.SplitAfter(s, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			if open < 0 {
				open = offset
			} else {
				open = -1
			}
		}
		offset += len(line)
	}
	return open
}

// floorRuneBoundary rounds idx down to the nearest UTF-8 rune boundary.
func floorRuneBoundary(s string, idx int) int {
	if idx >= len(s) {
		return len(s)
	}
	for idx > 0 && !utf8.RuneStart(s[idx]) {
		idx--
	}
	return idx
}
