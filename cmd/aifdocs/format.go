package main

import (
	"fmt"
	"strings"

	"github.com/aifdocs/aifdocs"
)

// formatStatusTable renders the fixed-width status table with per-row
// reasons, a summary line, and a problem-details section.
func formatStatusTable(statuses []aifdocs.PackageStatus) string {
	const (
		colName   = 24
		colLock   = 16
		colDocs   = 16
		colStatus = 14
	)

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s %-*s %-*s %-*s\n", colName, "Package", colLock, "Lock Version", colDocs, "Docs Version", colStatus, "Status")
	fmt.Fprintf(&b, "%s %s %s %s\n",
		strings.Repeat("-", colName), strings.Repeat("-", colLock), strings.Repeat("-", colDocs), strings.Repeat("-", colStatus))

	for _, st := range statuses {
		lock := st.LockVersion
		if lock == "" {
			lock = "-"
		}
		docs := st.DocsVersion
		if docs == "" {
			docs = "-"
		}
		fmt.Fprintf(&b, "%-*s %-*s %-*s %-*s\n", colName, st.Name, colLock, lock, colDocs, docs, colStatus, string(st.Status))
		fmt.Fprintf(&b, "  ↳ %s\n", st.Reason)
	}

	summary := aifdocs.Summarize(statuses)
	fmt.Fprintf(&b, "\nTotal: %d | Synced: %d | Missing: %d | Outdated: %d | Corrupted: %d\n",
		summary.Total, summary.Synced, summary.Missing, summary.Outdated, summary.Corrupted)

	if summary.HasProblems() {
		b.WriteString("Hint: run `aifdocs sync` (or `--force` for a full refresh)\n")
		b.WriteString("CI hint: run `aifdocs check` to fail on stale docs\n")
		b.WriteString("\nProblem details:\n")
		for _, st := range statuses {
			if st.Status.OK() {
				continue
			}
			fmt.Fprintf(&b, "- %s [%s]: %s\n", st.Name, st.Status, st.Reason)
		}
	}

	return b.String()
}
