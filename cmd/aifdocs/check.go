package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aifdocs/aifdocs"
)

// Run executes the check command: exit 0 iff every configured package is
// Synced or SyncedFallback.
func (c *CheckCmd) Run(deps *Dependencies) error {
	report, err := collectReport(deps)
	if err != nil {
		return errors.New(aifdocs.ErrorMessage(err))
	}

	if c.Format == "json" {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(deps.Stdout, string(out))
		if !report.Passing() {
			return errCheckFailed
		}
		return nil
	}

	if report.Passing() {
		fmt.Fprintf(deps.Stdout, "OK: all %d packages synced\n", report.Summary.Total)
		return nil
	}

	fmt.Fprintln(deps.Stdout, "Docs are not in sync:")
	for _, issue := range report.Issues {
		fmt.Fprintf(deps.Stdout, "- %s\n", issue)
	}
	return errCheckFailed
}
