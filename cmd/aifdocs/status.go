package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aifdocs/aifdocs"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
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
		return nil
	}

	fmt.Fprint(deps.Stdout, formatStatusTable(report.Statuses))
	return nil
}

// collectReport inspects disk state without syncing. Lockfile mode stays
// fully local; latest-docs mode may probe the registry for expired TTLs.
func collectReport(deps *Dependencies) (*aifdocs.Report, error) {
	var versions aifdocs.VersionMap
	if deps.Config.Settings.SyncMode != aifdocs.ModeLatestDocs {
		var err error
		versions, err = deps.Lock.Resolve(deps.Ctx, deps.Root)
		if err != nil {
			return nil, err
		}
	}

	statuses := deps.Engine.CollectStatus(deps.Ctx, versions)
	report := &aifdocs.Report{
		Summary:  aifdocs.Summarize(statuses),
		Statuses: statuses,
	}
	for _, st := range statuses {
		if !st.Status.OK() {
			report.Issues = append(report.Issues, fmt.Sprintf("%s [%s]: %s", st.Name, st.Status, st.Reason))
		}
	}
	return report, nil
}
