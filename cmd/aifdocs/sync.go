package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aifdocs/aifdocs"
	"github.com/aifdocs/aifdocs/engine"
)

// Run executes the sync command. Partial failures are reported, not
// fatal: the command exits non-zero only for unrecoverable global errors
// (missing config or lockfile).
func (c *SyncCmd) Run(deps *Dependencies) error {
	deps.Engine.Force = c.Force

	versions, err := resolveVersions(deps)
	if err != nil {
		return errors.New(aifdocs.ErrorMessage(err))
	}

	textMode := c.ReportFormat == "text"
	if textMode {
		deps.Engine.Progress = func(ev engine.Event) {
			switch ev.Type {
			case engine.EventPruned:
				fmt.Fprintf(deps.Stdout, "  pruned %s\n", ev.Message)
			case engine.EventCached:
				fmt.Fprintf(deps.Stdout, "  cached %s@%s\n", ev.Package, ev.Version)
			case engine.EventSynced:
				fmt.Fprintf(deps.Stdout, "  synced %s@%s\n", ev.Package, ev.Version)
			case engine.EventFallback:
				fmt.Fprintf(deps.Stdout, "  synced %s@%s (fallback via %s)\n", ev.Package, ev.Version, ev.Message)
			case engine.EventSkipped:
				fmt.Fprintf(deps.Stderr, "  skip %s: %s\n", ev.Package, ev.Message)
			case engine.EventFailed:
				fmt.Fprintf(deps.Stderr, "  error %s: %s\n", ev.Package, aifdocs.ErrorMessage(ev.Err))
			}
		}
	}

	report, err := deps.Engine.Run(deps.Ctx, versions)
	if err != nil {
		return errors.New(aifdocs.ErrorMessage(err))
	}

	if textMode {
		s := report.Summary
		fmt.Fprintf(deps.Stdout, "\nTotal: %d | Synced: %d | Missing: %d | Outdated: %d | Corrupted: %d\n",
			s.Total, s.Synced, s.Missing, s.Outdated, s.Corrupted)
		return nil
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(deps.Stdout, string(out))
	return nil
}

// resolveVersions produces the version map for the configured mode.
// Latest-docs mode resolves versions from the registry inside the engine,
// so no lockfile is required.
func resolveVersions(deps *Dependencies) (aifdocs.VersionMap, error) {
	if deps.Config.Settings.SyncMode == aifdocs.ModeLatestDocs {
		return nil, nil
	}
	return deps.Lock.Resolve(deps.Ctx, deps.Root)
}
