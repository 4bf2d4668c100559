package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aifdocs/aifdocs"
)

func TestFormatStatusTable(t *testing.T) {
	t.Parallel()

	t.Run("empty statuses give a zero summary without hints", func(t *testing.T) {
		t.Parallel()

		got := formatStatusTable(nil)
		assert.Contains(t, got, "Package")
		assert.Contains(t, got, "Lock Version")
		assert.Contains(t, got, "Total: 0 | Synced: 0 | Missing: 0 | Outdated: 0 | Corrupted: 0")
		assert.NotContains(t, got, "Hint:")
	})

	t.Run("problem rows get hints and details", func(t *testing.T) {
		t.Parallel()

		got := formatStatusTable([]aifdocs.PackageStatus{
			{
				Name:       "serde",
				Status:     aifdocs.StatusMissing,
				Reason:     "no synced docs found for this package",
				Mode:       "lockfile",
				ReasonCode: aifdocs.ReasonLockfileMissing,
			},
		})

		assert.Contains(t, got, "serde")
		assert.Contains(t, got, "Missing")
		assert.Contains(t, got, "Hint: run `aifdocs sync`")
		assert.Contains(t, got, "CI hint: run `aifdocs check`")
		assert.Contains(t, got, "Problem details:")
		assert.Contains(t, got, "- serde [Missing]: no synced docs found for this package")
	})

	t.Run("dashes stand in for unknown versions", func(t *testing.T) {
		t.Parallel()

		got := formatStatusTable([]aifdocs.PackageStatus{
			{Name: "a", Status: aifdocs.StatusSynced, LockVersion: "1.0.0", DocsVersion: "1.0.0", Reason: "up to date"},
			{Name: "b", Status: aifdocs.StatusMissing, Reason: "missing"},
		})
		assert.Contains(t, got, "-")
	})
}
