package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/aifdocs/aifdocs"
	"github.com/aifdocs/aifdocs/engine"
	"github.com/aifdocs/aifdocs/registry"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Root is the project root the config and lockfiles are read from.
	Root string

	Config   *aifdocs.Config
	Engine   *engine.Engine
	Lock     aifdocs.LockResolver
	Registry registry.Registry
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config string `short:"c" default:"aifdocs.toml" help:"Path to config file"`

	Init   InitCmd   `cmd:"" help:"Generate a starter config from the project manifest"`
	Sync   SyncCmd   `cmd:"" help:"Sync docs for configured packages"`
	Status StatusCmd `cmd:"" help:"Show current docs status"`
	Check  CheckCmd  `cmd:"" help:"Validate docs state for CI; non-zero exit on problems"`
}

// InitCmd is the "init" subcommand.
type InitCmd struct {
	Force bool `help:"Overwrite an existing config file"`
}

// SyncCmd is the "sync" subcommand.
type SyncCmd struct {
	Force        bool   `help:"Ignore cache and refetch everything"`
	Mode         string `help:"Override sync mode (lockfile, latest_docs, hybrid)"`
	ReportFormat string `name:"report-format" enum:"text,json" default:"text" help:"Report output format"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct {
	Format string `enum:"text,json" default:"text" help:"Output format"`
	Mode   string `help:"Override sync mode (lockfile, latest_docs, hybrid)"`
}

// CheckCmd is the "check" subcommand.
type CheckCmd struct {
	Format string `enum:"text,json" default:"text" help:"Output format"`
	Mode   string `help:"Override sync mode (lockfile, latest_docs, hybrid)"`
}
