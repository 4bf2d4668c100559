package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/aifdocs/aifdocs"
	"github.com/aifdocs/aifdocs/docsrs"
	"github.com/aifdocs/aifdocs/engine"
	"github.com/aifdocs/aifdocs/fs"
	"github.com/aifdocs/aifdocs/github"
	aifdhttp "github.com/aifdocs/aifdocs/http"
	"github.com/aifdocs/aifdocs/lockfile"
	"github.com/aifdocs/aifdocs/registry"
	aifdslog "github.com/aifdocs/aifdocs/slog"
	aifdtoml "github.com/aifdocs/aifdocs/toml"
)

// errCheckFailed signals the check command's non-zero exit without an
// extra error line; the command already printed its findings.
var errCheckFailed = errors.New("check failed")

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Root is the project root. Set before calling Run().
	Root string
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Root: "."}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger,
		Root:   m.Root,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("aifdocs"),
		kong.Description("Version-locked dependency docs for AI coding assistants"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
		kong.Bind(cli),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'aifdocs --help' to see available commands")
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cmd := kongCtx.Selected().Name

	// init bootstraps the config, so everything else loads it first.
	if cmd != "init" {
		cfg, err := aifdtoml.Load(filepath.Join(m.Root, cli.Config), logger)
		if err != nil {
			return errors.New(aifdocs.ErrorMessage(err))
		}
		if mode := modeOverride(cli, cmd); mode != "" {
			parsed, err := aifdocs.ParseSyncMode(mode)
			if err != nil {
				return errors.New(aifdocs.ErrorMessage(err))
			}
			cfg.Settings.SyncMode = parsed
			if err := cfg.Validate(); err != nil {
				return errors.New(aifdocs.ErrorMessage(err))
			}
		}
		deps.Config = cfg
		deps.Engine = m.buildEngine(cfg, logger)
		deps.Lock = lockfile.NewResolver()
	}

	deps.Registry = m.buildRegistry(deps)

	return kongCtx.Run(deps)
}

// modeOverride returns the --mode flag value for the selected command.
func modeOverride(cli *CLI, cmd string) string {
	switch cmd {
	case "sync":
		return cli.Sync.Mode
	case "status":
		return cli.Status.Mode
	case "check":
		return cli.Check.Mode
	}
	return ""
}

// buildEngine wires the adapters, store, and decorators for the loaded
// configuration.
func (m *Main) buildEngine(cfg *aifdocs.Config, logger *slog.Logger) *engine.Engine {
	token := aifdhttp.TokenFromEnv()
	if token == "" {
		logger.Warn("no GITHUB_TOKEN or GH_TOKEN set; the git host enforces a strict unauthenticated rate limit")
	}

	limiter := aifdhttp.NewHostLimiter(8, 4)
	gitClient := aifdhttp.NewClient(
		aifdhttp.WithToken(token),
		aifdhttp.WithHostLimiter(limiter),
	)
	plainClient := aifdhttp.NewClient(
		aifdhttp.WithHostLimiter(limiter),
	)

	var reg registry.Registry
	switch cfg.Ecosystem {
	case aifdocs.EcosystemNode:
		reg = registry.NewNPM(plainClient)
	default:
		reg = registry.NewCratesIO(plainClient)
	}
	registrySource := registry.NewSource(plainClient, reg)

	var rendered aifdocs.Source
	if cfg.Ecosystem == aifdocs.EcosystemRust {
		rendered = aifdslog.NewLoggingSource(docsrs.NewSource(plainClient), logger)
	}

	outputDir := filepath.Join(m.Root, cfg.OutputDir())

	return &engine.Engine{
		Config:   cfg,
		Store:    aifdslog.NewLoggingStore(fs.NewStore(outputDir), logger),
		GitHost:  aifdslog.NewLoggingSource(github.NewSource(gitClient), logger),
		Registry: aifdslog.NewLoggingSource(registrySource, logger),
		Rendered: rendered,
		Resolver: registrySource,
		Logger:   logger,
	}
}

// buildRegistry returns the bare registry client used by init, which runs
// before any config exists. The manifest on disk picks the ecosystem.
func (m *Main) buildRegistry(deps *Dependencies) registry.Registry {
	client := aifdhttp.NewClient()
	if deps.Config != nil && deps.Config.Ecosystem == aifdocs.EcosystemNode {
		return registry.NewNPM(client)
	}
	if deps.Config == nil {
		if _, err := os.Stat(filepath.Join(m.Root, "package.json")); err == nil {
			if _, err := os.Stat(filepath.Join(m.Root, "Cargo.toml")); err != nil {
				return registry.NewNPM(client)
			}
		}
	}
	return registry.NewCratesIO(client)
}
