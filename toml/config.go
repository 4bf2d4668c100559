// Package toml loads the project configuration and encodes metadata
// records using BurntSushi/toml.
package toml

import (
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/aifdocs/aifdocs"
)

// DefaultConfigName is the configuration filename looked up at the
// project root.
const DefaultConfigName = "aifdocs.toml"

// rawConfig mirrors the on-disk shape. Pointer fields distinguish absent
// from empty, which the validation rules care about.
type rawConfig struct {
	Ecosystem *string                `toml:"ecosystem"`
	Settings  rawSettings            `toml:"settings"`
	Packages  map[string]*rawPackage `toml:"packages"`
	Crates    map[string]*rawPackage `toml:"crates"` // legacy table name
}

type rawSettings struct {
	OutputDir       *string `toml:"output_dir"`
	MaxFileSizeKB   *int    `toml:"max_file_size_kb"`
	Prune           *bool   `toml:"prune"`
	SyncConcurrency *int    `toml:"sync_concurrency"`
	DocsSource      *string `toml:"docs_source"`
	SyncMode        *string `toml:"sync_mode"`
	LatestTTLHours  *int    `toml:"latest_ttl_hours"`

	// Historical alias: true maps to docs_source = "registry_archive".
	// An explicit docs_source wins.
	ExperimentalRegistryArchive *bool `toml:"experimental_registry_archive"`
}

type rawPackage struct {
	Repo    *string     `toml:"repo"`
	Subpath *string     `toml:"subpath"`
	Files   *[]string   `toml:"files"`
	AINotes *string     `toml:"ai_notes"`
	Sources []rawSource `toml:"sources"` // legacy shape
}

type rawSource struct {
	Type  string   `toml:"type"`
	Repo  string   `toml:"repo"`
	Files []string `toml:"files"`
}

// Load reads and validates the configuration file. It fails with
// FILE_NOT_FOUND when the file is absent and INVALID_CONFIG for malformed
// fields. Unknown top-level keys are ignored with a warning; unknown keys
// inside known tables are an error.
func Load(path string, logger *slog.Logger) (*aifdocs.Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, aifdocs.Errorf(aifdocs.ENOTEXIST, "config file not found at %s", path)
	} else if err != nil {
		return nil, aifdocs.Errorf(aifdocs.EIO, "read config %s: %v", path, err)
	}
	return Parse(data, logger)
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte, logger *slog.Logger) (*aifdocs.Config, error) {
	var raw rawConfig
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, aifdocs.Errorf(aifdocs.EINVALID, "config parse: %v", err)
	}

	// Unknown top-level keys (including whole unknown tables) warn; unknown
	// keys inside the known tables are an error.
	known := map[string]bool{"ecosystem": true, "settings": true, "packages": true, "crates": true}
	for _, key := range md.Undecoded() {
		if !known[key[0]] {
			if logger != nil {
				logger.Warn("ignoring unknown config key", "key", key.String())
			}
			continue
		}
		return nil, aifdocs.Errorf(aifdocs.EINVALID, "unknown key %q in config", key.String())
	}

	eco := aifdocs.EcosystemRust
	if raw.Ecosystem != nil {
		switch aifdocs.Ecosystem(*raw.Ecosystem) {
		case aifdocs.EcosystemRust, aifdocs.EcosystemNode:
			eco = aifdocs.Ecosystem(*raw.Ecosystem)
		default:
			return nil, aifdocs.Errorf(aifdocs.EINVALID, "ecosystem must be %q or %q, got: %s", aifdocs.EcosystemRust, aifdocs.EcosystemNode, *raw.Ecosystem)
		}
	}

	settings, err := resolveSettings(eco, raw.Settings)
	if err != nil {
		return nil, err
	}

	table := raw.Packages
	if table == nil {
		table = raw.Crates
	}

	cfg := &aifdocs.Config{
		Ecosystem: eco,
		Settings:  settings,
	}
	for name, rp := range table {
		pkg, err := resolvePackage(name, rp)
		if err != nil {
			return nil, err
		}
		cfg.Packages = append(cfg.Packages, pkg)
	}
	aifdocs.SortPackages(cfg.Packages)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveSettings(eco aifdocs.Ecosystem, raw rawSettings) (aifdocs.Settings, error) {
	s := aifdocs.DefaultSettings(eco)

	if raw.OutputDir != nil {
		s.OutputDir = *raw.OutputDir
	}
	if raw.MaxFileSizeKB != nil {
		s.MaxFileSizeKB = *raw.MaxFileSizeKB
	}
	if raw.Prune != nil {
		s.Prune = *raw.Prune
	}
	if raw.SyncConcurrency != nil {
		s.SyncConcurrency = *raw.SyncConcurrency
	}
	if raw.LatestTTLHours != nil {
		s.LatestTTLHours = *raw.LatestTTLHours
	}
	if raw.SyncMode != nil {
		mode, err := aifdocs.ParseSyncMode(*raw.SyncMode)
		if err != nil {
			return s, err
		}
		s.SyncMode = mode
	}

	// The alias applies only when docs_source is not set explicitly.
	if raw.DocsSource != nil {
		src, err := aifdocs.ParseDocsSource(*raw.DocsSource)
		if err != nil {
			return s, err
		}
		s.DocsSource = src
	} else if raw.ExperimentalRegistryArchive != nil && *raw.ExperimentalRegistryArchive {
		s.DocsSource = aifdocs.SourceRegistryArchive
	}

	return s, nil
}

func resolvePackage(name string, raw *rawPackage) (*aifdocs.Package, error) {
	if raw == nil {
		return nil, aifdocs.Errorf(aifdocs.EINVALID, "package %q must be a table", name)
	}

	pkg := &aifdocs.Package{Name: name}

	if raw.Repo != nil {
		if *raw.Repo == "" {
			return nil, aifdocs.Errorf(aifdocs.EINVALID, "package %q: repo must not be empty", name)
		}
		pkg.Repo = *raw.Repo
	}
	if raw.Subpath != nil {
		pkg.Subpath = *raw.Subpath
	}
	if raw.Files != nil {
		pkg.Files = *raw.Files
	}
	if raw.AINotes != nil {
		pkg.AINotes = *raw.AINotes
	}

	// Legacy sources shape: the first github entry supplies repo and files
	// when the new fields are absent.
	if pkg.Repo == "" {
		for _, src := range raw.Sources {
			if src.Type == "github" && src.Repo != "" {
				pkg.Repo = src.Repo
				if len(pkg.Files) == 0 && len(src.Files) > 0 {
					pkg.Files = src.Files
				}
				break
			}
		}
	}

	return pkg, nil
}
