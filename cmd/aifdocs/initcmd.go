package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aifdocs/aifdocs"
)

// Run executes the init command: read the project manifest, resolve each
// dependency's repository through the registry, and write a starter
// config.
func (c *InitCmd) Run(deps *Dependencies, cli *CLI) error {
	configPath := filepath.Join(deps.Root, cli.Config)
	if _, err := os.Stat(configPath); err == nil && !c.Force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	eco, names, err := manifestDependencies(deps.Root)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New("no dependencies found in the project manifest")
	}

	resolved := make(map[string]string)
	for _, name := range names {
		repo, err := deps.Registry.Repository(deps.Ctx, name)
		if err != nil {
			deps.Logger.Warn("failed to resolve registry metadata", "package", name, "error", aifdocs.ErrorMessage(err))
			continue
		}
		if repo == "" {
			deps.Logger.Warn("could not infer repository, skipping", "package", name)
			continue
		}
		resolved[name] = repo
	}
	if len(resolved) == 0 {
		return errors.New("could not resolve any repositories from dependencies")
	}

	settings := aifdocs.DefaultSettings(eco)
	var b strings.Builder
	fmt.Fprintf(&b, "ecosystem = %q\n\n", eco)
	b.WriteString("[settings]\n")
	fmt.Fprintf(&b, "output_dir = %q\n", settings.OutputDir)
	fmt.Fprintf(&b, "max_file_size_kb = %d\n", settings.MaxFileSizeKB)
	fmt.Fprintf(&b, "prune = %t\n", settings.Prune)
	fmt.Fprintf(&b, "docs_source = %q\n\n", settings.DocsSource)

	sorted := make([]string, 0, len(resolved))
	for name := range resolved {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		fmt.Fprintf(&b, "[packages.%s]\n", tomlKey(name))
		fmt.Fprintf(&b, "repo = %q\n\n", resolved[name])
	}

	if err := os.WriteFile(configPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", configPath, err)
	}
	fmt.Fprintf(deps.Stdout, "Wrote %s with %d packages\n", configPath, len(sorted))
	return nil
}

// manifestDependencies reads dependency names from Cargo.toml or
// package.json, whichever is present, and reports the matching ecosystem.
func manifestDependencies(root string) (aifdocs.Ecosystem, []string, error) {
	if data, err := os.ReadFile(filepath.Join(root, "Cargo.toml")); err == nil {
		names, err := cargoDependencies(data)
		return aifdocs.EcosystemRust, names, err
	}
	if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		names, err := nodeDependencies(data)
		return aifdocs.EcosystemNode, names, err
	}
	return "", nil, errors.New("no Cargo.toml or package.json found at the project root")
}

func cargoDependencies(data []byte) ([]string, error) {
	var manifest struct {
		Dependencies map[string]any `toml:"dependencies"`
		Workspace    struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"workspace"`
	}
	if _, err := toml.Decode(string(data), &manifest); err != nil {
		return nil, fmt.Errorf("parse Cargo.toml: %w", err)
	}

	set := make(map[string]bool)
	for name := range manifest.Dependencies {
		set[name] = true
	}
	for name := range manifest.Workspace.Dependencies {
		set[name] = true
	}
	return sortedKeys(set), nil
}

func nodeDependencies(data []byte) ([]string, error) {
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}

	set := make(map[string]bool)
	for name := range manifest.Dependencies {
		set[name] = true
	}
	for name := range manifest.DevDependencies {
		set[name] = true
	}
	return sortedKeys(set), nil
}

// tomlKey quotes table keys that are not bare TOML identifiers (scoped
// npm names contain "@" and "/").
func tomlKey(name string) string {
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return fmt.Sprintf("%q", name)
		}
	}
	return name
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
