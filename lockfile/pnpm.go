package lockfile

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aifdocs/aifdocs"
)

type pnpmLock struct {
	Packages map[string]any `yaml:"packages"`
}

// ParsePNPM reads a pnpm-style YAML lockfile. Keys look like
// "/<name>@<version>(peer-info)" in v6-era lockfiles and
// "<name>@<version>" in newer ones; both are accepted.
func ParsePNPM(data []byte) (aifdocs.VersionMap, error) {
	var lock pnpmLock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "pnpm-lock.yaml parse: %v", err)
	}

	versions := make(aifdocs.VersionMap)
	for key := range lock.Packages {
		name, version, ok := pnpmKey(key)
		if !ok {
			continue
		}
		versions[name] = version
	}
	return versions, nil
}

// pnpmKey splits a packages-map key into name and version. Peer suffixes
// in parentheses are stripped. Scoped names keep their leading "@", so the
// version separator is the last "@" in the key.
func pnpmKey(key string) (name, version string, ok bool) {
	key = strings.TrimPrefix(key, "/")
	if idx := strings.IndexByte(key, '('); idx >= 0 {
		key = key[:idx]
	}
	idx := strings.LastIndexByte(key, '@')
	if idx <= 0 {
		return "", "", false
	}
	name, version = key[:idx], key[idx+1:]
	if name == "" || version == "" {
		return "", "", false
	}
	return name, version, true
}
