package lockfile

import (
	"encoding/json"
	"strings"

	"github.com/aifdocs/aifdocs"
)

type npmLock struct {
	Packages     map[string]npmPackage    `json:"packages"`
	Dependencies map[string]npmDependency `json:"dependencies"`
}

type npmPackage struct {
	Version string `json:"version"`
}

type npmDependency struct {
	Version string `json:"version"`
}

// ParseNPM reads an npm-style package-lock.json. Lockfile v2/v3 entries
// under packages["node_modules/<name>"] are preferred; the legacy v1
// dependencies map is a fallback for names the packages map lacks.
func ParseNPM(data []byte) (aifdocs.VersionMap, error) {
	var lock npmLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "package-lock.json parse: %v", err)
	}

	versions := make(aifdocs.VersionMap)
	for key, pkg := range lock.Packages {
		name, ok := npmPackageName(key)
		if !ok || pkg.Version == "" {
			continue
		}
		// Top-level entries shadow nested duplicates.
		if _, exists := versions[name]; !exists || strings.Count(key, "node_modules/") == 1 {
			versions[name] = pkg.Version
		}
	}
	for name, dep := range lock.Dependencies {
		if dep.Version == "" {
			continue
		}
		if _, exists := versions[name]; !exists {
			versions[name] = dep.Version
		}
	}
	return versions, nil
}

// npmPackageName extracts the package name from a packages-map key.
// "node_modules/@scope/name" → "@scope/name"; nested paths keep the final
// node_modules segment's name. The "" root key is skipped.
func npmPackageName(key string) (string, bool) {
	const marker = "node_modules/"
	idx := strings.LastIndex(key, marker)
	if idx < 0 {
		return "", false
	}
	name := key[idx+len(marker):]
	if name == "" {
		return "", false
	}
	return name, true
}
