package lockfile

import (
	"github.com/BurntSushi/toml"

	"github.com/aifdocs/aifdocs"
)

type cargoLock struct {
	Package []cargoPackage `toml:"package"`
}

type cargoPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// ParseCargo reads a Cargo-style TOML lockfile. When multiple versions of
// one package exist, the last occurrence wins.
func ParseCargo(data []byte) (aifdocs.VersionMap, error) {
	var lock cargoLock
	if _, err := toml.Decode(string(data), &lock); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "Cargo.lock parse: %v", err)
	}

	versions := make(aifdocs.VersionMap, len(lock.Package))
	for _, pkg := range lock.Package {
		if pkg.Name == "" || pkg.Version == "" {
			continue
		}
		versions[pkg.Name] = pkg.Version
	}
	return versions, nil
}
