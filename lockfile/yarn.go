package lockfile

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/aifdocs/aifdocs"
)

// ParseYarn reads a flat yarn-style lockfile: unindented header lines of
// comma-separated "<name>@<spec>" keys followed by an indented
// `version "<X.Y.Z>"` line.
func ParseYarn(data []byte) (aifdocs.VersionMap, error) {
	versions := make(aifdocs.VersionMap)

	var pending []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			pending = yarnHeaderNames(line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if version, ok := yarnVersionLine(trimmed); ok && len(pending) > 0 {
			for _, name := range pending {
				versions[name] = version
			}
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "yarn.lock parse: %v", err)
	}
	return versions, nil
}

// yarnHeaderNames extracts package names from a block header like
// `"lodash@^4.17.0", lodash@~4.17.21:`. Scoped names keep their leading
// "@"; the spec separator is the last "@".
func yarnHeaderNames(line string) []string {
	line = strings.TrimSuffix(strings.TrimSpace(line), ":")
	var names []string
	for _, part := range strings.Split(line, ",") {
		key := strings.Trim(strings.TrimSpace(part), `"`)
		idx := strings.LastIndexByte(key, '@')
		if idx <= 0 {
			continue
		}
		name := key[:idx]
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

func yarnVersionLine(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "version ")
	if !ok {
		return "", false
	}
	version := strings.Trim(strings.TrimSpace(rest), `"`)
	if version == "" {
		return "", false
	}
	return version, true
}
