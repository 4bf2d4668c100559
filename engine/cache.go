package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/aifdocs/aifdocs"
)

// Decision is the cache index outcome for one package. The decision never
// touches the network.
type Decision int

// Decisions.
const (
	DecisionMiss Decision = iota
	DecisionHit
	DecisionRevalidate
	DecisionCorrupted
)

// decide applies the cache rules for a lockfile-mode package: metadata
// must exist, parse, match the target version, and carry the current
// fingerprint. Corrupted metadata forces a refresh.
func (e *Engine) decide(pkg *aifdocs.Package, version string) (Decision, *aifdocs.Meta) {
	meta, err := e.Store.ReadMeta(pkg.Name, version)
	if err != nil {
		switch aifdocs.ErrorCode(err) {
		case aifdocs.ENOTEXIST:
			return DecisionMiss, nil
		default:
			return DecisionCorrupted, nil
		}
	}

	if meta.Version != version {
		return DecisionMiss, nil
	}
	if meta.ConfigHash == "" || meta.ConfigHash != pkg.Fingerprint() {
		return DecisionMiss, nil
	}
	if e.Force {
		return DecisionMiss, nil
	}
	return DecisionHit, meta
}

// decideLatest applies the cache rules for a latest-docs package against
// the best existing directory: a valid record within its TTL is a hit;
// past the TTL a revalidation is scheduled instead of a plain miss.
func (e *Engine) decideLatest(pkg *aifdocs.Package, now time.Time) (Decision, string, *aifdocs.Meta) {
	version, ok := e.bestExistingVersion(pkg.Name)
	if !ok {
		return DecisionMiss, "", nil
	}

	meta, err := e.Store.ReadMeta(pkg.Name, version)
	if err != nil {
		if aifdocs.ErrorCode(err) == aifdocs.ENOTEXIST {
			return DecisionMiss, version, nil
		}
		return DecisionCorrupted, version, nil
	}

	if meta.ConfigHash != "" && meta.ConfigHash != pkg.Fingerprint() {
		return DecisionMiss, version, nil
	}
	if e.Force {
		return DecisionMiss, version, nil
	}
	if meta.TTLExpired(now) {
		return DecisionRevalidate, version, meta
	}
	return DecisionHit, version, meta
}

// bestExistingVersion scans the output root for the newest directory
// belonging to the package, using a lenient semver-ish comparison.
func (e *Engine) bestExistingVersion(name string) (string, bool) {
	entries, err := e.Store.Scan()
	if err != nil {
		return "", false
	}
	best := ""
	for _, entry := range entries {
		if entry.Name != name {
			continue
		}
		if best == "" || versionLess(best, entry.Version) {
			best = entry.Version
		}
	}
	return best, best != ""
}

// versionLess reports a < b with numeric comparison per dot segment,
// falling back to string order for non-numeric parts.
func versionLess(a, b string) bool {
	as := splitDots(a)
	bs := splitDots(b)
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, aok := segmentNumber(as, i)
		bv, bok := segmentNumber(bs, i)
		switch {
		case aok && bok:
			if av != bv {
				return av < bv
			}
		case aok:
			return false
		case bok:
			return true
		default:
			aseg, bseg := segment(as, i), segment(bs, i)
			if aseg != bseg {
				return aseg < bseg
			}
		}
	}
	return false
}

func splitDots(v string) []string {
	return strings.Split(v, ".")
}

func segment(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func segmentNumber(parts []string, i int) (uint64, bool) {
	s := segment(parts, i)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil
}
