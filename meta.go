package aifdocs

import "time"

// On-disk names inside the output directory.
const (
	MetaFilename    = ".aifd-meta.toml"
	IndexFilename   = "_INDEX.md"
	SummaryFilename = "_SUMMARY.md"
)

// MetaSchemaVersion is the current metadata schema. Records with a newer
// schema_version are treated as incompatible and ignored safely.
const MetaSchemaVersion = 2

// DateFormat is the ISO date used for fetched_at and upstream_checked_at.
const DateFormat = "2006-01-02"

// Meta is the persisted metadata record for a package directory.
type Meta struct {
	SchemaVersion int    `toml:"schema_version"`
	Version       string `toml:"version"`
	GitRef        string `toml:"git_ref"`
	IsFallback    bool   `toml:"is_fallback"`
	FetchedAt     string `toml:"fetched_at"`
	ConfigHash    string `toml:"config_hash,omitempty"`

	// Latest-docs mode extensions.
	SyncMode              string `toml:"sync_mode,omitempty"`
	SourceKind            string `toml:"source_kind,omitempty"`
	UpstreamLatestVersion string `toml:"upstream_latest_version,omitempty"`
	UpstreamCheckedAt     string `toml:"upstream_checked_at,omitempty"`
	TTLExpiresAt          string `toml:"ttl_expires_at,omitempty"`
	ArtifactFormat        string `toml:"artifact_format,omitempty"`
	ArtifactBytes         int64  `toml:"artifact_bytes,omitempty"`
	ArtifactSHA256        string `toml:"artifact_sha256,omitempty"`
	Truncated             bool   `toml:"truncated,omitempty"`
}

// TTLExpired reports whether the record's revalidation deadline has passed.
// Records without a deadline never expire.
func (m *Meta) TTLExpired(now time.Time) bool {
	if m.TTLExpiresAt == "" {
		return false
	}
	deadline, err := time.Parse(time.RFC3339, m.TTLExpiresAt)
	if err != nil {
		return true
	}
	return deadline.Before(now)
}
