package toml_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aifdocs/aifdocs"
	aifdtoml "github.com/aifdocs/aifdocs/toml"
)

func TestMetaRoundTrip(t *testing.T) {
	t.Parallel()

	meta := &aifdocs.Meta{
		SchemaVersion:         aifdocs.MetaSchemaVersion,
		Version:               "1.0.200",
		GitRef:                "v1.0.200",
		IsFallback:            false,
		FetchedAt:             "2026-08-06",
		ConfigHash:            "0011223344556677",
		SyncMode:              "latest_docs",
		SourceKind:            "rendered",
		UpstreamLatestVersion: "1.0.201",
		UpstreamCheckedAt:     "2026-08-06",
		TTLExpiresAt:          "2026-08-07T10:00:00Z",
		ArtifactFormat:        "markdown",
		ArtifactBytes:         4096,
		ArtifactSHA256:        "deadbeef",
		Truncated:             true,
	}

	data, err := aifdtoml.EncodeMeta(meta)
	require.NoError(t, err)

	got, err := aifdtoml.DecodeMeta(data)
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestDecodeMeta(t *testing.T) {
	t.Parallel()

	t.Run("rejects a future schema version", func(t *testing.T) {
		t.Parallel()

		_, err := aifdtoml.DecodeMeta([]byte("schema_version = 3\nversion = \"1.0.0\"\n"))
		require.Error(t, err)
		assert.Equal(t, aifdocs.EPARSE, aifdocs.ErrorCode(err))
	})

	t.Run("accepts older schema versions", func(t *testing.T) {
		t.Parallel()

		got, err := aifdtoml.DecodeMeta([]byte("schema_version = 1\nversion = \"1.0.0\"\ngit_ref = \"main\"\nis_fallback = true\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, got.SchemaVersion)
		assert.True(t, got.IsFallback)
	})

	t.Run("rejects invalid TOML", func(t *testing.T) {
		t.Parallel()

		_, err := aifdtoml.DecodeMeta([]byte("schema_version = = 2"))
		require.Error(t, err)
		assert.Equal(t, aifdocs.EPARSE, aifdocs.ErrorCode(err))
	})
}
