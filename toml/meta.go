package toml

import (
	"bytes"

	"github.com/BurntSushi/toml"

	"github.com/aifdocs/aifdocs"
)

// EncodeMeta serializes a metadata record for persistence.
func EncodeMeta(m *aifdocs.Meta) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EIO, "encode meta: %v", err)
	}
	return buf.Bytes(), nil
}

// DecodeMeta parses a metadata record. Records declaring a schema_version
// newer than MetaSchemaVersion are incompatible and rejected with EPARSE
// so callers treat the directory as corrupted rather than misreading it.
func DecodeMeta(data []byte) (*aifdocs.Meta, error) {
	var m aifdocs.Meta
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "meta parse: %v", err)
	}
	if m.SchemaVersion > aifdocs.MetaSchemaVersion {
		return nil, aifdocs.Errorf(aifdocs.EPARSE, "meta schema version %d is newer than supported version %d", m.SchemaVersion, aifdocs.MetaSchemaVersion)
	}
	return &m, nil
}
