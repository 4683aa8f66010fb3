package schema

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SnapshotVersion is the snapshot document format written by Render.
const SnapshotVersion = 1

// ErrUnsupportedVersion is returned by Parse for documents written in a
// format this build does not understand.
var ErrUnsupportedVersion = errors.New("unsupported snapshot document version")

type document struct {
	Version     int      `yaml:"version"`
	MigrationID string   `yaml:"migration_id,omitempty"`
	Tables      []*Table `yaml:"tables"`
}

// Render encodes the model as a snapshot document tagged with the migration
// that produced it. Rendering a finalized model is deterministic.
func Render(m *Model, migrationID string) (string, error) {
	doc := document{
		Version:     SnapshotVersion,
		MigrationID: migrationID,
		Tables:      []*Table{},
	}
	if m != nil && m.Tables != nil {
		doc.Tables = m.Tables
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(&doc); err != nil {
		return "", errors.Wrap(err, "failed to render snapshot document")
	}

	if err := enc.Close(); err != nil {
		return "", errors.Wrap(err, "failed to render snapshot document")
	}

	return buf.String(), nil
}

// Parse decodes a snapshot document and finalizes the resulting model.
func Parse(text string) (*Model, error) {
	m, _, err := ParseDocument(text)
	return m, err
}

// ParseDocument decodes a snapshot document, returning the finalized model
// and the migration id recorded in it.
func ParseDocument(text string) (*Model, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", errors.New("empty snapshot document")
	}

	var doc document
	dec := yaml.NewDecoder(strings.NewReader(text))
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil {
		return nil, "", errors.Wrap(err, "failed to decode snapshot document")
	}

	if doc.Version != SnapshotVersion {
		return nil, "", errors.Wrapf(ErrUnsupportedVersion, "version %d", doc.Version)
	}

	m := &Model{Tables: doc.Tables}
	if err := m.Finalize(); err != nil {
		return nil, "", err
	}

	return m, doc.MigrationID, nil
}
