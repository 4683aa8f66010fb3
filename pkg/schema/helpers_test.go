package schema_test

import (
	"testing"

	"github.com/pseudomuto/automigrate/pkg/parser"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/stretchr/testify/require"
)

// mustModel parses ddl and builds a finalized model from it.
func mustModel(t *testing.T, ddl string) *schema.Model {
	t.Helper()

	sql, err := parser.ParseString(ddl)
	require.NoError(t, err)

	m, err := schema.FromSQL(sql)
	require.NoError(t, err)
	return m
}
