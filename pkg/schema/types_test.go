package schema_test

import (
	"testing"

	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/stretchr/testify/require"
)

func TestCanonicalType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"INT4", "integer"},
		{"int", "integer"},
		{"int8", "bigint"},
		{"BOOL", "boolean"},
		{"float8", "double precision"},
		{"double  precision", "double precision"},
		{"character varying(20)", "varchar(20)"},
		{"VARCHAR(255)", "varchar(255)"},
		{"numeric(10,2)", "numeric(10, 2)"},
		{"decimal(10, 2)", "numeric(10, 2)"},
		{"timestamp(3) with time zone", "timestamptz(3)"},
		{"timestamp without time zone", "timestamp"},
		{"text[]", "text[]"},
		{"UInt64", "UInt64"},
		{"Nullable(String)", "Nullable(String)"},
		{"DateTime", "DateTime"},
		{"citext", "citext"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, schema.CanonicalType(tt.input))
		})
	}
}

func TestTypeBaseAndArgs(t *testing.T) {
	require.Equal(t, "varchar", schema.TypeBase("varchar(20)"))
	require.Equal(t, "text", schema.TypeBase("text[]"))
	require.Equal(t, "Nullable", schema.TypeBase("Nullable(String)"))

	require.Equal(t, []string{"10", "2"}, schema.TypeArgs("numeric(10, 2)"))
	require.Equal(t, []string{"Decimal(10, 2)"}, schema.TypeArgs("Nullable(Decimal(10, 2))"))
	require.Nil(t, schema.TypeArgs("text"))
}
