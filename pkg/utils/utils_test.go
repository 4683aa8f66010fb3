package utils_test

import (
	"testing"

	. "github.com/pseudomuto/automigrate/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		quote    rune
		expected string
	}{
		{"empty", "", '"', ""},
		{"simple double quote", "users", '"', `"users"`},
		{"simple backtick", "events", '`', "`events`"},
		{"qualified", "public.users", '"', `"public"."users"`},
		{"already quoted", `"Users"`, '"', `"Users"`},
		{"partially quoted", `"public".users`, '"', `"public"."users"`},
		{"embedded quote", `we"ird`, '"', `"we""ird"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, QuoteIdentifier(tt.input, tt.quote))
		})
	}
}

func TestQuoteIdentifiers(t *testing.T) {
	require.Equal(t, "`a`, `b`", QuoteIdentifiers([]string{"a", "b"}, '`'))
	require.Empty(t, QuoteIdentifiers(nil, '"'))
}

func TestIsQuoted(t *testing.T) {
	require.True(t, IsQuoted("`table`", '`'))
	require.True(t, IsQuoted(`"a""b"`, '"'))
	require.False(t, IsQuoted("table", '`'))
	require.False(t, IsQuoted("`db`.`table`", '`'))
	require.False(t, IsQuoted(`"`, '"'))
}

func TestStripQuotes(t *testing.T) {
	tests := map[string]string{
		"`table`":          "table",
		`"My ""Table"""`:   `My "Table"`,
		"[users]":          "users",
		"users":            "users",
		"x":                "x",
		"`unterminated":    "`unterminated",
	}

	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			require.Equal(t, expected, StripQuotes(input))
		})
	}
}

func TestNormalizeLiteral(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{" TRUE ", "true"},
		{"False", "false"},
		{"NULL", "null"},
		{"+5", "5"},
		{"-1.5", "-1.5"},
		{"'Hello'", "'Hello'"},
		{"now()", "now()"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, NormalizeLiteral(tt.input))
		})
	}
}

func TestLiteralClassifiers(t *testing.T) {
	require.True(t, IsNumericValue("1.23e-4"))
	require.False(t, IsNumericValue("'1'"))
	require.False(t, IsNumericValue(""))
	require.True(t, IsBooleanValue("TRUE"))
	require.False(t, IsBooleanValue("1"))
	require.True(t, IsNullValue("null"))
	require.Equal(t, "'it''s'", QuoteLiteral("it's"))
	require.Equal(t, 3, *Ptr(3))
}

func TestSQLBuilder(t *testing.T) {
	t.Run("add column", func(t *testing.T) {
		sql := NewSQLBuilder('"').
			Alter("TABLE").
			Name("users").
			Raw("ADD COLUMN").
			Name("email").
			Raw("TEXT NOT NULL").
			Default("''").
			String()
		require.Equal(t, `ALTER TABLE "users" ADD COLUMN "email" TEXT NOT NULL DEFAULT '';`, sql)
	})

	t.Run("create index", func(t *testing.T) {
		sql := NewSQLBuilder('"').
			Create("UNIQUE INDEX").
			Name("ix_users_email").
			On("users").
			Columns([]string{"email", "tenant_id"}).
			StringWithoutSemicolon()
		require.Equal(t, `CREATE UNIQUE INDEX "ix_users_email" ON "users" ("email", "tenant_id")`, sql)
	})

	t.Run("drop if exists with backticks", func(t *testing.T) {
		sql := NewSQLBuilder('`').Drop("TABLE").IfExists().Name("events").String()
		require.Equal(t, "DROP TABLE IF EXISTS `events`;", sql)
	})

	t.Run("empty optional parts are skipped", func(t *testing.T) {
		sql := NewSQLBuilder('"').
			Raw("SELECT 1").
			Default("").
			Comment("").
			Raw("").
			To("").
			Name("").
			StringWithoutSemicolon()
		require.Equal(t, "SELECT 1", sql)
	})

	t.Run("rename and comment", func(t *testing.T) {
		sql := NewSQLBuilder('`').
			Raw("RENAME TABLE").
			Name("a").
			To("b").
			Rawf("SETTINGS %s = %d", "x", 1).
			Comment("it's").
			StringWithoutSemicolon()
		require.Equal(t, "RENAME TABLE `a` TO `b` SETTINGS x = 1 COMMENT 'it''s'", sql)
	})
}
