package utils

import (
	"fmt"
	"strings"
)

// SQLBuilder provides a fluent interface for building DDL statements in any of
// the supported dialects. The quote character passed to NewSQLBuilder is used
// for every identifier added through Name, Columns and To.
//
// Example usage:
//
//	sql := NewSQLBuilder('"').
//		Alter("TABLE").
//		Name("users").
//		Raw("ADD COLUMN").
//		Name("email").
//		Raw("TEXT NOT NULL").
//		Default("''").
//		String()
//	// Output: ALTER TABLE "users" ADD COLUMN "email" TEXT NOT NULL DEFAULT '';
type SQLBuilder struct {
	quote rune
	parts []string
}

// NewSQLBuilder creates a new SQLBuilder that quotes identifiers with quote.
func NewSQLBuilder(quote rune) *SQLBuilder {
	return &SQLBuilder{
		quote: quote,
		parts: make([]string, 0, 10),
	}
}

// Create adds a CREATE clause with the specified object type.
//
// Example:
//
//	builder.Create("TABLE")         // CREATE TABLE
//	builder.Create("UNIQUE INDEX")  // CREATE UNIQUE INDEX
func (b *SQLBuilder) Create(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "CREATE", objectType)
	return b
}

// Drop adds a DROP clause with the specified object type.
func (b *SQLBuilder) Drop(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "DROP", objectType)
	return b
}

// Alter adds an ALTER clause with the specified object type.
func (b *SQLBuilder) Alter(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "ALTER", objectType)
	return b
}

// IfExists adds an IF EXISTS clause. This should be called after DROP operations.
func (b *SQLBuilder) IfExists() *SQLBuilder {
	b.parts = append(b.parts, "IF", "EXISTS")
	return b
}

// IfNotExists adds an IF NOT EXISTS clause. This should be called after CREATE operations.
func (b *SQLBuilder) IfNotExists() *SQLBuilder {
	b.parts = append(b.parts, "IF", "NOT", "EXISTS")
	return b
}

// Name adds a quoted object name. Empty names are ignored.
//
// Example (quote = '"'):
//
//	builder.Name("users")         // "users"
//	builder.Name("public.users")  // "public"."users"
func (b *SQLBuilder) Name(name string) *SQLBuilder {
	if name != "" {
		b.parts = append(b.parts, QuoteIdentifier(name, b.quote))
	}
	return b
}

// Columns adds a parenthesized, quoted column list.
//
// Example (quote = '"'):
//
//	builder.Columns([]string{"id", "email"})  // ("id", "email")
func (b *SQLBuilder) Columns(cols []string) *SQLBuilder {
	b.parts = append(b.parts, "("+QuoteIdentifiers(cols, b.quote)+")")
	return b
}

// On adds an ON clause naming the table an index belongs to.
func (b *SQLBuilder) On(table string) *SQLBuilder {
	b.parts = append(b.parts, "ON", QuoteIdentifier(table, b.quote))
	return b
}

// To adds a TO clause with a quoted name, as used by RENAME.
func (b *SQLBuilder) To(name string) *SQLBuilder {
	if name != "" {
		b.parts = append(b.parts, "TO", QuoteIdentifier(name, b.quote))
	}
	return b
}

// Default adds a DEFAULT clause if expr is not empty.
//
// Example:
//
//	builder.Default("0")   // DEFAULT 0
//	builder.Default("")    // (nothing added)
func (b *SQLBuilder) Default(expr string) *SQLBuilder {
	if expr != "" {
		b.parts = append(b.parts, "DEFAULT", expr)
	}
	return b
}

// Comment adds a COMMENT clause with proper escaping if comment is not empty.
func (b *SQLBuilder) Comment(comment string) *SQLBuilder {
	if comment != "" {
		b.parts = append(b.parts, "COMMENT", QuoteLiteral(comment))
	}
	return b
}

// Raw adds raw SQL text without any processing. Empty strings are ignored.
//
// Example:
//
//	builder.Raw("ADD COLUMN")
//	builder.Raw(fmt.Sprintf("LIMIT %d", n))
func (b *SQLBuilder) Raw(sql string) *SQLBuilder {
	if sql != "" {
		b.parts = append(b.parts, sql)
	}
	return b
}

// Rawf adds formatted raw SQL text.
func (b *SQLBuilder) Rawf(format string, args ...any) *SQLBuilder {
	return b.Raw(fmt.Sprintf(format, args...))
}

// String returns the final SQL statement with a trailing semicolon.
func (b *SQLBuilder) String() string {
	return b.StringWithoutSemicolon() + ";"
}

// StringWithoutSemicolon returns the SQL statement without a trailing semicolon.
// Statements handed to database/sql drivers are built this way.
func (b *SQLBuilder) StringWithoutSemicolon() string {
	return strings.Join(b.parts, " ")
}
