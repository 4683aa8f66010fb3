// Package utils provides small SQL text helpers shared by the dialects, the
// parser and the schema model.
//
// # Identifiers (identifier.go)
//
// Every dialect quotes identifiers with a different character: Postgres and
// SQLite use double quotes, ClickHouse uses backticks. QuoteIdentifier takes
// the quote character so the same code path serves all of them:
//
//	utils.QuoteIdentifier("users", '"')         // "users"
//	utils.QuoteIdentifier("public.users", '"')  // "public"."users"
//	utils.QuoteIdentifier("events", '`')        // `events`
//
// # Literals (literal.go)
//
// Literal helpers classify and normalize the SQL literal text stored in
// column defaults and seed rows so that equivalent spellings compare equal.
//
// # Statement building (sqlbuilder.go)
//
// SQLBuilder is a fluent builder used by the dialect generators:
//
//	sql := utils.NewSQLBuilder('"').
//		Drop("TABLE").
//		IfExists().
//		Name("users").
//		StringWithoutSemicolon()
//	// DROP TABLE IF EXISTS "users"
package utils
