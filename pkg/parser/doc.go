// Package parser provides a participle-based parser for the DDL subset used to
// declare schema models and to split hand-authored migration files.
//
// This package implements a parser using github.com/alecthomas/participle/v2
// that understands the portable parts of Postgres, SQLite and ClickHouse DDL:
//
//   - CREATE TABLE with column definitions, column constraints (NOT NULL,
//     NULL, PRIMARY KEY, UNIQUE, DEFAULT, REFERENCES, COMMENT, COLLATE) and
//     table constraints (PRIMARY KEY, UNIQUE, FOREIGN KEY). Anything after the
//     closing parenthesis is kept verbatim as table options, which is where
//     ClickHouse engine clauses live.
//   - CREATE [UNIQUE] INDEX ... ON table (columns)
//   - INSERT INTO table (columns) VALUES (...), (...) for seed rows
//
// Keywords are matched case-insensitively. Quoted identifiers ("name" and
// `name`) are unquoted while lexing.
//
// Basic usage:
//
//	sql, err := parser.ParseString(`
//		CREATE TABLE users (
//			id bigint PRIMARY KEY,
//			email varchar(255) NOT NULL UNIQUE
//		);
//		CREATE INDEX ix_users_email ON users (email);
//	`)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, stmt := range sql.Statements {
//		if stmt.CreateTable != nil {
//			fmt.Println(stmt.CreateTable.Name)
//		}
//	}
//
// SplitStatements uses the same lexer to cut arbitrary SQL (including
// statements the grammar does not model) into individual statements without
// being confused by semicolons inside strings or comments.
package parser
