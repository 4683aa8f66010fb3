package parser

type (
	// InsertStmt represents an INSERT INTO ... VALUES statement. Within a
	// model definition it declares seed rows for a table.
	//
	// Example:
	//
	//	INSERT INTO roles (id, name) VALUES (1, 'admin'), (2, 'member');
	InsertStmt struct {
		Table   *TableName   `parser:"'INSERT' 'INTO' @@"`
		Columns []string     `parser:"'(' @(Ident | QuotedIdent | BacktickIdent) (',' @(Ident | QuotedIdent | BacktickIdent))* ')'"`
		Rows    []*ValuesRow `parser:"'VALUES' @@ (',' @@)*"`
	}

	// ValuesRow is one parenthesized row of values.
	ValuesRow struct {
		Values []*Expression `parser:"'(' @@ (',' @@)* ')'"`
	}
)
