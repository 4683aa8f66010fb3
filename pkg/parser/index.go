package parser

type (
	// CreateIndexStmt represents a CREATE [UNIQUE] INDEX statement.
	//
	// Examples:
	//
	//	CREATE INDEX ix_users_email ON users (email);
	//	CREATE UNIQUE INDEX IF NOT EXISTS uq_orders_ref ON orders USING btree (ref DESC);
	CreateIndexStmt struct {
		Unique      bool           `parser:"'CREATE' @'UNIQUE'? 'INDEX'"`
		IfNotExists bool           `parser:"@('IF' 'NOT' 'EXISTS')?"`
		Name        *string        `parser:"((?! 'ON') @(Ident | QuotedIdent | BacktickIdent))?"`
		Table       *TableName     `parser:"'ON' @@"`
		Using       *string        `parser:"('USING' @Ident)?"`
		Columns     []*IndexColumn `parser:"'(' @@ (',' @@)* ')'"`
	}

	// IndexColumn is a single indexed column. Sort direction is accepted but
	// not retained.
	IndexColumn struct {
		Name string `parser:"@(Ident | QuotedIdent | BacktickIdent) ('ASC' | 'DESC')?"`
	}
)

// ColumnNames returns the indexed column names in order.
func (s *CreateIndexStmt) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
