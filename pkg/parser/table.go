package parser

type (
	// CreateTableStmt represents a CREATE TABLE statement.
	//
	// Examples:
	//
	//	CREATE TABLE users (id bigint PRIMARY KEY, email text NOT NULL);
	//	CREATE TABLE IF NOT EXISTS public.orders (
	//		id bigint,
	//		user_id bigint REFERENCES users (id) ON DELETE CASCADE,
	//		PRIMARY KEY (id)
	//	);
	//	CREATE TABLE events (id UInt64, at DateTime) ENGINE = MergeTree() ORDER BY id;
	CreateTableStmt struct {
		IfNotExists bool            `parser:"'CREATE' 'TABLE' @('IF' 'NOT' 'EXISTS')?"`
		Name        *TableName      `parser:"@@"`
		Elements    []*TableElement `parser:"'(' @@ (',' @@)* ')'"`
		Options     []string        `parser:"@(~';')*"`
	}

	// TableElement is either a column definition or a table constraint.
	TableElement struct {
		Constraint *TableConstraint `parser:"@@"`
		Column     *Column          `parser:"| @@"`
	}

	// Column represents a column definition with its inline constraints.
	Column struct {
		Name        string              `parser:"@(Ident | QuotedIdent | BacktickIdent)"`
		DataType    *DataType           `parser:"@@"`
		Constraints []*ColumnConstraint `parser:"@@*"`
	}

	// ColumnConstraint is a single inline column constraint.
	ColumnConstraint struct {
		Name       *string     `parser:"('CONSTRAINT' @(Ident | QuotedIdent | BacktickIdent))?"`
		NotNull    bool        `parser:"( @('NOT' 'NULL')"`
		Null       bool        `parser:"| @'NULL'"`
		PrimaryKey bool        `parser:"| @('PRIMARY' 'KEY') ('ASC' | 'DESC')?"`
		Unique     bool        `parser:"| @'UNIQUE'"`
		Default    *Expression `parser:"| 'DEFAULT' @@"`
		References *Reference  `parser:"| @@"`
		Comment    *string     `parser:"| 'COMMENT' @String"`
		Collate    *string     `parser:"| 'COLLATE' @(Ident | QuotedIdent) )"`
	}

	// TableConstraint is a constraint declared at table level.
	TableConstraint struct {
		Name       *string               `parser:"('CONSTRAINT' @(Ident | QuotedIdent | BacktickIdent))?"`
		PrimaryKey []string              `parser:"( 'PRIMARY' 'KEY' '(' @(Ident | QuotedIdent | BacktickIdent) (',' @(Ident | QuotedIdent | BacktickIdent))* ')'"`
		Unique     []string              `parser:"| 'UNIQUE' ('KEY' | 'INDEX')? '(' @(Ident | QuotedIdent | BacktickIdent) (',' @(Ident | QuotedIdent | BacktickIdent))* ')'"`
		ForeignKey *ForeignKeyConstraint `parser:"| @@ )"`
	}

	// ForeignKeyConstraint is a table level FOREIGN KEY clause.
	ForeignKeyConstraint struct {
		Columns   []string   `parser:"'FOREIGN' 'KEY' '(' @(Ident | QuotedIdent | BacktickIdent) (',' @(Ident | QuotedIdent | BacktickIdent))* ')'"`
		Reference *Reference `parser:"@@"`
	}

	// Reference is a REFERENCES clause. Columns may be omitted, in which case
	// the referenced table's primary key is implied.
	Reference struct {
		Table   *TableName   `parser:"'REFERENCES' @@"`
		Columns []string     `parser:"('(' @(Ident | QuotedIdent | BacktickIdent) (',' @(Ident | QuotedIdent | BacktickIdent))* ')')?"`
		Actions []*RefAction `parser:"@@*"`
	}

	// RefAction is an ON DELETE or ON UPDATE referential action.
	RefAction struct {
		Event  string   `parser:"'ON' @('DELETE' | 'UPDATE')"`
		Action []string `parser:"@('CASCADE' | 'RESTRICT' | 'SET' ('NULL' | 'DEFAULT') | 'NO' 'ACTION')"`
	}
)

// Columns returns the column definitions in declaration order.
func (s *CreateTableStmt) Columns() []*Column {
	cols := make([]*Column, 0, len(s.Elements))
	for _, el := range s.Elements {
		if el.Column != nil {
			cols = append(cols, el.Column)
		}
	}
	return cols
}

// Constraints returns the table level constraints in declaration order.
func (s *CreateTableStmt) Constraints() []*TableConstraint {
	var cons []*TableConstraint
	for _, el := range s.Elements {
		if el.Constraint != nil {
			cons = append(cons, el.Constraint)
		}
	}
	return cons
}

// OptionsString rebuilds the trailing table options as SQL text.
func (s *CreateTableStmt) OptionsString() string {
	return joinTokens(s.Options)
}
