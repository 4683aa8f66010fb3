package parser_test

import (
	"strings"
	"testing"

	. "github.com/pseudomuto/automigrate/pkg/parser"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	sql := `-- users of the system
CREATE TABLE users (
    id bigint PRIMARY KEY,
    email varchar(255) NOT NULL UNIQUE,
    active boolean DEFAULT TRUE
);
CREATE INDEX ix_users_email ON users (email);`

	result, err := Parse(strings.NewReader(sql))
	require.NoError(t, err)
	require.Len(t, result.Statements, 2)

	table := result.Statements[0].CreateTable
	require.NotNil(t, table)
	require.Equal(t, "users", table.Name.String())
	require.Len(t, table.Columns(), 3)
	require.Empty(t, table.Constraints())

	index := result.Statements[1].CreateIndex
	require.NotNil(t, index)
	require.Equal(t, "ix_users_email", *index.Name)
	require.Equal(t, []string{"email"}, index.ColumnNames())
}

func TestCreateTable(t *testing.T) {
	t.Run("column constraints", func(t *testing.T) {
		sql, err := ParseString(`create table if not exists public."Orders" (
			id bigint not null,
			user_id bigint constraint fk_owner references users (id) on delete cascade on update no action,
			status text default 'new' collate "C",
			total numeric(10, 2) null default -1,
			created_at timestamp(3) with time zone default now() not null,
			note text comment 'free text',
			primary key (id)
		);`)
		require.NoError(t, err)

		stmt := sql.Statements[0].CreateTable
		require.True(t, stmt.IfNotExists)
		require.Equal(t, "public.Orders", stmt.Name.String())

		cols := stmt.Columns()
		require.Len(t, cols, 6)

		require.Equal(t, "id", cols[0].Name)
		require.Equal(t, "bigint", cols[0].DataType.String())
		require.True(t, cols[0].Constraints[0].NotNull)

		ref := cols[1].Constraints[0]
		require.Equal(t, "fk_owner", *ref.Name)
		require.Equal(t, "users", ref.References.Table.String())
		require.Equal(t, []string{"id"}, ref.References.Columns)
		require.Len(t, ref.References.Actions, 2)
		require.Equal(t, "delete", strings.ToLower(ref.References.Actions[0].Event))
		require.Equal(t, []string{"cascade"}, ref.References.Actions[0].Action)
		require.Equal(t, []string{"no", "action"}, ref.References.Actions[1].Action)

		require.Equal(t, "'new'", cols[2].Constraints[0].Default.String())
		require.Equal(t, "C", *cols[2].Constraints[1].Collate)

		require.Equal(t, "numeric(10, 2)", cols[3].DataType.String())
		require.True(t, cols[3].Constraints[0].Null)
		require.Equal(t, "-1", cols[3].Constraints[1].Default.String())

		require.Equal(t, "timestamp(3) with time zone", cols[4].DataType.String())
		require.Equal(t, "now()", cols[4].Constraints[0].Default.String())
		require.True(t, cols[4].Constraints[1].NotNull)

		require.Equal(t, "'free text'", *cols[5].Constraints[0].Comment)

		cons := stmt.Constraints()
		require.Len(t, cons, 1)
		require.Equal(t, []string{"id"}, cons[0].PrimaryKey)
	})

	t.Run("table constraints", func(t *testing.T) {
		sql, err := ParseString(`CREATE TABLE memberships (
			user_id bigint,
			group_id bigint,
			CONSTRAINT pk_memberships PRIMARY KEY (user_id, group_id),
			UNIQUE (group_id, user_id),
			CONSTRAINT fk_group FOREIGN KEY (group_id) REFERENCES groups ON DELETE SET NULL
		)`)
		require.NoError(t, err)

		cons := sql.Statements[0].CreateTable.Constraints()
		require.Len(t, cons, 3)
		require.Equal(t, "pk_memberships", *cons[0].Name)
		require.Equal(t, []string{"user_id", "group_id"}, cons[0].PrimaryKey)
		require.Nil(t, cons[1].Name)
		require.Equal(t, []string{"group_id", "user_id"}, cons[1].Unique)
		require.Equal(t, []string{"group_id"}, cons[2].ForeignKey.Columns)
		require.Equal(t, "groups", cons[2].ForeignKey.Reference.Table.String())
		require.Empty(t, cons[2].ForeignKey.Reference.Columns)
		require.Equal(t, []string{"SET", "NULL"}, cons[2].ForeignKey.Reference.Actions[0].Action)
	})

	t.Run("clickhouse types and options", func(t *testing.T) {
		sql, err := ParseString("CREATE TABLE `events` (" + `
			id UInt64,
			tags Array(LowCardinality(String)),
			kind Enum8('click' = 1, 'view' = 2),
			price Nullable(Decimal(10, 4)),
			at DateTime64(3, 'UTC') DEFAULT now()
		) ENGINE = MergeTree() PARTITION BY toYYYYMM(at) ORDER BY (id, at);`)
		require.NoError(t, err)

		stmt := sql.Statements[0].CreateTable
		require.Equal(t, "events", stmt.Name.String())

		types := make([]string, 0, 5)
		for _, col := range stmt.Columns() {
			types = append(types, col.DataType.String())
		}
		require.Equal(t, []string{
			"UInt64",
			"Array(LowCardinality(String))",
			"Enum8('click' = 1, 'view' = 2)",
			"Nullable(Decimal(10, 4))",
			"DateTime64(3, 'UTC')",
		}, types)

		require.Equal(t, "ENGINE = MergeTree() PARTITION BY toYYYYMM(at) ORDER BY (id, at)", stmt.OptionsString())
	})

	t.Run("postgres types", func(t *testing.T) {
		sql, err := ParseString(`CREATE TABLE t (
			a double precision,
			b character varying(20),
			c text[],
			d timestamp without time zone DEFAULT CURRENT_TIMESTAMP,
			e jsonb DEFAULT '{}'::jsonb
		);`)
		require.NoError(t, err)

		cols := sql.Statements[0].CreateTable.Columns()
		require.Equal(t, "double precision", cols[0].DataType.String())
		require.Equal(t, "character varying(20)", cols[1].DataType.String())
		require.Equal(t, "text[]", cols[2].DataType.String())
		require.Equal(t, "timestamp without time zone", cols[3].DataType.String())
		require.Equal(t, "CURRENT_TIMESTAMP", cols[3].Constraints[0].Default.String())
		require.Equal(t, "'{}'::jsonb", cols[4].Constraints[0].Default.String())
	})
}

func TestCreateIndex(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		unique  bool
		idxName string
		table   string
		columns []string
	}{
		{
			name:    "named",
			sql:     "CREATE INDEX ix_a ON t (a);",
			idxName: "ix_a",
			table:   "t",
			columns: []string{"a"},
		},
		{
			name:    "unique with options",
			sql:     `CREATE UNIQUE INDEX IF NOT EXISTS "uq_b" ON s.t USING btree (b DESC, c);`,
			unique:  true,
			idxName: "uq_b",
			table:   "s.t",
			columns: []string{"b", "c"},
		},
		{
			name:    "unnamed",
			sql:     "CREATE INDEX ON t (a, b)",
			table:   "t",
			columns: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, err := ParseString(tt.sql)
			require.NoError(t, err)

			stmt := sql.Statements[0].CreateIndex
			require.NotNil(t, stmt)
			require.Equal(t, tt.unique, stmt.Unique)
			if tt.idxName == "" {
				require.Nil(t, stmt.Name)
			} else {
				require.Equal(t, tt.idxName, *stmt.Name)
			}
			require.Equal(t, tt.table, stmt.Table.String())
			require.Equal(t, tt.columns, stmt.ColumnNames())
		})
	}
}

func TestInsert(t *testing.T) {
	sql, err := ParseString(`INSERT INTO roles (id, name, parent) VALUES (1, 'admin', NULL), (2, 'it''s', 1);`)
	require.NoError(t, err)

	stmt := sql.Statements[0].Insert
	require.NotNil(t, stmt)
	require.Equal(t, "roles", stmt.Table.String())
	require.Equal(t, []string{"id", "name", "parent"}, stmt.Columns)
	require.Len(t, stmt.Rows, 2)

	values := func(row *ValuesRow) []string {
		out := make([]string, len(row.Values))
		for i, v := range row.Values {
			out[i] = v.String()
		}
		return out
	}

	require.Equal(t, []string{"1", "'admin'", "NULL"}, values(stmt.Rows[0]))
	require.Equal(t, []string{"2", "'it''s'", "1"}, values(stmt.Rows[1]))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"unsupported statement", "DROP TABLE users;"},
		{"missing columns", "CREATE TABLE users;"},
		{"unterminated column list", "CREATE TABLE users (id bigint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.sql)
			require.Error(t, err)
			require.Contains(t, err.Error(), "failed to parse SQL")
		})
	}
}

func TestParseEmpty(t *testing.T) {
	sql, err := ParseString("-- nothing here\n;")
	require.NoError(t, err)
	require.Empty(t, sql.Statements)
}
