package schema_test

import (
	"testing"

	"github.com/pseudomuto/automigrate/pkg/parser"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/stretchr/testify/require"
)

func TestFromSQL(t *testing.T) {
	m := mustModel(t, `
		CREATE TABLE users (
			id bigint PRIMARY KEY,
			email varchar(255) NOT NULL UNIQUE,
			created_at timestamp DEFAULT now()
		);
		CREATE TABLE orders (
			id bigint,
			user_id int8 NOT NULL REFERENCES users ON DELETE CASCADE,
			total numeric(10,2),
			PRIMARY KEY (id)
		);
		CREATE INDEX ON orders (user_id);
		INSERT INTO users (id, email) VALUES (1, 'admin@example.com');
	`)

	require.Len(t, m.Tables, 2)
	require.Equal(t, "orders", m.Tables[0].Name)
	require.Equal(t, "users", m.Tables[1].Name)

	orders := m.Table("orders")
	require.Equal(t, []string{"id"}, orders.PrimaryKey)
	require.False(t, orders.Column("id").Nullable)
	require.Equal(t, "bigint", orders.Column("user_id").Type)
	require.False(t, orders.Column("user_id").Nullable)
	require.Equal(t, "numeric(10, 2)", orders.Column("total").Type)
	require.True(t, orders.Column("total").Nullable)

	require.Len(t, orders.Indexes, 1)
	require.Equal(t, "ix_orders_user_id", orders.Indexes[0].Name)
	require.False(t, orders.Indexes[0].Unique)

	require.Len(t, orders.ForeignKeys, 1)
	fk := orders.ForeignKeys[0]
	require.Equal(t, "fk_orders_users_user_id", fk.Name)
	require.Equal(t, "users", fk.RefTable)
	require.Equal(t, []string{"id"}, fk.RefColumns)
	require.Equal(t, "CASCADE", fk.OnDelete)
	require.Empty(t, fk.OnUpdate)

	users := m.Table("users")
	require.NotNil(t, users.Index("uq_users_email"))
	require.True(t, users.Index("uq_users_email").Unique)
	require.Equal(t, "now()", *users.Column("created_at").Default)
	require.Equal(t, []schema.Row{{"id": "1", "email": "'admin@example.com'"}}, users.Seed)
}

func TestFromSQLErrors(t *testing.T) {
	tests := []struct {
		name string
		ddl  string
		err  string
	}{
		{
			name: "index on unknown table",
			ddl:  "CREATE INDEX ix ON missing (a);",
			err:  `index on unknown table "missing"`,
		},
		{
			name: "seed for unknown table",
			ddl:  "INSERT INTO missing (a) VALUES (1);",
			err:  `seed rows for unknown table "missing"`,
		},
		{
			name: "seed value count mismatch",
			ddl:  "CREATE TABLE t (id int PRIMARY KEY); INSERT INTO t (id) VALUES (1, 2);",
			err:  "has 2 values for 1 columns",
		},
		{
			name: "unknown foreign table",
			ddl:  "CREATE TABLE t (id int, other int REFERENCES missing (id));",
			err:  `references unknown table "missing"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, err := parser.ParseString(tt.ddl)
			require.NoError(t, err)

			_, err = schema.FromSQL(sql)
			require.ErrorContains(t, err, tt.err)
		})
	}
}

func TestFinalize(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		m := mustModel(t, `
			CREATE TABLE a (id int PRIMARY KEY, b_id int REFERENCES b);
			CREATE TABLE b (id int PRIMARY KEY, code char(3) UNIQUE);
		`)

		before, err := schema.Render(m, "x")
		require.NoError(t, err)

		require.NoError(t, m.Finalize())

		after, err := schema.Render(m, "x")
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("collects every problem", func(t *testing.T) {
		m := &schema.Model{Tables: []*schema.Table{
			{
				Name:       "t",
				Columns:    []*schema.Column{{Name: "id", Type: "int"}, {Name: "id", Type: "int"}},
				PrimaryKey: []string{"missing"},
				Indexes:    []*schema.Index{{Columns: []string{"nope"}}},
			},
			{Name: "t", Columns: []*schema.Column{{Name: "x"}}},
		}}

		err := m.Finalize()

		var verr *schema.ValidationError
		require.ErrorAs(t, err, &verr)
		require.ElementsMatch(t, []string{
			`duplicate table "t"`,
			`duplicate column "id" in table "t"`,
			`primary key column "missing" does not exist in table "t"`,
			`index "ix_t_nope" references unknown column "nope" in table "t"`,
			`column "x" in table "t" has no type`,
		}, verr.Problems)
	})

	t.Run("seed rows need primary keys", func(t *testing.T) {
		m := &schema.Model{Tables: []*schema.Table{
			{
				Name:    "t",
				Columns: []*schema.Column{{Name: "a", Type: "int"}},
				Seed:    []schema.Row{{"a": "1"}},
			},
		}}

		require.ErrorContains(t, m.Finalize(), `table "t" has seed rows but no primary key`)
	})

	t.Run("normalizes literals and actions", func(t *testing.T) {
		m := mustModel(t, `
			CREATE TABLE p (id int PRIMARY KEY);
			CREATE TABLE c (
				id int PRIMARY KEY,
				flag boolean DEFAULT TRUE,
				p_id int REFERENCES p (id) ON UPDATE NO ACTION ON DELETE set null
			);
		`)

		c := m.Table("c")
		require.Equal(t, "true", *c.Column("flag").Default)
		require.Equal(t, "SET NULL", c.ForeignKeys[0].OnDelete)
		require.Empty(t, c.ForeignKeys[0].OnUpdate)
	})
}

func TestModelEqual(t *testing.T) {
	ddl := `CREATE TABLE t (id INT4 PRIMARY KEY, name character varying(20));`

	a := mustModel(t, ddl)
	b := mustModel(t, `create table t (id integer not null, name varchar(20), primary key (id));`)
	require.True(t, a.Equal(b))

	c := mustModel(t, `CREATE TABLE t (id int PRIMARY KEY, name varchar(30));`)
	require.False(t, a.Equal(c))

	var nilModel *schema.Model
	require.True(t, nilModel.Equal(&schema.Model{}))
	require.False(t, nilModel.Equal(a))
}

func TestTableEqualSeed(t *testing.T) {
	table := func(rows ...schema.Row) *schema.Table {
		return &schema.Table{Name: "roles", Seed: rows}
	}
	admin := schema.Row{"id": "1", "name": "'admin'"}
	guest := schema.Row{"id": "2", "name": "'guest'"}

	tests := []struct {
		name string
		a, b *schema.Table
		want bool
	}{
		{name: "same order", a: table(admin, guest), b: table(admin, guest), want: true},
		{name: "any order", a: table(admin, guest), b: table(guest, admin), want: true},
		{name: "duplicates pair once", a: table(admin, admin), b: table(admin, guest)},
		{name: "different length", a: table(admin), b: table(admin, guest)},
		{name: "nil table", a: table(admin), b: nil},
		{name: "both nil", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}
