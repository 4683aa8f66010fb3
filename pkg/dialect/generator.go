package dialect

import (
	"slices"
	"strings"

	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/pseudomuto/automigrate/pkg/utils"
)

// generator holds the SQL shapes shared by every dialect.
type generator struct {
	quote rune
	// nullability controls whether NULL/NOT NULL modifiers are emitted.
	// ClickHouse encodes nullability in the type instead.
	nullability bool
}

func (g generator) q(name string) string {
	return utils.QuoteIdentifier(name, g.quote)
}

func (g generator) builder() *utils.SQLBuilder {
	return utils.NewSQLBuilder(g.quote)
}

// columnDef renders a column definition, e.g. "email" varchar(255) NOT NULL DEFAULT ''.
func (g generator) columnDef(c *schema.Column) string {
	b := g.builder().Name(c.Name).Raw(c.Type)
	if g.nullability && !c.Nullable {
		b.Raw("NOT NULL")
	}
	if c.Default != nil {
		b.Default(*c.Default)
	}
	return b.StringWithoutSemicolon()
}

// foreignKeyClause renders FOREIGN KEY (...) REFERENCES ... with actions.
func (g generator) foreignKeyClause(fk *schema.ForeignKey) string {
	b := g.builder().
		Raw("FOREIGN KEY").
		Columns(fk.Columns).
		Raw("REFERENCES").
		Name(fk.RefTable).
		Columns(fk.RefColumns)

	if fk.OnDelete != "" {
		b.Raw("ON DELETE " + fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		b.Raw("ON UPDATE " + fk.OnUpdate)
	}
	return b.StringWithoutSemicolon()
}

// createTable renders a multi-line CREATE TABLE including the primary key and
// the foreign keys carried by t.
func (g generator) createTable(t *schema.Table) string {
	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	for _, c := range t.Columns {
		lines = append(lines, g.columnDef(c))
	}

	if len(t.PrimaryKey) > 0 {
		lines = append(lines, g.builder().Raw("PRIMARY KEY").Columns(t.PrimaryKey).StringWithoutSemicolon())
	}

	for _, fk := range t.ForeignKeys {
		lines = append(lines, g.builder().Raw("CONSTRAINT").Name(fk.Name).Raw(g.foreignKeyClause(fk)).StringWithoutSemicolon())
	}

	sql := "CREATE TABLE " + g.q(t.Name) + " (\n    " + strings.Join(lines, ",\n    ") + "\n)"
	if t.Options != "" {
		sql += " " + t.Options
	}
	return sql
}

func (g generator) dropTable(table string) string {
	return g.builder().Drop("TABLE").Name(table).StringWithoutSemicolon()
}

func (g generator) addColumn(table string, c *schema.Column) string {
	return g.builder().Alter("TABLE").Name(table).Raw("ADD COLUMN").Raw(g.columnDef(c)).StringWithoutSemicolon()
}

func (g generator) dropColumn(table, column string) string {
	return g.builder().Alter("TABLE").Name(table).Raw("DROP COLUMN").Name(column).StringWithoutSemicolon()
}

func (g generator) createIndex(table string, ix *schema.Index) string {
	kind := "INDEX"
	if ix.Unique {
		kind = "UNIQUE INDEX"
	}
	return g.builder().Create(kind).Name(ix.Name).On(table).Columns(ix.Columns).StringWithoutSemicolon()
}

func (g generator) insertRow(table string, row schema.Row) string {
	cols := sortedKeys(row)
	values := make([]string, len(cols))
	for i, c := range cols {
		values[i] = row[c]
	}

	return g.builder().
		Raw("INSERT INTO").
		Name(table).
		Columns(cols).
		Raw("VALUES (" + strings.Join(values, ", ") + ")").
		StringWithoutSemicolon()
}

// assignments renders "col" = value pairs for the non-key columns of row.
func (g generator) assignments(row schema.Row, keys []string) string {
	var sets []string
	for _, c := range sortedKeys(row) {
		if !slices.Contains(keys, c) {
			sets = append(sets, g.q(c)+" = "+row[c])
		}
	}
	return strings.Join(sets, ", ")
}

// where renders the predicate identifying row by its key columns.
func (g generator) where(row schema.Row, keys []string) string {
	preds := make([]string, len(keys))
	for i, k := range keys {
		if utils.IsNullValue(row[k]) {
			preds[i] = g.q(k) + " IS NULL"
			continue
		}
		preds[i] = g.q(k) + " = " + row[k]
	}
	return "WHERE " + strings.Join(preds, " AND ")
}

func (g generator) updateRow(table string, row schema.Row, keys []string) string {
	return g.builder().Raw("UPDATE").Name(table).Raw("SET " + g.assignments(row, keys)).Raw(g.where(row, keys)).StringWithoutSemicolon()
}

func (g generator) deleteRow(table string, row schema.Row, keys []string) string {
	return g.builder().Raw("DELETE FROM").Name(table).Raw(g.where(row, keys)).StringWithoutSemicolon()
}

func sortedKeys(row schema.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// exclusions renders the bookkeeping table names as a SQL IN list.
func exclusions(names ...string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = utils.QuoteLiteral(n)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
