package schema

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/parser"
	"github.com/pseudomuto/automigrate/pkg/utils"
)

// FromSQL builds a finalized model from parsed DDL. CREATE TABLE statements
// declare tables, CREATE INDEX statements add indexes to previously or later
// declared tables and INSERT statements declare seed rows.
//
// Example:
//
//	sql, err := parser.ParseString(ddl)
//	if err != nil {
//		return err
//	}
//
//	model, err := schema.FromSQL(sql)
func FromSQL(sql *parser.SQL) (*Model, error) {
	m := &Model{}
	if err := m.apply(sql); err != nil {
		return nil, err
	}

	if err := m.Finalize(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) apply(sql *parser.SQL) error {
	var (
		indexes []*parser.CreateIndexStmt
		inserts []*parser.InsertStmt
	)

	for _, stmt := range sql.Statements {
		switch {
		case stmt.CreateTable != nil:
			m.Tables = append(m.Tables, tableFromStmt(stmt.CreateTable))
		case stmt.CreateIndex != nil:
			indexes = append(indexes, stmt.CreateIndex)
		case stmt.Insert != nil:
			inserts = append(inserts, stmt.Insert)
		}
	}

	for _, stmt := range indexes {
		t := m.Table(stmt.Table.String())
		if t == nil {
			return errors.Errorf("index on unknown table %q", stmt.Table.String())
		}

		ix := &Index{Columns: stmt.ColumnNames(), Unique: stmt.Unique}
		if stmt.Name != nil {
			ix.Name = *stmt.Name
		}
		t.Indexes = append(t.Indexes, ix)
	}

	for _, stmt := range inserts {
		t := m.Table(stmt.Table.String())
		if t == nil {
			return errors.Errorf("seed rows for unknown table %q", stmt.Table.String())
		}

		for i, values := range stmt.Rows {
			if len(values.Values) != len(stmt.Columns) {
				return errors.Errorf("seed row %d of table %q has %d values for %d columns",
					i, t.Name, len(values.Values), len(stmt.Columns))
			}

			row := make(Row, len(stmt.Columns))
			for j, col := range stmt.Columns {
				row[col] = values.Values[j].String()
			}
			t.Seed = append(t.Seed, row)
		}
	}

	return nil
}

func tableFromStmt(stmt *parser.CreateTableStmt) *Table {
	t := &Table{
		Name:    stmt.Name.String(),
		Options: stmt.OptionsString(),
	}

	for _, col := range stmt.Columns() {
		c := &Column{
			Name:     col.Name,
			Type:     col.DataType.String(),
			Nullable: true,
		}

		for _, con := range col.Constraints {
			var name string
			if con.Name != nil {
				name = *con.Name
			}

			switch {
			case con.NotNull:
				c.Nullable = false
			case con.Null:
				c.Nullable = true
			case con.PrimaryKey:
				t.PrimaryKey = []string{col.Name}
			case con.Unique:
				t.Indexes = append(t.Indexes, &Index{Name: name, Columns: []string{col.Name}, Unique: true})
			case con.Default != nil:
				c.Default = utils.Ptr(con.Default.String())
			case con.References != nil:
				t.ForeignKeys = append(t.ForeignKeys, foreignKey(name, []string{col.Name}, con.References))
			}
		}

		t.Columns = append(t.Columns, c)
	}

	for _, con := range stmt.Constraints() {
		var name string
		if con.Name != nil {
			name = *con.Name
		}

		switch {
		case len(con.PrimaryKey) > 0:
			t.PrimaryKey = con.PrimaryKey
		case len(con.Unique) > 0:
			t.Indexes = append(t.Indexes, &Index{Name: name, Columns: con.Unique, Unique: true})
		case con.ForeignKey != nil:
			t.ForeignKeys = append(t.ForeignKeys, foreignKey(name, con.ForeignKey.Columns, con.ForeignKey.Reference))
		}
	}

	return t
}

func foreignKey(name string, columns []string, ref *parser.Reference) *ForeignKey {
	fk := &ForeignKey{
		Name:       name,
		Columns:    columns,
		RefTable:   ref.Table.String(),
		RefColumns: ref.Columns,
	}

	for _, action := range ref.Actions {
		a := strings.Join(action.Action, " ")
		if strings.EqualFold(action.Event, "DELETE") {
			fk.OnDelete = a
		} else {
			fk.OnUpdate = a
		}
	}

	return fk
}
