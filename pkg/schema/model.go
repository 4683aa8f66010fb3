package schema

import (
	"maps"
	"slices"
)

type (
	// Model is the complete description of a database schema.
	Model struct {
		Tables []*Table `yaml:"tables"`
	}

	// Table describes a single table.
	Table struct {
		Name        string        `yaml:"name"`
		Columns     []*Column     `yaml:"columns"`
		PrimaryKey  []string      `yaml:"primary_key,omitempty,flow"`
		Indexes     []*Index      `yaml:"indexes,omitempty"`
		ForeignKeys []*ForeignKey `yaml:"foreign_keys,omitempty"`
		// Options holds dialect specific clauses following the column list,
		// e.g. ClickHouse's ENGINE and ORDER BY.
		Options string `yaml:"options,omitempty"`
		Seed    []Row  `yaml:"seed,omitempty"`
	}

	// Column describes a table column. Default is the SQL text of the
	// default expression, if any.
	Column struct {
		Name     string  `yaml:"name"`
		Type     string  `yaml:"type"`
		Nullable bool    `yaml:"nullable,omitempty"`
		Default  *string `yaml:"default,omitempty"`
	}

	// Index describes a (possibly unique) index.
	Index struct {
		Name    string   `yaml:"name"`
		Columns []string `yaml:"columns,flow"`
		Unique  bool     `yaml:"unique,omitempty"`
	}

	// ForeignKey describes a foreign key constraint.
	ForeignKey struct {
		Name       string   `yaml:"name"`
		Columns    []string `yaml:"columns,flow"`
		RefTable   string   `yaml:"ref_table"`
		RefColumns []string `yaml:"ref_columns,flow"`
		OnDelete   string   `yaml:"on_delete,omitempty"`
		OnUpdate   string   `yaml:"on_update,omitempty"`
	}

	// Row is a seed row: SQL literal values keyed by column name.
	Row map[string]string
)

// Table returns the table with the given name, or nil.
func (m *Model) Table(name string) *Table {
	if m == nil {
		return nil
	}

	for _, t := range m.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Equal reports whether two finalized models are structurally equivalent.
// A nil model equals an empty one.
func (m *Model) Equal(other *Model) bool {
	var a, b []*Table
	if m != nil {
		a = m.Tables
	}
	if other != nil {
		b = other.Tables
	}

	return slices.EqualFunc(a, b, (*Table).Equal)
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Index returns the index with the given name, or nil.
func (t *Table) Index(name string) *Index {
	for _, ix := range t.Indexes {
		if ix.Name == name {
			return ix
		}
	}
	return nil
}

// ForeignKey returns the foreign key with the given name, or nil.
func (t *Table) ForeignKey(name string) *ForeignKey {
	for _, fk := range t.ForeignKeys {
		if fk.Name == name {
			return fk
		}
	}
	return nil
}

// Equal compares every part of two tables, seed rows included.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}

	return t.Name == other.Name &&
		t.Options == other.Options &&
		slices.EqualFunc(t.Columns, other.Columns, (*Column).Equal) &&
		slices.Equal(t.PrimaryKey, other.PrimaryKey) &&
		slices.EqualFunc(t.Indexes, other.Indexes, (*Index).Equal) &&
		slices.EqualFunc(t.ForeignKeys, other.ForeignKeys, (*ForeignKey).Equal) &&
		sameRows(t.Seed, other.Seed)
}

func (c *Column) Equal(other *Column) bool {
	if c == nil || other == nil {
		return c == other
	}

	return c.Name == other.Name &&
		c.Type == other.Type &&
		c.Nullable == other.Nullable &&
		sameDefault(c.Default, other.Default)
}

func (ix *Index) Equal(other *Index) bool {
	if ix == nil || other == nil {
		return ix == other
	}

	return ix.Name == other.Name &&
		ix.Unique == other.Unique &&
		slices.Equal(ix.Columns, other.Columns)
}

func (fk *ForeignKey) Equal(other *ForeignKey) bool {
	if fk == nil || other == nil {
		return fk == other
	}

	return fk.Name == other.Name &&
		fk.RefTable == other.RefTable &&
		fk.OnDelete == other.OnDelete &&
		fk.OnUpdate == other.OnUpdate &&
		slices.Equal(fk.Columns, other.Columns) &&
		slices.Equal(fk.RefColumns, other.RefColumns)
}

// Equal compares two rows value by value.
func (r Row) Equal(other Row) bool {
	return maps.Equal(r, other)
}

// Key returns the values of the given key columns, in order. Missing values
// are returned as empty strings.
func (r Row) Key(columns []string) []string {
	key := make([]string, len(columns))
	for i, c := range columns {
		key[i] = r[c]
	}
	return key
}

func sameDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// sameRows matches seed rows regardless of order. Each row of b pairs with
// at most one row of a.
func sameRows(a, b []Row) bool {
	if len(a) != len(b) {
		return false
	}

	used := make([]bool, len(b))
next:
	for _, row := range a {
		for i, other := range b {
			if !used[i] && row.Equal(other) {
				used[i] = true
				continue next
			}
		}
		return false
	}

	return true
}
