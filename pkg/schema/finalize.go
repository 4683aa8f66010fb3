package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pseudomuto/automigrate/pkg/utils"
)

// ValidationError collects every problem found while finalizing a model.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid schema model: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Finalize brings the model into canonical form and validates it. It is
// applied to every model, whether built from DDL or decoded from a snapshot,
// so that representational differences never surface as schema changes.
//
// Finalize:
//   - canonicalizes column types (see CanonicalType) and literal spellings of
//     defaults and seed values
//   - marks primary key columns NOT NULL
//   - names unnamed indexes ix_<table>_<cols>, unnamed unique indexes
//     uq_<table>_<cols> and unnamed foreign keys fk_<table>_<ref>_<cols>
//   - defaults foreign key reference columns to the referenced primary key
//   - normalizes referential actions (NO ACTION is the implicit default)
//   - sorts tables, indexes and foreign keys by name
//   - validates names and references, returning a *ValidationError
//
// Finalize is idempotent.
func (m *Model) Finalize() error {
	verr := &ValidationError{}

	seen := make(map[string]bool, len(m.Tables))
	for _, t := range m.Tables {
		if seen[t.Name] {
			verr.addf("duplicate table %q", t.Name)
		}
		seen[t.Name] = true

		t.finalize(verr)
	}

	// References need every table finalized first.
	for _, t := range m.Tables {
		m.finalizeForeignKeys(t, verr)
		t.validateSeed(verr)
	}

	slices.SortStableFunc(m.Tables, func(a, b *Table) int { return strings.Compare(a.Name, b.Name) })

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func (t *Table) finalize(verr *ValidationError) {
	t.Options = strings.TrimSpace(t.Options)

	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			verr.addf("table %q has a column without a name", t.Name)
		}
		if cols[c.Name] {
			verr.addf("duplicate column %q in table %q", c.Name, t.Name)
		}
		cols[c.Name] = true

		c.Type = CanonicalType(c.Type)
		if c.Type == "" {
			verr.addf("column %q in table %q has no type", c.Name, t.Name)
		}

		if c.Default != nil {
			c.Default = utils.Ptr(utils.NormalizeLiteral(*c.Default))
		}
	}

	for _, name := range t.PrimaryKey {
		c := t.Column(name)
		if c == nil {
			verr.addf("primary key column %q does not exist in table %q", name, t.Name)
			continue
		}
		c.Nullable = false
	}

	names := make(map[string]bool, len(t.Indexes))
	for _, ix := range t.Indexes {
		if ix.Name == "" {
			prefix := "ix"
			if ix.Unique {
				prefix = "uq"
			}
			ix.Name = constraintName(prefix, t.Name, ix.Columns)
		}

		if names[ix.Name] {
			verr.addf("duplicate index %q in table %q", ix.Name, t.Name)
		}
		names[ix.Name] = true

		if len(ix.Columns) == 0 {
			verr.addf("index %q in table %q has no columns", ix.Name, t.Name)
		}
		for _, col := range ix.Columns {
			if !cols[col] {
				verr.addf("index %q references unknown column %q in table %q", ix.Name, col, t.Name)
			}
		}
	}

	slices.SortStableFunc(t.Indexes, func(a, b *Index) int { return strings.Compare(a.Name, b.Name) })
}

func (m *Model) finalizeForeignKeys(t *Table, verr *ValidationError) {
	names := make(map[string]bool, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		if fk.Name == "" {
			fk.Name = constraintName("fk", t.Name+"_"+fk.RefTable, fk.Columns)
		}

		if names[fk.Name] {
			verr.addf("duplicate foreign key %q in table %q", fk.Name, t.Name)
		}
		names[fk.Name] = true

		fk.OnDelete = normalizeAction(fk.OnDelete)
		fk.OnUpdate = normalizeAction(fk.OnUpdate)

		for _, col := range fk.Columns {
			if t.Column(col) == nil {
				verr.addf("foreign key %q references unknown column %q in table %q", fk.Name, col, t.Name)
			}
		}

		ref := m.Table(fk.RefTable)
		if ref == nil {
			verr.addf("foreign key %q references unknown table %q", fk.Name, fk.RefTable)
			continue
		}

		if len(fk.RefColumns) == 0 {
			fk.RefColumns = slices.Clone(ref.PrimaryKey)
		}

		if len(fk.RefColumns) != len(fk.Columns) {
			verr.addf("foreign key %q has %d columns but references %d", fk.Name, len(fk.Columns), len(fk.RefColumns))
		}

		for _, col := range fk.RefColumns {
			if ref.Column(col) == nil {
				verr.addf("foreign key %q references unknown column %q in table %q", fk.Name, col, ref.Name)
			}
		}
	}

	slices.SortStableFunc(t.ForeignKeys, func(a, b *ForeignKey) int { return strings.Compare(a.Name, b.Name) })
}

func (t *Table) validateSeed(verr *ValidationError) {
	if len(t.Seed) == 0 {
		return
	}

	if len(t.PrimaryKey) == 0 {
		verr.addf("table %q has seed rows but no primary key", t.Name)
		return
	}

	keys := make(map[string]bool, len(t.Seed))
	for i, row := range t.Seed {
		for col, val := range row {
			if t.Column(col) == nil {
				verr.addf("seed row %d of table %q sets unknown column %q", i, t.Name, col)
			}
			row[col] = utils.NormalizeLiteral(val)
		}

		key := row.Key(t.PrimaryKey)
		for j, v := range key {
			if v == "" {
				verr.addf("seed row %d of table %q is missing primary key column %q", i, t.Name, t.PrimaryKey[j])
			}
		}

		k := strings.Join(key, "\x00")
		if keys[k] {
			verr.addf("duplicate seed row key (%s) in table %q", strings.Join(key, ", "), t.Name)
		}
		keys[k] = true
	}
}

func constraintName(prefix, table string, columns []string) string {
	return strings.Join(append([]string{prefix, table}, columns...), "_")
}

func normalizeAction(action string) string {
	a := strings.ToUpper(strings.Join(strings.Fields(action), " "))
	if a == "NO ACTION" {
		return ""
	}
	return a
}
