package diff

import (
	"slices"
	"strings"

	"github.com/pseudomuto/automigrate/pkg/schema"
)

type plan struct {
	prior, desired *schema.Model

	// recreated holds tables present in both models whose primary key or
	// options changed, which can only be applied by dropping the table.
	recreated map[string]bool
	// created holds every table issued through CreateTable.
	created map[string]bool
	// deferred holds foreign keys of created tables that could not be
	// declared inline.
	deferred []Operation

	ops []Operation
}

// Diff returns the operations that turn prior into desired. A nil prior is
// treated as an empty schema. Both models must be finalized. The result is
// deterministic and empty when the models are Equal.
func Diff(prior, desired *schema.Model) []Operation {
	if prior == nil {
		prior = &schema.Model{}
	}
	if desired == nil {
		desired = &schema.Model{}
	}

	p := &plan{
		prior:     prior,
		desired:   desired,
		recreated: make(map[string]bool),
		created:   make(map[string]bool),
	}

	for _, t := range desired.Tables {
		if old := prior.Table(t.Name); old != nil && needsRecreate(old, t) {
			p.recreated[t.Name] = true
		}
	}

	p.dropForeignKeys()
	p.dropIndexes()
	p.createTables()
	p.addOrAlterColumns()
	p.addIndexes()
	p.addForeignKeys()
	p.dropColumns()
	p.dropTables()
	p.seedData()

	return p.ops
}

func needsRecreate(old, updated *schema.Table) bool {
	return !slices.Equal(old.PrimaryKey, updated.PrimaryKey) || old.Options != updated.Options
}

// kept returns the prior and desired versions of tables that exist in both
// models and are altered in place, by name.
func (p *plan) kept(fn func(old, updated *schema.Table)) {
	for _, t := range p.desired.Tables {
		if old := p.prior.Table(t.Name); old != nil && !p.recreated[t.Name] {
			fn(old, t)
		}
	}
}

func (p *plan) emit(op Operation) {
	p.ops = append(p.ops, op)
}

func (p *plan) dropForeignKeys() {
	for _, old := range p.prior.Tables {
		updated := p.desired.Table(old.Name)
		for _, fk := range old.ForeignKeys {
			// Dropping or recreating a table takes its own constraints along,
			// but constraints pointing at a recreated table must go first.
			dropped := updated == nil || p.recreated[old.Name]
			if dropped || p.recreated[fk.RefTable] || !fk.Equal(updated.ForeignKey(fk.Name)) {
				p.emit(Operation{Kind: DropForeignKey, Table: old.Name, ForeignKey: fk, TableDropped: dropped})
			}
		}
	}
}

func (p *plan) dropIndexes() {
	p.kept(func(old, updated *schema.Table) {
		for _, ix := range old.Indexes {
			if !ix.Equal(updated.Index(ix.Name)) {
				p.emit(Operation{Kind: DropIndex, Table: old.Name, Index: ix})
			}
		}
	})
}

func (p *plan) createTables() {
	pending := make(map[string]*schema.Table)
	for _, t := range p.desired.Tables {
		if p.prior.Table(t.Name) == nil || p.recreated[t.Name] {
			pending[t.Name] = t
		}
	}

	var (
		order   []*schema.Table
		visited = make(map[string]bool)
	)

	var visit func(t *schema.Table)
	visit = func(t *schema.Table) {
		if visited[t.Name] {
			return
		}
		visited[t.Name] = true

		for _, fk := range t.ForeignKeys {
			if dep, ok := pending[fk.RefTable]; ok {
				visit(dep)
			}
		}
		order = append(order, t)
	}

	// desired.Tables is sorted by name, which keeps the order deterministic.
	for _, t := range p.desired.Tables {
		if pending[t.Name] != nil {
			visit(t)
		}
	}

	for _, t := range order {
		if p.recreated[t.Name] {
			p.emit(Operation{Kind: DropTable, Table: t.Name, Destructive: true})
		}

		create := &schema.Table{
			Name:       t.Name,
			Columns:    t.Columns,
			PrimaryKey: t.PrimaryKey,
			Options:    t.Options,
		}

		for _, fk := range t.ForeignKeys {
			_, pendingTarget := pending[fk.RefTable]
			if !pendingTarget || fk.RefTable == t.Name || p.created[fk.RefTable] {
				create.ForeignKeys = append(create.ForeignKeys, fk)
				continue
			}
			p.deferred = append(p.deferred, Operation{Kind: AddForeignKey, Table: t.Name, ForeignKey: fk})
		}

		p.created[t.Name] = true
		p.emit(Operation{Kind: CreateTable, Table: t.Name, Create: create})
	}
}

func (p *plan) addOrAlterColumns() {
	p.kept(func(old, updated *schema.Table) {
		for _, col := range updated.Columns {
			prev := old.Column(col.Name)
			switch {
			case prev == nil:
				p.emit(Operation{
					Kind:        AddColumn,
					Table:       updated.Name,
					Column:      col,
					Destructive: !col.Nullable && col.Default == nil,
				})
			case !prev.Equal(col):
				p.emit(Operation{
					Kind:        AlterColumn,
					Table:       updated.Name,
					Column:      col,
					Previous:    prev,
					Destructive: isNarrowing(prev, col),
				})
			}
		}
	})
}

func (p *plan) addIndexes() {
	for _, t := range p.desired.Tables {
		old := p.prior.Table(t.Name)
		for _, ix := range t.Indexes {
			if p.created[t.Name] || !ix.Equal(old.Index(ix.Name)) {
				p.emit(Operation{Kind: AddIndex, Table: t.Name, Index: ix})
			}
		}
	}
}

func (p *plan) addForeignKeys() {
	p.kept(func(old, updated *schema.Table) {
		for _, fk := range updated.ForeignKeys {
			if p.recreated[fk.RefTable] || !fk.Equal(old.ForeignKey(fk.Name)) {
				p.emit(Operation{Kind: AddForeignKey, Table: updated.Name, ForeignKey: fk})
			}
		}
	})

	p.ops = append(p.ops, p.deferred...)
}

func (p *plan) dropColumns() {
	p.kept(func(old, updated *schema.Table) {
		for _, col := range old.Columns {
			if updated.Column(col.Name) == nil {
				p.emit(Operation{Kind: DropColumn, Table: old.Name, Column: col, Destructive: true})
			}
		}
	})
}

func (p *plan) dropTables() {
	for _, old := range p.prior.Tables {
		if p.desired.Table(old.Name) == nil {
			p.emit(Operation{Kind: DropTable, Table: old.Name, Destructive: true})
		}
	}
}

func (p *plan) seedData() {
	for _, t := range p.desired.Tables {
		var previous []schema.Row
		if old := p.prior.Table(t.Name); old != nil && !p.created[t.Name] {
			previous = old.Seed
		}

		byKey := make(map[string]schema.Row, len(previous))
		for _, row := range previous {
			byKey[rowKey(row, t.PrimaryKey)] = row
		}

		seen := make(map[string]bool, len(t.Seed))
		for _, row := range t.Seed {
			key := rowKey(row, t.PrimaryKey)
			seen[key] = true

			prev, ok := byKey[key]
			switch {
			case !ok:
				p.emit(Operation{Kind: InsertData, Table: t.Name, Row: row, KeyColumns: t.PrimaryKey})
			case !prev.Equal(row):
				p.emit(Operation{Kind: UpdateData, Table: t.Name, Row: row, KeyColumns: t.PrimaryKey})
			}
		}

		for _, row := range previous {
			if !seen[rowKey(row, t.PrimaryKey)] {
				p.emit(Operation{Kind: DeleteData, Table: t.Name, Row: row, KeyColumns: t.PrimaryKey, Destructive: true})
			}
		}
	}
}

func rowKey(row schema.Row, columns []string) string {
	return strings.Join(row.Key(columns), "\x00")
}
