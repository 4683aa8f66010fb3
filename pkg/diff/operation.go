package diff

import (
	"fmt"
	"strings"

	"github.com/pseudomuto/automigrate/pkg/schema"
)

const (
	// CreateTable creates Operation.Create. Foreign keys that can not be
	// declared inline are emitted later as AddForeignKey operations.
	CreateTable Kind = "CreateTable"
	// DropTable drops Operation.Table.
	DropTable Kind = "DropTable"
	// AddColumn adds Operation.Column to Operation.Table.
	AddColumn Kind = "AddColumn"
	// DropColumn drops Operation.Column from Operation.Table.
	DropColumn Kind = "DropColumn"
	// AlterColumn changes Operation.Previous into Operation.Column.
	AlterColumn Kind = "AlterColumn"
	// AddIndex creates Operation.Index on Operation.Table.
	AddIndex Kind = "AddIndex"
	// DropIndex drops Operation.Index from Operation.Table.
	DropIndex Kind = "DropIndex"
	// AddForeignKey adds Operation.ForeignKey to Operation.Table.
	AddForeignKey Kind = "AddForeignKey"
	// DropForeignKey drops Operation.ForeignKey from Operation.Table.
	DropForeignKey Kind = "DropForeignKey"
	// RawStatement executes Operation.SQL verbatim.
	RawStatement Kind = "RawStatement"
	// InsertData inserts Operation.Row into Operation.Table.
	InsertData Kind = "InsertData"
	// UpdateData updates the row identified by Operation.KeyColumns.
	UpdateData Kind = "UpdateData"
	// DeleteData deletes the row identified by Operation.KeyColumns.
	DeleteData Kind = "DeleteData"
)

type (
	// Kind identifies the type of an Operation.
	Kind string

	// Operation is a single schema (or seed data) change.
	Operation struct {
		Kind        Kind
		Table       string
		Create      *schema.Table
		Column      *schema.Column
		Previous    *schema.Column
		Index       *schema.Index
		ForeignKey  *schema.ForeignKey
		Row         schema.Row
		KeyColumns  []string
		SQL         string
		Destructive bool
		// TableDropped is set on DropForeignKey operations whose owning table
		// is dropped later in the same plan.
		TableDropped bool
	}
)

// IsData reports whether operations of this kind only seed or update row
// data rather than change structure.
func (k Kind) IsData() bool {
	return k == InsertData || k == UpdateData || k == DeleteData
}

// String returns a short human readable description of the operation.
//
// Examples:
//   - CreateTable users
//   - AlterColumn users.email varchar(100) -> varchar(255)
//   - DropColumn users.legacy [destructive]
func (o Operation) String() string {
	var sb strings.Builder
	sb.WriteString(string(o.Kind))

	switch o.Kind {
	case RawStatement:
		sb.WriteString(" " + o.SQL)
	case AddColumn, DropColumn:
		fmt.Fprintf(&sb, " %s.%s", o.Table, o.Column.Name)
	case AlterColumn:
		fmt.Fprintf(&sb, " %s.%s %s -> %s", o.Table, o.Column.Name, o.Previous.Type, o.Column.Type)
	case AddIndex, DropIndex:
		fmt.Fprintf(&sb, " %s.%s", o.Table, o.Index.Name)
	case AddForeignKey, DropForeignKey:
		fmt.Fprintf(&sb, " %s.%s", o.Table, o.ForeignKey.Name)
	case InsertData, UpdateData, DeleteData:
		fmt.Fprintf(&sb, " %s (%s)", o.Table, strings.Join(o.Row.Key(o.KeyColumns), ", "))
	default:
		sb.WriteString(" " + o.Table)
	}

	if o.Destructive {
		sb.WriteString(" [destructive]")
	}

	return sb.String()
}

// HasDestructive reports whether any of ops can discard data.
func HasDestructive(ops []Operation) bool {
	for _, op := range ops {
		if op.Destructive {
			return true
		}
	}
	return false
}
