package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/diff"
	_ "modernc.org/sqlite" // registers the sqlite database/sql driver
)

// SQLite is the SQLite dialect. Column alterations and foreign key changes on
// existing tables require a table rebuild, which is not generated.
type SQLite struct{}

var lite = generator{quote: '"', nullability: true}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// A single connection keeps in-memory databases and transactions coherent.
	db.SetMaxOpenConns(1)
	return db, nil
}

func (SQLite) Quote(ident string) string { return lite.q(ident) }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) Transactional() bool { return true }

func (SQLite) Generate(op diff.Operation) ([]string, error) {
	switch op.Kind {
	case diff.CreateTable:
		return []string{lite.createTable(op.Create)}, nil
	case diff.DropTable:
		return []string{lite.dropTable(op.Table)}, nil
	case diff.AddColumn:
		return []string{lite.addColumn(op.Table, op.Column)}, nil
	case diff.DropColumn:
		return []string{lite.dropColumn(op.Table, op.Column.Name)}, nil
	case diff.AddIndex:
		return []string{lite.createIndex(op.Table, op.Index)}, nil
	case diff.DropIndex:
		return []string{lite.builder().Drop("INDEX").Name(op.Index.Name).StringWithoutSemicolon()}, nil
	case diff.DropForeignKey:
		// Constraints of a table that is being dropped go away with it.
		if op.TableDropped {
			return nil, nil
		}
	case diff.RawStatement:
		return []string{op.SQL}, nil
	case diff.InsertData:
		return []string{lite.insertRow(op.Table, op.Row)}, nil
	case diff.UpdateData:
		return []string{lite.updateRow(op.Table, op.Row, op.KeyColumns)}, nil
	case diff.DeleteData:
		return []string{lite.deleteRow(op.Table, op.Row, op.KeyColumns)}, nil
	}

	return nil, errors.Wrapf(ErrUnsupported, "sqlite: %s", op)
}

func (SQLite) TableExistsQuery() string {
	return "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

func (SQLite) CountRelationsQuery() string {
	return "SELECT count(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' AND name NOT IN " +
		exclusions(consts.HistoryTable, consts.SnapshotTable)
}

func (SQLite) ColumnsQuery() string {
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid"
}

// ResetStatements drops tables so that referencing tables go before the
// tables they reference.
func (d SQLite) ResetStatements(ctx context.Context, q Queryer) ([]string, error) {
	tables, err := queryStrings(ctx, q,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name <> ? ORDER BY name",
		consts.HistoryTable,
	)
	if err != nil {
		return nil, err
	}

	refs := make(map[string][]string, len(tables))
	for _, t := range tables {
		parents, err := queryStrings(ctx, q, `SELECT DISTINCT "table" FROM pragma_foreign_key_list(?)`, t)
		if err != nil {
			return nil, err
		}
		refs[t] = parents
	}

	var (
		order   []string
		visited = make(map[string]bool, len(tables))
	)

	// Post-order over "is referenced by" yields children first.
	var visit func(string)
	visit = func(t string) {
		if visited[t] {
			return
		}
		visited[t] = true
		for _, child := range tables {
			if child != t && slices.Contains(refs[child], t) {
				visit(child)
			}
		}
		order = append(order, t)
	}
	for _, t := range tables {
		visit(t)
	}

	stmts := make([]string, 0, len(order)+2)
	for _, t := range order {
		stmts = append(stmts, lite.dropTable(t))
	}

	return append(stmts,
		lite.builder().Drop("TABLE").IfExists().Name(consts.HistoryTable).StringWithoutSemicolon(),
		d.CreateSnapshotTable(),
	), nil
}

func (SQLite) CreateSnapshotTable() string {
	return "CREATE TABLE IF NOT EXISTS " + lite.q(consts.SnapshotTable) +
		fmt.Sprintf(" (snapshot BLOB NULL, migration_id VARCHAR(%d) NULL, created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP)", consts.MigrationIDLength)
}

// AddSnapshotColumn adds created_at without a default, since SQLite rejects
// non-constant defaults on ALTER TABLE ADD COLUMN.
func (SQLite) AddSnapshotColumn(column string) (string, error) {
	def, err := ledgerColumn(column, "TIMESTAMP NULL")
	if err != nil {
		return "", err
	}
	return lite.builder().Alter("TABLE").Name(consts.SnapshotTable).Raw("ADD COLUMN").Raw(def).StringWithoutSemicolon(), nil
}

func (SQLite) BackfillSnapshotCreatedAt() string {
	return "UPDATE " + lite.q(consts.SnapshotTable) + " SET created_at = datetime('now', '-1 day') WHERE created_at IS NULL"
}

func (SQLite) InsertSnapshot() string {
	return "INSERT INTO " + lite.q(consts.SnapshotTable) + " (snapshot, migration_id, created_at) VALUES (?, ?, strftime('%Y-%m-%d %H:%M:%f', 'now'))"
}

func (SQLite) SelectLatestSnapshot() string {
	return "SELECT snapshot FROM " + lite.q(consts.SnapshotTable) + " ORDER BY created_at DESC, migration_id DESC LIMIT 1"
}

func (SQLite) SelectSnapshots() string {
	return "SELECT migration_id, created_at FROM " + lite.q(consts.SnapshotTable) +
		" WHERE migration_id IS NOT NULL OR created_at IS NOT NULL ORDER BY created_at DESC, migration_id DESC"
}

func (SQLite) CreateHistoryTable() string {
	return "CREATE TABLE IF NOT EXISTS " + lite.q(consts.HistoryTable) +
		fmt.Sprintf(" (migration_id VARCHAR(%d) PRIMARY KEY, product_version VARCHAR(32) NOT NULL, applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP)", consts.MigrationIDLength)
}

func (SQLite) InsertHistory() string {
	return "INSERT INTO " + lite.q(consts.HistoryTable) + " (migration_id, product_version) VALUES (?, ?)"
}

func (SQLite) SelectHistory() string {
	return "SELECT migration_id, product_version, applied_at FROM " + lite.q(consts.HistoryTable) + " ORDER BY migration_id"
}
