package dialect

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/diff"
)

// ClickHouse is the ClickHouse dialect. ClickHouse has no transactional DDL,
// no foreign keys and no secondary B-tree indexes; nullability is part of the
// column type (Nullable(T)). Row changes are expressed as mutations.
type ClickHouse struct {
	// TLS, when set, overrides the TLS settings of the DSN.
	TLS *tls.Config
}

var ch = generator{quote: '`'}

func (ClickHouse) Name() string { return "clickhouse" }

// Open accepts clickhouse:// DSNs as understood by clickhouse.ParseDSN.
func (c ClickHouse) Open(dsn string) (*sql.DB, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse clickhouse DSN")
	}
	if c.TLS != nil {
		opts.TLS = c.TLS
	}
	return clickhouse.OpenDB(opts), nil
}

func (ClickHouse) Quote(ident string) string { return ch.q(ident) }

func (ClickHouse) Placeholder(int) string { return "?" }

func (ClickHouse) Transactional() bool { return false }

func (ClickHouse) Generate(op diff.Operation) ([]string, error) {
	switch op.Kind {
	case diff.CreateTable:
		if len(op.Create.ForeignKeys) > 0 {
			break
		}
		return []string{ch.createTable(op.Create)}, nil
	case diff.DropTable:
		return []string{ch.dropTable(op.Table)}, nil
	case diff.AddColumn:
		return []string{ch.addColumn(op.Table, op.Column)}, nil
	case diff.DropColumn:
		return []string{ch.dropColumn(op.Table, op.Column.Name)}, nil
	case diff.AlterColumn:
		return chAlterColumn(op), nil
	case diff.RawStatement:
		return []string{op.SQL}, nil
	case diff.InsertData:
		return []string{ch.insertRow(op.Table, op.Row)}, nil
	case diff.UpdateData:
		return []string{ch.builder().
			Alter("TABLE").
			Name(op.Table).
			Raw("UPDATE " + ch.assignments(op.Row, op.KeyColumns)).
			Raw(ch.where(op.Row, op.KeyColumns)).
			StringWithoutSemicolon()}, nil
	case diff.DeleteData:
		return []string{ch.builder().Alter("TABLE").Name(op.Table).Raw("DELETE").Raw(ch.where(op.Row, op.KeyColumns)).StringWithoutSemicolon()}, nil
	}

	return nil, errors.Wrapf(ErrUnsupported, "clickhouse: %s", op)
}

func chAlterColumn(op diff.Operation) []string {
	prefix := ch.builder().Alter("TABLE").Name(op.Table).StringWithoutSemicolon()
	prev, next := op.Previous, op.Column

	if next.Default == nil && prev.Default != nil {
		stmts := []string{}
		if prev.Type != next.Type {
			stmts = append(stmts, fmt.Sprintf("%s MODIFY COLUMN %s %s", prefix, ch.q(next.Name), next.Type))
		}
		return append(stmts, fmt.Sprintf("%s MODIFY COLUMN %s REMOVE DEFAULT", prefix, ch.q(next.Name)))
	}

	return []string{prefix + " MODIFY COLUMN " + ch.columnDef(next)}
}

func (ClickHouse) TableExistsQuery() string {
	return "SELECT toInt64(count()) FROM system.tables WHERE database = currentDatabase() AND name = ?"
}

func (ClickHouse) CountRelationsQuery() string {
	return "SELECT toInt64(count()) FROM system.tables WHERE database = currentDatabase() AND name NOT IN " +
		exclusions(consts.HistoryTable, consts.SnapshotTable)
}

func (ClickHouse) ColumnsQuery() string {
	return "SELECT name FROM system.columns WHERE database = currentDatabase() AND table = ? ORDER BY position"
}

func (d ClickHouse) ResetStatements(ctx context.Context, q Queryer) ([]string, error) {
	tables, err := queryStrings(ctx, q,
		"SELECT name FROM system.tables WHERE database = currentDatabase() AND name <> ? ORDER BY name",
		consts.HistoryTable,
	)
	if err != nil {
		return nil, err
	}

	stmts := make([]string, 0, len(tables)+2)
	for _, t := range tables {
		stmts = append(stmts, ch.dropTable(t))
	}

	return append(stmts,
		ch.builder().Drop("TABLE").IfExists().Name(consts.HistoryTable).StringWithoutSemicolon(),
		d.CreateSnapshotTable(),
	), nil
}

func (ClickHouse) CreateSnapshotTable() string {
	return "CREATE TABLE IF NOT EXISTS " + ch.q(consts.SnapshotTable) +
		" (snapshot Nullable(String), migration_id Nullable(String), created_at Nullable(DateTime64(3)) DEFAULT now64(3))" +
		" ENGINE = MergeTree() ORDER BY tuple()"
}

func (ClickHouse) AddSnapshotColumn(column string) (string, error) {
	var def string
	switch column {
	case "migration_id":
		def = "migration_id Nullable(String)"
	case "created_at":
		def = "created_at Nullable(DateTime64(3)) DEFAULT now64(3)"
	default:
		return "", errors.Errorf("unknown snapshot ledger column %q", column)
	}
	return ch.builder().Alter("TABLE").Name(consts.SnapshotTable).Raw("ADD COLUMN IF NOT EXISTS").Raw(def).StringWithoutSemicolon(), nil
}

func (ClickHouse) BackfillSnapshotCreatedAt() string {
	return "ALTER TABLE " + ch.q(consts.SnapshotTable) + " UPDATE created_at = now64(3) - INTERVAL 1 DAY WHERE created_at IS NULL"
}

func (ClickHouse) InsertSnapshot() string {
	return "INSERT INTO " + ch.q(consts.SnapshotTable) + " (snapshot, migration_id) VALUES (?, ?)"
}

func (ClickHouse) SelectLatestSnapshot() string {
	return "SELECT snapshot FROM " + ch.q(consts.SnapshotTable) + " ORDER BY created_at DESC, migration_id DESC LIMIT 1"
}

func (ClickHouse) SelectSnapshots() string {
	return "SELECT migration_id, created_at FROM " + ch.q(consts.SnapshotTable) +
		" WHERE migration_id IS NOT NULL OR created_at IS NOT NULL ORDER BY created_at DESC, migration_id DESC"
}

func (ClickHouse) CreateHistoryTable() string {
	return "CREATE TABLE IF NOT EXISTS " + ch.q(consts.HistoryTable) +
		" (migration_id String, product_version String, applied_at DateTime64(3) DEFAULT now64(3))" +
		" ENGINE = MergeTree() ORDER BY migration_id"
}

func (ClickHouse) InsertHistory() string {
	return "INSERT INTO " + ch.q(consts.HistoryTable) + " (migration_id, product_version) VALUES (?, ?)"
}

func (ClickHouse) SelectHistory() string {
	return "SELECT migration_id, product_version, applied_at FROM " + ch.q(consts.HistoryTable) + " ORDER BY migration_id"
}
