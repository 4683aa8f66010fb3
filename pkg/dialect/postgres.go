package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/diff"
)

// Postgres is the PostgreSQL dialect. DDL is transactional and objects are
// resolved against current_schema().
type Postgres struct{}

var pg = generator{quote: '"', nullability: true}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Open(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func (Postgres) Quote(ident string) string { return pg.q(ident) }

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) Transactional() bool { return true }

func (Postgres) Generate(op diff.Operation) ([]string, error) {
	switch op.Kind {
	case diff.CreateTable:
		return []string{pg.createTable(op.Create)}, nil
	case diff.DropTable:
		return []string{pg.dropTable(op.Table)}, nil
	case diff.AddColumn:
		return []string{pg.addColumn(op.Table, op.Column)}, nil
	case diff.DropColumn:
		return []string{pg.dropColumn(op.Table, op.Column.Name)}, nil
	case diff.AlterColumn:
		return pgAlterColumn(op), nil
	case diff.AddIndex:
		return []string{pg.createIndex(op.Table, op.Index)}, nil
	case diff.DropIndex:
		return []string{pg.builder().Drop("INDEX").Name(qualifySibling(op.Table, op.Index.Name)).StringWithoutSemicolon()}, nil
	case diff.AddForeignKey:
		return []string{pg.builder().
			Alter("TABLE").
			Name(op.Table).
			Raw("ADD CONSTRAINT").
			Name(op.ForeignKey.Name).
			Raw(pg.foreignKeyClause(op.ForeignKey)).
			StringWithoutSemicolon()}, nil
	case diff.DropForeignKey:
		return []string{pg.builder().Alter("TABLE").Name(op.Table).Raw("DROP CONSTRAINT").Name(op.ForeignKey.Name).StringWithoutSemicolon()}, nil
	case diff.RawStatement:
		return []string{op.SQL}, nil
	case diff.InsertData:
		return []string{pg.insertRow(op.Table, op.Row)}, nil
	case diff.UpdateData:
		return []string{pg.updateRow(op.Table, op.Row, op.KeyColumns)}, nil
	case diff.DeleteData:
		return []string{pg.deleteRow(op.Table, op.Row, op.KeyColumns)}, nil
	}

	return nil, errors.Wrapf(ErrUnsupported, "postgres: %s", op.Kind)
}

func pgAlterColumn(op diff.Operation) []string {
	prefix := pg.builder().Alter("TABLE").Name(op.Table).Raw("ALTER COLUMN").Name(op.Column.Name).StringWithoutSemicolon()
	prev, next := op.Previous, op.Column

	var stmts []string
	if prev.Type != next.Type {
		stmts = append(stmts, fmt.Sprintf("%s TYPE %s USING %s::%s", prefix, next.Type, pg.q(next.Name), next.Type))
	}

	switch {
	case prev.Nullable && !next.Nullable:
		stmts = append(stmts, prefix+" SET NOT NULL")
	case !prev.Nullable && next.Nullable:
		stmts = append(stmts, prefix+" DROP NOT NULL")
	}

	switch {
	case next.Default == nil && prev.Default != nil:
		stmts = append(stmts, prefix+" DROP DEFAULT")
	case next.Default != nil && (prev.Default == nil || *prev.Default != *next.Default):
		stmts = append(stmts, prefix+" SET DEFAULT "+*next.Default)
	}

	return stmts
}

// qualifySibling puts name in the same schema as table, since Postgres
// indexes live next to their table.
func qualifySibling(table, name string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		return table[:i+1] + name
	}
	return name
}

func (Postgres) TableExistsQuery() string {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
}

func (Postgres) CountRelationsQuery() string {
	return "SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name NOT IN " +
		exclusions(consts.HistoryTable, consts.SnapshotTable)
}

func (Postgres) ColumnsQuery() string {
	return "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position"
}

func (d Postgres) ResetStatements(ctx context.Context, q Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT table_name, constraint_name FROM information_schema.table_constraints
WHERE table_schema = current_schema() AND constraint_type = 'FOREIGN KEY' ORDER BY table_name, constraint_name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list foreign keys")
	}
	defer func() { _ = rows.Close() }()

	var stmts []string
	for rows.Next() {
		var table, constraint string
		if err := rows.Scan(&table, &constraint); err != nil {
			return nil, errors.Wrap(err, "failed to scan foreign key")
		}
		stmts = append(stmts, pg.builder().Alter("TABLE").Name(table).Raw("DROP CONSTRAINT").Name(constraint).StringWithoutSemicolon())
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list foreign keys")
	}

	tables, err := queryStrings(ctx, q, `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' AND table_name <> $1 ORDER BY table_name`, consts.HistoryTable)
	if err != nil {
		return nil, err
	}

	for _, t := range tables {
		stmts = append(stmts, pg.dropTable(t))
	}

	return append(stmts,
		pg.builder().Drop("TABLE").IfExists().Name(consts.HistoryTable).StringWithoutSemicolon(),
		d.CreateSnapshotTable(),
	), nil
}

func (Postgres) CreateSnapshotTable() string {
	return "CREATE TABLE IF NOT EXISTS " + pg.q(consts.SnapshotTable) +
		fmt.Sprintf(" (snapshot BYTEA NULL, migration_id VARCHAR(%d) NULL, created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP)", consts.MigrationIDLength)
}

func (Postgres) AddSnapshotColumn(column string) (string, error) {
	def, err := ledgerColumn(column, "TIMESTAMP DEFAULT CURRENT_TIMESTAMP")
	if err != nil {
		return "", err
	}
	return pg.builder().Alter("TABLE").Name(consts.SnapshotTable).Raw("ADD COLUMN IF NOT EXISTS").Raw(def).StringWithoutSemicolon(), nil
}

func (Postgres) BackfillSnapshotCreatedAt() string {
	return "UPDATE " + pg.q(consts.SnapshotTable) + " SET created_at = CURRENT_TIMESTAMP - INTERVAL '1 day' WHERE created_at IS NULL"
}

func (Postgres) InsertSnapshot() string {
	return "INSERT INTO " + pg.q(consts.SnapshotTable) + " (snapshot, migration_id) VALUES ($1, $2)"
}

func (Postgres) SelectLatestSnapshot() string {
	return "SELECT snapshot FROM " + pg.q(consts.SnapshotTable) + " ORDER BY created_at DESC, migration_id DESC LIMIT 1"
}

func (Postgres) SelectSnapshots() string {
	return "SELECT migration_id, created_at FROM " + pg.q(consts.SnapshotTable) +
		" WHERE migration_id IS NOT NULL OR created_at IS NOT NULL ORDER BY created_at DESC, migration_id DESC"
}

func (Postgres) CreateHistoryTable() string {
	return "CREATE TABLE IF NOT EXISTS " + pg.q(consts.HistoryTable) +
		fmt.Sprintf(" (migration_id VARCHAR(%d) PRIMARY KEY, product_version VARCHAR(32) NOT NULL, applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP)", consts.MigrationIDLength)
}

func (Postgres) InsertHistory() string {
	return "INSERT INTO " + pg.q(consts.HistoryTable) + " (migration_id, product_version) VALUES ($1, $2)"
}

func (Postgres) SelectHistory() string {
	return "SELECT migration_id, product_version, applied_at FROM " + pg.q(consts.HistoryTable) + " ORDER BY migration_id"
}

// ledgerColumn returns the definition of an additive snapshot ledger column.
func ledgerColumn(column, createdAt string) (string, error) {
	switch column {
	case "migration_id":
		return fmt.Sprintf("migration_id VARCHAR(%d) NULL", consts.MigrationIDLength), nil
	case "created_at":
		return "created_at " + createdAt, nil
	}
	return "", errors.Errorf("unknown snapshot ledger column %q", column)
}
