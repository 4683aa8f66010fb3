package dialect

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/diff"
)

// ErrUnsupported is returned by Generate for operations a dialect can not
// express.
var ErrUnsupported = errors.New("operation not supported by dialect")

type (
	// Dialect generates SQL for one database engine.
	Dialect interface {
		// Name is the registry name of the dialect.
		Name() string
		// Open connects to the database described by dsn.
		Open(dsn string) (*sql.DB, error)
		// Quote quotes an identifier.
		Quote(ident string) string
		// Placeholder returns the bind parameter for the n-th (1-based) argument.
		Placeholder(n int) string
		// Transactional reports whether DDL can run inside a transaction.
		Transactional() bool

		// Generate returns the statements implementing op, in order.
		Generate(op diff.Operation) ([]string, error)

		// TableExistsQuery counts tables named by its single argument.
		TableExistsQuery() string
		// CountRelationsQuery counts user tables and views, excluding the
		// bookkeeping tables.
		CountRelationsQuery() string
		// ColumnsQuery lists the column names of the table named by its single
		// argument.
		ColumnsQuery() string
		// ResetStatements inspects the catalog and returns the statements that
		// drop every foreign key, then every table except the history ledger,
		// then the history ledger, and finally recreate the snapshot ledger.
		ResetStatements(ctx context.Context, q Queryer) ([]string, error)

		// CreateSnapshotTable idempotently creates the snapshot ledger.
		CreateSnapshotTable() string
		// AddSnapshotColumn adds one of the later ledger columns (migration_id
		// or created_at) to a snapshot ledger created by an older release.
		AddSnapshotColumn(column string) (string, error)
		// BackfillSnapshotCreatedAt sets created_at to one day ago where null.
		BackfillSnapshotCreatedAt() string
		// InsertSnapshot takes the compressed snapshot and the migration id.
		InsertSnapshot() string
		// SelectLatestSnapshot returns the snapshot column of the newest row.
		SelectLatestSnapshot() string
		// SelectSnapshots returns (migration_id, created_at), newest first.
		SelectSnapshots() string

		// CreateHistoryTable idempotently creates the history ledger.
		CreateHistoryTable() string
		// InsertHistory takes the migration id and the product version.
		InsertHistory() string
		// SelectHistory returns (migration_id, product_version, applied_at)
		// ordered by migration id.
		SelectHistory() string
	}

	// Queryer runs read queries. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
	Queryer interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	}

	// Execer runs statements. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
	Execer interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	}
)

var registry = map[string]Dialect{
	"postgres":   Postgres{},
	"sqlite":     SQLite{},
	"clickhouse": ClickHouse{},
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	d, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown dialect %q (supported: %v)", name, Names())
	}
	return d, nil
}

// Open resolves the named dialect and connects to dsn with it. The
// connection is not verified; use a probe for that.
func Open(name, dsn string) (*sql.DB, Dialect, error) {
	d, err := Get(name)
	if err != nil {
		return nil, nil, err
	}

	db, err := d.Open(dsn)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open %s database", name)
	}

	return db, d, nil
}

// queryStrings runs query and collects the first column of every row.
func queryStrings(ctx context.Context, q Queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query catalog")
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(err, "failed to scan catalog row")
		}
		out = append(out, s)
	}

	return out, errors.Wrap(rows.Err(), "failed to read catalog rows")
}

// Timestamp scans timestamps regardless of whether the driver returns them
// as time.Time or as text.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Timestamp{}
		return nil
	case time.Time:
		*t = Timestamp{Time: v, Valid: true}
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return errors.Errorf("unsupported timestamp value of type %T", src)
}

func (t *Timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp{Time: parsed, Valid: true}
			return nil
		}
	}
	return errors.Errorf("unrecognized timestamp %q", s)
}
