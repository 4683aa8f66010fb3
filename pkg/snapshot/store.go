package snapshot

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/dialect"
	"github.com/pseudomuto/automigrate/pkg/executor"
)

type (
	// DB runs queries and statements. *sql.DB satisfies it.
	DB interface {
		dialect.Queryer
		dialect.Execer
	}

	// Config configures a Store.
	Config struct {
		DB      DB
		Dialect dialect.Dialect
		Logger  *slog.Logger
	}

	// Store reads and appends rows of the snapshot ledger.
	//
	// Example usage:
	//
	//	store := snapshot.New(snapshot.Config{DB: db, Dialect: d})
	//	if err := store.EnsureExists(ctx); err != nil {
	//		log.Fatal(err)
	//	}
	//
	//	latest, err := store.ReadLatest(ctx)
	//	if err != nil {
	//		log.Fatal(err)
	//	}
	//	if latest != nil {
	//		fmt.Println(latest.Text)
	//	}
	Store struct {
		db      DB
		dialect dialect.Dialect
		logger  *slog.Logger
	}

	// Record is one snapshot ledger row. Text is only populated by ReadLatest.
	Record struct {
		MigrationID string
		CreatedAt   time.Time
		Text        string
	}

	// Result is the outcome of an automatic migration that is persisted as a
	// new ledger row.
	Result struct {
		MigrationID  string
		SnapshotText string
	}
)

// columns added to the ledger after its first release.
var upgradeColumns = []string{"migration_id", "created_at"}

// New creates a Store.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{db: cfg.DB, dialect: cfg.Dialect, logger: logger}
}

// EnsureExists creates the ledger when missing and upgrades ledgers created
// by older releases by adding the migration_id and created_at columns. Rows
// without a created_at are backfilled with a timestamp one day in the past.
// It is safe to call on every run.
func (s *Store) EnsureExists(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.CreateSnapshotTable()); err != nil {
		return errors.Wrap(err, "failed to create the snapshot ledger")
	}

	columns, err := s.columns(ctx)
	if err != nil {
		return err
	}

	for _, col := range upgradeColumns {
		if slices.Contains(columns, col) {
			continue
		}

		stmt, err := s.dialect.AddSnapshotColumn(col)
		if err != nil {
			return err
		}

		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to add snapshot ledger column %s", col)
		}

		s.logger.Info("Upgraded snapshot ledger", "column", col)

		if col == "created_at" {
			if _, err := s.db.ExecContext(ctx, s.dialect.BackfillSnapshotCreatedAt()); err != nil {
				return errors.Wrap(err, "failed to backfill snapshot timestamps")
			}
		}
	}

	return nil
}

func (s *Store) columns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.ColumnsQuery(), consts.SnapshotTable)
	if err != nil {
		return nil, errors.Wrap(err, "failed to inspect the snapshot ledger")
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, errors.Wrap(err, "failed to inspect the snapshot ledger")
		}
		columns = append(columns, c)
	}

	return columns, errors.Wrap(rows.Err(), "failed to inspect the snapshot ledger")
}

// Exists reports whether the snapshot ledger table exists.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	n, err := s.count(ctx, s.dialect.TableExistsQuery(), consts.SnapshotTable)
	if err != nil {
		return false, errors.Wrap(err, "failed to check for the snapshot ledger")
	}
	return n > 0, nil
}

// ReadLatest returns the newest snapshot, or nil when the ledger does not
// exist, is empty, or its newest row carries no snapshot.
func (s *Store) ReadLatest(ctx context.Context) (*Record, error) {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.SelectLatestSnapshot())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the latest snapshot")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, errors.Wrap(rows.Err(), "failed to read the latest snapshot")
	}

	var blob []byte
	if err := rows.Scan(&blob); err != nil {
		return nil, errors.Wrap(err, "failed to read the latest snapshot")
	}

	if len(blob) == 0 {
		return nil, nil
	}

	text, err := Decompress(blob)
	if err != nil {
		return nil, err
	}

	return &Record{Text: text}, nil
}

// Statement returns the insert appending result to the ledger, for callers
// that apply it as part of a larger batch.
func (s *Store) Statement(result Result) (executor.Statement, error) {
	blob, err := Compress(result.SnapshotText)
	if err != nil {
		return executor.Statement{}, err
	}

	return executor.Statement{
		SQL:  s.dialect.InsertSnapshot(),
		Args: []any{blob, result.MigrationID},
	}, nil
}

// Write appends result to the ledger through q, which may be a transaction.
// Existing rows are never changed.
func (s *Store) Write(ctx context.Context, q dialect.Execer, result Result) error {
	stmt, err := s.Statement(result)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
		return errors.Wrap(err, "failed to write snapshot")
	}

	return nil
}

// List returns the ledger rows that carry a migration id or timestamp,
// newest first. A missing ledger yields no rows.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.SelectSnapshots())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list snapshots")
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			id sql.NullString
			at dialect.Timestamp
		)

		if err := rows.Scan(&id, &at); err != nil {
			return nil, errors.Wrap(err, "failed to scan snapshot row")
		}

		records = append(records, Record{MigrationID: id.String, CreatedAt: at.Time})
	}

	return records, errors.Wrap(rows.Err(), "failed to list snapshots")
}

// CountUserRelations counts tables and views other than the two ledgers.
func (s *Store) CountUserRelations(ctx context.Context) (int, error) {
	n, err := s.count(ctx, s.dialect.CountRelationsQuery())
	if err != nil {
		return 0, errors.Wrap(err, "failed to count user relations")
	}
	return int(n), nil
}

// DropAllUserRelations drops every foreign key, every table except the
// history ledger, and the history ledger itself, then recreates an empty
// snapshot ledger. It does not ask for confirmation.
func (s *Store) DropAllUserRelations(ctx context.Context) error {
	stmts, err := s.dialect.ResetStatements(ctx, s.db)
	if err != nil {
		return errors.Wrap(err, "failed to plan database reset")
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to reset database: %s", stmt)
		}
	}

	s.logger.Warn("Dropped all user relations", "statements", len(stmts))
	return nil
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}

	return n, rows.Err()
}
