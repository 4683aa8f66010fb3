package executor

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/dialect"
	"github.com/pseudomuto/automigrate/pkg/migrator"
)

type (
	// DB is the subset of *sql.DB the executor needs.
	DB interface {
		dialect.Queryer
		dialect.Execer
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	}

	// Executor runs statement batches and hand-authored migrations against a
	// database, recording applied migrations in the history ledger.
	//
	// Example usage:
	//
	//	exec := executor.New(executor.Config{
	//		DB:             db,
	//		Dialect:        dialect.Postgres{},
	//		ProductVersion: "1.0.0",
	//	})
	//
	//	results, err := exec.Execute(ctx, dir.Migrations)
	//	if err != nil {
	//		log.Fatal(err)
	//	}
	//
	//	for _, result := range results {
	//		fmt.Printf("Migration %s: %s\n", result.Version, result.Status)
	//	}
	Executor struct {
		db             DB
		dialect        dialect.Dialect
		productVersion string
		logger         *slog.Logger
	}

	// Config contains configuration options for creating a new Executor.
	Config struct {
		DB      DB
		Dialect dialect.Dialect

		// ProductVersion is recorded with every ledger row written by Execute.
		ProductVersion string

		// Logger defaults to slog.Default().
		Logger *slog.Logger
	}

	// Statement is a single SQL statement with its bind arguments.
	Statement struct {
		SQL  string
		Args []any
	}

	// ExecutionResult describes the outcome of one hand-authored migration.
	ExecutionResult struct {
		// Version is the migration version that was executed
		Version string

		// Status indicates the outcome of the migration execution
		Status ExecutionStatus

		// Error contains any error that occurred during execution
		Error error

		// ExecutionTime records how long the migration took to execute
		ExecutionTime time.Duration

		// StatementsApplied indicates how many statements were successfully
		// executed. In a transactional dialect a failed migration leaves none
		// of them in effect.
		StatementsApplied int

		// TotalStatements is the total number of statements in the migration
		TotalStatements int
	}

	// ExecutionStatus represents the outcome of a migration execution.
	ExecutionStatus string
)

const (
	// StatusSuccess indicates the migration was executed successfully
	StatusSuccess ExecutionStatus = "success"

	// StatusFailed indicates the migration execution failed
	StatusFailed ExecutionStatus = "failed"

	// StatusSkipped indicates the migration was skipped (already applied)
	StatusSkipped ExecutionStatus = "skipped"
)

// New creates a new executor with the provided configuration.
func New(config Config) *Executor {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		db:             config.DB,
		dialect:        config.Dialect,
		productVersion: config.ProductVersion,
		logger:         logger,
	}
}

// Transactional reports whether batches run inside a single transaction.
func (e *Executor) Transactional() bool {
	return e.dialect.Transactional()
}

// Apply runs statements as one batch. For transactional dialects the batch
// is a single transaction that is rolled back when any statement fails;
// otherwise statements run in order and stop at the first failure.
//
// A context that is already done aborts before anything is written. Once the
// batch starts it runs to completion regardless of cancellation, so the
// ledger rows in a batch always share the outcome of the schema changes.
func (e *Executor) Apply(ctx context.Context, statements []Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)

	if !e.dialect.Transactional() {
		for i, stmt := range statements {
			if err := exec(ctx, e.db, i, stmt); err != nil {
				return err
			}
		}
		return nil
	}

	return e.inTx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if err := exec(ctx, tx, i, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureHistory creates the applied-migrations ledger if it does not exist.
func (e *Executor) EnsureHistory(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, e.dialect.CreateHistoryTable()); err != nil {
		return errors.Wrap(err, "failed to create the history ledger")
	}
	return nil
}

// Revisions loads the applied-migrations ledger. A missing ledger yields an
// empty set.
func (e *Executor) Revisions(ctx context.Context) (*migrator.RevisionSet, error) {
	return migrator.LoadRevisions(ctx, e.db, e.dialect)
}

// HistoryStatement returns the statement recording migrationID as applied.
func (e *Executor) HistoryStatement(migrationID string) Statement {
	return Statement{
		SQL:  e.dialect.InsertHistory(),
		Args: []any{migrationID, e.productVersion},
	}
}

// Execute applies the migrations that have no ledger row yet, in order. Each
// migration runs with its ledger insert as one batch. Execution stops at the
// first failure, which is reported in the returned results rather than as an
// error.
//
// Example usage:
//
//	results, err := exec.Execute(ctx, dir.Migrations)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, result := range results {
//		switch result.Status {
//		case executor.StatusSuccess:
//			fmt.Printf("%s completed in %v\n", result.Version, result.ExecutionTime)
//		case executor.StatusFailed:
//			fmt.Printf("%s failed: %v\n", result.Version, result.Error)
//		case executor.StatusSkipped:
//			fmt.Printf("%s already applied\n", result.Version)
//		}
//	}
func (e *Executor) Execute(ctx context.Context, migrations []*migrator.Migration) ([]*ExecutionResult, error) {
	if err := e.EnsureHistory(ctx); err != nil {
		return nil, err
	}

	revisions, err := e.Revisions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load existing revisions")
	}

	results := make([]*ExecutionResult, 0, len(migrations))
	for _, m := range migrations {
		result := e.executeMigration(ctx, m, revisions)
		results = append(results, result)

		if result.Status == StatusFailed {
			e.logger.Error("Migration failed", "version", m.Version, "error", result.Error)
			break
		}
	}

	return results, nil
}

func (e *Executor) executeMigration(ctx context.Context, m *migrator.Migration, revisions *migrator.RevisionSet) *ExecutionResult {
	result := &ExecutionResult{
		Version:         m.Version,
		TotalStatements: len(m.Statements),
	}

	if revisions.IsCompleted(m) {
		result.Status = StatusSkipped
		result.StatementsApplied = len(m.Statements)
		return result
	}

	start := time.Now()
	batch := make([]Statement, 0, len(m.Statements)+1)
	for _, stmt := range m.Statements {
		batch = append(batch, Statement{SQL: stmt})
	}
	batch = append(batch, e.HistoryStatement(m.Version))

	err := e.Apply(ctx, batch)
	result.ExecutionTime = time.Since(start)

	var stmtErr *StatementError
	switch {
	case err == nil:
		result.Status = StatusSuccess
		result.StatementsApplied = len(m.Statements)
		e.logger.Info("Applied migration", "version", m.Version, "statements", len(m.Statements), "duration", result.ExecutionTime)
	case errors.As(err, &stmtErr) && !e.dialect.Transactional():
		result.Status = StatusFailed
		result.Error = err
		result.StatementsApplied = min(stmtErr.Index, len(m.Statements))
	default:
		result.Status = StatusFailed
		result.Error = err
	}

	return result
}

func (e *Executor) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func exec(ctx context.Context, db dialect.Execer, i int, stmt Statement) error {
	if _, err := db.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
		return &StatementError{Index: i, SQL: stmt.SQL, Err: err}
	}
	return nil
}
