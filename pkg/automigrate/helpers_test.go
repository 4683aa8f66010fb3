package automigrate_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pseudomuto/automigrate/pkg/automigrate"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/dialect"
	"github.com/pseudomuto/automigrate/pkg/executor"
	"github.com/pseudomuto/automigrate/pkg/migrator"
	"github.com/pseudomuto/automigrate/pkg/parser"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/pseudomuto/automigrate/pkg/snapshot"
	"github.com/pseudomuto/automigrate/pkg/telemetry"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

type (
	harness struct {
		db       *sql.DB
		dialect  dialect.Dialect
		metrics  *telemetry.Metrics
		recorder *tracetest.SpanRecorder
		tp       *sdktrace.TracerProvider
	}

	mockProbe struct {
		canConnectFunc func(ctx context.Context) bool
		countFunc      func(ctx context.Context) (int, error)
	}

	mockStore struct {
		ensureExistsFunc func(ctx context.Context) error
		readLatestFunc   func(ctx context.Context) (*snapshot.Record, error)
		listFunc         func(ctx context.Context) ([]snapshot.Record, error)
		statementFunc    func(result snapshot.Result) (executor.Statement, error)
		dropAllFunc      func(ctx context.Context) error
	}

	mockExecutor struct {
		applyFunc         func(ctx context.Context, statements []executor.Statement) error
		executeFunc       func(ctx context.Context, migrations []*migrator.Migration) ([]*executor.ExecutionResult, error)
		ensureHistoryFunc func(ctx context.Context) error
		revisionsFunc     func(ctx context.Context) (*migrator.RevisionSet, error)
	}
)

func (m *mockProbe) CanConnect(ctx context.Context) bool { return m.canConnectFunc(ctx) }

func (m *mockProbe) CountUserRelations(ctx context.Context) (int, error) { return m.countFunc(ctx) }

func (m *mockStore) EnsureExists(ctx context.Context) error { return m.ensureExistsFunc(ctx) }

func (m *mockStore) ReadLatest(ctx context.Context) (*snapshot.Record, error) {
	return m.readLatestFunc(ctx)
}

func (m *mockStore) List(ctx context.Context) ([]snapshot.Record, error) { return m.listFunc(ctx) }

func (m *mockStore) Statement(result snapshot.Result) (executor.Statement, error) {
	return m.statementFunc(result)
}

func (m *mockStore) DropAllUserRelations(ctx context.Context) error { return m.dropAllFunc(ctx) }

func (m *mockExecutor) Apply(ctx context.Context, statements []executor.Statement) error {
	return m.applyFunc(ctx, statements)
}

func (m *mockExecutor) Execute(ctx context.Context, migrations []*migrator.Migration) ([]*executor.ExecutionResult, error) {
	return m.executeFunc(ctx, migrations)
}

func (m *mockExecutor) EnsureHistory(ctx context.Context) error { return m.ensureHistoryFunc(ctx) }

func (m *mockExecutor) HistoryStatement(id string) executor.Statement {
	return executor.Statement{SQL: "INSERT history", Args: []any{id}}
}

func (m *mockExecutor) Revisions(ctx context.Context) (*migrator.RevisionSet, error) {
	return m.revisionsFunc(ctx)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, d, err := dialect.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return &harness{
		db:       db,
		dialect:  d,
		metrics:  telemetry.NewMetrics(),
		recorder: recorder,
		tp:       tp,
	}
}

func (h *harness) migrator(opts automigrate.Options, dir *migrator.MigrationDir) *automigrate.Migrator {
	opts.ProductVersion = "1.2.3"

	return automigrate.NewWithDB(h.db, h.dialect, automigrate.Config{
		Options:    opts,
		Migrations: dir,
		Metrics:    h.metrics,
		Tracer:     telemetry.Tracer(h.tp),
		Now:        func() time.Time { return fixedNow },
	})
}

func (h *harness) exec(t *testing.T, query string, args ...any) {
	t.Helper()

	_, err := h.db.Exec(query, args...)
	require.NoError(t, err)
}

func (h *harness) history(t *testing.T) []string {
	t.Helper()

	rows, err := h.db.Query("SELECT migration_id FROM " + consts.HistoryTable + " ORDER BY migration_id")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}

	require.NoError(t, rows.Err())
	return ids
}

func (h *harness) snapshots(t *testing.T) []string {
	t.Helper()

	records, err := snapshot.New(snapshot.Config{DB: h.db, Dialect: h.dialect}).List(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.MigrationID
	}
	return ids
}

func (h *harness) tables(t *testing.T) []string {
	t.Helper()

	rows, err := h.db.Query("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE '__automigrate%' ORDER BY name")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}

	require.NoError(t, rows.Err())
	return names
}

func (h *harness) spans() []string {
	var names []string
	for _, span := range h.recorder.Ended() {
		names = append(names, span.Name())
	}
	return names
}

func model(t *testing.T, ddl string) *schema.Model {
	t.Helper()

	stmts, err := parser.ParseString(ddl)
	require.NoError(t, err)

	m, err := schema.FromSQL(stmts)
	require.NoError(t, err)
	return m
}
