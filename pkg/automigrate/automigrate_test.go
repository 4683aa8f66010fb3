package automigrate_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pseudomuto/automigrate/pkg/automigrate"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/diff"
	"github.com/pseudomuto/automigrate/pkg/executor"
	"github.com/pseudomuto/automigrate/pkg/migrator"
	"github.com/pseudomuto/automigrate/pkg/reconstruct"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/pseudomuto/automigrate/pkg/snapshot"
	"github.com/pseudomuto/automigrate/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usersDDL         = "CREATE TABLE users (id BIGINT PRIMARY KEY, email VARCHAR(255) NOT NULL);"
	usersNicknameDDL = "CREATE TABLE users (id BIGINT PRIMARY KEY, email VARCHAR(255) NOT NULL, nickname TEXT);"
	widgetsDDL       = "CREATE TABLE widgets (id BIGINT PRIMARY KEY);"
	gadgetsDDL       = "CREATE TABLE gadgets (id BIGINT PRIMARY KEY, widget_id BIGINT REFERENCES widgets (id));"
)

func TestRunFromEmpty(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	result, err := h.migrator(automigrate.DefaultOptions(), nil).Run(ctx, model(t, usersDDL))
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Equal(t, "20250102030405_auto", result.MigrationID)
	require.NotEmpty(t, strings.TrimSpace(result.SnapshotText))
	require.Len(t, result.Operations, 1)
	require.Equal(t, diff.CreateTable, result.Operations[0].Kind)

	require.Equal(t, []string{"users"}, h.tables(t))
	require.Equal(t, []string{"20250102030405_auto"}, h.history(t))
	require.Equal(t, []string{"20250102030405_auto"}, h.snapshots(t))

	require.Equal(t, []string{"automigrate.apply", "automigrate.run"}, h.spans())
	require.InDelta(t, 1, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(telemetry.OutcomeApplied)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(h.metrics.Operations.WithLabelValues("CreateTable")), 0)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.migrator(automigrate.DefaultOptions(), nil)

	_, err := m.Run(ctx, model(t, usersDDL))
	require.NoError(t, err)

	result, err := m.Run(ctx, model(t, usersDDL))
	require.NoError(t, err)
	require.Nil(t, result)

	require.Len(t, h.history(t), 1)
	require.Len(t, h.snapshots(t), 1)
	require.InDelta(t, 1, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(telemetry.OutcomeNoop)), 0)
}

func TestRunIncremental(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.migrator(automigrate.DefaultOptions(), nil)

	_, err := m.Run(ctx, model(t, usersDDL))
	require.NoError(t, err)

	result, err := m.Run(ctx, model(t, usersNicknameDDL))
	require.NoError(t, err)
	require.NotNil(t, result)

	// the clock did not move, so the id is bumped past the previous one
	require.Equal(t, "20250102030406_auto", result.MigrationID)
	require.Len(t, result.Operations, 1)
	require.Equal(t, "AddColumn users.nickname", result.Operations[0].String())

	h.exec(t, "INSERT INTO users (id, email, nickname) VALUES (1, 'a@example.com', 'a')")
	require.Equal(t, []string{"20250102030405_auto", "20250102030406_auto"}, h.history(t))
	require.Equal(t, []string{"20250102030406_auto", "20250102030405_auto"}, h.snapshots(t))
}

func TestRunDataLossGate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.migrator(automigrate.DefaultOptions(), nil).Run(ctx, model(t, usersNicknameDDL))
	require.NoError(t, err)

	t.Run("prevented", func(t *testing.T) {
		result, err := h.migrator(automigrate.DefaultOptions(), nil).Run(ctx, model(t, usersDDL))
		require.ErrorIs(t, err, automigrate.ErrDataLossPrevented)
		require.Contains(t, err.Error(), "DropColumn users.nickname [destructive]")
		require.Nil(t, result)

		require.Len(t, h.history(t), 1)
		require.Len(t, h.snapshots(t), 1)
	})

	t.Run("allowed", func(t *testing.T) {
		opts := automigrate.DefaultOptions()
		opts.DataLossAllowed = true

		result, err := h.migrator(opts, nil).Run(ctx, model(t, usersDDL))
		require.NoError(t, err)
		require.NotNil(t, result)
		require.True(t, diff.HasDestructive(result.Operations))

		require.Len(t, h.history(t), 2)
		require.Len(t, h.snapshots(t), 2)
	})
}

func TestRunDisabled(t *testing.T) {
	h := newHarness(t)

	result, err := h.migrator(automigrate.Options{}, nil).Run(context.Background(), model(t, usersDDL))
	require.NoError(t, err)
	require.Nil(t, result)
	require.Empty(t, h.tables(t))
	require.Empty(t, h.spans())
	require.InDelta(t, 1, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(telemetry.OutcomeDisabled)), 0)
}

func TestRunHandMigrations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	snap, err := schema.Render(model(t, widgetsDDL), "001")
	require.NoError(t, err)

	build := fstest.MapFS{
		"001_widgets.sql":        {Data: []byte(widgetsDDL)},
		consts.ModelSnapshotFile: {Data: []byte(snap)},
	}

	dir, err := migrator.LoadMigrationDir(build)
	require.NoError(t, err)

	desired := model(t, widgetsDDL+gadgetsDDL)

	t.Run("pending migrations run before the diff", func(t *testing.T) {
		result, err := h.migrator(automigrate.DefaultOptions(), dir).Run(ctx, desired)
		require.NoError(t, err)
		require.NotNil(t, result)

		require.Len(t, result.Operations, 1)
		require.Equal(t, "CreateTable gadgets", result.Operations[0].String())
		require.Equal(t, []string{"gadgets", "widgets"}, h.tables(t))
		require.Equal(t, []string{"001", "20250102030405_auto"}, h.history(t))
	})

	t.Run("unknown applied ids reconstruct from the snapshot", func(t *testing.T) {
		result, err := h.migrator(automigrate.DefaultOptions(), dir).Run(ctx, desired)
		require.NoError(t, err)
		require.Nil(t, result)
	})

	t.Run("pending migration conflict", func(t *testing.T) {
		next := fstest.MapFS{
			"001_widgets.sql": build["001_widgets.sql"],
			"002_things.sql":  {Data: []byte("CREATE TABLE things (id BIGINT PRIMARY KEY);")},
		}

		nextDir, err := migrator.LoadMigrationDir(next)
		require.NoError(t, err)

		result, err := h.migrator(automigrate.DefaultOptions(), nextDir).Run(ctx, desired)
		require.ErrorIs(t, err, automigrate.ErrPendingMigrationConflict)
		require.Nil(t, result)

		require.Equal(t, []string{"gadgets", "widgets"}, h.tables(t))
		require.Equal(t, []string{"001", "20250102030405_auto"}, h.history(t))
	})
}

func TestRunFailedHandMigration(t *testing.T) {
	h := newHarness(t)

	snap, err := schema.Render(model(t, "CREATE TABLE broken (id BIGINT PRIMARY KEY);"), "001")
	require.NoError(t, err)

	dir, err := migrator.LoadMigrationDir(fstest.MapFS{
		"001_broken.sql":         {Data: []byte("CREATE TABLE broken (id BIGINT PRIMARY KEY); INSERT INTO missing VALUES (1);")},
		consts.ModelSnapshotFile: {Data: []byte(snap)},
	})
	require.NoError(t, err)

	_, err = h.migrator(automigrate.DefaultOptions(), dir).Run(context.Background(), model(t, usersDDL))
	require.ErrorContains(t, err, "failed to apply migration 001")
	require.Empty(t, h.tables(t))
	require.Empty(t, h.history(t))
}

func TestRunHandMigrationsWithoutModelSnapshot(t *testing.T) {
	h := newHarness(t)

	dir, err := migrator.LoadMigrationDir(fstest.MapFS{
		"001_widgets.sql": {Data: []byte(widgetsDDL)},
	})
	require.NoError(t, err)

	result, err := h.migrator(automigrate.DefaultOptions(), dir).Run(context.Background(), model(t, widgetsDDL+gadgetsDDL))
	require.ErrorIs(t, err, automigrate.ErrModelSnapshotRequired)
	require.Contains(t, err.Error(), consts.ModelSnapshotFile)
	require.Nil(t, result)

	require.Empty(t, h.tables(t))
	require.Empty(t, h.history(t))
	require.Empty(t, h.snapshots(t))
}

func TestRunRecreatesDroppedRelations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.migrator(automigrate.DefaultOptions(), nil)

	_, err := m.Run(ctx, model(t, usersDDL))
	require.NoError(t, err)

	h.exec(t, "DROP TABLE users")
	require.Empty(t, h.tables(t))

	result, err := m.Run(ctx, model(t, usersDDL))
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Equal(t, "20250102030406_auto", result.MigrationID)
	require.Len(t, result.Operations, 1)
	require.Equal(t, "CreateTable users", result.Operations[0].String())

	require.Equal(t, []string{"users"}, h.tables(t))
	require.Equal(t, []string{"20250102030405_auto", "20250102030406_auto"}, h.history(t))
	require.Equal(t, []string{"20250102030406_auto", "20250102030405_auto"}, h.snapshots(t))
}

func TestRunSnapshotErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing snapshot", func(t *testing.T) {
		h := newHarness(t)
		h.exec(t, h.dialect.CreateHistoryTable())
		h.exec(t, h.dialect.InsertHistory(), "20240101000000_auto", "0.9.0")

		_, err := h.migrator(automigrate.DefaultOptions(), nil).Run(ctx, model(t, usersDDL))
		require.ErrorIs(t, err, automigrate.ErrSnapshotNotFound)
		require.Empty(t, h.tables(t))
	})

	t.Run("undecodable snapshot", func(t *testing.T) {
		h := newHarness(t)
		h.exec(t, h.dialect.CreateHistoryTable())
		h.exec(t, h.dialect.InsertHistory(), "20240101000000_auto", "0.9.0")

		store := snapshot.New(snapshot.Config{DB: h.db, Dialect: h.dialect})
		require.NoError(t, store.EnsureExists(ctx))
		require.NoError(t, store.Write(ctx, h.db, snapshot.Result{
			MigrationID:  "20240101000000_auto",
			SnapshotText: "version: 99\ntables: []\n",
		}))

		_, err := h.migrator(automigrate.DefaultOptions(), nil).Run(ctx, model(t, usersDDL))
		require.ErrorIs(t, err, reconstruct.ErrSnapshotDecode)
		require.Contains(t, h.spans(), "automigrate.run")
		require.InDelta(t, 1, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(telemetry.OutcomeFailed)), 0)
	})

	t.Run("replacements apply before decoding", func(t *testing.T) {
		h := newHarness(t)
		opts := automigrate.DefaultOptions()

		_, err := h.migrator(opts, nil).Run(ctx, model(t, "CREATE TABLE accounts (id BIGINT PRIMARY KEY);"))
		require.NoError(t, err)

		h.exec(t, "ALTER TABLE accounts RENAME TO users")
		opts.SnapshotReplacements = []reconstruct.Replacement{{From: "name: accounts", To: "name: users"}}

		result, err := h.migrator(opts, nil).Run(ctx, model(t, "CREATE TABLE users (id BIGINT PRIMARY KEY);"))
		require.NoError(t, err)
		require.Nil(t, result)
	})
}

func TestRunAdoptsExistingSchema(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.exec(t, usersDDL)

	result, err := h.migrator(automigrate.DefaultOptions(), nil).Run(ctx, model(t, usersDDL))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Empty(t, result.Operations)

	require.Equal(t, []string{"20250102030405_auto"}, h.history(t))
	require.Equal(t, []string{"20250102030405_auto"}, h.snapshots(t))

	result, err = h.migrator(automigrate.DefaultOptions(), nil).Run(ctx, model(t, usersDDL))
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestRunReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.migrator(automigrate.DefaultOptions(), nil).Run(ctx, model(t, usersDDL+widgetsDDL+gadgetsDDL))
	require.NoError(t, err)
	h.exec(t, "INSERT INTO users (id, email) VALUES (1, 'a@example.com')")

	opts := automigrate.DefaultOptions()
	opts.ResetDatabaseSchema = true

	result, err := h.migrator(opts, nil).Run(ctx, model(t, usersDDL))
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Equal(t, []string{"users"}, h.tables(t))
	require.Equal(t, []string{"20250102030405_auto"}, h.history(t))
	require.Equal(t, []string{"20250102030405_auto"}, h.snapshots(t))

	var n int
	require.NoError(t, h.db.QueryRow("SELECT count(*) FROM users").Scan(&n))
	require.Zero(t, n)
}

func TestRunUnreachable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	unreachable := &mockProbe{
		canConnectFunc: func(context.Context) bool { return false },
		countFunc: func(context.Context) (int, error) {
			t.Fatal("relations counted on an unreachable database")
			return 0, nil
		},
	}

	noWrites := &mockExecutor{
		applyFunc: func(context.Context, []executor.Statement) error {
			t.Fatal("batch applied on an unreachable database")
			return nil
		},
	}

	noReset := &mockStore{
		dropAllFunc: func(context.Context) error {
			t.Fatal("reset on an unreachable database")
			return nil
		},
	}

	tests := []struct {
		name    string
		desired *schema.Model
		err     error
	}{
		{name: "changes require a connection", desired: model(t, usersDDL), err: automigrate.ErrConnectivityUnavailable},
		{name: "nothing to apply", desired: &schema.Model{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := automigrate.DefaultOptions()
			opts.ResetDatabaseSchema = true

			m := automigrate.New(automigrate.Config{
				Probe:    unreachable,
				Store:    noReset,
				Executor: noWrites,
				Dialect:  h.dialect,
				Options:  opts,
			})

			result, err := m.Run(ctx, tt.desired)
			require.Nil(t, result)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRunCancelledBeforeApply(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.migrator(automigrate.DefaultOptions(), nil).Run(ctx, model(t, usersDDL))
	require.Error(t, err)
	require.Empty(t, h.tables(t))
}

func TestRunApplyFailure(t *testing.T) {
	applyErr := errors.New("boom")

	var applied []executor.Statement
	m := automigrate.New(automigrate.Config{
		Probe: &mockProbe{
			canConnectFunc: func(context.Context) bool { return true },
			countFunc:      func(context.Context) (int, error) { return 0, nil },
		},
		Store: &mockStore{
			ensureExistsFunc: func(context.Context) error { return nil },
			statementFunc: func(r snapshot.Result) (executor.Statement, error) {
				return executor.Statement{SQL: "INSERT snapshot", Args: []any{r.MigrationID}}, nil
			},
		},
		Executor: &mockExecutor{
			ensureHistoryFunc: func(context.Context) error { return nil },
			revisionsFunc: func(context.Context) (*migrator.RevisionSet, error) {
				return migrator.NewRevisionSet(nil), nil
			},
			applyFunc: func(_ context.Context, stmts []executor.Statement) error {
				applied = stmts
				return applyErr
			},
		},
		Dialect: newHarness(t).dialect,
		Options: automigrate.DefaultOptions(),
	})

	_, err := m.Run(context.Background(), model(t, usersDDL))
	require.ErrorIs(t, err, applyErr)

	require.Len(t, applied, 5)
	assert.Contains(t, applied[0].SQL, consts.HistoryTable)
	assert.Contains(t, applied[1].SQL, "CREATE TABLE")
	assert.Equal(t, "INSERT history", applied[2].SQL)
	assert.Contains(t, applied[3].SQL, consts.SnapshotTable)
	assert.Equal(t, "INSERT snapshot", applied[4].SQL)
}

func TestListAppliedMigrations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	m := h.migrator(automigrate.DefaultOptions(), nil)

	records, err := m.ListAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Empty(t, records)

	_, err = m.Run(ctx, model(t, usersDDL))
	require.NoError(t, err)

	records, err = m.ListAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "20250102030405_auto", records[0].MigrationID)
	require.False(t, records[0].CreatedAt.IsZero())
}

func TestListPendingOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a snapshot", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.migrator(automigrate.DefaultOptions(), nil).ListPendingOperations(ctx, model(t, usersDDL))
		require.ErrorIs(t, err, automigrate.ErrSnapshotNotFound)
		require.EqualError(t, err, "model snapshot could not be found")
	})

	t.Run("requires a connection", func(t *testing.T) {
		m := automigrate.New(automigrate.Config{
			Probe: &mockProbe{canConnectFunc: func(context.Context) bool { return false }},
		})

		_, err := m.ListPendingOperations(ctx, model(t, usersDDL))
		require.EqualError(t, err, "can not connect to the database")
	})

	t.Run("lists statements without applying them", func(t *testing.T) {
		h := newHarness(t)
		m := h.migrator(automigrate.DefaultOptions(), nil)

		_, err := m.Run(ctx, model(t, usersDDL))
		require.NoError(t, err)

		stmts, err := m.ListPendingOperations(ctx, model(t, usersNicknameDDL))
		require.NoError(t, err)
		require.Len(t, stmts, 1)
		require.Contains(t, stmts[0], "ADD COLUMN")
		require.Contains(t, stmts[0], "nickname")

		require.Len(t, h.history(t), 1)
	})
}
