package automigrate

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/diff"
	"github.com/pseudomuto/automigrate/pkg/executor"
	"github.com/pseudomuto/automigrate/pkg/migrator"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/pseudomuto/automigrate/pkg/snapshot"
	"github.com/pseudomuto/automigrate/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// plan is the state of one run once the prior model is known.
type plan struct {
	reachable bool
	reset     bool
	fromEmpty bool
	baseline  bool
	prior     *schema.Model
	applied   []string
}

// Run migrates the database to desired. It returns a nil Result when
// automatic migrations are disabled or there is nothing to change.
//
// A run either applies the structural operations, the history ledger row and
// the snapshot ledger row together, or fails. Cancelling ctx aborts the run
// until the batch is submitted; after that the batch runs to completion.
func (m *Migrator) Run(ctx context.Context, desired *schema.Model) (*Result, error) {
	if !m.options.Enabled {
		m.logger.Info("Automatic migrations are disabled")
		m.metrics.RecordRun(telemetry.OutcomeDisabled, 0)
		return nil, nil
	}

	ctx, span := m.tracer.Start(ctx, "automigrate.run")
	defer span.End()

	start := m.now()
	result, err := m.run(ctx, desired)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.metrics.RecordRun(telemetry.OutcomeFailed, elapsed)
	case result == nil:
		m.metrics.RecordRun(telemetry.OutcomeNoop, elapsed)
	default:
		span.SetAttributes(
			attribute.String("automigrate.migration_id", result.MigrationID),
			attribute.Int("automigrate.operations", len(result.Operations)),
		)
		m.metrics.RecordRun(telemetry.OutcomeApplied, elapsed)
	}

	return result, err
}

func (m *Migrator) run(ctx context.Context, desired *schema.Model) (*Result, error) {
	p, err := m.prepare(ctx)
	if err != nil {
		return nil, err
	}

	ops := m.differ.Diff(p.prior, desired)
	if p.baseline {
		m.logger.Warn("Adopting existing schema without a stored snapshot", "operations_skipped", len(ops))
		ops = nil
	} else if len(ops) == 0 {
		m.logger.Info("Database schema is up to date")
		return nil, nil
	}

	if !m.options.DataLossAllowed && diff.HasDestructive(ops) {
		return nil, errors.Wrap(ErrDataLossPrevented, describeDestructive(ops))
	}

	if !p.reachable {
		return nil, ErrConnectivityUnavailable
	}

	migrationID := NextMigrationID(m.now(), p.applied)
	text, err := m.renderer.Render(desired, migrationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render model snapshot")
	}

	batch, err := m.batch(p, migrationID, ops, text)
	if err != nil {
		return nil, err
	}

	if err := m.apply(ctx, migrationID, batch); err != nil {
		return nil, err
	}

	for _, op := range ops {
		m.metrics.RecordOperation(string(op.Kind))
	}

	m.logger.Info("Applied automatic migration",
		"migration_id", migrationID,
		"operations", len(ops),
		"from_empty", p.fromEmpty,
		"baseline", p.baseline)

	return &Result{
		Result:     snapshot.Result{MigrationID: migrationID, SnapshotText: text},
		Operations: ops,
		Statements: len(batch),
	}, nil
}

// prepare probes the database, runs the reset or reconcile path and settles
// the prior model and the structural path.
func (m *Migrator) prepare(ctx context.Context) (*plan, error) {
	p := &plan{
		reachable: m.probe.CanConnect(ctx),
		reset:     m.options.ResetDatabaseSchema,
	}

	if !p.reachable {
		if p.reset {
			m.logger.Warn("Ignoring schema reset for an unreachable database")
		}
		p.reset = false
		return p, nil
	}

	if p.reset {
		m.logger.Warn("Resetting database schema", "dialect", m.dialect.Name())
		if err := m.store.DropAllUserRelations(ctx); err != nil {
			return nil, err
		}
	} else if err := m.reconcile(ctx, p); err != nil {
		return nil, err
	}

	relations, err := m.probe.CountUserRelations(ctx)
	if err != nil {
		return nil, err
	}

	// an empty database is built from nothing, whatever the ledgers recorded
	p.fromEmpty = relations == 0
	if p.fromEmpty {
		p.prior = nil
	}
	p.baseline = !p.reset && !p.fromEmpty && p.prior == nil

	return p, nil
}

// reconcile brings the ledgers up to date and determines the prior model.
func (m *Migrator) reconcile(ctx context.Context, p *plan) error {
	if err := m.store.EnsureExists(ctx); err != nil {
		return err
	}
	if err := m.executor.EnsureHistory(ctx); err != nil {
		return err
	}

	revisions, err := m.executor.Revisions(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load applied migrations")
	}

	p.applied = revisions.GetExecutedVersions()

	var known []string
	if m.migrations != nil {
		known = m.migrations.Versions()
	}

	pending := revisions.GetPending(m.migrations)
	unknown := slices.DeleteFunc(slices.Clone(p.applied), func(id string) bool {
		return slices.Contains(known, id)
	})

	if len(unknown) > 0 {
		if len(pending) > 0 {
			return errors.Wrapf(ErrPendingMigrationConflict,
				"pending %s with applied %s", versions(pending), strings.Join(unknown, ", "))
		}

		p.prior, err = m.latestModel(ctx)
		return err
	}

	if m.migrations != nil && len(m.migrations.Migrations) > 0 {
		if p.prior, err = m.migrations.ModelSnapshot(); err != nil {
			return err
		}
		if p.prior == nil {
			return errors.Wrapf(ErrModelSnapshotRequired, "%d migration(s) shipped", len(m.migrations.Migrations))
		}
	}

	if len(pending) > 0 {
		if err := m.applyPending(ctx, pending); err != nil {
			return err
		}

		applied, err := m.executor.Revisions(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to load applied migrations")
		}
		p.applied = applied.GetExecutedVersions()
	}

	return nil
}

func (m *Migrator) latestModel(ctx context.Context) (*schema.Model, error) {
	latest, err := m.store.ReadLatest(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrSnapshotNotFound
	}

	return m.reconstructor.Reconstruct(latest.Text)
}

func (m *Migrator) applyPending(ctx context.Context, pending []*migrator.Migration) error {
	m.logger.Info("Applying pending migrations", "count", len(pending))

	results, err := m.executor.Execute(ctx, pending)
	if err != nil {
		return errors.Wrap(err, "failed to apply pending migrations")
	}

	for _, result := range results {
		if result.Status == executor.StatusFailed {
			return errors.Wrapf(result.Error, "failed to apply migration %s", result.Version)
		}
	}

	return nil
}

// batch assembles the statements of one automatic migration: the ledger
// bootstrap when the database started empty, the operations, the history
// row and the snapshot row.
func (m *Migrator) batch(p *plan, migrationID string, ops []diff.Operation, text string) ([]executor.Statement, error) {
	bootstrap := p.fromEmpty || p.reset

	var batch []executor.Statement
	if bootstrap {
		batch = append(batch, executor.Statement{SQL: m.dialect.CreateHistoryTable()})
	}

	sqls, err := m.generate(ops)
	if err != nil {
		return nil, err
	}
	for _, stmt := range sqls {
		batch = append(batch, executor.Statement{SQL: stmt})
	}

	batch = append(batch, m.executor.HistoryStatement(migrationID))

	if bootstrap {
		batch = append(batch, executor.Statement{SQL: m.dialect.CreateSnapshotTable()})
	}

	if strings.TrimSpace(text) == "" {
		m.logger.Warn("Rendered snapshot is empty, skipping snapshot ledger", "migration_id", migrationID)
		return batch, nil
	}

	stmt, err := m.store.Statement(snapshot.Result{MigrationID: migrationID, SnapshotText: text})
	if err != nil {
		return nil, err
	}

	return append(batch, stmt), nil
}

func (m *Migrator) generate(ops []diff.Operation) ([]string, error) {
	var sqls []string
	for _, op := range ops {
		stmts, err := m.dialect.Generate(op)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to generate SQL for %s", op)
		}
		sqls = append(sqls, stmts...)
	}
	return sqls, nil
}

func (m *Migrator) apply(ctx context.Context, migrationID string, batch []executor.Statement) error {
	ctx, span := m.tracer.Start(ctx, "automigrate.apply", trace.WithAttributes(
		attribute.String("automigrate.migration_id", migrationID),
		attribute.Int("automigrate.statements", len(batch)),
	))
	defer span.End()

	if err := m.executor.Apply(ctx, batch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(err, "failed to apply automatic migration %s", migrationID)
	}

	return nil
}

func describeDestructive(ops []diff.Operation) string {
	var parts []string
	for _, op := range ops {
		if op.Destructive {
			parts = append(parts, op.String())
		}
	}
	return strings.Join(parts, ", ")
}

func versions(migrations []*migrator.Migration) string {
	ids := make([]string, len(migrations))
	for i, mig := range migrations {
		ids[i] = mig.Version
	}
	return strings.Join(ids, ", ")
}
