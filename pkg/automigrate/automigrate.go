package automigrate

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/dialect"
	"github.com/pseudomuto/automigrate/pkg/diff"
	"github.com/pseudomuto/automigrate/pkg/executor"
	"github.com/pseudomuto/automigrate/pkg/migrator"
	"github.com/pseudomuto/automigrate/pkg/probe"
	"github.com/pseudomuto/automigrate/pkg/reconstruct"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/pseudomuto/automigrate/pkg/snapshot"
	"github.com/pseudomuto/automigrate/pkg/telemetry"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrConnectivityUnavailable is returned when the database can not be
	// reached but the run has changes to apply.
	ErrConnectivityUnavailable = errors.New("can not connect to the database")

	// ErrPendingMigrationConflict is returned when the database was migrated
	// by a build unknown to this one while this build still has hand-authored
	// migrations to apply.
	ErrPendingMigrationConflict = errors.New("automatic migrations can not run: restore from a release database")

	// ErrSnapshotNotFound is returned when a prior model is required but the
	// snapshot ledger holds none.
	ErrSnapshotNotFound = errors.New("model snapshot could not be found")

	// ErrModelSnapshotRequired is returned when hand-authored migrations are
	// shipped without the model snapshot describing the schema they produce.
	ErrModelSnapshotRequired = errors.New("hand-authored migrations require " + consts.ModelSnapshotFile)

	// ErrDataLossPrevented is returned when the run contains destructive
	// operations and Options.DataLossAllowed is false. Nothing is applied.
	ErrDataLossPrevented = errors.New("automatic migration was not applied because it could result in data loss")
)

type (
	// Renderer encodes a model as snapshot text.
	Renderer interface {
		Render(m *schema.Model, migrationID string) (string, error)
	}

	// RendererFunc adapts a function to Renderer. RendererFunc(schema.Render)
	// is the default.
	RendererFunc func(m *schema.Model, migrationID string) (string, error)

	// Reconstructor decodes snapshot text. *reconstruct.Reconstructor
	// satisfies it.
	Reconstructor interface {
		Reconstruct(text string) (*schema.Model, error)
	}

	// Probe classifies the database. *probe.Probe satisfies it.
	Probe interface {
		CanConnect(ctx context.Context) bool
		CountUserRelations(ctx context.Context) (int, error)
	}

	// Store is the snapshot ledger. *snapshot.Store satisfies it.
	Store interface {
		EnsureExists(ctx context.Context) error
		ReadLatest(ctx context.Context) (*snapshot.Record, error)
		List(ctx context.Context) ([]snapshot.Record, error)
		Statement(result snapshot.Result) (executor.Statement, error)
		DropAllUserRelations(ctx context.Context) error
	}

	// Executor applies statement batches and hand-authored migrations.
	// *executor.Executor satisfies it.
	Executor interface {
		Apply(ctx context.Context, statements []executor.Statement) error
		Execute(ctx context.Context, migrations []*migrator.Migration) ([]*executor.ExecutionResult, error)
		EnsureHistory(ctx context.Context) error
		HistoryStatement(migrationID string) executor.Statement
		Revisions(ctx context.Context) (*migrator.RevisionSet, error)
	}

	// Options control a run. The zero value disables automatic migrations;
	// start from DefaultOptions.
	Options struct {
		// Enabled turns automatic migrations on. Defaults to true.
		Enabled bool

		// DataLossAllowed lets destructive operations through.
		DataLossAllowed bool

		// ResetDatabaseSchema drops every user relation before migrating.
		// It is ignored when the database can not be reached.
		ResetDatabaseSchema bool

		// SnapshotReplacements are applied in order to stored snapshot text
		// before it is decoded.
		SnapshotReplacements []reconstruct.Replacement

		// ProductVersion is recorded with every history ledger row.
		ProductVersion string
	}

	// Config holds the capabilities a Migrator is built from. Differ and
	// Renderer default to ModelDiffer and schema.Render.
	Config struct {
		Differ        Differ
		Renderer      Renderer
		Reconstructor Reconstructor
		Probe         Probe
		Store         Store
		Executor      Executor
		Dialect       dialect.Dialect

		// Migrations are the hand-authored migrations known to this build.
		// May be nil.
		Migrations *migrator.MigrationDir

		Options Options

		// Metrics may be nil.
		Metrics *telemetry.Metrics

		// Tracer defaults to the tracer of the global provider.
		Tracer trace.Tracer

		// Now defaults to time.Now.
		Now func() time.Time

		// Logger defaults to slog.Default().
		Logger *slog.Logger
	}

	// Migrator runs automatic migrations.
	Migrator struct {
		differ        Differ
		renderer      Renderer
		reconstructor Reconstructor
		probe         Probe
		store         Store
		executor      Executor
		dialect       dialect.Dialect
		migrations    *migrator.MigrationDir
		options       Options
		metrics       *telemetry.Metrics
		tracer        trace.Tracer
		now           func() time.Time
		logger        *slog.Logger
	}

	// Result describes an applied automatic migration.
	Result struct {
		snapshot.Result

		// Operations are the structural operations that were applied. It is
		// empty when an existing schema was adopted as the baseline.
		Operations []diff.Operation

		// Statements is the number of statements in the applied batch,
		// including the ledger writes.
		Statements int
	}
)

// Render calls f(m, migrationID).
func (f RendererFunc) Render(m *schema.Model, migrationID string) (string, error) {
	return f(m, migrationID)
}

// DefaultOptions returns the documented defaults: enabled, no data loss and
// no reset.
func DefaultOptions() Options {
	return Options{Enabled: true}
}

// New creates a Migrator from cfg.
func New(cfg Config) *Migrator {
	m := &Migrator{
		differ:        cfg.Differ,
		renderer:      cfg.Renderer,
		reconstructor: cfg.Reconstructor,
		probe:         cfg.Probe,
		store:         cfg.Store,
		executor:      cfg.Executor,
		dialect:       cfg.Dialect,
		migrations:    cfg.Migrations,
		options:       cfg.Options,
		metrics:       cfg.Metrics,
		tracer:        cfg.Tracer,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}

	if m.differ == nil {
		m.differ = ModelDiffer{}
	}
	if m.renderer == nil {
		m.renderer = RendererFunc(schema.Render)
	}
	if m.reconstructor == nil {
		m.reconstructor = reconstruct.New(cfg.Options.SnapshotReplacements)
	}
	if m.tracer == nil {
		m.tracer = telemetry.Tracer(nil)
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	return m
}

// Open builds a Migrator with the default store, probe and executor over db.
func Open(db *sql.DB, d dialect.Dialect, opts Options, migrations *migrator.MigrationDir) *Migrator {
	return NewWithDB(db, d, Config{Options: opts, Migrations: migrations})
}

// NewWithDB fills the Store, Probe, Executor and Dialect of cfg that are not
// set with the defaults over db, then calls New.
func NewWithDB(db *sql.DB, d dialect.Dialect, cfg Config) *Migrator {
	store := snapshot.New(snapshot.Config{DB: db, Dialect: d, Logger: cfg.Logger})

	if cfg.Dialect == nil {
		cfg.Dialect = d
	}
	if cfg.Store == nil {
		cfg.Store = store
	}
	if cfg.Probe == nil {
		cfg.Probe = probe.New(probe.Config{DB: db, Store: store, Logger: cfg.Logger})
	}
	if cfg.Executor == nil {
		cfg.Executor = executor.New(executor.Config{
			DB:             db,
			Dialect:        d,
			ProductVersion: cfg.Options.ProductVersion,
			Logger:         cfg.Logger,
		})
	}

	return New(cfg)
}
