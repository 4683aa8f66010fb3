package cmd

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/automigrate"
	"github.com/pseudomuto/automigrate/pkg/config"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/dialect"
	"github.com/pseudomuto/automigrate/pkg/lock"
	"github.com/pseudomuto/automigrate/pkg/migrator"
	"github.com/pseudomuto/automigrate/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

var urlFlag = &cli.StringFlag{
	Name:    "url",
	Aliases: []string{"u"},
	Usage:   "Database connection string, overriding the config file",
	Sources: cli.EnvVars("AUTOMIGRATE_URL"),
	Config: cli.StringConfig{
		TrimSpace: true,
	},
}

// session is an open connection to the configured database.
type session struct {
	cfg     *config.Config
	db      *sql.DB
	dialect dialect.Dialect
	closers []func() error
}

func openSession(cfg *config.Config, url string) (*session, error) {
	if url == "" {
		url = cfg.URL
	}
	if url == "" {
		return nil, errors.New("no database url configured")
	}
	if cfg.Dialect == "" {
		return nil, errors.Errorf("no dialect configured, expected one of %v", dialect.Names())
	}

	d, err := dialect.Get(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	if cfg.TLS.Enabled() {
		if d.Name() != "clickhouse" {
			return nil, errors.Errorf("tls client certificates are not supported by %s", d.Name())
		}

		tc, err := dialect.LoadTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		d = dialect.ClickHouse{TLS: tc}
	}

	db, err := d.Open(url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", d.Name())
	}

	return &session{cfg: cfg, db: db, dialect: d, closers: []func() error{db.Close}}, nil
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// migrator builds a Migrator over the session with the hand-authored
// migrations of the project.
func (s *session) migrator(opts automigrate.Options, metrics *telemetry.Metrics, tracer trace.Tracer) (*automigrate.Migrator, error) {
	dir, err := loadMigrations(s.cfg.Migrations, true)
	if err != nil {
		return nil, err
	}

	return automigrate.NewWithDB(s.db, s.dialect, automigrate.Config{
		Options:    opts,
		Migrations: dir,
		Metrics:    metrics,
		Tracer:     tracer,
		Logger:     slog.Default(),
	}), nil
}

// locker returns the configured lock, which the session releases on Close.
func (s *session) locker() (lock.Locker, error) {
	switch {
	case s.cfg.Lock.Redis != "":
		opts, err := redis.ParseURL(s.cfg.Lock.Redis)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis lock url")
		}

		client := redis.NewClient(opts)
		s.closers = append(s.closers, client.Close)
		return lock.NewRedis(client, s.cfg.Lock.Key, s.cfg.Lock.TTL), nil
	case s.cfg.Lock.Advisory:
		if s.dialect.Name() != "postgres" {
			return nil, errors.Errorf("advisory locks are not supported by %s", s.dialect.Name())
		}
		return lock.NewAdvisory(s.db, s.cfg.Lock.Key), nil
	default:
		return lock.Nop{}, nil
	}
}

// tracer starts OTLP export when an endpoint is configured. The session
// flushes it on Close.
func (s *session) tracer(ctx context.Context, version *Version) (trace.Tracer, error) {
	if s.cfg.Telemetry.OTLPEndpoint == "" {
		return telemetry.Tracer(nil), nil
	}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Endpoint:       s.cfg.Telemetry.OTLPEndpoint,
		Insecure:       s.cfg.Telemetry.Insecure,
		ServiceVersion: version.Version,
	})
	if err != nil {
		return nil, err
	}

	s.closers = append(s.closers, func() error {
		return tp.Shutdown(context.WithoutCancel(ctx))
	})
	return telemetry.Tracer(tp), nil
}

// loadMigrations loads the hand-authored migrations in path. A missing
// directory means there are none. With validate set, a directory whose
// automigrate.sum does not match its files is rejected.
func loadMigrations(path string, validate bool) (*migrator.MigrationDir, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	dir, err := migrator.LoadMigrationDir(os.DirFS(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load migrations")
	}

	if !validate {
		return dir, nil
	}

	ok, err := dir.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate migrations")
	}
	if !ok {
		return nil, errors.Errorf("%s does not match the migrations in %s, run rehash", consts.SumFileName, path)
	}

	return dir, nil
}
