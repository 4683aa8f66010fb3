package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/config"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/pseudomuto/automigrate/pkg/telemetry"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type migrateParams struct {
	fx.In

	Source  *config.Source
	Version *Version
}

// migrate creates the migrate command, which runs one automatic migration.
//
// Command flags:
//   - --url, -u: Connection string overriding the config file
//   - --allow-data-loss: Apply destructive operations
//   - --reset: Drop every user relation before migrating
//
// Example usage:
//
//	# Migrate using the url from automigrate.yaml
//	automigrate migrate
//
//	# Migrate another database, dropping columns removed from the schema
//	automigrate migrate --url postgres://localhost/app --allow-data-loss
func migrate(p migrateParams) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Reconcile the database with the schema",
		Description: `Compare the schema files with the model recorded in the database and apply
the difference in one batch, together with a history ledger row and a new
snapshot of the model.

Pending hand-authored migrations are applied first. Destructive operations
are refused unless data loss is allowed in the config or with
--allow-data-loss. When a lock is configured the run holds it throughout.`,
		Before: requireConfig(p.Source),
		Flags: []cli.Flag{
			urlFlag,
			&cli.BoolFlag{
				Name:  "allow-data-loss",
				Usage: "Apply operations that can discard data",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Drop every user relation and rebuild the schema from nothing",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runMigrate(ctx, cmd, p)
		},
	}
}

func runMigrate(ctx context.Context, cmd *cli.Command, p migrateParams) error {
	cfg, err := p.Source.Require()
	if err != nil {
		return err
	}

	desired, err := schema.Load(cfg.Schema)
	if err != nil {
		return errors.Wrap(err, "failed to load schema")
	}

	s, err := openSession(cfg, cmd.String("url"))
	if err != nil {
		return err
	}
	defer s.Close()

	opts := cfg.MigratorOptions()
	if opts.ProductVersion == "" {
		opts.ProductVersion = p.Version.Version
	}
	if cmd.Bool("allow-data-loss") {
		opts.DataLossAllowed = true
	}
	if cmd.Bool("reset") {
		opts.ResetDatabaseSchema = true
	}

	tracer, err := s.tracer(ctx, p.Version)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	m, err := s.migrator(opts, metrics, tracer)
	if err != nil {
		return err
	}

	locker, err := s.locker()
	if err != nil {
		return err
	}

	release, err := locker.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	slog.Info("Starting automatic migration",
		"dialect", s.dialect.Name(),
		"schema", cfg.Schema,
		"tables", len(desired.Tables),
		"data_loss_allowed", opts.DataLossAllowed,
		"reset", opts.ResetDatabaseSchema,
	)

	result, err := m.Run(ctx, desired)
	if werr := metrics.WriteTextfile(cfg.Telemetry.MetricsFile); werr != nil {
		slog.Warn("Could not write metrics", "error", werr)
	}
	if err != nil {
		return err
	}

	w := output(cmd)
	if result == nil {
		fmt.Fprintln(w, "Database schema is up to date.")
		return nil
	}

	fmt.Fprintf(w, "Applied %s (%d operations, %d statements)\n", result.MigrationID, len(result.Operations), result.Statements)
	for _, op := range result.Operations {
		fmt.Fprintf(w, "  %s\n", op)
	}

	return nil
}
