package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pseudomuto/automigrate/pkg/config"
	"github.com/pseudomuto/automigrate/pkg/executor"
	"github.com/pseudomuto/automigrate/pkg/migrator"
	"github.com/pseudomuto/automigrate/pkg/snapshot"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type statusParams struct {
	fx.In

	Source *config.Source
}

// status creates the status command.
//
// The status command shows the applied-migrations ledger, the hand-authored
// migrations not applied yet and the automatic migrations recorded in the
// snapshot ledger, newest first.
//
// Example usage:
//
//	automigrate status --url postgres://localhost/app
func status(p statusParams) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show migration status",
		Before: requireConfig(p.Source),
		Flags:  []cli.Flag{urlFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStatus(ctx, cmd, p)
		},
	}
}

func runStatus(ctx context.Context, cmd *cli.Command, p statusParams) error {
	cfg, err := p.Source.Require()
	if err != nil {
		return err
	}

	s, err := openSession(cfg, cmd.String("url"))
	if err != nil {
		return err
	}
	defer s.Close()

	revisions, err := executor.New(executor.Config{DB: s.db, Dialect: s.dialect}).Revisions(ctx)
	if err != nil {
		return err
	}

	dir, err := loadMigrations(cfg.Migrations, false)
	if err != nil {
		return err
	}

	records, err := snapshot.New(snapshot.Config{DB: s.db, Dialect: s.dialect}).List(ctx)
	if err != nil {
		return err
	}

	w := output(cmd)

	fmt.Fprintf(w, "Applied migrations: %d\n", revisions.Count())
	for _, version := range revisions.GetExecutedVersions() {
		rev := revisions.GetRevision(&migrator.Migration{Version: version})
		fmt.Fprintf(w, "  %s  %s  %s\n", rev.Version, rev.ProductVersion, formatTime(rev.AppliedAt))
	}

	pending := revisions.GetPending(dir)
	fmt.Fprintf(w, "Pending migrations: %d\n", len(pending))
	for _, m := range pending {
		fmt.Fprintf(w, "  %s (%d statements)\n", m.Version, len(m.Statements))
	}

	fmt.Fprintf(w, "Snapshots: %d\n", len(records))
	for _, r := range records {
		fmt.Fprintf(w, "  %s  %s\n", r.MigrationID, formatTime(r.CreatedAt))
	}

	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
