package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/config"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/migrator"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type rehashParams struct {
	fx.In

	Source *config.Source
}

// rehash creates a CLI command for regenerating the sum file for all migrations.
//
// The command recalculates the hash of every hand-authored migration and
// rewrites automigrate.sum. migrate refuses to run while the sum file does
// not match the migration files, so run it after adding or editing one.
//
// Outside a project the default migrations directory is used.
//
// Example usage:
//
//	automigrate rehash
func rehash(p rehashParams) *cli.Command {
	return &cli.Command{
		Name:  "rehash",
		Usage: "Regenerate the sum file for all migrations",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := p.Source.Load()
			if err != nil {
				return err
			}

			migrationsDir := config.DefaultMigrations
			if cfg != nil {
				migrationsDir = cfg.Migrations
			}

			if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
				return errors.Errorf("migrations directory does not exist: %s", migrationsDir)
			}

			dir, err := migrator.LoadMigrationDir(os.DirFS(migrationsDir))
			if err != nil {
				return errors.Wrap(err, "failed to load migration directory")
			}

			if err := dir.Rehash(); err != nil {
				return errors.Wrap(err, "failed to rehash migrations")
			}

			sumFilePath := filepath.Join(migrationsDir, consts.SumFileName)
			sumFile, err := os.OpenFile(sumFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, consts.ModeFile)
			if err != nil {
				return errors.Wrapf(err, "failed to create sum file: %s", sumFilePath)
			}
			defer func() { _ = sumFile.Close() }()

			if _, err := dir.SumFile.WriteTo(sumFile); err != nil {
				return errors.Wrap(err, "failed to write sum file")
			}

			fmt.Fprintf(output(cmd), "Successfully rehashed %d migration(s) and updated sum file\n", len(dir.Migrations))
			return nil
		},
	}
}
