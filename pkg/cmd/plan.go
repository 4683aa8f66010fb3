package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/config"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type planParams struct {
	fx.In

	Source  *config.Source
	Version *Version
}

// plan creates the plan command, which prints the SQL the next automatic
// migration would run without applying it. It requires a database that has
// been migrated at least once.
//
// Example usage:
//
//	automigrate plan > next.sql
func plan(p planParams) *cli.Command {
	return &cli.Command{
		Name:   "plan",
		Usage:  "Print the SQL of the next automatic migration",
		Before: requireConfig(p.Source),
		Flags:  []cli.Flag{urlFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
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

			m, err := s.migrator(cfg.MigratorOptions(), nil, nil)
			if err != nil {
				return err
			}

			stmts, err := m.ListPendingOperations(ctx, desired)
			if err != nil {
				return err
			}

			w := output(cmd)
			if len(stmts) == 0 {
				fmt.Fprintln(w, "-- No pending operations")
				return nil
			}

			for _, stmt := range stmts {
				fmt.Fprintf(w, "%s;\n\n", stmt)
			}

			return nil
		},
	}
}
