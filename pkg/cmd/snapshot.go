package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/automigrate"
	"github.com/pseudomuto/automigrate/pkg/config"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/pseudomuto/automigrate/pkg/snapshot"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type snapshotParams struct {
	fx.In

	Source *config.Source
}

// snapshotCmd creates the snapshot command.
//
// By default it renders the model compiled from the schema files in the
// snapshot document format. Committing the output as model.snapshot.yaml next
// to the hand-authored migrations tells automigrate which model they produce.
//
// Example usage:
//
//	# Model after the hand-authored migrations
//	automigrate snapshot -o db/migrations/model.snapshot.yaml
//
//	# Model recorded by the last automatic migration
//	automigrate snapshot --from-db
func snapshotCmd(p snapshotParams) *cli.Command {
	return &cli.Command{
		Name:   "snapshot",
		Usage:  "Print a model snapshot",
		Before: requireConfig(p.Source),
		Flags: []cli.Flag{
			urlFlag,
			&cli.BoolFlag{
				Name:  "from-db",
				Usage: "Print the latest snapshot stored in the database",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the snapshot to a file instead of stdout",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := p.Source.Require()
			if err != nil {
				return err
			}

			var text string
			if cmd.Bool("from-db") {
				text, err = storedSnapshot(ctx, cfg, cmd.String("url"))
			} else {
				text, err = renderSchema(cfg.Schema)
			}
			if err != nil {
				return err
			}

			return writeSnapshot(cmd, text)
		},
	}
}

func renderSchema(path string) (string, error) {
	m, err := schema.Load(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to load schema")
	}

	return schema.Render(m, "")
}

func storedSnapshot(ctx context.Context, cfg *config.Config, url string) (string, error) {
	s, err := openSession(cfg, url)
	if err != nil {
		return "", err
	}
	defer s.Close()

	latest, err := snapshot.New(snapshot.Config{DB: s.db, Dialect: s.dialect}).ReadLatest(ctx)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", automigrate.ErrSnapshotNotFound
	}

	return latest.Text, nil
}

func writeSnapshot(cmd *cli.Command, text string) error {
	path := cmd.String("output")
	if path == "" {
		_, err := io.WriteString(output(cmd), text)
		return err
	}

	if err := os.WriteFile(path, []byte(text), consts.ModeFile); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	fmt.Fprintf(output(cmd), "Wrote %s\n", path)
	return nil
}
