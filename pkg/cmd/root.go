package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pseudomuto/automigrate/pkg/config"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Source     *config.Source
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates the root command from the registered commands and runs it
// when the fx application starts, shutting the application down with the
// command's exit code.
//
// Example usage:
//
//	fx.New(
//		fx.Supply(args, &cmd.Version{Version: "v1.0.0"}, config.Path("")),
//		fx.Provide(func() context.Context { return ctx }),
//		config.Module,
//		cmd.Module,
//	).Run()
func Run(p Params) {
	p.Lifecycle.Append(fx.StartHook(func() {
		if err := NewApp(p).Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

// NewApp builds the root command.
func NewApp(p Params) *cli.Command {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	return &cli.Command{
		Name:  "automigrate",
		Usage: "Automatic schema migrations for relational databases",
		Description: `automigrate compares the schema declared in DDL files with the schema
recorded in the database, applies the difference and records the result so
the next run can diff against it again.`,
		Version: p.Version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "the project directory",
				Value:       ".",
				DefaultText: "Current directory",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the automigrate config file",
				Sources: cli.EnvVars("AUTOMIGRATE_CONFIG"),
				Value:   consts.DefaultConfigFile,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := os.Chdir(cmd.String("dir")); err != nil {
				return ctx, err
			}

			p.Source.SetPath(cmd.String("config"))
			return ctx, nil
		},
		Commands: p.Commands,
	}
}

func requireConfig(src *config.Source) func(context.Context, *cli.Command) (context.Context, error) {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		_, err := src.Require()
		return ctx, err
	}
}

// output is where a command prints its results.
func output(cmd *cli.Command) io.Writer {
	if cmd.Writer != nil {
		return cmd.Writer
	}
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
