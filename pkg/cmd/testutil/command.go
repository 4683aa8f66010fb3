package testutil

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/urfave/cli/v3"
)

// RunCommand runs command as the root of a test app, including its Before
// hook, and returns what it printed.
func RunCommand(t *testing.T, command *cli.Command, args ...string) (string, error) {
	t.Helper()
	return RunCommandWithContext(context.Background(), t, command, args...)
}

// RunCommandWithContext is RunCommand with a custom context.
func RunCommandWithContext(ctx context.Context, t *testing.T, command *cli.Command, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	app := &cli.Command{
		Name:      "test",
		Flags:     command.Flags,
		Before:    command.Before,
		Action:    command.Action,
		Writer:    &buf,
		ErrWriter: io.Discard,
	}

	err := app.Run(ctx, append([]string{"test"}, args...))
	return buf.String(), err
}
