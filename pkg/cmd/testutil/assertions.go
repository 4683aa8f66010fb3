package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/migrator"
	"github.com/stretchr/testify/require"
)

// RequireFileContains asserts that path exists and contains every expected
// string.
func RequireFileContains(t *testing.T, path string, expected ...string) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read file: %s", path)

	for _, s := range expected {
		require.Contains(t, string(content), s, "%s should contain: %s", path, s)
	}
}

// RequireSumFileValid asserts that dir has an automigrate.sum covering every
// migration in it and matching their current content.
func RequireSumFileValid(t *testing.T, dir string) {
	t.Helper()

	require.FileExists(t, filepath.Join(dir, consts.SumFileName))

	md, err := migrator.LoadMigrationDir(os.DirFS(dir))
	require.NoError(t, err, "Failed to load migrations: %s", dir)
	require.Equal(t, len(md.Migrations), md.SumFile.Files(), "Sum file should list every migration")

	ok, err := md.Validate()
	require.NoError(t, err)
	require.True(t, ok, "Sum file should match the migrations in %s", dir)
}

// RequireFileMode asserts the permission bits of path.
func RequireFileMode(t *testing.T, path string, mode os.FileMode) {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err, "Failed to stat file: %s", path)
	require.Equal(t, mode, info.Mode().Perm(), "%s has mode %o", path, info.Mode().Perm())
}
