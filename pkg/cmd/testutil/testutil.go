package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/automigrate/pkg/config"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/parser"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type (
	// ProjectFixture is an isolated project directory backed by a SQLite
	// database file.
	ProjectFixture struct {
		Dir    string
		Config *config.Config
		Source *config.Source
		t      *testing.T
	}

	// MigrationFile is a hand-authored migration.
	MigrationFile struct {
		Version string
		SQL     string
	}
)

// TestProject creates a temp directory with an automigrate.yaml pointing at
// db/schema.sql, db/migrations and a SQLite database named app.db. All
// paths in the config are absolute so commands work from any directory.
func TestProject(t *testing.T) *ProjectFixture {
	t.Helper()

	tmpDir := t.TempDir()
	p := &ProjectFixture{Dir: tmpDir, t: t}

	require.NoError(t, os.MkdirAll(p.GetMigrationsDir(), consts.ModeDir), "Failed to create migrations directory")

	return p.WithConfig(func(cfg *config.Config) {
		cfg.Dialect = "sqlite"
		cfg.URL = filepath.Join(tmpDir, "app.db")
		cfg.Schema = p.GetSchemaPath()
		cfg.Migrations = p.GetMigrationsDir()
	})
}

// WithConfig applies fn to the configuration, writes it back to
// automigrate.yaml and reloads it through a fresh Source.
func (p *ProjectFixture) WithConfig(fn func(*config.Config)) *ProjectFixture {
	p.t.Helper()

	cfg := p.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	fn(cfg)

	data, err := yaml.Marshal(cfg)
	require.NoError(p.t, err, "Failed to encode config")
	require.NoError(p.t, os.WriteFile(p.GetConfigPath(), data, consts.ModeFile), "Failed to write config")

	p.Config, err = config.LoadConfigFile(p.GetConfigPath())
	require.NoError(p.t, err, "Failed to load config file")

	p.Source = config.NewSource(config.Path(p.GetConfigPath()))
	return p
}

// WithSchema writes the desired schema.
func (p *ProjectFixture) WithSchema(ddl string) *ProjectFixture {
	p.t.Helper()

	err := os.WriteFile(p.GetSchemaPath(), []byte(ddl), consts.ModeFile)
	require.NoError(p.t, err, "Failed to write schema file")

	return p
}

// WithMigrations adds migration files to the project
func (p *ProjectFixture) WithMigrations(migrations []MigrationFile) *ProjectFixture {
	p.t.Helper()

	for _, migration := range migrations {
		filename := migration.Version + ".sql"
		err := os.WriteFile(filepath.Join(p.GetMigrationsDir(), filename), []byte(migration.SQL), consts.ModeFile)
		require.NoError(p.t, err, "Failed to write migration file: %s", filename)
	}

	return p
}

// WithModelSnapshot writes model.snapshot.yaml next to the migrations,
// describing the schema built by ddl.
func (p *ProjectFixture) WithModelSnapshot(ddl string) *ProjectFixture {
	p.t.Helper()

	stmts, err := parser.ParseString(ddl)
	require.NoError(p.t, err, "Failed to parse model snapshot DDL")

	model, err := schema.FromSQL(stmts)
	require.NoError(p.t, err, "Failed to build model snapshot")

	text, err := schema.Render(model, "")
	require.NoError(p.t, err, "Failed to render model snapshot")

	path := filepath.Join(p.GetMigrationsDir(), consts.ModelSnapshotFile)
	require.NoError(p.t, os.WriteFile(path, []byte(text), consts.ModeFile), "Failed to write model snapshot")

	return p
}

// WithSumFile writes automigrate.sum with the given content.
func (p *ProjectFixture) WithSumFile(content string) *ProjectFixture {
	p.t.Helper()

	err := os.WriteFile(p.GetSumFilePath(), []byte(content), consts.ModeFile)
	require.NoError(p.t, err, "Failed to write sum file")

	return p
}

// GetMigrationsDir returns the path to the migrations directory
func (p *ProjectFixture) GetMigrationsDir() string {
	return filepath.Join(p.Dir, "db", "migrations")
}

// GetSchemaPath returns the path to the schema file
func (p *ProjectFixture) GetSchemaPath() string {
	return filepath.Join(p.Dir, "db", "schema.sql")
}

// GetConfigPath returns the path to the automigrate.yaml file
func (p *ProjectFixture) GetConfigPath() string {
	return filepath.Join(p.Dir, consts.DefaultConfigFile)
}

// GetSumFilePath returns the path to automigrate.sum
func (p *ProjectFixture) GetSumFilePath() string {
	return filepath.Join(p.GetMigrationsDir(), consts.SumFileName)
}

// MinimalSchema is the schema produced by MinimalMigrations.
const MinimalSchema = "CREATE TABLE accounts (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT);\n" +
	"CREATE INDEX ix_accounts_email ON accounts (email);\n"

// MinimalMigrations returns two hand-authored migrations creating a small
// accounts schema.
func MinimalMigrations() []MigrationFile {
	return []MigrationFile{
		{
			Version: "001_accounts",
			SQL:     "CREATE TABLE accounts (id INTEGER PRIMARY KEY, name TEXT NOT NULL);",
		},
		{
			Version: "002_accounts_email",
			SQL:     "ALTER TABLE accounts ADD COLUMN email TEXT;\nCREATE INDEX ix_accounts_email ON accounts (email);",
		},
	}
}
