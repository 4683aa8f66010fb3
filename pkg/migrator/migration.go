package migrator

import (
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/parser"
	"github.com/pseudomuto/automigrate/pkg/schema"
)

type (
	// Migration is a single hand-authored migration file.
	//
	// Example content of 20240101120000_create_users.sql:
	//
	//	CREATE TABLE users (id BIGINT PRIMARY KEY, email TEXT NOT NULL);
	//	CREATE UNIQUE INDEX ix_users_email ON users (email);
	Migration struct {
		// Version is the file name up to its first dot.
		Version string

		// Statements are the individual SQL statements of the file, without
		// trailing semicolons or comment-only fragments.
		Statements []string
	}

	// MigrationDir is a directory of migrations with its integrity file.
	MigrationDir struct {
		// Migrations are sorted lexically by file name.
		Migrations []*Migration

		// SumFile is the stored automigrate.sum, or an empty SumFile when the
		// directory has none yet.
		SumFile *SumFile

		fs    fs.FS
		files []string
	}
)

// LoadMigrationDir loads every top-level .sql file of dir as a migration and
// reads automigrate.sum when present.
//
// Example usage:
//
//	//go:embed migrations
//	var migrationsFS embed.FS
//
//	sub, _ := fs.Sub(migrationsFS, "migrations")
//	dir, err := migrator.LoadMigrationDir(sub)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, m := range dir.Migrations {
//		fmt.Printf("%s: %d statements\n", m.Version, len(m.Statements))
//	}
func LoadMigrationDir(dir fs.FS) (*MigrationDir, error) {
	m := &MigrationDir{fs: dir, SumFile: NewSumFile()}
	if err := m.load(); err != nil {
		return nil, err
	}

	f, err := dir.Open(consts.SumFileName)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return m, nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to open %s", consts.SumFileName)
	}
	defer func() { _ = f.Close() }()

	if m.SumFile, err = LoadSumFile(f); err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", consts.SumFileName)
	}

	return m, nil
}

// load reads the migration files. fs.ReadDir returns entries sorted by name.
func (m *MigrationDir) load() error {
	entries, err := fs.ReadDir(m.fs, ".")
	if err != nil {
		return errors.Wrap(err, "failed to read migration directory")
	}

	m.Migrations = nil
	m.files = nil

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}

		f, err := m.fs.Open(name)
		if err != nil {
			return errors.Wrapf(err, "failed to open: %s", name)
		}

		version, _, _ := strings.Cut(name, ".")
		mig, err := LoadMigration(version, f)
		_ = f.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to load migration: %s", name)
		}

		m.Migrations = append(m.Migrations, mig)
		m.files = append(m.files, name)
	}

	return nil
}

// LoadMigration reads the statements of a migration. Statements are split on
// semicolons outside of strings, quoted identifiers and comments.
func LoadMigration(version string, r io.Reader) (*Migration, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read: %s.sql", version)
	}

	stmts, err := parser.SplitStatements(string(content))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse: %s.sql", version)
	}

	return &Migration{Version: version, Statements: stmts}, nil
}

// Versions returns the version of every migration, in order.
func (m *MigrationDir) Versions() []string {
	versions := make([]string, len(m.Migrations))
	for i, mig := range m.Migrations {
		versions[i] = mig.Version
	}
	return versions
}

// Rehash reloads the migrations and recomputes SumFile from their current
// content. Write SumFile out to persist the result.
func (m *MigrationDir) Rehash() error {
	if m.fs == nil {
		return errors.New("cannot rehash: filesystem reference is nil")
	}

	if err := m.load(); err != nil {
		return err
	}

	sum, err := m.computeSumFile()
	if err != nil {
		return err
	}

	m.SumFile = sum
	return nil
}

// Validate reports whether the stored SumFile matches the current content of
// the migration files. A directory without migrations and without a sum file
// is valid.
//
// Example usage:
//
//	ok, err := dir.Validate()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !ok {
//		log.Fatal("migrations changed since automigrate.sum was written; run rehash")
//	}
func (m *MigrationDir) Validate() (bool, error) {
	if m.fs == nil {
		return false, errors.New("cannot validate: filesystem reference is nil")
	}

	current, err := m.computeSumFile()
	if err != nil {
		return false, err
	}

	return current.Equal(m.SumFile), nil
}

func (m *MigrationDir) computeSumFile() (*SumFile, error) {
	sum := NewSumFile()
	for _, name := range m.files {
		f, err := m.fs.Open(name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open migration file: %s", name)
		}

		err = sum.Add(name, f)
		_ = f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to hash migration: %s", name)
		}
	}

	return sum, nil
}

// ModelSnapshot returns the model described by model.snapshot.yaml, or nil
// when the directory does not ship one.
func (m *MigrationDir) ModelSnapshot() (*schema.Model, error) {
	if m.fs == nil {
		return nil, nil
	}

	data, err := fs.ReadFile(m.fs, consts.ModelSnapshotFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to read %s", consts.ModelSnapshotFile)
	}

	model, err := schema.Parse(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", consts.ModelSnapshotFile)
	}

	return model, nil
}
