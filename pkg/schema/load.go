package schema

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/parser"
	"golang.org/x/sync/errgroup"
)

// LoadFile compiles the schema file at path (following import directives)
// and builds a finalized model from it.
func LoadFile(path string) (*Model, error) {
	var buf bytes.Buffer
	if err := Compile(os.DirFS(filepath.Dir(path)), filepath.Base(path), &buf); err != nil {
		return nil, err
	}

	sql, err := parser.Parse(&buf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	return FromSQL(sql)
}

// LoadDir builds a finalized model from every .sql file under fsys. Files are
// compiled and parsed concurrently and their statements are combined in
// lexical path order, so the result does not depend on scheduling.
func LoadDir(fsys fs.FS) (*Model, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk schema directory")
	}

	parsed := make([]*parser.SQL, len(files))

	var g errgroup.Group
	for i, name := range files {
		g.Go(func() error {
			var buf bytes.Buffer
			if err := Compile(fsys, name, &buf); err != nil {
				return err
			}

			sql, err := parser.Parse(&buf)
			if err != nil {
				return errors.Wrapf(err, "failed to parse %s", name)
			}

			parsed[i] = sql
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	combined := &parser.SQL{}
	for _, sql := range parsed {
		combined.Statements = append(combined.Statements, sql.Statements...)
	}

	return FromSQL(combined)
}

// Load builds a model from path, which may be a single schema file or a
// directory of them.
func Load(path string) (*Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat schema %s", path)
	}

	if info.IsDir() {
		return LoadDir(os.DirFS(path))
	}
	return LoadFile(path)
}
