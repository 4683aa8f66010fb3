package schema

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// ImportDirective includes another schema file in place when it starts a
// line of a schema file.
const ImportDirective = "-- automigrate:import"

// Compile recursively compiles a schema file and its imports. It processes
// import directives (lines starting with "-- automigrate:import") and includes
// the referenced files' contents in the output. Import paths are resolved
// relative to the importing file's directory within fsys. Import cycles are
// reported as errors.
//
// Example:
//
//	var buf bytes.Buffer
//	err := schema.Compile(os.DirFS("db"), "main.sql", &buf)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// main.sql:
//	//   -- automigrate:import tables/users.sql
//	//   -- automigrate:import tables/orders.sql
func Compile(fsys fs.FS, name string, w io.Writer) error {
	return compile(fsys, path.Clean(name), w, map[string]bool{})
}

func compile(fsys fs.FS, name string, w io.Writer, visiting map[string]bool) error {
	if visiting[name] {
		return errors.Errorf("import cycle detected at %s", name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	f, err := fsys.Open(name)
	if err != nil {
		return errors.Wrapf(err, "failed to read file %s", name)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ImportDirective) {
			importPath := strings.TrimSpace(strings.TrimPrefix(line, ImportDirective))
			if importPath == "" {
				return errors.Errorf("empty import directive in %s", name)
			}

			if !path.IsAbs(importPath) {
				importPath = path.Join(path.Dir(name), importPath)
			}

			if err := compile(fsys, strings.TrimPrefix(importPath, "/"), w, visiting); err != nil {
				return err
			}

			continue
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return errors.Wrap(err, "failed to write compiled schema")
		}
	}

	return errors.Wrapf(scanner.Err(), "failed scanning %s", name)
}
