// Package migrator loads hand-authored migrations and reads the
// applied-migrations ledger.
//
// A migration directory holds numbered *.sql files applied in lexical order,
// an automigrate.sum integrity file and, optionally, model.snapshot.yaml: the
// schema model as it looks after the last migration in the directory. When
// present, that snapshot lets automatic migrations continue from where the
// hand-authored ones left off.
//
// Example usage:
//
//	dir, err := migrator.LoadMigrationDir(os.DirFS("./migrations"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ok, err := dir.Validate()
//	if err != nil || !ok {
//		log.Fatal("migration directory failed its integrity check")
//	}
//
//	revisions, err := migrator.LoadRevisions(ctx, db, dialect.SQLite{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, m := range revisions.GetPending(dir) {
//		fmt.Println("pending:", m.Version)
//	}
package migrator
