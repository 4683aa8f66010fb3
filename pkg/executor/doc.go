// Package executor applies SQL against a live database.
//
// Two entry points exist. Apply runs an arbitrary batch of statements, as a
// single transaction when the dialect supports transactional DDL; automatic
// migrations use it to apply schema changes together with their ledger rows.
// Execute applies pending hand-authored migrations one by one, each in its
// own batch with the history ledger insert, and stops at the first failure.
//
// # Usage Example
//
//	exec := executor.New(executor.Config{
//		DB:             db,
//		Dialect:        d,
//		ProductVersion: "1.0.0",
//	})
//
//	dir, err := migrator.LoadMigrationDir(os.DirFS("./migrations"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := exec.Execute(ctx, dir.Migrations)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, r := range results {
//		if r.Status == executor.StatusFailed {
//			log.Fatalf("migration %s failed: %v", r.Version, r.Error)
//		}
//	}
package executor
