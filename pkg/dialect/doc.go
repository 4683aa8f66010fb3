// Package dialect turns schema operations into SQL for a specific database
// engine and provides the SQL used to maintain the two bookkeeping tables:
// the applied-migrations history and the model snapshot ledger.
//
// Three dialects are registered:
//
//   - postgres, over database/sql with the pgx stdlib driver
//   - sqlite, over the pure Go modernc.org/sqlite driver
//   - clickhouse, over clickhouse-go's database/sql adapter
//
// Usage:
//
//	db, d, err := dialect.Open("postgres", "postgres://localhost/app")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	for _, op := range diff.Diff(prior, desired) {
//		stmts, err := d.Generate(op)
//		...
//	}
package dialect
