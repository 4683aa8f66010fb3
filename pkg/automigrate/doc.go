// Package automigrate reconciles a live database with a desired schema model
// without hand-written migration scripts.
//
// A run compares the model stored in the snapshot ledger (or shipped with the
// hand-authored migrations) with the desired model, applies the structural
// difference in one batch, records a synthetic migration in the history
// ledger and appends the desired model to the snapshot ledger. Runs are not
// mutually exclusive; callers that start several instances against the same
// database must serialize them, for example with package lock.
//
// Example usage:
//
//	db, d, err := dialect.Open("postgres", dsn)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	desired, err := schema.Load("db/schema")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	m := automigrate.Open(db, d, automigrate.DefaultOptions(), nil)
//	result, err := m.Run(ctx, desired)
//	switch {
//	case errors.Is(err, automigrate.ErrDataLossPrevented):
//		log.Fatal("refusing to drop data")
//	case err != nil:
//		log.Fatal(err)
//	case result != nil:
//		fmt.Println("applied", result.MigrationID)
//	}
package automigrate
