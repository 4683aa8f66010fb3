// Package schema defines the schema model that automatic migrations reconcile
// a database against, and the versioned snapshot document the model is stored
// as between runs.
//
// A Model is a set of tables. Each table has ordered columns, an optional
// primary key, indexes (unique constraints are unique indexes), foreign keys,
// verbatim dialect options and optional seed rows.
//
// Models are built from DDL files (LoadFile, LoadDir, FromSQL) or decoded
// from a snapshot document (Parse). Either way they go through Finalize,
// which canonicalizes spellings, fills in default constraint names, sorts
// and validates, so two models describing the same schema compare Equal no
// matter where they came from.
//
// Snapshot document:
//
//	version: 1
//	migration_id: 20250101120000_auto
//	tables:
//	  - name: users
//	    columns:
//	      - name: id
//	        type: bigint
//	      - name: email
//	        type: varchar(255)
//	    primary_key: [id]
//	    indexes:
//	      - name: uq_users_email
//	        columns: [email]
//	        unique: true
//
// Usage:
//
//	model, err := schema.LoadFile("db/schema.sql")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	text, err := schema.Render(model, "20250101120000_auto")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	restored, err := schema.Parse(text)
//	// restored.Equal(model) == true
package schema
