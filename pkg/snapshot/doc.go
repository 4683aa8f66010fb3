// Package snapshot persists rendered schema snapshots in an append-only
// ledger table inside the migrated database.
//
// Each successful automatic migration appends one row holding the gzip
// compressed snapshot document, the migration id and a creation timestamp.
// Only the newest row is ever read back; older rows are kept as history.
package snapshot
