package consts

import (
	"os"
	"time"
)

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// SnapshotTable is the append-only ledger holding compressed model snapshots.
	SnapshotTable = "__automigrate_snapshot"

	// HistoryTable is the applied-migrations ledger shared by hand-authored
	// and automatic migrations.
	HistoryTable = "__automigrate_history"

	// MigrationIDLength is the maximum length of a migration id in both ledgers.
	MigrationIDLength = 150

	// AutoMigrationSuffix is appended to the timestamp of generated migration ids.
	AutoMigrationSuffix = "auto"

	// MigrationIDTimeFormat is the timestamp layout used as migration id prefix.
	MigrationIDTimeFormat = "20060102150405"

	// DefaultConfigFile is the project configuration file name.
	DefaultConfigFile = "automigrate.yaml"

	// SumFileName is the integrity file written next to hand-authored migrations.
	SumFileName = "automigrate.sum"

	// ModelSnapshotFile is the optional model snapshot shipped with hand-authored
	// migrations, describing the schema after the last of them.
	ModelSnapshotFile = "model.snapshot.yaml"

	// DefaultConnectTimeout bounds the connectivity probe.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultLockTTL is the lease of a distributed migration lock.
	DefaultLockTTL = 5 * time.Minute
)
