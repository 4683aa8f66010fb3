package migrator

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/consts"
	"github.com/pseudomuto/automigrate/pkg/dialect"
)

type (
	// Revision is one row of the applied-migrations ledger. Hand-authored and
	// automatic migrations share the ledger.
	//
	// Example:
	//
	//	revision := &migrator.Revision{
	//		Version:        "20240101120000_auto",
	//		AppliedAt:      time.Now(),
	//		ProductVersion: "1.4.0",
	//	}
	Revision struct {
		// Version is the migration id.
		Version string

		// AppliedAt is when the ledger row was written. Zero when the database
		// returned NULL.
		AppliedAt time.Time

		// ProductVersion is the version of the application that applied it.
		ProductVersion string
	}

	// RevisionSet is the applied-migrations ledger with lookup helpers.
	RevisionSet struct {
		revisions map[string]*Revision
		ordered   []string
	}
)

// NewRevisionSet indexes revisions by version, keeping their order.
func NewRevisionSet(revisions []*Revision) *RevisionSet {
	rs := &RevisionSet{
		revisions: make(map[string]*Revision, len(revisions)),
		ordered:   make([]string, 0, len(revisions)),
	}

	for _, r := range revisions {
		if _, ok := rs.revisions[r.Version]; !ok {
			rs.ordered = append(rs.ordered, r.Version)
		}
		rs.revisions[r.Version] = r
	}

	return rs
}

// LoadRevisions reads the applied-migrations ledger. A missing ledger reads
// as an empty set.
//
// Example usage:
//
//	revisions, err := migrator.LoadRevisions(ctx, db, d)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("%d migrations applied\n", revisions.Count())
func LoadRevisions(ctx context.Context, q dialect.Queryer, d dialect.Dialect) (*RevisionSet, error) {
	exists, err := historyExists(ctx, q, d)
	if err != nil {
		return nil, err
	}
	if !exists {
		return NewRevisionSet(nil), nil
	}

	rows, err := q.QueryContext(ctx, d.SelectHistory())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load revisions")
	}
	defer func() { _ = rows.Close() }()

	var revisions []*Revision
	for rows.Next() {
		var (
			r         Revision
			product   sql.NullString
			appliedAt dialect.Timestamp
		)

		if err := rows.Scan(&r.Version, &product, &appliedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan revision row")
		}

		r.ProductVersion = product.String
		r.AppliedAt = appliedAt.Time
		revisions = append(revisions, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate revision rows")
	}

	return NewRevisionSet(revisions), nil
}

func historyExists(ctx context.Context, q dialect.Queryer, d dialect.Dialect) (bool, error) {
	rows, err := q.QueryContext(ctx, d.TableExistsQuery(), consts.HistoryTable)
	if err != nil {
		return false, errors.Wrap(err, "failed to check for the history ledger")
	}
	defer func() { _ = rows.Close() }()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, errors.Wrap(err, "failed to check for the history ledger")
		}
	}

	return count > 0, errors.Wrap(rows.Err(), "failed to check for the history ledger")
}

// IsCompleted reports whether migration has a ledger row.
func (rs *RevisionSet) IsCompleted(migration *Migration) bool {
	return rs.HasRevision(migration.Version)
}

// GetRevision returns the ledger row of migration, or nil.
func (rs *RevisionSet) GetRevision(migration *Migration) *Revision {
	return rs.revisions[migration.Version]
}

// GetPending returns the migrations of dir without a ledger row, in
// directory order. A nil dir has no pending migrations.
func (rs *RevisionSet) GetPending(dir *MigrationDir) []*Migration {
	if dir == nil {
		return nil
	}

	var pending []*Migration
	for _, m := range dir.Migrations {
		if !rs.IsCompleted(m) {
			pending = append(pending, m)
		}
	}
	return pending
}

// GetExecutedVersions returns every applied version in ledger order.
func (rs *RevisionSet) GetExecutedVersions() []string {
	return slices.Clone(rs.ordered)
}

// Count returns the number of applied migrations.
func (rs *RevisionSet) Count() int {
	return len(rs.ordered)
}

// HasRevision reports whether version has been applied.
func (rs *RevisionSet) HasRevision(version string) bool {
	_, ok := rs.revisions[version]
	return ok
}

// Last returns the revision with the greatest version, or nil when the set
// is empty. Migration ids sort chronologically.
func (rs *RevisionSet) Last() *Revision {
	if len(rs.ordered) == 0 {
		return nil
	}
	return rs.revisions[slices.Max(rs.ordered)]
}
