package automigrate

import (
	"context"

	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/pseudomuto/automigrate/pkg/snapshot"
)

// ListAppliedMigrations returns the automatic migrations recorded in the
// snapshot ledger, newest first.
func (m *Migrator) ListAppliedMigrations(ctx context.Context) ([]snapshot.Record, error) {
	return m.store.List(ctx)
}

// ListPendingOperations returns the SQL an automatic migration to desired
// would apply, without applying it. It requires a reachable database with a
// stored snapshot.
func (m *Migrator) ListPendingOperations(ctx context.Context, desired *schema.Model) ([]string, error) {
	if !m.probe.CanConnect(ctx) {
		return nil, ErrConnectivityUnavailable
	}

	prior, err := m.latestModel(ctx)
	if err != nil {
		return nil, err
	}

	return m.generate(m.differ.Diff(prior, desired))
}
