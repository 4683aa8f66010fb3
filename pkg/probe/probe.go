// Package probe classifies the target database before a migration run:
// whether it can be reached at all and whether it holds any user relations.
package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/pseudomuto/automigrate/pkg/consts"
)

type (
	// Pinger checks connectivity. *sql.DB satisfies it.
	Pinger interface {
		PingContext(ctx context.Context) error
	}

	// Counter counts user relations. *snapshot.Store satisfies it.
	Counter interface {
		CountUserRelations(ctx context.Context) (int, error)
	}

	// Config configures a Probe.
	Config struct {
		DB    Pinger
		Store Counter

		// Timeout bounds CanConnect. Defaults to consts.DefaultConnectTimeout.
		Timeout time.Duration
		Logger  *slog.Logger
	}

	// Probe answers the two questions that select the migration path.
	Probe struct {
		db      Pinger
		store   Counter
		timeout time.Duration
		logger  *slog.Logger
	}
)

// New creates a Probe.
func New(cfg Config) *Probe {
	p := &Probe{
		db:      cfg.DB,
		store:   cfg.Store,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}

	if p.timeout <= 0 {
		p.timeout = consts.DefaultConnectTimeout
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// CanConnect pings the database. Failures are logged and reported as false.
func (p *Probe) CanConnect(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.db.PingContext(ctx); err != nil {
		p.logger.Warn("Database is not reachable", "error", err)
		return false
	}

	return true
}

// CountUserRelations counts tables and views other than the ledgers.
func (p *Probe) CountUserRelations(ctx context.Context) (int, error) {
	return p.store.CountUserRelations(ctx)
}
