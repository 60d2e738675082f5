package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stores bundles the PostgreSQL implementations over one pool.
type Stores struct {
	Pool      *pgxpool.Pool
	Documents *DocumentStore
	Admins    *AdminStore
}

// Open connects, migrates when cfg.AutoMigrate is set, and returns the
// stores. Close releases the pool.
func Open(ctx context.Context, cfg *Config) (*Stores, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	return &Stores{
		Pool:      pool,
		Documents: NewDocumentStore(pool, cfg),
		Admins:    NewAdminStore(pool, cfg),
	}, nil
}

func (s *Stores) Close() {
	s.Pool.Close()
}
