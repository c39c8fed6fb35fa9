package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/localhub/server/internal/domain/events"
	"github.com/localhub/server/internal/domain/services"
	"github.com/localhub/server/internal/domain/users"
	"github.com/localhub/server/internal/storage"
)

var _ storage.Repository = (*Repository)(nil)

// Repository implements storage.Repository interface with PostgreSQL backend
type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	events   *EventRepository
	users    *UserRepository
	services *ServiceRepository
}

// NewRepository creates a new PostgreSQL-backed repository
func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return newRepository(pool, nil), nil
}

func newRepository(pool *pgxpool.Pool, tx pgx.Tx) *Repository {
	return &Repository{
		pool:     pool,
		tx:       tx,
		events:   &EventRepository{pool: pool, tx: tx},
		users:    &UserRepository{pool: pool, tx: tx},
		services: &ServiceRepository{pool: pool, tx: tx},
	}
}

func (r *Repository) Events() events.Repository {
	return r.events
}

func (r *Repository) Users() users.Repository {
	return r.users
}

func (r *Repository) Services() services.Repository {
	return r.services
}

// Ping checks connectivity for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithTx executes a function within a database transaction. Nested calls
// reuse the outer transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, newRepository(r.pool, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
