package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/localhub/server/internal/domain/services"
)

var _ services.Repository = (*ServiceRepository)(nil)

type ServiceRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *ServiceRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.queryer().QueryRow(ctx, `SELECT count(*) FROM services`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count services: %w", err)
	}
	return total, nil
}

func (r *ServiceRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
