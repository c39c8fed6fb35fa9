package storage

import (
	"context"

	"github.com/localhub/server/internal/domain/events"
	"github.com/localhub/server/internal/domain/services"
	"github.com/localhub/server/internal/domain/users"
)

// Repository groups data access by domain.
type Repository interface {
	Events() events.Repository
	Users() users.Repository
	Services() services.Repository

	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}
