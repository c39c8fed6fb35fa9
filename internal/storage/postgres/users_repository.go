package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/domain/ids"
	"github.com/localhub/server/internal/domain/users"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type userRow struct {
	ID           pgtype.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

func (row userRow) toDomain() *users.User {
	return &users.User{
		ID:           ids.UUIDToString(row.ID),
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         auth.NormalizeRole(row.Role),
		CreatedAt:    timeOrZero(row.CreatedAt),
		UpdatedAt:    timeOrZero(row.UpdatedAt),
	}
}

// GetByID never selects the password hash.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	userID, err := ids.ParseUUID(id)
	if err != nil {
		return nil, users.ErrNotFound
	}

	var row userRow
	err = r.queryer().QueryRow(ctx, `
SELECT id, name, email, role, created_at, updated_at
  FROM users
 WHERE id = $1
`, userID).Scan(&row.ID, &row.Name, &row.Email, &row.Role, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	var row userRow
	err := r.queryer().QueryRow(ctx, `
SELECT id, name, email, password_hash, role, created_at, updated_at
  FROM users
 WHERE lower(email) = lower($1)
`, email).Scan(&row.ID, &row.Name, &row.Email, &row.PasswordHash, &row.Role, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (*users.User, error) {
	var row userRow
	err := r.queryer().QueryRow(ctx, `
INSERT INTO users (name, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING id, name, email, role, created_at, updated_at
`, params.Name, params.Email, params.PasswordHash, string(auth.NormalizeRole(string(params.Role)))).
		Scan(&row.ID, &row.Name, &row.Email, &row.Role, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, users.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
