package postgres

import (
	"context"
	"testing"

	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/domain/users"
	"github.com/stretchr/testify/require"
)

func TestUserRepositoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo := &UserRepository{pool: pool}

	created, err := repo.Create(ctx, users.CreateParams{
		Name:         "Grace",
		Email:        "grace@example.org",
		PasswordHash: "$2a$12$hash",
		Role:         auth.RoleAdmin,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, auth.RoleAdmin, created.Role)
	require.Empty(t, created.PasswordHash)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Grace", byID.Name)
	require.Empty(t, byID.PasswordHash)

	byEmail, err := repo.GetByEmail(ctx, "GRACE@example.org")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)
	require.Equal(t, "$2a$12$hash", byEmail.PasswordHash)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo := &UserRepository{pool: pool}

	params := users.CreateParams{Name: "A", Email: "dup@example.org", PasswordHash: "h", Role: auth.RoleUser}
	_, err := repo.Create(ctx, params)
	require.NoError(t, err)

	params.Email = "Dup@Example.org"
	_, err = repo.Create(ctx, params)
	require.ErrorIs(t, err, users.ErrEmailTaken)
}

func TestUserRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)
	repo := &UserRepository{pool: pool}

	_, err := repo.GetByID(ctx, "6f1c1b0e-4c1e-4d8e-9f4b-0f6c7c2b9a11")
	require.ErrorIs(t, err, users.ErrNotFound)
	_, err = repo.GetByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, users.ErrNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@example.org")
	require.ErrorIs(t, err, users.ErrNotFound)
}
