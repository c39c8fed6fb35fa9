package users

import (
	"context"
	"errors"
	"time"

	"github.com/localhub/server/internal/auth"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is an account record. PasswordHash is only populated by lookups that
// need it for credential checks.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         auth.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the token payload for the user.
func (u User) Identity() auth.Identity {
	return auth.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

// Principal returns the request principal for the user.
func (u User) Principal() *auth.Principal {
	return &auth.Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: auth.NormalizeRole(string(u.Role))}
}

type CreateParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         auth.Role
}

type Repository interface {
	// GetByID returns the user without its password hash.
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByEmail returns the user including its password hash.
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, params CreateParams) (*User, error)
}
