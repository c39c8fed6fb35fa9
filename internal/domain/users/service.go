package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/sanitize"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt password hashing
const BcryptCost = 12

// RegisterParams is the self-service signup payload.
type RegisterParams struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
}

// ValidationError reports which fields failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, rule := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, rule))
	}
	return "invalid user: " + strings.Join(parts, ", ")
}

type Service struct {
	repo      Repository
	logger    zerolog.Logger
	validator *validator.Validate
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		logger:    logger.With().Str("component", "users").Logger(),
		validator: validator.New(),
	}
}

// Register creates a regular user account.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	return s.create(ctx, params, auth.RoleUser)
}

// CreateWithRole creates an account with an explicit role. It backs the
// operator CLI and is not reachable over HTTP.
func (s *Service) CreateWithRole(ctx context.Context, params RegisterParams, role auth.Role) (*User, error) {
	return s.create(ctx, params, auth.NormalizeRole(string(role)))
}

func (s *Service) create(ctx context.Context, params RegisterParams, role auth.Role) (*User, error) {
	params.Name = sanitize.Text(params.Name)
	params.Email = normalizeEmail(params.Email)
	if err := s.validate(params); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, params.Email)
	if err == nil && existing != nil {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""

	s.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user created")
	return user, nil
}

// Authenticate checks email and password and returns the user without its
// password hash. Unknown emails and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	user.PasswordHash = ""
	return user, nil
}

// GetByID hydrates the principal for an authenticated request.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) validate(params RegisterParams) error {
	err := s.validator.Struct(params)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return ValidationError{Fields: fields}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
