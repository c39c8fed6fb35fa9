package handlers

import (
	"net/http"
	"time"

	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/domain/users"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	Users  *users.Service
	Tokens *auth.TokenManager
}

func NewAuthHandler(users *users.Service, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type tokenResponse struct {
	Success   bool         `json:"success"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type meResponse struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
}

func toUserResponse(u users.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC(),
	}
}

// Register creates a regular account and signs the caller in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Users.Register(r.Context(), users.RegisterParams{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeToken(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Users.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("user_id", user.ID).Msg("login succeeded")
	h.writeToken(w, r, http.StatusOK, user)
}

// Me returns the authenticated caller.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, r, users.ErrNotFound)
		return
	}

	user, err := h.Users.GetByID(r.Context(), principal.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Success: true, User: toUserResponse(*user)})
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, r *http.Request, status int, user *users.User) {
	issuedAt := time.Now()
	token, err := h.Tokens.Issue(user.Identity())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, status, tokenResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: issuedAt.Add(h.Tokens.Expiry()).UTC().Truncate(time.Second),
		User:      toUserResponse(*user),
	})
}
