package auth

import (
	"context"
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Capability names an action gated on the caller's role rather than on
// ownership of a record.
type Capability string

const (
	// CapabilityModerate covers status transitions and the moderation listings.
	CapabilityModerate Capability = "moderate"
	// CapabilityModifyAny lets the holder update or delete records they do not own.
	CapabilityModifyAny Capability = "modify_any"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {CapabilityModerate, CapabilityModifyAny},
	RoleUser:  nil,
}

func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Has reports whether the principal holds the capability. A nil principal
// holds nothing.
func (p *Principal) Has(capability Capability) bool {
	if p == nil {
		return false
	}
	for _, candidate := range roleCapabilities[p.Role] {
		if candidate == capability {
			return true
		}
	}
	return false
}

// CanModify reports whether the principal may change a record owned by ownerID.
func CanModify(p *Principal, ownerID *string) bool {
	if p == nil {
		return false
	}
	if p.Has(CapabilityModifyAny) {
		return true
	}
	return ownerID != nil && *ownerID != "" && *ownerID == p.ID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller attached by the authentication
// middleware, or nil on public routes.
func PrincipalFromContext(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}
