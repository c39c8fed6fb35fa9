package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/localhub/server/internal/auth"
)

// Status is the moderation state of an event.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined:
		return true
	}
	return false
}

// Reviewable reports whether s is a status a moderator may set.
func (s Status) Reviewable() bool {
	return s == StatusApproved || s == StatusDeclined
}

// ParseReviewStatus accepts only the statuses a moderation decision can
// produce.
func ParseReviewStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Reviewable() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// DefaultStatus is the status a new event starts in. Moderators skip the
// queue; everyone else, including an unresolved caller, waits for review.
func DefaultStatus(p *auth.Principal) Status {
	if p.Has(auth.CapabilityModerate) {
		return StatusApproved
	}
	return StatusPending
}

// Owner is the reduced projection of the creating user embedded in listings.
type Owner struct {
	ID    string
	Name  string
	Email string
	Role  auth.Role
}

type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Category    string
	Date        time.Time
	Image       string
	Status      Status
	CreatedBy   *string
	Owner       *Owner
	ReviewedBy  *string
	ReviewedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether userID created the event.
func (e *Event) OwnedBy(userID string) bool {
	return e != nil && e.CreatedBy != nil && userID != "" && *e.CreatedBy == userID
}
