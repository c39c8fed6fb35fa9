package events

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("event not found")
	ErrForbidden     = errors.New("access denied")
	ErrImageRequired = errors.New("no image uploaded")
	ErrInvalidStatus = errors.New("invalid status")
)

// Filter narrows a listing or count. Zero values match everything.
type Filter struct {
	Status    Status
	CreatedBy string
}

type Sort int

const (
	SortDateAsc Sort = iota
	SortCreatedDesc
)

type ListQuery struct {
	Filter Filter
	Sort   Sort
	Offset int
	Limit  int
}

type CreateParams struct {
	ID          string
	Title       string
	Description string
	Location    string
	Category    string
	Date        time.Time
	Image       string
	Status      Status
	CreatedBy   *string
}

// UpdateParams carries the fields a caller may replace. Nil fields are left
// untouched.
type UpdateParams struct {
	Title       *string
	Description *string
	Location    *string
	Category    *string
	Date        *time.Time
	Image       *string
	Status      *Status
}

func (p UpdateParams) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil &&
		p.Category == nil && p.Date == nil && p.Image == nil && p.Status == nil
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Event, error)
	Get(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, query ListQuery) ([]Event, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	// SetStatus applies a moderation decision and records the reviewer.
	SetStatus(ctx context.Context, id string, status Status, reviewerID string) (*Event, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Event, error)
	Delete(ctx context.Context, id string) error
}
