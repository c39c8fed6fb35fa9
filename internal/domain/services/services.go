// Package services holds the local service listings (tutors, repairs, small
// businesses) that sit alongside events. Only the public total is exposed
// over HTTP.
package services

import (
	"context"
	"fmt"
	"time"
)

type Category string

const (
	CategoryTutor    Category = "Tutor"
	CategoryRepair   Category = "Repair"
	CategoryBusiness Category = "Business"
)

// DefaultPrice is stored when a listing does not name one.
const DefaultPrice = "Free"

type Service struct {
	ID          string
	Title       string
	Category    Category
	Description string
	Contact     string
	Price       string
	Image       string
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	Count(ctx context.Context) (int64, error)
}

type Catalog struct {
	repo Repository
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

func (c *Catalog) Count(ctx context.Context) (int64, error) {
	total, err := c.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count services: %w", err)
	}
	return total, nil
}
