package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/domain/ids"
	"github.com/localhub/server/internal/media"
	"github.com/localhub/server/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ListKind selects one of the listing variants. Each kind fixes its filter,
// its sort order and who may call it.
type ListKind string

const (
	ListApproved ListKind = "approved"
	ListAll      ListKind = "all"
	ListOwned    ListKind = "owned"
	ListPending  ListKind = "pending"
)

// Image is an uploaded file staged on local disk. Filename is the name the
// client sent and is used for the format check.
type Image struct {
	Path     string
	Filename string
}

type Service struct {
	repo     Repository
	uploader media.Uploader
	folder   string
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, uploader media.Uploader, folder string, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		uploader: uploader,
		folder:   folder,
		logger:   logger.With().Str("component", "events").Logger(),
		now:      time.Now,
	}
}

// Create uploads the image and stores a new event owned by the caller. The
// caller may be nil, in which case the event has no owner and starts pending.
func (s *Service) Create(ctx context.Context, p *auth.Principal, in Input, img *Image) (*Event, error) {
	if img == nil || img.Path == "" {
		return nil, ErrImageRequired
	}
	if !media.FormatAllowed(img.Filename, media.DefaultAllowedFormats) {
		return nil, fmt.Errorf("%w: %s", media.ErrUnsupportedFormat, img.Filename)
	}

	in, date, err := ValidateInput(in, s.now())
	if err != nil {
		return nil, err
	}

	uploaded, err := s.uploader.Upload(ctx, img.Path, media.UploadOptions{
		Folder:         s.folder,
		Transform:      media.EventCard,
		AllowedFormats: media.DefaultAllowedFormats,
	})
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	var createdBy *string
	if p != nil && p.ID != "" {
		owner := p.ID
		createdBy = &owner
	}
	status := DefaultStatus(p)

	event, err := s.repo.Create(ctx, CreateParams{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Category:    in.Category,
		Date:        date,
		Image:       media.RewriteURL(uploaded.SecureURL, media.EventCard),
		Status:      status,
		CreatedBy:   createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	metrics.EventsCreatedTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info().
		Str("event_id", event.ID).
		Str("status", string(status)).
		Str("media_id", uploaded.PublicID).
		Msg("event created")
	return event, nil
}

// List returns one page of the requested listing. Count and fetch run
// concurrently and are not atomic with respect to each other.
func (s *Service) List(ctx context.Context, p *auth.Principal, kind ListKind, page PageRequest) (Page, error) {
	query, err := s.listQuery(p, kind)
	if err != nil {
		return Page{}, err
	}
	query.Offset = page.Offset()
	query.Limit = page.Limit

	var (
		total int64
		items []Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Count(gctx, query.Filter)
		if err != nil {
			return fmt.Errorf("count events: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		list, err := s.repo.List(gctx, query)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		items = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []Event{}
	}

	return Page{
		Events:     items,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

func (s *Service) listQuery(p *auth.Principal, kind ListKind) (ListQuery, error) {
	switch kind {
	case ListApproved:
		return ListQuery{Filter: Filter{Status: StatusApproved}, Sort: SortDateAsc}, nil
	case ListOwned:
		if p == nil || p.ID == "" {
			return ListQuery{}, ErrForbidden
		}
		return ListQuery{Filter: Filter{CreatedBy: p.ID}, Sort: SortDateAsc}, nil
	case ListPending:
		if !p.Has(auth.CapabilityModerate) {
			return ListQuery{}, ErrForbidden
		}
		return ListQuery{Filter: Filter{Status: StatusPending}, Sort: SortCreatedDesc}, nil
	case ListAll:
		if !p.Has(auth.CapabilityModerate) {
			return ListQuery{}, ErrForbidden
		}
		return ListQuery{Sort: SortCreatedDesc}, nil
	default:
		return ListQuery{}, fmt.Errorf("unknown listing %q", kind)
	}
}

// Get returns a single event. Approved events are visible to every caller;
// anything else only to its owner and moderators, and reads as not found to
// the rest.
func (s *Service) Get(ctx context.Context, p *auth.Principal, id string) (*Event, error) {
	event, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status == StatusApproved || p.Has(auth.CapabilityModerate) || (p != nil && event.OwnedBy(p.ID)) {
		return event, nil
	}
	return nil, ErrNotFound
}

// SetStatus records a moderation decision. Only approved and declined are
// accepted.
func (s *Service) SetStatus(ctx context.Context, p *auth.Principal, id, rawStatus string) (*Event, error) {
	if !p.Has(auth.CapabilityModerate) {
		return nil, ErrForbidden
	}
	status, err := ParseReviewStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	eventID, err := ids.NormalizeULID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	event, err := s.repo.SetStatus(ctx, eventID, status, p.ID)
	if err != nil {
		return nil, err
	}

	metrics.EventStatusTransitionsTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info().
		Str("event_id", event.ID).
		Str("status", string(status)).
		Str("reviewer_id", p.ID).
		Msg("event reviewed")
	return event, nil
}

// Update replaces the given fields. Owners may edit their own events;
// moderators may edit any event. A status change is a moderation decision:
// only moderators may make it, only to approved or declined, and it goes
// through SetStatus so the reviewer is recorded. reviewed reports whether
// that happened.
func (s *Service) Update(ctx context.Context, p *auth.Principal, id string, in UpdateInput) (event *Event, reviewed bool, err error) {
	existing, err := s.lookup(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !auth.CanModify(p, existing.CreatedBy) {
		return nil, false, ErrForbidden
	}

	params, err := in.ToParams(s.now())
	if err != nil {
		return nil, false, err
	}
	var review *Status
	if params.Status != nil {
		if *params.Status != existing.Status {
			if !p.Has(auth.CapabilityModerate) {
				return nil, false, ErrForbidden
			}
			if !params.Status.Reviewable() {
				return nil, false, fmt.Errorf("%w: %q", ErrInvalidStatus, *params.Status)
			}
			review = params.Status
		}
		params.Status = nil
	}

	event = existing
	if !params.Empty() {
		if event, err = s.repo.Update(ctx, existing.ID, params); err != nil {
			return nil, false, err
		}
	}
	if review == nil {
		return event, false, nil
	}

	event, err = s.repo.SetStatus(ctx, existing.ID, *review, p.ID)
	if err != nil {
		return nil, false, err
	}
	metrics.EventStatusTransitionsTotal.WithLabelValues(string(*review)).Inc()
	s.logger.Info().
		Str("event_id", event.ID).
		Str("status", string(*review)).
		Str("reviewer_id", p.ID).
		Msg("event reviewed")
	return event, true, nil
}

// Delete removes the event permanently.
func (s *Service) Delete(ctx context.Context, p *auth.Principal, id string) error {
	existing, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanModify(p, existing.CreatedBy) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return err
	}
	metrics.EventsDeletedTotal.Inc()
	s.logger.Info().Str("event_id", existing.ID).Str("actor_id", p.ID).Msg("event deleted")
	return nil
}

// Count returns the number of stored events regardless of status.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, Filter{})
}

func (s *Service) lookup(ctx context.Context, id string) (*Event, error) {
	eventID, err := ids.NormalizeULID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}
