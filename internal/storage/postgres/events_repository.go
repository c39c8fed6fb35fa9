package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/domain/events"
	"github.com/localhub/server/internal/domain/ids"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// eventColumns selects an event together with the reduced owner projection.
// Every query aliases the event as e and LEFT JOINs users as u.
const eventColumns = `
       e.id, e.title, e.description, e.location, e.category, e.date, e.image, e.status,
       e.created_by, e.reviewed_by, e.reviewed_at, e.created_at, e.updated_at,
       u.id, u.name, u.email, u.role`

type eventRow struct {
	ID          string
	Title       string
	Description string
	Location    string
	Category    string
	Date        pgtype.Timestamptz
	Image       string
	Status      string
	CreatedBy   pgtype.UUID
	ReviewedBy  pgtype.UUID
	ReviewedAt  pgtype.Timestamptz
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
	OwnerID     pgtype.UUID
	OwnerName   pgtype.Text
	OwnerEmail  pgtype.Text
	OwnerRole   pgtype.Text
}

func (row *eventRow) targets() []any {
	return []any{
		&row.ID, &row.Title, &row.Description, &row.Location, &row.Category, &row.Date, &row.Image, &row.Status,
		&row.CreatedBy, &row.ReviewedBy, &row.ReviewedAt, &row.CreatedAt, &row.UpdatedAt,
		&row.OwnerID, &row.OwnerName, &row.OwnerEmail, &row.OwnerRole,
	}
}

func (row eventRow) toDomain() events.Event {
	event := events.Event{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Location:    row.Location,
		Category:    row.Category,
		Date:        timeOrZero(row.Date),
		Image:       row.Image,
		Status:      events.Status(row.Status),
		CreatedBy:   uuidPtr(row.CreatedBy),
		ReviewedBy:  uuidPtr(row.ReviewedBy),
		ReviewedAt:  timePtr(row.ReviewedAt),
		CreatedAt:   timeOrZero(row.CreatedAt),
		UpdatedAt:   timeOrZero(row.UpdatedAt),
	}
	if row.OwnerID.Valid {
		event.Owner = &events.Owner{
			ID:    ids.UUIDToString(row.OwnerID),
			Name:  row.OwnerName.String,
			Email: row.OwnerEmail.String,
			Role:  auth.NormalizeRole(row.OwnerRole.String),
		}
	}
	return event
}

func (r *EventRepository) Create(ctx context.Context, params events.CreateParams) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
WITH e AS (
  INSERT INTO events (id, title, description, location, category, date, image, status, created_by)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
  RETURNING *
)
SELECT `+eventColumns+`
  FROM e
  LEFT JOIN users u ON u.id = e.created_by
`,
		params.ID,
		params.Title,
		params.Description,
		params.Location,
		params.Category,
		params.Date,
		params.Image,
		string(params.Status),
		optionalUUID(params.CreatedBy),
	)
	return scanEvent(row, "create event")
}

func (r *EventRepository) Get(ctx context.Context, id string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT `+eventColumns+`
  FROM events e
  LEFT JOIN users u ON u.id = e.created_by
 WHERE e.id = $1
`, id)
	return scanEvent(row, "get event")
}

func (r *EventRepository) List(ctx context.Context, query events.ListQuery) ([]events.Event, error) {
	createdBy, ok := ownerFilter(query.Filter)
	if !ok {
		return []events.Event{}, nil
	}

	rows, err := r.queryer().Query(ctx, `
SELECT `+eventColumns+`
  FROM events e
  LEFT JOIN users u ON u.id = e.created_by
 WHERE ($1 = '' OR e.status = $1)
   AND ($2::uuid IS NULL OR e.created_by = $2::uuid)
 ORDER BY `+orderClause(query.Sort)+`
 OFFSET $3
 LIMIT $4
`,
		string(query.Filter.Status),
		createdBy,
		query.Offset,
		query.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0, query.Limit)
	for rows.Next() {
		var row eventRow
		if err := rows.Scan(row.targets()...); err != nil {
			return nil, fmt.Errorf("scan events: %w", err)
		}
		items = append(items, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) Count(ctx context.Context, filter events.Filter) (int64, error) {
	createdBy, ok := ownerFilter(filter)
	if !ok {
		return 0, nil
	}

	var total int64
	err := r.queryer().QueryRow(ctx, `
SELECT count(*)
  FROM events e
 WHERE ($1 = '' OR e.status = $1)
   AND ($2::uuid IS NULL OR e.created_by = $2::uuid)
`, string(filter.Status), createdBy).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return total, nil
}

func (r *EventRepository) SetStatus(ctx context.Context, id string, status events.Status, reviewerID string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
WITH e AS (
  UPDATE events
     SET status = $2,
         reviewed_by = $3,
         reviewed_at = now(),
         updated_at = now()
   WHERE id = $1
  RETURNING *
)
SELECT `+eventColumns+`
  FROM e
  LEFT JOIN users u ON u.id = e.created_by
`, id, string(status), optionalUUID(&reviewerID))
	return scanEvent(row, "set event status")
}

func (r *EventRepository) Update(ctx context.Context, id string, params events.UpdateParams) (*events.Event, error) {
	var status *string
	if params.Status != nil {
		value := string(*params.Status)
		status = &value
	}

	row := r.queryer().QueryRow(ctx, `
WITH e AS (
  UPDATE events
     SET title = COALESCE($2, title),
         description = COALESCE($3, description),
         location = COALESCE($4, location),
         category = COALESCE($5, category),
         date = COALESCE($6, date),
         image = COALESCE($7, image),
         status = COALESCE($8, status),
         updated_at = now()
   WHERE id = $1
  RETURNING *
)
SELECT `+eventColumns+`
  FROM e
  LEFT JOIN users u ON u.id = e.created_by
`,
		id,
		params.Title,
		params.Description,
		params.Location,
		params.Category,
		params.Date,
		params.Image,
		status,
	)
	return scanEvent(row, "update event")
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func scanEvent(row pgx.Row, op string) (*events.Event, error) {
	var data eventRow
	if err := row.Scan(data.targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	event := data.toDomain()
	return &event, nil
}

// ownerFilter returns the created_by argument for a filter. ok is false when
// the filter names an owner id that cannot exist, so the caller can skip the
// query.
func ownerFilter(filter events.Filter) (pgtype.UUID, bool) {
	if filter.CreatedBy == "" {
		return pgtype.UUID{}, true
	}
	parsed, err := ids.ParseUUID(filter.CreatedBy)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return parsed, true
}

func orderClause(sort events.Sort) string {
	switch sort {
	case events.SortCreatedDesc:
		return "e.created_at DESC, e.id DESC"
	default:
		return "e.date ASC, e.id ASC"
	}
}
