package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/domain/events"
	"github.com/localhub/server/internal/domain/ids"
	"github.com/localhub/server/internal/media"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	ownerID = "2b1f6c1e-7a55-4d6b-9d44-2e8f0f1d7c10"
	otherID = "9c3e2f6a-1b2d-4e5f-8a9b-0c1d2e3f4a5b"
	adminID = "5f6e7d8c-9b0a-4c1d-8e2f-3a4b5c6d7e8f"
)

var (
	adminPrincipal = &auth.Principal{ID: adminID, Name: "Admin", Email: "admin@example.org", Role: auth.RoleAdmin}
	ownerPrincipal = &auth.Principal{ID: ownerID, Name: "Owner", Email: "owner@example.org", Role: auth.RoleUser}
	otherPrincipal = &auth.Principal{ID: otherID, Name: "Other", Email: "other@example.org", Role: auth.RoleUser}
)

// eventStore is an in-memory events.Repository.
type eventStore struct {
	mu     sync.Mutex
	events map[string]*events.Event
	seq    int
	err    error
}

func newEventStore() *eventStore {
	return &eventStore{events: map[string]*events.Event{}}
}

func (s *eventStore) Create(_ context.Context, p events.CreateParams) (*events.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	created := time.Date(2026, 1, 1, 0, 0, s.seq, 0, time.UTC)
	e := &events.Event{
		ID: p.ID, Title: p.Title, Description: p.Description, Location: p.Location,
		Category: p.Category, Date: p.Date, Image: p.Image, Status: p.Status,
		CreatedBy: p.CreatedBy, CreatedAt: created, UpdatedAt: created,
	}
	if p.CreatedBy != nil {
		e.Owner = &events.Owner{ID: *p.CreatedBy, Name: "Someone", Email: "someone@example.org", Role: auth.RoleUser}
	}
	s.events[e.ID] = e
	cp := *e
	return &cp, nil
}

func (s *eventStore) Get(_ context.Context, id string) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *eventStore) matching(f events.Filter) []events.Event {
	var out []events.Event
	for _, e := range s.events {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.CreatedBy != "" && !e.OwnedBy(f.CreatedBy) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

func (s *eventStore) List(_ context.Context, q events.ListQuery) ([]events.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.matching(q.Filter)
	sort.Slice(out, func(i, j int) bool {
		if q.Sort == events.SortCreatedDesc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.Before(out[j].Date)
	})
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *eventStore) Count(_ context.Context, f events.Filter) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.matching(f))), nil
}

func (s *eventStore) SetStatus(_ context.Context, id string, status events.Status, reviewer string) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	now := time.Now().UTC()
	e.Status, e.ReviewedBy, e.ReviewedAt = status, &reviewer, &now
	cp := *e
	return &cp, nil
}

func (s *eventStore) Update(_ context.Context, id string, p events.UpdateParams) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Image != nil {
		e.Image = *p.Image
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	cp := *e
	return &cp, nil
}

func (s *eventStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return events.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// seed stores an event directly and returns its id.
func (s *eventStore) seed(t *testing.T, title string, status events.Status, owner string, date time.Time) string {
	t.Helper()
	id, err := ids.NewULID()
	require.NoError(t, err)
	var createdBy *string
	if owner != "" {
		createdBy = &owner
	}
	_, err = s.Create(context.Background(), events.CreateParams{
		ID: id, Title: title, Date: date, Status: status, CreatedBy: createdBy,
		Image: "https://res.cloudinary.com/demo/image/upload/w_400,h_250,c_fill,g_auto/seed.jpg",
	})
	require.NoError(t, err)
	return id
}

// recordingUploader checks the staged file exists at upload time.
type recordingUploader struct {
	paths   []string
	content []byte
	err     error
}

func (u *recordingUploader) Upload(_ context.Context, path string, _ media.UploadOptions) (media.Result, error) {
	u.paths = append(u.paths, path)
	data, readErr := os.ReadFile(path)
	if readErr == nil {
		u.content = data
	}
	if u.err != nil {
		return media.Result{}, u.err
	}
	return media.Result{
		PublicID:  "localhub/events/abc",
		SecureURL: "https://res.cloudinary.com/demo/image/upload/v1/localhub/events/abc.png",
	}, nil
}

func newEventsHandler(store events.Repository, uploader media.Uploader) *EventsHandler {
	svc := events.NewService(store, uploader, "localhub/events", zerolog.Nop())
	return NewEventsHandler(svc, defaultPagination, nil)
}

func withPrincipal(r *http.Request, p *auth.Principal) *http.Request {
	if p == nil {
		return r
	}
	return r.WithContext(auth.WithPrincipal(r.Context(), p))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/events", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
