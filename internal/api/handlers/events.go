package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/localhub/server/internal/audit"
	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/config"
	"github.com/localhub/server/internal/domain/events"
	"github.com/rs/zerolog"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before the rest spills to disk. The overall size is capped by middleware.
const multipartMemory = 8 << 20

type EventsHandler struct {
	Service    *events.Service
	Pagination config.PaginationConfig
	// Audit records moderation decisions and edits made on another
	// member's event. Nil disables auditing.
	Audit *audit.Logger
}

func NewEventsHandler(service *events.Service, pagination config.PaginationConfig, auditLog *audit.Logger) *EventsHandler {
	return &EventsHandler{Service: service, Pagination: pagination, Audit: auditLog}
}

type ownerResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type eventResponse struct {
	ID          string         `json:"_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	Category    string         `json:"category"`
	Date        time.Time      `json:"date"`
	Image       string         `json:"image"`
	Status      string         `json:"status"`
	CreatedBy   *ownerResponse `json:"createdBy"`
	ReviewedBy  *string        `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time     `json:"reviewedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

type listResponse struct {
	Success    bool               `json:"success"`
	Events     []eventResponse    `json:"events"`
	Pagination paginationResponse `json:"pagination"`
}

type eventEnvelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Event   eventResponse `json:"event"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func toEventResponse(e events.Event) eventResponse {
	resp := eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Category:    e.Category,
		Date:        e.Date.UTC(),
		Image:       e.Image,
		Status:      string(e.Status),
		ReviewedBy:  e.ReviewedBy,
		ReviewedAt:  e.ReviewedAt,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
	switch {
	case e.Owner != nil:
		resp.CreatedBy = &ownerResponse{
			ID:    e.Owner.ID,
			Name:  e.Owner.Name,
			Email: e.Owner.Email,
			Role:  string(e.Owner.Role),
		}
	case e.CreatedBy != nil:
		resp.CreatedBy = &ownerResponse{ID: *e.CreatedBy}
	}
	return resp
}

// Create accepts a multipart submission with the event fields and a single
// "image" file.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, fmt.Errorf("%w: %v", errMalformedBody, err))
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	in := events.Input{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Category:    r.FormValue("category"),
		Date:        r.FormValue("date"),
	}

	img, cleanup, err := stageUpload(r, "image")
	if err != nil {
		writeErrorAs(w, r, err, "Failed to create event")
		return
	}
	defer cleanup()

	principal := auth.PrincipalFromContext(r.Context())
	event, err := h.Service.Create(r.Context(), principal, in, img)
	if err != nil {
		writeErrorAs(w, r, err, "Failed to create event")
		return
	}

	message := "Event created successfully. Waiting for admin approval."
	if event.Status == events.StatusApproved {
		message = "Event created successfully and approved automatically."
	}
	writeJSON(w, http.StatusCreated, eventEnvelope{Success: true, Message: message, Event: toEventResponse(*event)})
}

// stageUpload copies the named multipart file to a temporary file for the
// uploader. A missing file yields a nil image, not an error. The cleanup
// func removes the temporary file and is always safe to call.
func stageUpload(r *http.Request, field string) (*events.Image, func(), error) {
	noop := func() {}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "upload-*"+uploadExt(header.Filename))
	if err != nil {
		return nil, noop, fmt.Errorf("stage upload: %w", err)
	}
	cleanup := func() {
		_ = os.Remove(tmp.Name())
	}

	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		cleanup()
		return nil, noop, fmt.Errorf("stage upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("stage upload: %w", err)
	}

	return &events.Image{Path: tmp.Name(), Filename: header.Filename}, cleanup, nil
}

// uploadExt keeps the client's extension when it is plain alphanumerics.
func uploadExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

func (h *EventsHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, events.ListApproved)
}

func (h *EventsHandler) ListOwned(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, events.ListOwned)
}

func (h *EventsHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, events.ListPending)
}

func (h *EventsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, events.ListAll)
}

func (h *EventsHandler) list(w http.ResponseWriter, r *http.Request, kind events.ListKind) {
	req := events.ParsePageRequest(r.URL.Query(), h.Pagination.DefaultLimit, h.Pagination.MaxLimit)

	page, err := h.Service.List(r.Context(), auth.PrincipalFromContext(r.Context()), kind, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]eventResponse, 0, len(page.Events))
	for _, event := range page.Events {
		items = append(items, toEventResponse(event))
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Events:  items,
		Pagination: paginationResponse{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		},
	})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.Get(r.Context(), auth.PrincipalFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventEnvelope{Success: true, Event: toEventResponse(*event)})
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus records a moderation decision.
func (h *EventsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	event, err := h.Service.SetStatus(r.Context(), auth.PrincipalFromContext(r.Context()), r.PathValue("id"), body.Status)
	if err != nil {
		h.Audit.LogFromRequest(r, audit.ActionEventReview, "event", r.PathValue("id"), audit.StatusFailure,
			map[string]string{"status": body.Status, "error": err.Error()})
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("event_id", event.ID).
		Str("status", string(event.Status)).
		Msg("event reviewed")
	h.Audit.LogFromRequest(r, audit.ActionEventReview, "event", event.ID, audit.StatusSuccess,
		map[string]string{"status": string(event.Status)})

	writeJSON(w, http.StatusOK, eventEnvelope{
		Success: true,
		Message: fmt.Sprintf("Event %s successfully.", event.Status),
		Event:   toEventResponse(*event),
	})
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in events.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	event, reviewed, err := h.Service.Update(r.Context(), principal, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reviewed {
		h.Audit.LogFromRequest(r, audit.ActionEventReview, "event", event.ID, audit.StatusSuccess,
			map[string]string{"status": string(event.Status)})
	}
	if actingOnOthers(principal, event.CreatedBy) {
		h.Audit.LogFromRequest(r, audit.ActionEventUpdate, "event", event.ID, audit.StatusSuccess, nil)
	}
	writeJSON(w, http.StatusOK, eventEnvelope{Success: true, Event: toEventResponse(*event)})
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	id := r.PathValue("id")
	if err := h.Service.Delete(r.Context(), principal, id); err != nil {
		if errors.Is(err, events.ErrForbidden) {
			h.Audit.LogFromRequest(r, audit.ActionEventDelete, "event", id, audit.StatusFailure, nil)
		}
		writeError(w, r, err)
		return
	}
	if principal != nil && principal.Has(auth.CapabilityModifyAny) {
		h.Audit.LogFromRequest(r, audit.ActionEventDelete, "event", id, audit.StatusSuccess, nil)
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Event deleted"})
}

// actingOnOthers reports whether principal changed an event it does not own.
func actingOnOthers(principal *auth.Principal, owner *string) bool {
	return principal != nil && (owner == nil || *owner != principal.ID)
}

type eventCountResponse struct {
	Success     bool  `json:"success"`
	TotalEvents int64 `json:"totalEvents"`
}

// Count is public and reports every stored event regardless of status.
func (h *EventsHandler) Count(w http.ResponseWriter, r *http.Request) {
	total, err := h.Service.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventCountResponse{Success: true, TotalEvents: total})
}
