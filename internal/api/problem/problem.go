package problem

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const typeBase = "https://localhub.dev/problems/"

// Problem type URIs shared by handlers and middleware.
const (
	TypeValidation   = typeBase + "validation-error"
	TypeUnauthorized = typeBase + "unauthorized"
	TypeForbidden    = typeBase + "forbidden"
	TypeNotFound     = typeBase + "not-found"
	TypeConflict     = typeBase + "conflict"
	TypeTooLarge     = typeBase + "payload-too-large"
	TypeRateLimited  = typeBase + "rate-limit-exceeded"
	TypeServerError  = typeBase + "server-error"
	TypeUnavailable  = typeBase + "service-unavailable"
)

// ProblemDetails is an RFC 7807 body. Success and Message keep error
// responses in the same shape clients read from successful ones.
type ProblemDetails struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message"`
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	Errors   map[string]interface{} `json:"errors,omitempty"`
}

type Option func(*ProblemDetails)

func WithDetail(detail string) Option {
	return func(p *ProblemDetails) {
		p.Detail = detail
	}
}

func WithInstance(instance string) Option {
	return func(p *ProblemDetails) {
		p.Instance = instance
	}
}

func WithErrors(errs map[string]interface{}) Option {
	return func(p *ProblemDetails) {
		p.Errors = errs
	}
}

// Write renders a problem response. The error text, when present, becomes
// the detail and message so callers see the underlying cause.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, opts ...Option) {
	problem := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}

	for _, opt := range opts {
		opt(&problem)
	}

	if problem.Detail == "" && err != nil {
		problem.Detail = err.Error()
	}
	problem.Message = problem.Detail
	if problem.Message == "" {
		problem.Message = title
	}

	if problem.Instance == "" && r != nil {
		problem.Instance = r.URL.Path
	}

	if err != nil && r != nil {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if status >= 500 {
			event = logger.Error()
		}
		event.
			Err(err).
			Int("status", status).
			Str("type", typ).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(title)
	}

	WriteProblem(w, problem)
}

func WriteProblem(w http.ResponseWriter, problem ProblemDetails) {
	problem.Success = false
	payload, err := json.Marshal(problem)
	if err != nil {
		fallback := fmt.Sprintf("{\"success\":false,\"type\":\"about:blank\",\"title\":\"%s\",\"status\":500}", http.StatusText(http.StatusInternalServerError))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(problem.Status)
	_, _ = w.Write(payload)
}

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)
