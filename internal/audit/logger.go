package audit

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/localhub/server/internal/auth"
	"github.com/rs/zerolog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Actions recorded for privileged operations.
const (
	ActionEventReview = "event.review"
	ActionEventDelete = "event.delete"
	ActionEventUpdate = "event.update"
)

// Entry is one audit record.
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	Actor        string            `json:"actor"`
	ActorRole    string            `json:"actor_role,omitempty"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	Status       string            `json:"status"`
	Details      map[string]string `json:"details,omitempty"`
}

// Logger writes audit entries as a nested "audit" object on a zerolog
// logger so they can be filtered out of the regular request log.
// A nil *Logger discards everything.
type Logger struct {
	logger zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "audit").Logger()}
}

func (l *Logger) Log(ctx context.Context, entry Entry) {
	if l == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	details := zerolog.Dict()
	for key, value := range entry.Details {
		details.Str(key, value)
	}

	record := zerolog.Dict().
		Time("timestamp", entry.Timestamp).
		Str("action", entry.Action).
		Str("actor", entry.Actor).
		Str("actor_role", entry.ActorRole).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Str("ip_address", entry.IPAddress).
		Str("status", entry.Status).
		Dict("details", details)

	logger := l.logger
	if reqLogger := zerolog.Ctx(ctx); reqLogger.GetLevel() != zerolog.Disabled {
		// The request-scoped logger already carries request_id.
		logger = reqLogger.With().Str("component", "audit").Logger()
	}

	event := logger.Info()
	if entry.Status == StatusFailure {
		event = logger.Warn()
	}
	event.Dict("audit", record).Msg("audit")
}

// LogFromRequest records an action taken by the authenticated caller of r.
func (l *Logger) LogFromRequest(r *http.Request, action, resourceType, resourceID, status string, details map[string]string) {
	if l == nil {
		return
	}
	entry := Entry{
		Action:       action,
		Actor:        "anonymous",
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    remoteIP(r),
		Status:       status,
		Details:      details,
	}
	if principal := auth.PrincipalFromContext(r.Context()); principal != nil {
		entry.Actor = principal.ID
		entry.ActorRole = string(principal.Role)
	}
	l.Log(r.Context(), entry)
}

// remoteIP is the peer address without the port. Forwarded headers are not
// consulted.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
