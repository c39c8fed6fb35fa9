package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/localhub/server/internal/api/problem"
	"github.com/localhub/server/internal/domain/events"
	"github.com/localhub/server/internal/domain/users"
	"github.com/localhub/server/internal/media"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

var (
	errEmptyBody     = errors.New("request body is required")
	errMalformedBody = errors.New("malformed JSON body")
)

// writeError translates a domain error into a problem response. Unknown
// errors are server errors and carry the underlying message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorAs(w, r, err, "Server error")
}

// writeErrorAs is writeError with a custom title for server errors. The
// title also prefixes the message so clients see which operation failed.
func writeErrorAs(w http.ResponseWriter, r *http.Request, err error, serverTitle string) {
	var (
		eventValidation events.ValidationError
		userValidation  users.ValidationError
		maxErr          *http.MaxBytesError
	)

	switch {
	case errors.As(err, &maxErr):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Request too large", err)
	case errors.As(err, &eventValidation):
		opts := []problem.Option{}
		if eventValidation.Field != "" {
			opts = append(opts, problem.WithErrors(map[string]interface{}{eventValidation.Field: eventValidation.Message}))
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, opts...)
	case errors.As(err, &userValidation):
		fields := make(map[string]interface{}, len(userValidation.Fields))
		for field, rule := range userValidation.Fields {
			fields[field] = rule
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, problem.WithErrors(fields))
	case errors.Is(err, events.ErrImageRequired):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "No image uploaded", err, problem.WithDetail("No image uploaded"))
	case errors.Is(err, events.ErrInvalidStatus):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid status", err, problem.WithDetail("Invalid status"))
	case errors.Is(err, media.ErrUnsupportedFormat), errors.Is(err, errEmptyBody), errors.Is(err, errMalformedBody):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err)
	case errors.Is(err, events.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Access denied", err, problem.WithDetail("Access denied"))
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, problem.WithDetail("Event not found"))
	case errors.Is(err, users.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, problem.WithDetail("User not found"))
	case errors.Is(err, users.ErrEmailTaken):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Email already registered", err)
	case errors.Is(err, users.ErrInvalidCredentials):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid email or password", err)
	default:
		detail := err.Error()
		if serverTitle != "Server error" {
			detail = serverTitle + ". " + detail
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, serverTitle, err, problem.WithDetail(detail))
	}
}
