package middleware

import (
	"net/http"
)

const (
	// DefaultMaxBodySize is 1MB for JSON endpoints
	DefaultMaxBodySize int64 = 1 << 20

	// DefaultMaxUploadSize is 10MB for multipart image uploads
	DefaultMaxUploadSize int64 = 10 << 20
)

// RequestSize limits the size of incoming request bodies.
//
// It wraps the request body with http.MaxBytesReader to enforce the limit.
// Handlers see *http.MaxBytesError once the limit is crossed and answer 413.
// Requests that announce a larger Content-Length are rejected up front.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Connection", "close")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}

// JSONRequestSize limits request bodies to 1MB.
func JSONRequestSize() func(http.Handler) http.Handler {
	return RequestSize(DefaultMaxBodySize)
}
