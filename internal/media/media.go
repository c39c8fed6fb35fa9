// Package media stores event images with an image host and hands back a
// durable public URL for each upload.
package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/localhub/server/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/localhub/server/internal/media"

// Transform is a server-side resize/crop request in the image host's
// notation (w_400,h_250,c_fill,g_auto).
type Transform struct {
	Width   int
	Height  int
	Crop    string
	Gravity string
}

// EventCard is the transform applied to every event image.
var EventCard = Transform{Width: 400, Height: 250, Crop: "fill", Gravity: "auto"}

// DefaultAllowedFormats are the image formats accepted for event images.
var DefaultAllowedFormats = []string{"jpg", "jpeg", "png"}

var ErrUnsupportedFormat = errors.New("unsupported image format")

func (t Transform) String() string {
	parts := make([]string, 0, 4)
	if t.Width > 0 {
		parts = append(parts, fmt.Sprintf("w_%d", t.Width))
	}
	if t.Height > 0 {
		parts = append(parts, fmt.Sprintf("h_%d", t.Height))
	}
	if t.Crop != "" {
		parts = append(parts, "c_"+t.Crop)
	}
	if t.Gravity != "" {
		parts = append(parts, "g_"+t.Gravity)
	}
	return strings.Join(parts, ",")
}

type UploadOptions struct {
	Folder         string
	Transform      Transform
	AllowedFormats []string
}

type Result struct {
	PublicID  string
	SecureURL string
	Format    string
	Width     int
	Height    int
	Bytes     int64
}

// Uploader sends a local file to durable storage.
type Uploader interface {
	Upload(ctx context.Context, path string, opts UploadOptions) (Result, error)
}

// FormatAllowed reports whether filename carries one of the allowed extensions.
func FormatAllowed(filename string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedFormats
	}
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, ext) {
			return true
		}
	}
	return false
}

// RewriteURL inserts the transform after the first "/upload/" segment of a
// delivery URL so the stored link names the same transform the upload
// requested. URLs without that segment, or already carrying the transform,
// come back unchanged.
func RewriteURL(deliveryURL string, t Transform) string {
	segment := t.String()
	if segment == "" || strings.Contains(deliveryURL, "/upload/"+segment+"/") {
		return deliveryURL
	}
	return strings.Replace(deliveryURL, "/upload/", "/upload/"+segment+"/", 1)
}

// Instrument wraps an uploader with upload count and latency metrics and a
// client span per upload.
func Instrument(next Uploader, backend string) Uploader {
	return instrumented{next: next, backend: backend}
}

type instrumented struct {
	next    Uploader
	backend string
}

func (u instrumented) Upload(ctx context.Context, path string, opts UploadOptions) (Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "media.Upload",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("media.backend", u.backend),
			attribute.String("media.folder", opts.Folder),
			attribute.String("media.transform", opts.Transform.String()),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := u.next.Upload(ctx, path, opts)
	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
	} else {
		span.SetAttributes(attribute.String("media.public_id", result.PublicID), attribute.Int64("media.bytes", result.Bytes))
	}
	metrics.MediaUploadsTotal.WithLabelValues(u.backend, outcome).Inc()
	metrics.MediaUploadDuration.WithLabelValues(u.backend).Observe(time.Since(start).Seconds())
	return result, err
}
