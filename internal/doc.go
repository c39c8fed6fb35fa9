// Package internal documents the LocalHub server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP routing, handlers, middleware and problem responses
// - domain: events, users and the services catalog
// - storage: repositories over PostgreSQL (pgx) and schema migrations
// - media: image upload backends (Cloudinary, local disk)
// - auth, audit, config, metrics, telemetry, sanitize, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
