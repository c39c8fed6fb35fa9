package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type HealthChecker struct {
	db        Pinger
	version   string
	gitCommit string
}

func NewHealthChecker(db Pinger, version, gitCommit string) *HealthChecker {
	return &HealthChecker{db: db, version: version, gitCommit: gitCommit}
}

// Live reports that the process is serving requests. It never touches
// dependencies so orchestrators do not restart on a database outage.
func (h *HealthChecker) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthCheck{
		Status:    "ok",
		Version:   h.version,
		GitCommit: h.gitCommit,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports whether the database answers within two seconds.
func (h *HealthChecker) Ready(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	default:
	}

	database := h.checkDatabase(r.Context())

	status, code := "ready", http.StatusOK
	if database.Status != "pass" {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthCheck{
		Status:    status,
		Version:   h.version,
		GitCommit: h.gitCommit,
		Checks:    map[string]CheckResult{"database": database},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "Database not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Database ping failed: " + err.Error()
		if ctx.Err() == context.DeadlineExceeded {
			message = "Database ping timed out after 2 seconds"
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency}
	}
	return CheckResult{Status: "pass", Message: "PostgreSQL connection successful", LatencyMs: latency}
}
