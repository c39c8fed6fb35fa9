package api

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// BuildInfo is the build metadata served at GET /version and printed by the
// version command.
type BuildInfo struct {
	Success   bool   `json:"success"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// NewBuildInfo fills in ldflags values; empty ones fall back to "dev" and
// "unknown".
func NewBuildInfo(version, gitCommit, buildDate string) BuildInfo {
	return BuildInfo{
		Success:   true,
		Service:   "localhub-server",
		Version:   orDefault(version, "dev"),
		GitCommit: orDefault(gitCommit, "unknown"),
		BuildDate: orDefault(buildDate, "unknown"),
		GoVersion: runtime.Version(),
	}
}

// VersionHandler reports build metadata.
func VersionHandler(version, gitCommit, buildDate string) http.Handler {
	payload, _ := json.Marshal(NewBuildInfo(version, gitCommit, buildDate))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	})
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
