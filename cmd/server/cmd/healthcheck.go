package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/localhub/server/internal/api/handlers"
	"github.com/spf13/cobra"
)

var (
	healthcheckTimeout int
	healthcheckURL     string
)

func newHealthcheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is ready",
		Long: `Performs a readiness check by calling the /readyz endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 when the server reports "ready", non-zero otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := healthcheckURL
			if url == "" {
				url = defaultHealthcheckURL()
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(healthcheckTimeout)*time.Second)
			defer cancel()

			health, err := performHealthCheck(ctx, url)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server status: %s\n", health.Status)
			return nil
		},
	}
	cmd.Flags().IntVar(&healthcheckTimeout, "timeout", 5, "timeout in seconds")
	cmd.Flags().StringVar(&healthcheckURL, "url", "", "readiness URL (default: http://localhost:{SERVER_PORT}/readyz)")
	return cmd
}

// defaultHealthcheckURL targets the local server on the configured port,
// falling back to 8080 when the configuration cannot be read.
func defaultHealthcheckURL() string {
	port := 8080
	if cfg, err := loadConfig(); err == nil {
		port = cfg.Server.Port
	}
	return fmt.Sprintf("http://localhost:%d/readyz", port)
}

// performHealthCheck calls url and succeeds only on a 200 "ready" answer.
func performHealthCheck(ctx context.Context, url string) (handlers.HealthCheck, error) {
	var health handlers.HealthCheck

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return health, fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return health, fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return health, fmt.Errorf("invalid health check response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return health, fmt.Errorf("unhealthy: status %d (%s)", resp.StatusCode, health.Status)
	}
	if health.Status != "ready" {
		return health, fmt.Errorf("unhealthy: status=%s", health.Status)
	}
	return health, nil
}
