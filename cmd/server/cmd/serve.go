package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/localhub/server/internal/api"
	"github.com/localhub/server/internal/api/middleware"
	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/config"
	"github.com/localhub/server/internal/domain/events"
	"github.com/localhub/server/internal/domain/services"
	"github.com/localhub/server/internal/domain/users"
	"github.com/localhub/server/internal/media"
	"github.com/localhub/server/internal/metrics"
	"github.com/localhub/server/internal/storage/postgres"
	"github.com/localhub/server/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serverHost     string
	serverPort     int
	migrateOnStart bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the LocalHub HTTP server",
		Long: `Start the LocalHub HTTP server and begin accepting API requests.

The server connects to PostgreSQL before listening and exits non-zero when
the database is unreachable. SIGINT and SIGTERM trigger a graceful shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
	cmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending database migrations before serving")
	return cmd
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("environment", cfg.Environment).
		Msg("starting LocalHub server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version, cfg.Environment)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if migrateOnStart {
		if err := postgres.MigrateUp(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	pool, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("database connected")

	metrics.Registry.MustRegister(metrics.NewDBCollector(pool))

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}

	uploader, mediaDir, err := buildUploader(cfg.Media)
	if err != nil {
		return err
	}

	userService := users.NewService(repo.Users(), logger)
	bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := bootstrapAdminUser(bootstrapCtx, cfg.Admin, userService, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	cancel()

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer limiter.Stop()

	handler := api.NewRouter(api.Deps{
		Config:      cfg,
		Logger:      logger,
		Events:      events.NewService(repo.Events(), uploader, cfg.Media.Folder, logger),
		Users:       userService,
		Catalog:     services.NewCatalog(repo.Services()),
		Tokens:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer),
		DB:          repo,
		RateLimiter: limiter,
		MediaDir:    mediaDir,
		Version:     Version,
		GitCommit:   GitCommit,
		BuildDate:   BuildDate,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       30 * time.Second, // uploads need longer than JSON bodies
		WriteTimeout:      60 * time.Second, // includes the round trip to the image host
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	return gracefulShutdown(ctx, server, serverErr, logger)
}

// buildUploader selects the media backend. The returned directory is non-empty
// only for the local backend, whose files the router serves under /media/.
func buildUploader(cfg config.MediaConfig) (media.Uploader, string, error) {
	switch cfg.Backend {
	case config.MediaBackendCloudinary:
		client, err := media.NewCloudinaryClient(
			cfg.Cloudinary.CloudName,
			cfg.Cloudinary.APIKey,
			cfg.Cloudinary.APISecret,
			media.WithBaseURL(cfg.Cloudinary.BaseURL),
		)
		if err != nil {
			return nil, "", err
		}
		return media.Instrument(client, config.MediaBackendCloudinary), "", nil
	case config.MediaBackendLocal:
		if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
			return nil, "", fmt.Errorf("create media dir: %w", err)
		}
		store := media.NewLocalStore(cfg.LocalDir, cfg.PublicURL)
		return media.Instrument(store, config.MediaBackendLocal), store.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unsupported media backend %q", cfg.Backend)
	}
}

// bootstrapAdminUser creates the configured admin account on first start.
// An existing account with the same email is left untouched.
func bootstrapAdminUser(ctx context.Context, cfg config.AdminBootstrapConfig, svc *users.Service, logger zerolog.Logger) error {
	if !cfg.Enabled() {
		logger.Debug().Msg("admin bootstrap env vars not fully set; skipping")
		return nil
	}

	_, err := svc.CreateWithRole(ctx, users.RegisterParams{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: cfg.Password,
	}, auth.RoleAdmin)
	switch {
	case errors.Is(err, users.ErrEmailTaken):
		return nil
	case err != nil:
		return fmt.Errorf("create admin user: %w", err)
	}

	logger.Info().Str("email", cfg.Email).Msg("bootstrapped admin user")
	return nil
}

func gracefulShutdown(ctx context.Context, server *http.Server, serverErr <-chan error, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
