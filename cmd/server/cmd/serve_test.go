package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/config"
	"github.com/localhub/server/internal/domain/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildUploaderLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "media")

	uploader, mediaDir, err := buildUploader(config.MediaConfig{
		Backend:   config.MediaBackendLocal,
		LocalDir:  dir,
		PublicURL: "http://localhost:8080/media",
	})
	require.NoError(t, err)
	require.NotNil(t, uploader)
	require.DirExists(t, dir)
	require.Equal(t, dir, mediaDir)
}

func TestBuildUploaderCloudinary(t *testing.T) {
	uploader, mediaDir, err := buildUploader(config.MediaConfig{
		Backend: config.MediaBackendCloudinary,
		Cloudinary: config.CloudinaryConfig{
			CloudName: "demo",
			APIKey:    "key",
			APISecret: "secret",
			BaseURL:   "https://api.cloudinary.com",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, uploader)
	require.Empty(t, mediaDir, "remote images are not served locally")
}

func TestBuildUploaderUnknownBackend(t *testing.T) {
	_, _, err := buildUploader(config.MediaConfig{Backend: "s3"})
	require.ErrorContains(t, err, "unsupported media backend")
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*users.User
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, users.ErrNotFound
}

func (m *memoryUsers) Create(_ context.Context, params users.CreateParams) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &users.User{
		ID:           "user-" + params.Email,
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
	}
	m.users[params.Email] = u
	copied := *u
	return &copied, nil
}

func TestBootstrapAdminUser(t *testing.T) {
	repo := &memoryUsers{users: map[string]*users.User{}}
	svc := users.NewService(repo, zerolog.Nop())
	admin := config.AdminBootstrapConfig{Name: "Site Admin", Email: "admin@localhub.example", Password: "change-me-now"}

	require.NoError(t, bootstrapAdminUser(context.Background(), admin, svc, zerolog.Nop()))
	created, err := repo.GetByEmail(context.Background(), "admin@localhub.example")
	require.NoError(t, err)
	require.Equal(t, auth.RoleAdmin, created.Role)

	// A second start finds the account and leaves it alone.
	require.NoError(t, bootstrapAdminUser(context.Background(), admin, svc, zerolog.Nop()))
	require.Len(t, repo.users, 1)
}

func TestBootstrapAdminUserDisabled(t *testing.T) {
	repo := &memoryUsers{users: map[string]*users.User{}}
	svc := users.NewService(repo, zerolog.Nop())

	require.NoError(t, bootstrapAdminUser(context.Background(), config.AdminBootstrapConfig{Email: "admin@localhub.example"}, svc, zerolog.Nop()))
	require.Empty(t, repo.users)
}

func TestGracefulShutdownOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &http.Server{Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, gracefulShutdown(ctx, server, serverErr, zerolog.Nop()))
	_, err = http.Get("http://" + listener.Addr().String())
	require.Error(t, err)
}

func TestGracefulShutdownReportsServerError(t *testing.T) {
	serverErr := make(chan error, 1)
	serverErr <- errors.New("address already in use")
	close(serverErr)

	err := gracefulShutdown(context.Background(), &http.Server{ReadHeaderTimeout: time.Second}, serverErr, zerolog.Nop())
	require.ErrorContains(t, err, "address already in use")
}
