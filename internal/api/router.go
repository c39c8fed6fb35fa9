package api

import (
	"net/http"
	"strings"

	"github.com/localhub/server/internal/api/handlers"
	"github.com/localhub/server/internal/api/middleware"
	"github.com/localhub/server/internal/audit"
	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/config"
	"github.com/localhub/server/internal/domain/events"
	"github.com/localhub/server/internal/domain/services"
	"github.com/localhub/server/internal/domain/users"
	"github.com/localhub/server/internal/metrics"
	"github.com/rs/zerolog"
)

// Access declares who may call a route. The authentication gate is only
// installed on routes that are not AccessPublic.
type Access int

const (
	AccessPublic Access = iota
	AccessAuthenticated
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessAuthenticated:
		return "authenticated"
	case AccessAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Route is one entry of the route table.
type Route struct {
	Pattern string
	Access  Access
	// Tier is the rate limit bucket; empty means unlimited.
	Tier middleware.RateLimitTier
	// MaxBody caps the request body; zero means the JSON default.
	MaxBody int64
	Handler http.Handler
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Config      config.Config
	Logger      zerolog.Logger
	Events      *events.Service
	Users       *users.Service
	Catalog     *services.Catalog
	Tokens      *auth.TokenManager
	DB          handlers.Pinger
	RateLimiter *middleware.RateLimiter
	// MediaDir is served under /media/ when the local media backend is active.
	MediaDir  string
	Version   string
	GitCommit string
	BuildDate string
}

// Routes builds the route table.
func Routes(d Deps) []Route {
	eventsHandler := handlers.NewEventsHandler(d.Events, d.Config.Pagination, audit.NewLogger(d.Logger))
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens)
	servicesHandler := handlers.NewServicesHandler(d.Catalog)
	health := handlers.NewHealthChecker(d.DB, d.Version, d.GitCommit)

	uploadLimit := d.Config.Server.MaxUploadBytes
	if uploadLimit <= 0 {
		uploadLimit = middleware.DefaultMaxUploadSize
	}

	routes := []Route{
		{Pattern: "GET /healthz", Access: AccessPublic, Handler: http.HandlerFunc(health.Live)},
		{Pattern: "GET /readyz", Access: AccessPublic, Handler: http.HandlerFunc(health.Ready)},
		{Pattern: "GET /metrics", Access: AccessPublic, Handler: metrics.Handler()},
		{Pattern: "GET /version", Access: AccessPublic, Handler: VersionHandler(d.Version, d.GitCommit, d.BuildDate)},
		{Pattern: "GET /openapi.json", Access: AccessPublic, Handler: OpenAPIHandler()},

		{Pattern: "GET /events/count", Access: AccessPublic, Tier: middleware.TierPublic, Handler: http.HandlerFunc(eventsHandler.Count)},
		{Pattern: "GET /services/count", Access: AccessPublic, Tier: middleware.TierPublic, Handler: http.HandlerFunc(servicesHandler.Count)},

		{Pattern: "POST /auth/register", Access: AccessPublic, Tier: middleware.TierLogin, Handler: http.HandlerFunc(authHandler.Register)},
		{Pattern: "POST /auth/login", Access: AccessPublic, Tier: middleware.TierLogin, Handler: http.HandlerFunc(authHandler.Login)},
		{Pattern: "GET /auth/me", Access: AccessAuthenticated, Tier: middleware.TierAuthenticated, Handler: http.HandlerFunc(authHandler.Me)},

		{Pattern: "POST /events", Access: AccessAuthenticated, Tier: middleware.TierAuthenticated, MaxBody: uploadLimit, Handler: http.HandlerFunc(eventsHandler.Create)},
		{Pattern: "GET /events", Access: AccessAuthenticated, Tier: middleware.TierAuthenticated, Handler: http.HandlerFunc(eventsHandler.ListApproved)},
		{Pattern: "GET /events/user", Access: AccessAuthenticated, Tier: middleware.TierAuthenticated, Handler: http.HandlerFunc(eventsHandler.ListOwned)},
		{Pattern: "GET /events/pending", Access: AccessAdmin, Tier: middleware.TierAuthenticated, Handler: http.HandlerFunc(eventsHandler.ListPending)},
		{Pattern: "GET /events/admin", Access: AccessAdmin, Tier: middleware.TierAuthenticated, Handler: http.HandlerFunc(eventsHandler.ListAll)},
		{Pattern: "GET /events/{id}", Access: AccessAuthenticated, Tier: middleware.TierAuthenticated, Handler: http.HandlerFunc(eventsHandler.Get)},
		{Pattern: "PATCH /events/{id}/status", Access: AccessAdmin, Tier: middleware.TierAuthenticated, Handler: http.HandlerFunc(eventsHandler.SetStatus)},
		{Pattern: "PUT /events/{id}", Access: AccessAuthenticated, Tier: middleware.TierAuthenticated, Handler: http.HandlerFunc(eventsHandler.Update)},
		{Pattern: "DELETE /events/{id}", Access: AccessAuthenticated, Tier: middleware.TierAuthenticated, Handler: http.HandlerFunc(eventsHandler.Delete)},
	}

	if d.MediaDir != "" {
		routes = append(routes, Route{
			Pattern: "GET /media/",
			Access:  AccessPublic,
			Tier:    middleware.TierPublic,
			Handler: mediaFiles(d.MediaDir),
		})
	}
	return routes
}

// NewRouter builds the HTTP handler: the route table on a ServeMux wrapped
// in the global middleware chain.
func NewRouter(d Deps) http.Handler {
	if d.RateLimiter == nil {
		d.RateLimiter = middleware.NewRateLimiter(config.RateLimitConfig{})
	}

	mux := http.NewServeMux()
	for _, route := range Routes(d) {
		mux.Handle(route.Pattern, d.wrap(route))
	}

	// metrics.HTTPMiddleware reads the matched pattern, so it must wrap the
	// mux directly.
	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = middleware.CORS(d.Config.CORS, d.Logger)(handler)
	handler = middleware.SecurityHeaders(d.Config.Environment == "production")(handler)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.CorrelationID(d.Logger)(handler)
	handler = middleware.Tracing(handler)
	return handler
}

// wrap applies the per-route chain, outermost first: authentication,
// capability check, rate limit, body size.
func (d Deps) wrap(route Route) http.Handler {
	handler := route.Handler

	if route.MaxBody > 0 {
		handler = middleware.RequestSize(route.MaxBody)(handler)
	} else {
		handler = middleware.JSONRequestSize()(handler)
	}

	if route.Tier != "" {
		handler = d.RateLimiter.Limit(route.Tier)(handler)
	}

	switch route.Access {
	case AccessAdmin:
		handler = middleware.RequireCapability(auth.CapabilityModerate)(handler)
		handler = middleware.Authenticate(d.Tokens, d.Users)(handler)
	case AccessAuthenticated:
		handler = middleware.Authenticate(d.Tokens, d.Users)(handler)
	}
	return handler
}

// mediaFiles serves stored images without directory listings.
func mediaFiles(dir string) http.Handler {
	files := http.StripPrefix("/media/", http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}
