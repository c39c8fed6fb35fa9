package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/localhub/server/internal/api/problem"
	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic        RateLimitTier = "public"
	TierAuthenticated RateLimitTier = "authenticated"
	TierLogin         RateLimitTier = "login" // Aggressive rate limiting for credential endpoints
)

// RateLimiter hands out per-client token buckets. Authenticated routes are
// keyed by user id, everything else by client IP.
type RateLimiter struct {
	store             *limiterStore
	trustedProxyCIDRs []*net.IPNet
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		store:             newLimiterStore(cfg),
		trustedProxyCIDRs: parseCIDRs(cfg.TrustedProxyCIDRs),
	}
}

// Limit returns middleware enforcing the bucket of the given tier. Install it
// after Authenticate on authenticated routes so the user id is known.
func (l *RateLimiter) Limit(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r, l.trustedProxyCIDRs)
			if p := auth.PrincipalFromContext(r.Context()); p != nil && tier == TierAuthenticated {
				key = "user:" + p.ID
			}

			limiter := l.store.limiter(tier, key)
			if limiter == nil || limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(int(l.store.retryAfter(tier).Seconds())))
			problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too many requests", nil)
		})
	}
}

// Stop ends the background cleanup goroutine.
func (l *RateLimiter) Stop() {
	l.store.Stop()
}

type limiterStore struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	perMinute   map[RateLimitTier]int
	stopOnce    sync.Once
	stopCleanup chan struct{}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	store := &limiterStore{
		limiters: make(map[string]*limiterEntry),
		perMinute: map[RateLimitTier]int{
			TierPublic:        cfg.PublicPerMinute,
			TierAuthenticated: cfg.AuthenticatedPerMinute,
			TierLogin:         cfg.LoginPer15Minutes, // Special handling below
		},
		stopCleanup: make(chan struct{}),
	}

	// Entries idle for 15 minutes are dropped so memory stays bounded.
	go store.cleanupLoop()

	return store
}

func (s *limiterStore) limiter(tier RateLimitTier, key string) *rate.Limiter {
	limit := s.perMinute[tier]
	if limit <= 0 {
		return nil
	}

	lookup := string(tier) + ":" + key

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.limiters[lookup]; ok {
		entry.lastSeen = time.Now()
		return entry.limiter
	}

	s.limiters[lookup] = &limiterEntry{
		limiter:  rate.NewLimiter(rate.Every(s.interval(tier)), limit),
		lastSeen: time.Now(),
	}
	return s.limiters[lookup].limiter
}

// interval is the refill period of one token. The login tier spreads its
// budget over 15 minutes; the others over one minute.
func (s *limiterStore) interval(tier RateLimitTier) time.Duration {
	limit := s.perMinute[tier]
	if limit <= 0 {
		return 0
	}
	if tier == TierLogin {
		return 15 * time.Minute / time.Duration(limit)
	}
	return time.Minute / time.Duration(limit)
}

func (s *limiterStore) retryAfter(tier RateLimitTier) time.Duration {
	if wait := s.interval(tier); wait > time.Second {
		return wait
	}
	return time.Second
}

func (s *limiterStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *limiterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ttl := 15 * time.Minute

	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > ttl {
			delete(s.limiters, key)
		}
	}
}

func (s *limiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

// clientKey identifies the caller by IP. X-Forwarded-For and X-Real-IP are
// only believed when the connection comes from a trusted proxy.
func clientKey(r *http.Request, trusted []*net.IPNet) string {
	if r == nil {
		return ""
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if isTrustedProxy(remoteIP, trusted) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}

	return remoteIP
}

func isTrustedProxy(ip string, trusted []*net.IPNet) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	for _, cidr := range trusted {
		if cidr.Contains(parsedIP) {
			return true
		}
	}
	return false
}

func parseCIDRs(values []string) []*net.IPNet {
	var out []*net.IPNet
	for _, value := range values {
		if _, cidr, err := net.ParseCIDR(strings.TrimSpace(value)); err == nil {
			out = append(out, cidr)
		}
	}
	return out
}
