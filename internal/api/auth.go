package api

import (
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/config"

	"golang.org/x/time/rate"
)

// defaultOwner is the owner recorded for pushes when auth is disabled.
const defaultOwner = "local"

// HTTPAuth authenticates admin requests by API key and rate-limits each
// client independently.
type HTTPAuth struct {
	cfg      config.APIConfig
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// ClientName resolves the authenticated principal for a request. Mutations
// pushed through the API are owned by this principal.
func (a *HTTPAuth) ClientName(r *http.Request) string {
	if !a.cfg.Auth.Enabled {
		return defaultOwner
	}
	key := r.Header.Get(a.cfg.Auth.HeaderAPIKey)
	for _, client := range a.cfg.Auth.APIKeys {
		if subtle.ConstantTimeCompare([]byte(client.Key), []byte(key)) == 1 {
			return client.Name
		}
	}
	return ""
}

// Wrap enforces authentication and per-client rate limits. The health
// endpoint stays open for load balancer probes.
func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		name := a.ClientName(r)
		if a.cfg.Auth.Enabled && name == "" {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}

		if !a.limiter(name).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) limiter(client string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	lim, ok := a.limiters[client]
	if !ok {
		rps := a.cfg.RateLimit.RPS
		if rps <= 0 {
			rps = 10
		}
		burst := a.cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 20
		}
		lim = rate.NewLimiter(rate.Limit(rps), burst)
		a.limiters[client] = lim
	}
	return lim
}
