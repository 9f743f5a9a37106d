package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/docsauth/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimit is a token bucket profile.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Built-in profiles. StrictLimit guards credential checks (login, token),
// ModerateLimit introspection and userinfo, PublicLimit discovery and docs.
var (
	StrictLimit   = RateLimit{Requests: 10, Window: time.Minute, Burst: 10}
	ModerateLimit = RateLimit{Requests: 60, Window: time.Minute, Burst: 30}
	PublicLimit   = RateLimit{Requests: 1000, Window: time.Minute, Burst: 200}
)

// RateLimitFromEnv overrides def from RATELIMIT_<NAME>_REQUESTS,
// RATELIMIT_<NAME>_WINDOW_SEC and RATELIMIT_<NAME>_BURST as read by getenv.
func RateLimitFromEnv(getenv func(string) string, name string, def RateLimit) RateLimit {
	prefix := "RATELIMIT_" + strings.ToUpper(name) + "_"
	positive := func(key string) (int, bool) {
		n, err := strconv.Atoi(getenv(prefix + key))
		return n, err == nil && n > 0
	}

	out := def
	if n, ok := positive("REQUESTS"); ok {
		out.Requests = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		out.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		out.Burst = n
	}
	return out
}

// KeyFunc derives the bucket key for a request. An empty key bypasses the
// limiter.
type KeyFunc func(*http.Request) string

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIDKey identifies OAuth clients by Basic auth user or the client_id
// form value, falling back to the client IP.
func ClientIDKey(r *http.Request) string {
	if id, _, ok := r.BasicAuth(); ok && id != "" {
		return "client:" + id
	}
	if err := r.ParseForm(); err == nil {
		if id := r.FormValue("client_id"); id != "" {
			return "client:" + id
		}
	}
	return "ip:" + ClientIP(r)
}

// IPAndFormKey combines the client IP with a form field, e.g. the username
// on the login form.
func IPAndFormKey(field string) KeyFunc {
	return func(r *http.Request) string {
		key := ClientIP(r)
		if err := r.ParseForm(); err == nil {
			if v := r.FormValue(field); v != "" {
				key += ":" + v
			}
		}
		return key
	}
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

const limiterIdle = 10 * time.Minute

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > limiterIdle {
		for k, e := range s.entries {
			if now.Sub(e.seen) > limiterIdle {
				delete(s.entries, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.seen = now
	return e.lim
}

// RateLimitBy limits requests per key with cfg and answers 429 with a
// Retry-After header when the bucket is empty.
func RateLimitBy(cfg RateLimit, key KeyFunc) Middleware {
	set := &limiterSet{
		limit:     rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:     cfg.Burst,
		entries:   map[string]*limiterEntry{},
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			lim := set.get(k, now)
			if lim.AllowN(now, 1) {
				next.ServeHTTP(w, r)
				return
			}

			res := lim.ReserveN(now, 1)
			retry := max(int(res.DelayFrom(now).Seconds()), 1)
			res.CancelAt(now)

			slogx.FromContext(r.Context()).Warn("rate limit exceeded", "key", k, "retry_after", retry)

			w.Header().Set("Retry-After", strconv.Itoa(retry))
			WriteJSON(w, http.StatusTooManyRequests, errorBody("rate_limit_exceeded", "too many requests"))
		})
	}
}

// RateLimitByIP limits by client IP.
func RateLimitByIP(cfg RateLimit) Middleware {
	return RateLimitBy(cfg, ClientIP)
}
