package http

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// DefaultWritesPerMinute is the per-account write budget.
const DefaultWritesPerMinute = 60

// writeLimiter rate limits mutating requests per account, falling back to
// the client address. Reads pass through.
func writeLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = DefaultWritesPerMinute
	}
	limiter := httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
				Header("Retry-After", "60").
				Write(w)
		}),
	)
	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}

func rateLimitKey(r *http.Request) (string, error) {
	if uid := userID(r); uid != "" {
		return "user:" + uid, nil
	}
	return "ip:" + extractClientIP(r), nil
}
