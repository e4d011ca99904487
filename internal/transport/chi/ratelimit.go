package chi

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/openpermit/permitsearch/internal/domain"
)

// rateLimitExempt are routes never subject to throttling.
var rateLimitExempt = map[string]struct{}{
	"/healthz": {},
	"/health":  {},
	"/metrics": {},
	"/usage":   {},
}

// RateLimitMiddleware returns a middleware throttling requests with a
// shared token bucket. rps <= 0 disables throttling (pass-through).
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(rps), burst)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := rateLimitExempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, codeRateLimited, domain.ErrRateLimited.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
