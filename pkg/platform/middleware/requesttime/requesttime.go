// Package requesttime pins a single "now" per request so every timestamp written
// while handling it (step transitions, audit events, code expiry) agrees.
package requesttime

import (
	"net/http"
	"time"

	"jojo/pkg/requestcontext"
)

// Middleware captures the wall clock at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock captures clock() instead of the wall clock. Feature tests use it
// to drive expiry windows deterministically.
func WithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
