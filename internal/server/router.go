// Package server assembles the HTTP surface: the shared middleware chain,
// platform probes and the verification routes behind authentication.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jojo/internal/platform/config"
	"jojo/internal/platform/health"
	"jojo/internal/verification/handler"
	"jojo/pkg/platform/middleware/auth"
	"jojo/pkg/platform/middleware/device"
	"jojo/pkg/platform/middleware/metadata"
	"jojo/pkg/platform/middleware/request"
	"jojo/pkg/platform/middleware/requesttime"
	"jojo/pkg/requestcontext"
)

const throttleTTL = time.Hour

// RouterDeps are the pieces mounted on the router.
type RouterDeps struct {
	Verification *handler.Handler
	Health       *health.Handler
	Tokens       auth.JWTValidator
	// Latency is optional; request.NewMetrics registers globally so it is
	// built once per process.
	Latency *request.Metrics
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg config.Server, deps RouterDeps, logger *slog.Logger) (http.Handler, error) {
	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.NewMiddleware(proxies).Handler)
	r.Use(device.Device)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(deps.Latency))
	if cfg.ThrottlePerSec > 0 {
		r.Use(request.Throttle(cfg.ThrottlePerSec, throttleTTL))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.Tokens, logger))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(logger, requestcontext.RoleInstructor))
			deps.Verification.RegisterInstructor(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(logger, requestcontext.RoleAdmin))
			deps.Verification.RegisterAdmin(r)
		})
	})

	return r, nil
}
