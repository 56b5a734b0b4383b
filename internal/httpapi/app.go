// Package httpapi is the HTTP surface of the engine: search, price map and
// wishlist lookups plus the engine's own status and admin endpoints.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"SteamPM/internal/auth"
	"SteamPM/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// RateLimitPerMin caps /api requests per client IP, 0 disables.
	RateLimitPerMin int
	Admin           *auth.TokenMaker
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))
		if deps.MetricsEnabled {
			r.With(kit.MetricsAuth(deps.MetricsToken)).
				Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Route("/api", func(api chi.Router) {
		if deps.RateLimitPerMin > 0 {
			api.Use(kit.NewIPRateLimiter(deps.RateLimitPerMin, time.Minute).Middleware)
		}

		api.Route("/engine", func(er chi.Router) {
			er.Get("/status", s.status)
			er.Group(func(ar chi.Router) {
				ar.Use(auth.RequireAdmin(deps.Admin))
				ar.Post("/refresh", s.refresh)
				ar.Post("/cache/clear", s.clearCache)
			})
		})

		api.Group(func(gr chi.Router) {
			gr.Use(s.RequireReady)
			gr.Get("/search", s.search)
			gr.Get("/pricemap/game/{appId}", s.priceMap)
			gr.Get("/wishlist/{page}", s.wishlist)
		})
	})

	return r
}
