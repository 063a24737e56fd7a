// Package http is the transport layer: route registration, request DTOs,
// validation and error mapping for the storefront and admin APIs.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/auth"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Catalog  *CatalogHandler
	Checkout *CheckoutHandler
	Order    *OrderHandler
	Stats    *StatsHandler
	Webhook  *WebhookHandler
	Health   *HealthHandler
	Tokens   *auth.TokenManager
}

// NewRouter assembles the API surface. Everything under /api/admin requires an
// admin session; the webhook route authenticates by signature instead.
func NewRouter(h Handlers) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	router.Route("/api", func(api chi.Router) {
		h.Health.RegisterRoutes(api)
		h.Auth.RegisterRoutes(api)
		h.Catalog.RegisterPublicRoutes(api)
		h.Checkout.RegisterRoutes(api)
		h.Webhook.RegisterRoutes(api)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(RequireAdmin(h.Tokens))
			h.Auth.RegisterAdminRoutes(admin)
			h.Catalog.RegisterAdminRoutes(admin)
			h.Order.RegisterAdminRoutes(admin)
			h.Stats.RegisterAdminRoutes(admin)
		})
	})

	return router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}
