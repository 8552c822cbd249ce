package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public.
	r.Get("/health", g.handleHealth())

	// Webhooks carry their own per-source HMAC.
	if g.dispatcher.Sources() > 0 {
		r.Post("/webhooks/{source}", g.dispatcher.ServeHTTP)
	}

	// Admin endpoints. Not mounted without auth.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.logger))
			r.Use(g.countRequests)
			r.Get("/status", g.handleStatus())
			if g.promHandler != nil {
				r.Handle("/metrics", g.promHandler)
			}
			r.Handle("/ws/events", g.stream)
			r.Route("/api", func(r chi.Router) {
				r.Get("/modules", g.handleListModules())
				r.Get("/modules/{id}", g.handleGetModule())
				r.Post("/modules/{id}/toggle", g.handleToggle())
				r.Get("/buttons", g.handleListButtons())
				r.Post("/buttons/{name}/tap", g.handlePress())
				r.Get("/attributes", g.handleGetFacts())
				r.Put("/attributes/{name}", g.handleSetAttribute())
				r.Put("/flags/{name}", g.handleSetFlag())
				r.Get("/events", g.handleEvents())
				r.Get("/components", g.handleListComponents())
				r.Get("/config", g.handleGetConfig())
				r.Post("/config/reload", g.handleReloadConfig())
			})
		})
	}

	return r
}

func (g *Gateway) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.metrics.RecordRequest()
		next.ServeHTTP(w, r)
	})
}
