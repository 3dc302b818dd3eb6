package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the session API under /api.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", h.List)
		r.Post("/sessions", h.StartSession)
		r.Route("/sessions/{threadID}", func(r chi.Router) {
			r.Get("/", h.State)
			r.Get("/events", h.Events)
			r.Post("/messages", h.AddMessage)
			r.Post("/process", h.Process)
		})
	})
	r.Get("/health", h.Health)
}

// CORS returns middleware allowing the configured browser origin.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
