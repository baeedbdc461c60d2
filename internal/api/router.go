package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/openbias/biasd/internal/auth"
	"github.com/openbias/biasd/internal/models"
)

// NewRouter creates and returns the main HTTP router. backups may be nil,
// in which case POST /api/backups answers 503.
func NewRouter(ctrl Controller, authSvc *auth.Service, bus EventBus, backups Backups) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, models.ErrNotFound("no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, &models.AppError{
			Code:    "METHOD_NOT_ALLOWED",
			Message: r.Method + " not allowed on " + r.URL.Path,
		})
	})

	h := &Handlers{ctrl: ctrl, events: bus, backups: backups}

	r.Group(func(r chi.Router) {
		if authSvc != nil {
			r.Use(authSvc.Middleware)
		}

		// State
		r.Get("/api", h.getState)
		r.Get("/api/", h.getState)
		r.Get("/api/info", h.getInfo)
		r.Post("/api/refresh", h.refresh)

		// Live controls
		r.Patch("/api/outputs/{ch}", h.setOutput)
		r.Patch("/api/standby", h.setStandby)

		// Presets
		r.Get("/api/presets", h.getPresets)
		r.Get("/api/presets/{pid}", h.getPreset)
		r.Post("/api/preset", h.createPreset)
		r.Patch("/api/presets/{pid}", h.setPreset)
		r.Delete("/api/presets/{pid}", h.deletePreset)
		r.Post("/api/presets/{pid}/load", h.loadPreset)

		// Maintenance
		r.Post("/api/backups", h.runBackup)

		// SSE
		r.Get("/api/subscribe", h.sseEvents)
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, api-key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
