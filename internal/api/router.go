package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nerrad567/smarthome-core/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		newCORSPolicy(s.cfg.CORS).handler,
		middleware.RequestSize(maxRequestBodySize),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/ws", s.handleWebSocket)

		// Device endpoints. Ids that are not decimal integers fall through
		// to the API not-found handler.
		r.Get("/devices", s.handleListDevices)
		r.Get("/device/{id:[0-9]+}", s.handleGetDevice)
		r.Post("/device/{id:[0-9]+}/toggle", s.handleToggleDevice)
		r.Post("/device/{id:[0-9]+}/set_value", s.handleSetValue)
		r.Post("/device/{id:[0-9]+}/set_effect", s.handleSetEffect)
		r.Post("/device/{id:[0-9]+}/set_ac_mode", s.handleSetACMode)
		r.Post("/device/{id:[0-9]+}/set_mode", s.handleSetMode)

		r.Get("/scenes", s.handleListScenes)
		r.Post("/scenes/{id:[0-9]+}/activate", s.handleActivateScene)
		r.Get("/schedules", s.handleListSchedules)
		r.Get("/energy", s.handleEnergy)

		r.NotFound(handleAPINotFound)
		r.MethodNotAllowed(handleAPIMethodNotAllowed)
	})

	// Everything else is the dashboard, with client-side routing fallback.
	r.NotFound(panel.Handler(s.cfg.StaticDir).ServeHTTP)

	return r
}

// handleAPINotFound answers unmatched /api paths.
func handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func handleAPIMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
