package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/smarthome-core/internal/automation"
)

// handleListScenes returns every scene with its patch map expanded.
func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.scenes.ListScenes(r.Context())
	if err != nil {
		s.logger.Error("listing scenes failed", "error", err)
		writeInternalError(w, "Failed to fetch scenes", err)
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

// handleActivateScene applies a scene and reports one result per device.
// Per-device failures are part of a 200 response; only an unknown scene
// or a failed commit is an error.
func (s *Server) handleActivateScene(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Scene not found")
	if !ok {
		return
	}

	activation, err := s.scenes.Activate(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrSceneNotFound) {
			writeNotFound(w, "Scene not found")
			return
		}
		s.logger.Error("scene activation failed", "scene_id", id, "error", err)
		writeInternalError(w, "Failed to activate scene", err)
		return
	}
	writeJSON(w, http.StatusOK, activation)
}

// handleListSchedules returns the stored schedules. Nothing executes them.
func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.scenes.ListSchedules(r.Context())
	if err != nil {
		s.logger.Error("listing schedules failed", "error", err)
		writeInternalError(w, "Failed to fetch schedules", err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}
