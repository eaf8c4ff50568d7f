package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/smarthome-core/internal/device"
)

// ErrorResponse is the body of every failed /api request.
type ErrorResponse struct {
	Error string `json:"error"`
	// Message carries the underlying error text on 500 responses.
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes {"error": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message)
}

// writeInternalError writes a 500 response with the failing operation and
// the cause.
func writeInternalError(w http.ResponseWriter, operation string, err error) {
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   operation,
		Message: err.Error(),
	})
}

// deviceErrorMessages names the client-facing text for one device route.
type deviceErrorMessages struct {
	notFound string
	failed   string
}

// writeDeviceError maps a device.Store error to its HTTP response:
// not found is 404, rejected input is 400, anything else is 500.
func (s *Server) writeDeviceError(w http.ResponseWriter, r *http.Request, err error, msgs deviceErrorMessages) {
	var inputErr *device.InputError
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, msgs.notFound)
	case errors.As(err, &inputErr):
		writeBadRequest(w, inputErr.Message)
	default:
		s.logger.Error(msgs.failed,
			"error", err,
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
		)
		writeInternalError(w, msgs.failed, err)
	}
}
