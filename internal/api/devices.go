package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smarthome-core/internal/device"
)

// Client-facing messages for the device routes.
var (
	msgsGetDevice = deviceErrorMessages{notFound: "Device not found", failed: "Failed to fetch device"}
	msgsToggle    = deviceErrorMessages{notFound: "Device not found", failed: "Failed to toggle device"}
	msgsSetValue  = deviceErrorMessages{notFound: "Device not found", failed: "Failed to update device value"}
	msgsSetEffect = deviceErrorMessages{notFound: "Device not found or is not a light", failed: "Failed to update light effect"}
	msgsSetACMode = deviceErrorMessages{notFound: "Device not found or is not an AC", failed: "Failed to update AC mode"}
	msgsSetMode   = deviceErrorMessages{notFound: "Device not found", failed: "Failed to update device mode"}
)

// handleListDevices returns every device ordered by id.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "Failed to fetch devices", err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns a single device by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	d, err := s.devices.Get(r.Context(), id)
	if err != nil {
		s.writeDeviceError(w, r, err, msgsGetDevice)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleToggleDevice flips a device between on and off. No body is read.
func (s *Server) handleToggleDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	d, err := s.devices.Toggle(r.Context(), id)
	if err != nil {
		s.writeDeviceError(w, r, err, msgsToggle)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetValue sets the integer value of a device.
//
// Request body: {"value": 42}. Integer strings and integral floats are
// accepted; the value is validated before the device is looked up.
func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	body, ok := decodeJSONBody(w, r)
	if !ok {
		return
	}

	value, err := device.ValueFromBody(body)
	if err != nil {
		s.writeDeviceError(w, r, err, msgsSetValue)
		return
	}

	d, err := s.devices.SetValue(r.Context(), id, value)
	if err != nil {
		s.writeDeviceError(w, r, err, msgsSetValue)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetEffect sets the effect of a light.
//
// Request body: {"effect": "warm"}
func (s *Server) handleSetEffect(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	body, ok := decodeJSONBody(w, r)
	if !ok {
		return
	}

	d, err := s.devices.SetLightEffect(r.Context(), id, stringField(body, "effect"))
	if err != nil {
		s.writeDeviceError(w, r, err, msgsSetEffect)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetACMode sets the mode of an air conditioner.
//
// Request body: {"mode": "heat"}
func (s *Server) handleSetACMode(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	body, ok := decodeJSONBody(w, r)
	if !ok {
		return
	}

	d, err := s.devices.SetACMode(r.Context(), id, stringField(body, "mode"))
	if err != nil {
		s.writeDeviceError(w, r, err, msgsSetACMode)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetMode sets the free-form mode of any device.
//
// Request body: {"mode": "eco"}
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	body, ok := decodeJSONBody(w, r)
	if !ok {
		return
	}

	d, err := s.devices.SetDeviceMode(r.Context(), id, stringField(body, "mode"))
	if err != nil {
		s.writeDeviceError(w, r, err, msgsSetMode)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// deviceID reads the {id} URL parameter. The route pattern already limits
// it to digits, so the only failure is overflow, reported as not found.
func deviceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return pathID(w, r, "Device not found")
}

func pathID(w http.ResponseWriter, r *http.Request, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeNotFound(w, notFound)
		return 0, false
	}
	return id, true
}

// decodeJSONBody checks the content type and decodes a JSON object body.
// Numbers are kept as json.Number so integer checks are exact.
func decodeJSONBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	if !isJSONContentType(r.Header.Get("Content-Type")) {
		writeBadRequest(w, "Content-Type must be application/json")
		return nil, false
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		writeBadRequest(w, "Invalid JSON body")
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeBadRequest(w, "Invalid JSON body")
		return nil, false
	}
	if body == nil {
		writeBadRequest(w, "Request body must be a JSON object")
		return nil, false
	}
	return body, true
}

// isJSONContentType accepts application/json and any application/*+json type.
func isJSONContentType(header string) bool {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mediaType == "application/json" ||
		(strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"))
}

// stringField returns body[key] as a string. Missing and null give "", so
// the store reports the field as required; other JSON types are passed as
// their JSON text and fail set membership.
func stringField(body map[string]any, key string) string {
	switch v := body[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		var buf bytes.Buffer
		//nolint:errcheck // decoded JSON values always re-encode
		json.NewEncoder(&buf).Encode(v)
		return strings.TrimSpace(buf.String())
	}
}
