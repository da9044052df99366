package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/soar/GameControllerRemap/internal/app"
	"github.com/soar/GameControllerRemap/internal/config"
	"github.com/soar/GameControllerRemap/internal/hub"
	"github.com/soar/GameControllerRemap/internal/input"
	"github.com/soar/GameControllerRemap/internal/output"
	"github.com/soar/GameControllerRemap/internal/profile"
	"go.uber.org/zap"
)

const maxProfileBytes = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local use
	},
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := hub.NewClient(s.hub, conn, s.logger)
	s.hub.Register(client)

	// Send the device list to the new client
	client.Send(hub.NewDevicesMessage(s.svc.Devices(), s.svc.Active()))

	go client.WritePump()
	go client.ReadPump(s.svc, s.broadcaster)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, app.ErrUnknownDevice), errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrNotRemapping):
		return http.StatusConflict
	case errors.Is(err, config.ErrInvalid), errors.Is(err, profile.ErrMissingID),
		errors.Is(err, profile.ErrInvalidProfile):
		return http.StatusBadRequest
	case errors.Is(err, output.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, input.ErrUnsupported), errors.Is(err, output.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// GET /api/devices
func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.svc.Devices()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"active":  s.svc.Active(),
		"count":   len(devices),
	})
}

// GET /api/devices/{id}
func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.svc.Device(r.PathValue("id"))
	if !ok {
		s.writeError(w, r, app.ErrUnknownDevice)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// GET /api/devices/{id}/state
func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	st, ok := s.svc.CurrentState(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no state sampled"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type remapRequest struct {
	Profile string `json:"profile"`
}

// POST /api/devices/{id}/remap
func (s *Server) startRemap(w http.ResponseWriter, r *http.Request) {
	var req remapRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if err := s.svc.StartRemap(r.PathValue("id"), req.Profile); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": s.svc.Active()})
}

// PUT /api/devices/{id}/remap
func (s *Server) setProfile(w http.ResponseWriter, r *http.Request) {
	var req remapRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.SetProfile(r.PathValue("id"), req.Profile); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/devices/{id}/remap
func (s *Server) stopRemap(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.StopRemap(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/devices/{id}/led
func (s *Server) setLED(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Color string `json:"color"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.SetLED(r.PathValue("id"), req.Color); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/devices/{id}/vibration
func (s *Server) setVibration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Left  uint8 `json:"left"`
		Right uint8 `json:"right"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.SetVibration(r.PathValue("id"), req.Left, req.Right); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/devices/{id}/vibration/test
func (s *Server) testVibration(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.TestVibration(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/profiles
func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.svc.Profiles()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// POST /api/profiles
func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProfileBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := profile.Decode(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.svc.SaveProfile(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DELETE /api/profiles/{id}
func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProfile(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/settings
func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Settings())
}

// PUT /api/settings
func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.svc.Settings()
	if !decode(w, r, &settings) {
		return
	}
	if err := s.svc.UpdateSettings(settings); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Settings())
}
