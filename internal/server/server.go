package server

import (
	"context"
	"net/http"

	"github.com/soar/GameControllerRemap/internal/config"
	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/hub"
	"github.com/soar/GameControllerRemap/internal/profile"
	"go.uber.org/zap"
)

// Service is the application surface the HTTP API exposes.
type Service interface {
	hub.Commander

	Devices() []gamepad.ControllerDevice
	Device(id string) (gamepad.ControllerDevice, bool)
	Active() []string
	CurrentState(id string) (gamepad.ButtonState, bool)
	TestVibration(id string) error

	Profiles() ([]profile.GameProfile, error)
	SaveProfile(p profile.GameProfile) (profile.GameProfile, error)
	DeleteProfile(id string) error

	Settings() config.AppSettings
	UpdateSettings(s config.AppSettings) error
}

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	svc         Service
	addr        string
	logger      *zap.Logger
	httpServer  *http.Server
}

func New(h *hub.Hub, b *hub.Broadcaster, svc Service, addr string, logger *zap.Logger) *Server {
	s := &Server{
		hub:         h,
		broadcaster: b,
		svc:         svc,
		addr:        addr,
		logger:      logger,
	}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routes served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/devices", s.listDevices)
	mux.HandleFunc("GET /api/devices/{id}", s.getDevice)
	mux.HandleFunc("GET /api/devices/{id}/state", s.getState)
	mux.HandleFunc("POST /api/devices/{id}/remap", s.startRemap)
	mux.HandleFunc("PUT /api/devices/{id}/remap", s.setProfile)
	mux.HandleFunc("DELETE /api/devices/{id}/remap", s.stopRemap)
	mux.HandleFunc("POST /api/devices/{id}/led", s.setLED)
	mux.HandleFunc("POST /api/devices/{id}/vibration", s.setVibration)
	mux.HandleFunc("POST /api/devices/{id}/vibration/test", s.testVibration)

	mux.HandleFunc("GET /api/profiles", s.listProfiles)
	mux.HandleFunc("POST /api/profiles", s.saveProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", s.deleteProfile)

	mux.HandleFunc("GET /api/settings", s.getSettings)
	mux.HandleFunc("PUT /api/settings", s.updateSettings)

	return mux
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
