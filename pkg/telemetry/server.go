package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gwillem/fetchbot/pkg/remote"
	"github.com/gwillem/fetchbot/pkg/robot"
)

// Control starts and stops autopilot sessions on behalf of HTTP clients.
type Control interface {
	StartAutopilot(ctx context.Context, dodge robot.Side) error
	CancelAutopilot()
	Mode() remote.Mode
}

// ServerConfig configures the HTTP server. Only Hub is required.
type ServerConfig struct {
	Hub      *Hub
	Gatherer prometheus.Gatherer
	// Remote serves the websocket controller on /remote.
	Remote http.Handler
	// Control enables POST and DELETE on /autopilot.
	Control Control
	// Context bounds sessions started over HTTP.
	Context context.Context
	Logger  *slog.Logger
}

// Server exposes status, metrics and remote control over HTTP.
type Server struct {
	cfg    ServerConfig
	router *mux.Router
	log    *slog.Logger
}

type statusResponse struct {
	Status
	Mode string `json:"mode,omitempty"`
}

// NewServer builds the router.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cfg: cfg, router: mux.NewRouter(), log: log}

	s.router.HandleFunc("/healthz", s.health).Methods("GET")
	s.router.HandleFunc("/status", s.status).Methods("GET")
	if cfg.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	if cfg.Remote != nil {
		s.router.Handle("/remote", cfg.Remote)
	}
	if cfg.Control != nil {
		s.router.HandleFunc("/autopilot", s.startAutopilot).Methods("POST")
		s.router.HandleFunc("/autopilot", s.cancelAutopilot).Methods("DELETE")
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("telemetry listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok\n"))
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: s.cfg.Hub.Status()}
	if s.cfg.Control != nil {
		resp.Mode = s.cfg.Control.Mode().String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) startAutopilot(w http.ResponseWriter, r *http.Request) {
	dodge := robot.Left
	if v := r.URL.Query().Get("dodge"); v != "" {
		side, err := robot.ParseSide(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		dodge = side
	}

	err := s.cfg.Control.StartAutopilot(s.cfg.Context, dodge)
	switch {
	case errors.Is(err, remote.ErrModeBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		s.log.Error("start autopilot", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"dodge": dodge.String()})
	}
}

func (s *Server) cancelAutopilot(w http.ResponseWriter, _ *http.Request) {
	s.cfg.Control.CancelAutopilot()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
