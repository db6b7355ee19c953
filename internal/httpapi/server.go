// v2
// internal/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/config"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/loop"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/observability"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/scenario"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

type Server struct {
	cfg    *config.AppConfig
	lg     *slog.Logger
	runner *loop.Runner
	store  storage.Store
	met    *observability.Metrics
	defs   map[string]scenario.Definition

	// baseCtx parents the simulation runs started over HTTP, so they are
	// not tied to the lifetime of the request that started them.
	baseCtx context.Context
	http    *http.Server
}

func NewServer(cfg *config.AppConfig, lg *slog.Logger, runner *loop.Runner, store storage.Store,
	met *observability.Metrics, defs map[string]scenario.Definition, baseCtx context.Context) *Server {
	s := &Server{cfg: cfg, lg: lg, runner: runner, store: store, met: met, defs: defs, baseCtx: baseCtx}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.getHealth).Methods("GET")
	r.Handle("/status", met.WrapHandler("/status", http.HandlerFunc(s.getStatus))).Methods("GET")
	r.Handle("/metrics", met.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/sim/start", met.WrapHandler("/api/sim/start", http.HandlerFunc(s.postStart))).Methods("POST")
	api.Handle("/sim/stop", met.WrapHandler("/api/sim/stop", http.HandlerFunc(s.postStop))).Methods("POST")
	api.Handle("/sim/status", met.WrapHandler("/api/sim/status", http.HandlerFunc(s.getStatus))).Methods("GET")
	api.Handle("/readings", met.WrapHandler("/api/readings", http.HandlerFunc(s.getReadings))).Methods("GET")
	api.Handle("/commands", met.WrapHandler("/api/commands", http.HandlerFunc(s.getCommands))).Methods("GET")
	api.Handle("/equipment", met.WrapHandler("/api/equipment", http.HandlerFunc(s.getEquipment))).Methods("GET")
	api.Handle("/equipment/override", met.WrapHandler("/api/equipment/override", http.HandlerFunc(s.postOverride))).Methods("POST")
	api.Handle("/scenarios", met.WrapHandler("/api/scenarios", http.HandlerFunc(s.getScenarios))).Methods("GET")

	logged := handlers.LoggingHandler(os.Stdout, r)
	s.http = &http.Server{
		Addr:    cfg.HTTPBind,
		Handler: logged,
	}
	return s
}

func (s *Server) Start() error {
	s.lg.Info("http server starting", "bind", s.cfg.HTTPBind)
	return s.http.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.lg.Info("http server stopping")
	return s.http.Shutdown(ctx)
}

// Handler exposes the routing stack for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, s.runner.Status())
}

type startRequest struct {
	Config     string `json:"config"`
	IntervalMs int64  `json:"intervalMs"`
	ClearData  bool   `json:"clearData"`
}

func (s *Server) postStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	// An empty body starts the default configuration.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	interval := time.Duration(req.IntervalMs) * time.Millisecond

	if err := s.runner.Start(s.baseCtx, req.Config, interval, req.ClearData); err != nil {
		if errors.Is(err, loop.ErrAlreadyRunning) {
			respondErr(w, http.StatusConflict, err.Error())
			return
		}
		s.lg.Error("start failed", "error", err)
		respondErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusOK, s.runner.Status())
}

func (s *Server) postStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.runner.Stop(); err != nil {
		if errors.Is(err, loop.ErrNotRunning) {
			respondErr(w, http.StatusConflict, err.Error())
			return
		}
		s.lg.Error("stop failed", "error", err)
		respondErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusOK, s.runner.Status())
}

func (s *Server) getReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.store.LatestReadings(r.Context(), listLimit(r))
	if err != nil {
		s.lg.Error("list readings failed", "error", err)
		respondErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	respond(w, http.StatusOK, readings)
}

func (s *Server) getCommands(w http.ResponseWriter, r *http.Request) {
	cmds, err := s.store.LatestCommands(r.Context(), listLimit(r))
	if err != nil {
		s.lg.Error("list commands failed", "error", err)
		respondErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	respond(w, http.StatusOK, cmds)
}

func (s *Server) getEquipment(w http.ResponseWriter, r *http.Request) {
	if st := s.runner.Status(); st.Equipment != nil {
		respond(w, http.StatusOK, st.Equipment)
		return
	}
	states, ok, err := s.store.LatestEquipmentState(r.Context())
	if err != nil {
		s.lg.Error("equipment state lookup failed", "error", err)
		respondErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if !ok {
		states = equipment.NewCommand()
	}
	respond(w, http.StatusOK, states)
}

type overrideRequest struct {
	Equipment string `json:"equipment"`
	Active    bool   `json:"active"`
	Ticks     int64  `json:"ticks"`
}

func (s *Server) postOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := s.runner.Override(equipment.Kind(req.Equipment), req.Active, req.Ticks)
	switch {
	case err == nil:
		respond(w, http.StatusOK, s.runner.Status())
	case errors.Is(err, loop.ErrNotRunning):
		respondErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, equipment.ErrUnknownKind):
		respondErr(w, http.StatusBadRequest, err.Error())
	default:
		s.lg.Error("override failed", "error", err)
		respondErr(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) getScenarios(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, scenario.Names(s.defs))
}

func listLimit(r *http.Request) int {
	limit := defaultListLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

func respond(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondErr(w http.ResponseWriter, code int, msg string) {
	respond(w, code, map[string]string{"error": msg})
}
