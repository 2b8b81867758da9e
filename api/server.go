package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wricardo/mcp-training/coveragebot/game/config"
	"github.com/wricardo/mcp-training/coveragebot/game/engine"
	"github.com/wricardo/mcp-training/coveragebot/game/grid"
	"github.com/wricardo/mcp-training/coveragebot/game/service"
	"github.com/wricardo/mcp-training/coveragebot/game/session"
	"github.com/wricardo/mcp-training/coveragebot/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.SimService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, in which case /ws
// answers 503.
func NewServer(simService service.SimService, hub *websocket.Hub) *Server {
	s := &Server{
		service: simService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// Router exposes the underlying router so callers can mount extra handlers
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Robot commands
	api.HandleFunc("/sessions/{id}/start", s.handleStart).Methods("POST")
	api.HandleFunc("/sessions/{id}/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/forbidden-area", s.handleSetForbiddenArea).Methods("PUT")
	api.HandleFunc("/sessions/{id}/forbidden-area", s.handleClearForbiddenArea).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/rotate", s.handleRotate).Methods("POST")
	api.HandleFunc("/sessions/{id}/tick", s.handleTick).Methods("POST")

	// Queries
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/plan", s.handleGetPlan).Methods("GET")
	api.HandleFunc("/sessions/{id}/events", s.handleGetEvents).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidDirection),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

// decodeOptional decodes a JSON body when one is present and reports
// whether it found one
func decodeOptional(r *http.Request, v interface{}) (bool, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return false, nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func logState(tag, sessionID string, state engine.State) {
	log.Printf("[%s] session=%s mode=%s pos=(%.1f,%.1f) batt=%.2f idx=%d/%d",
		tag, sessionID, state.Mode, state.Position.X, state.Position.Y,
		state.Battery, state.PathIndex, state.PathLength)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if _, err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[CREATE] session=%s config=%s grid=%dx%d",
		info.ID, info.ConfigName, info.State.Grid.Width, info.State.Grid.Height)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := service.SessionListOptions{
		SortBy: query.Get("sort"),
		Order:  query.Get("order"),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	sessions, err := s.service.ListSessions(r.Context(), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if opts.SortBy == "" {
		opts.SortBy = "accessed"
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
		"sort":     opts.SortBy,
		"order":    opts.Order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[DELETE] session=%s", sessionID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Robot Command Handlers

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Start(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logState("START", sessionID, state)
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Stop(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logState("STOP", sessionID, state)
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var pose *service.Pose
	var req service.Pose
	found, err := decodeOptional(r, &req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if found {
		pose = &req
	}

	state, err := s.service.Reset(r.Context(), sessionID, pose)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logState("RESET", sessionID, state)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Robot reset successfully",
		"state":   state,
	})
}

func (s *Server) handleSetForbiddenArea(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var region grid.Region
	if err := json.NewDecoder(r.Body).Decode(&region); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.SetForbiddenArea(r.Context(), sessionID, &region)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[FORBID] session=%s region=%s path=%d skipped=%d", sessionID, region.Normalized(), state.PathLength, state.SkippedCount)
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleClearForbiddenArea(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.SetForbiddenArea(r.Context(), sessionID, nil)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[FORBID] session=%s cleared", sessionID)
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Direction string `json:"direction"`
		Steps     int    `json:"steps,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.Rotate(r.Context(), sessionID, req.Direction, req.Steps)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Ticks int `json:"ticks"`
	}
	if _, err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Tick(r.Context(), sessionID, req.Ticks)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	stop := result.StoppedReason
	if stop == "" {
		stop = "-"
	}
	log.Printf("[TICK] session=%s exec=%d/%d stop=%s mode=%s->%s batt=%.2f->%.2f idx=%d->%d",
		sessionID, result.TicksExecuted, result.RequestedTicks, stop,
		result.StartMode, result.EndMode, result.StartBattery, result.EndBattery,
		result.StartIndex, result.EndIndex)

	respondJSON(w, http.StatusOK, result)
}

// Query Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	includePath, _ := strconv.ParseBool(r.URL.Query().Get("path"))

	state, err := s.service.GetState(r.Context(), sessionID, includePath)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	plan, err := s.service.GetPlan(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"start":    plan.Start,
		"targets":  len(plan.Targets),
		"reached":  plan.Reached,
		"skipped":  plan.Skipped,
		"complete": plan.Complete(),
		"length":   len(plan.Path),
		"path":     plan.Path,
	})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	events, err := s.service.GetEvents(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, events)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := mux.Vars(r)["name"]

	cfg, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	// Omitted fields keep their defaults
	cfg := engine.DefaultConfig()
	cfg.Name = ""

	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if cfg.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}
	if cfg.ForbiddenArea != nil {
		normalized := cfg.ForbiddenArea.Normalized()
		cfg.ForbiddenArea = &normalized
	}

	if err := s.service.SaveConfig(r.Context(), cfg.Name, &cfg); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": cfg.Name,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
