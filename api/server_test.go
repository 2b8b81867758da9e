package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/coveragebot/game/config"
	"github.com/wricardo/mcp-training/coveragebot/game/engine"
	"github.com/wricardo/mcp-training/coveragebot/game/grid"
	"github.com/wricardo/mcp-training/coveragebot/game/planner"
	"github.com/wricardo/mcp-training/coveragebot/game/service"
	"github.com/wricardo/mcp-training/coveragebot/game/session"
	"github.com/wricardo/mcp-training/coveragebot/transport/websocket"
)

// MockSimService implements service.SimService for testing
type MockSimService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context, opts service.SessionListOptions) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Robot commands
	StartFunc            func(ctx context.Context, sessionID string) (engine.State, error)
	StopFunc             func(ctx context.Context, sessionID string) (engine.State, error)
	ResetFunc            func(ctx context.Context, sessionID string, pose *service.Pose) (engine.State, error)
	SetForbiddenAreaFunc func(ctx context.Context, sessionID string, region *grid.Region) (engine.State, error)
	RotateFunc           func(ctx context.Context, sessionID, direction string, steps int) (engine.State, error)
	TickFunc             func(ctx context.Context, sessionID string, ticks int) (*service.TickResult, error)

	// Queries
	GetStateFunc  func(ctx context.Context, sessionID string, includePath bool) (engine.State, error)
	GetPlanFunc   func(ctx context.Context, sessionID string) (*planner.Plan, error)
	GetEventsFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.EventsResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.Config, error)
	SaveConfigFunc  func(ctx context.Context, configName string, cfg *engine.Config) error
}

func (m *MockSimService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockSimService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockSimService) ListSessions(ctx context.Context, opts service.SessionListOptions) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx, opts)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockSimService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockSimService) Start(ctx context.Context, sessionID string) (engine.State, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, sessionID)
	}
	return engine.State{Mode: engine.Moving}, nil
}

func (m *MockSimService) Stop(ctx context.Context, sessionID string) (engine.State, error) {
	if m.StopFunc != nil {
		return m.StopFunc(ctx, sessionID)
	}
	return engine.State{Mode: engine.Idle}, nil
}

func (m *MockSimService) Reset(ctx context.Context, sessionID string, pose *service.Pose) (engine.State, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID, pose)
	}
	return engine.State{Mode: engine.Idle, Battery: engine.MaxBattery}, nil
}

func (m *MockSimService) SetForbiddenArea(ctx context.Context, sessionID string, region *grid.Region) (engine.State, error) {
	if m.SetForbiddenAreaFunc != nil {
		return m.SetForbiddenAreaFunc(ctx, sessionID, region)
	}
	return engine.State{ForbiddenArea: region}, nil
}

func (m *MockSimService) Rotate(ctx context.Context, sessionID, direction string, steps int) (engine.State, error) {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx, sessionID, direction, steps)
	}
	return engine.State{}, nil
}

func (m *MockSimService) Tick(ctx context.Context, sessionID string, ticks int) (*service.TickResult, error) {
	if m.TickFunc != nil {
		return m.TickFunc(ctx, sessionID, ticks)
	}
	return &service.TickResult{RequestedTicks: ticks, TicksExecuted: ticks}, nil
}

func (m *MockSimService) TickAll(ctx context.Context) int {
	return 0
}

func (m *MockSimService) GetState(ctx context.Context, sessionID string, includePath bool) (engine.State, error) {
	if m.GetStateFunc != nil {
		return m.GetStateFunc(ctx, sessionID, includePath)
	}
	return engine.State{}, nil
}

func (m *MockSimService) GetPlan(ctx context.Context, sessionID string) (*planner.Plan, error) {
	if m.GetPlanFunc != nil {
		return m.GetPlanFunc(ctx, sessionID)
	}
	return &planner.Plan{}, nil
}

func (m *MockSimService) GetEvents(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.EventsResponse, error) {
	if m.GetEventsFunc != nil {
		return m.GetEventsFunc(ctx, sessionID, opts)
	}
	return &service.EventsResponse{Events: []engine.Event{}, Page: opts.Page, PageSize: opts.Limit}, nil
}

func (m *MockSimService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockSimService) LoadConfig(ctx context.Context, configName string) (*engine.Config, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	cfg := engine.DefaultConfig()
	cfg.Name = configName
	return &cfg, nil
}

func (m *MockSimService) SaveConfig(ctx context.Context, configName string, cfg *engine.Config) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, cfg)
	}
	return nil
}

// Test helpers
func setupTestServer(mockService *MockSimService) *Server {
	return NewServer(mockService, websocket.NewHub())
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("session not found: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("config 'x' not found: %w", config.ErrConfigNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: up", service.ErrInvalidDirection), http.StatusBadRequest},
		{config.ErrInvalidConfig, http.StatusBadRequest},
		{session.ErrInvalidSessionID, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockSimService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default config",
			requestBody: nil,
			setupMock: func(m *MockSimService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "sess-123", ConfigName: "default"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "sess-123" {
					t.Errorf("Expected session ID sess-123, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with config_id",
			requestBody: map[string]string{"config_id": "garden_bed"},
			setupMock: func(m *MockSimService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "sess-456", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ConfigName != "garden_bed" {
					t.Errorf("Expected config garden_bed, got %s", resp.ConfigName)
				}
			},
		},
		{
			name:        "Deprecated config_name still accepted",
			requestBody: map[string]string{"config_name": "compact"},
			setupMock: func(m *MockSimService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "sess-789", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockSimService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config 'nope' not found: %w", config.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:        "Handle service error",
			requestBody: nil,
			setupMock: func(m *MockSimService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockSimService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(setupTestServer(mockService), makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestCreateSessionInvalidBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/sessions", bytes.NewBufferString("{not json"))
	w := serve(setupTestServer(&MockSimService{}), req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListSessions(t *testing.T) {
	var got service.SessionListOptions
	mockService := &MockSimService{
		ListSessionsFunc: func(ctx context.Context, opts service.SessionListOptions) ([]*service.SessionInfo, error) {
			got = opts
			return []*service.SessionInfo{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/sessions?sort=created&order=asc&limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got.SortBy != "created" || got.Order != "asc" || got.Limit != 2 {
		t.Errorf("Options not passed through: %+v", got)
	}

	var resp struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
		Sort     string                 `json:"sort"`
		Order    string                 `json:"order"`
	}
	parseResponse(t, w, &resp)
	if resp.Count != 2 || len(resp.Sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", resp.Count)
	}

	w = serve(server, makeRequest("GET", "/api/sessions?limit=abc", nil))
	parseResponse(t, w, &resp)
	if got.Limit != 0 || resp.Sort != "accessed" || resp.Order != "desc" {
		t.Errorf("Expected defaults, got opts=%+v sort=%s order=%s", got, resp.Sort, resp.Order)
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockSimService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "missing" {
				return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return session.ErrSessionNotFound
			}
			return nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/api/sessions/abc", http.StatusOK},
		{"GET", "/api/sessions/missing", http.StatusNotFound},
		{"DELETE", "/api/sessions/abc", http.StatusOK},
		{"DELETE", "/api/sessions/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(server, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

// Robot Command Tests

func TestStartStop(t *testing.T) {
	var calls []string
	mockService := &MockSimService{
		StartFunc: func(ctx context.Context, sessionID string) (engine.State, error) {
			calls = append(calls, "start:"+sessionID)
			return engine.State{Mode: engine.Idle, StartPending: true}, nil
		},
		StopFunc: func(ctx context.Context, sessionID string) (engine.State, error) {
			calls = append(calls, "stop:"+sessionID)
			return engine.State{Mode: engine.Idle}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("POST", "/api/sessions/r1/start", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var state engine.State
	parseResponse(t, w, &state)
	if !state.StartPending {
		t.Error("Expected start_pending in response")
	}

	w = serve(server, makeRequest("POST", "/api/sessions/r1/stop", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	if len(calls) != 2 || calls[0] != "start:r1" || calls[1] != "stop:r1" {
		t.Errorf("Unexpected calls: %v", calls)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/r1/start", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET start, got %d", w.Code)
	}
}

func TestReset(t *testing.T) {
	var gotPose *service.Pose
	mockService := &MockSimService{
		ResetFunc: func(ctx context.Context, sessionID string, pose *service.Pose) (engine.State, error) {
			gotPose = pose
			return engine.State{Mode: engine.Idle, Battery: 100}, nil
		},
	}
	server := setupTestServer(mockService)

	t.Run("without body uses config pose", func(t *testing.T) {
		w := serve(server, httptest.NewRequest("POST", "/api/sessions/r1/reset", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if gotPose != nil {
			t.Errorf("Expected nil pose, got %+v", gotPose)
		}
	})

	t.Run("explicit pose", func(t *testing.T) {
		w := serve(server, makeRequest("POST", "/api/sessions/r1/reset", service.Pose{X: 40, Y: 56, Angle: 1.5}))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if gotPose == nil || *gotPose != (service.Pose{X: 40, Y: 56, Angle: 1.5}) {
			t.Errorf("Pose not passed through: %+v", gotPose)
		}

		var resp struct {
			Message string       `json:"message"`
			State   engine.State `json:"state"`
		}
		parseResponse(t, w, &resp)
		if resp.State.Battery != 100 {
			t.Errorf("Expected state in response, got %+v", resp.State)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		w := serve(server, httptest.NewRequest("POST", "/api/sessions/r1/reset", bytes.NewBufferString("[")))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestForbiddenAreaLogsPlanSummary(t *testing.T) {
	mockService := &MockSimService{
		SetForbiddenAreaFunc: func(ctx context.Context, sessionID string, region *grid.Region) (engine.State, error) {
			return engine.State{ForbiddenArea: region, PathLength: 42, SkippedCount: 3}, nil
		},
	}
	server := setupTestServer(mockService)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	w := serve(server, makeRequest("PUT", "/api/sessions/r1/forbidden-area", grid.Region{X1: 5, Y1: 6, X2: 9, Y2: 12}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(buf.String(), "path=42 skipped=3") {
		t.Errorf("Expected path length and skipped count in log, got %q", buf.String())
	}
}

func TestForbiddenArea(t *testing.T) {
	var got *grid.Region
	calls := 0
	mockService := &MockSimService{
		SetForbiddenAreaFunc: func(ctx context.Context, sessionID string, region *grid.Region) (engine.State, error) {
			calls++
			got = region
			return engine.State{ForbiddenArea: region}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("PUT", "/api/sessions/r1/forbidden-area", grid.Region{X1: 5, Y1: 6, X2: 9, Y2: 12}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got == nil || *got != (grid.Region{X1: 5, Y1: 6, X2: 9, Y2: 12}) {
		t.Errorf("Region not passed through: %+v", got)
	}

	w = serve(server, makeRequest("DELETE", "/api/sessions/r1/forbidden-area", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got != nil {
		t.Errorf("Expected nil region on clear, got %+v", got)
	}

	// off-grid corners are passed through unclipped
	w = serve(server, makeRequest("PUT", "/api/sessions/r1/forbidden-area", grid.Region{X1: -1, Y1: 0, X2: 3, Y2: 3}))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for an off-grid region, got %d", w.Code)
	}
	if got == nil || got.X1 != -1 {
		t.Errorf("Expected region passed through, got %+v", got)
	}

	w = serve(server, httptest.NewRequest("PUT", "/api/sessions/r1/forbidden-area", bytes.NewBufferString("nope")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad body, got %d", w.Code)
	}
	if calls != 3 {
		t.Errorf("Expected 3 service calls, got %d", calls)
	}
}

func TestRotate(t *testing.T) {
	mockService := &MockSimService{
		RotateFunc: func(ctx context.Context, sessionID, direction string, steps int) (engine.State, error) {
			if direction != "left" && direction != "right" {
				return engine.State{}, fmt.Errorf("%w: %q", service.ErrInvalidDirection, direction)
			}
			return engine.State{Heading: float64(steps)}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("POST", "/api/sessions/r1/rotate", map[string]interface{}{"direction": "left", "steps": 3}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var state engine.State
	parseResponse(t, w, &state)
	if state.Heading != 3 {
		t.Errorf("Expected steps passed through, got %v", state.Heading)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/r1/rotate", map[string]interface{}{"direction": "up"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTick(t *testing.T) {
	var requested int
	mockService := &MockSimService{
		TickFunc: func(ctx context.Context, sessionID string, ticks int) (*service.TickResult, error) {
			requested = ticks
			return &service.TickResult{RequestedTicks: ticks, TicksExecuted: 12, StoppedReason: "idle"}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("POST", "/api/sessions/r1/tick", map[string]int{"ticks": 50}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var result service.TickResult
	parseResponse(t, w, &result)
	if requested != 50 || result.TicksExecuted != 12 || result.StoppedReason != "idle" {
		t.Errorf("Unexpected tick result: requested=%d %+v", requested, result)
	}

	// empty body defers to the service default
	w = serve(server, httptest.NewRequest("POST", "/api/sessions/r1/tick", nil))
	if w.Code != http.StatusOK || requested != 0 {
		t.Errorf("Expected pass-through of zero ticks, got status=%d ticks=%d", w.Code, requested)
	}
}

// Query Tests

func TestGetState(t *testing.T) {
	var withPath bool
	mockService := &MockSimService{
		GetStateFunc: func(ctx context.Context, sessionID string, includePath bool) (engine.State, error) {
			if sessionID == "missing" {
				return engine.State{}, session.ErrSessionNotFound
			}
			withPath = includePath
			return engine.State{Mode: engine.Moving}, nil
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/sessions/r1/state", nil))
	if w.Code != http.StatusOK || withPath {
		t.Errorf("Expected 200 without path, got %d path=%v", w.Code, withPath)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/r1/state?path=true", nil))
	if w.Code != http.StatusOK || !withPath {
		t.Errorf("Expected 200 with path, got %d path=%v", w.Code, withPath)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/missing/state", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestGetPlan(t *testing.T) {
	mockService := &MockSimService{
		GetPlanFunc: func(ctx context.Context, sessionID string) (*planner.Plan, error) {
			return &planner.Plan{
				Start:   grid.Cell{Col: 1, Row: 1},
				Targets: []grid.Cell{{Col: 0, Row: 0}, {Col: 2, Row: 0}, {Col: 4, Row: 0}},
				Path:    []grid.Waypoint{{X: 16, Y: 16}, {X: 32, Y: 16}},
				Reached: 2,
				Skipped: []grid.Cell{{Col: 4, Row: 0}},
			}, nil
		},
	}

	w := serve(setupTestServer(mockService), makeRequest("GET", "/api/sessions/r1/plan", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Targets  int         `json:"targets"`
		Reached  int         `json:"reached"`
		Skipped  []grid.Cell `json:"skipped"`
		Complete bool        `json:"complete"`
		Length   int         `json:"length"`
	}
	parseResponse(t, w, &resp)
	if resp.Targets != 3 || resp.Reached != 2 || len(resp.Skipped) != 1 || resp.Complete || resp.Length != 2 {
		t.Errorf("Unexpected plan summary: %+v", resp)
	}
}

func TestGetEvents(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected service.HistoryOptions
	}{
		{"defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"custom", "?page=2&limit=5&order=asc", service.HistoryOptions{Page: 2, Limit: 5, Order: "asc"}},
		{"invalid values ignored", "?page=-1&limit=x&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockSimService{
				GetEventsFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.EventsResponse, error) {
					got = opts
					return &service.EventsResponse{}, nil
				},
			}

			w := serve(setupTestServer(mockService), makeRequest("GET", "/api/sessions/r1/events"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

// Configuration Tests

func TestConfigs(t *testing.T) {
	var saved *engine.Config
	mockService := &MockSimService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", GridWidth: 50}}, nil
		},
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.Config, error) {
			if configName != "classic" {
				return nil, config.ErrConfigNotFound
			}
			cfg := engine.DefaultConfig()
			cfg.Name = "classic"
			return &cfg, nil
		},
		SaveConfigFunc: func(ctx context.Context, configName string, cfg *engine.Config) error {
			saved = cfg
			return engine.ValidateConfig(cfg)
		},
	}
	server := setupTestServer(mockService)

	w := serve(server, makeRequest("GET", "/api/configs", nil))
	var infos []*service.ConfigInfo
	parseResponse(t, w, &infos)
	if len(infos) != 1 || infos[0].ConfigID != "classic" {
		t.Errorf("Unexpected config list: %+v", infos)
	}

	w = serve(server, makeRequest("GET", "/api/configs/classic", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	w = serve(server, makeRequest("GET", "/api/configs/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = serve(server, makeRequest("POST", "/api/configs", map[string]interface{}{
		"name":           "hallway",
		"grid_width":     30,
		"grid_height":    8,
		"forbidden_area": map[string]int{"x1": 12, "y1": 6, "x2": 10, "y2": 2},
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if saved.Speed != 2 || saved.GridWidth != 30 {
		t.Errorf("Expected defaults merged with body, got %+v", saved)
	}
	if *saved.ForbiddenArea != (grid.Region{X1: 10, Y1: 2, X2: 12, Y2: 6}) {
		t.Errorf("Expected normalized region, got %+v", saved.ForbiddenArea)
	}

	w = serve(server, makeRequest("POST", "/api/configs", map[string]interface{}{"grid_width": 30}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing name, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	w := serve(setupTestServer(&MockSimService{}), makeRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockSimService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockSimService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, session.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Valid session",
			queryParams:    "?session=sess-123",
			expectedStatus: http.StatusSwitchingProtocols,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockSimService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)

			if tt.expectedStatus == http.StatusSwitchingProtocols {
				req.Header.Set("Upgrade", "websocket")
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
				req.Header.Set("Sec-WebSocket-Version", "13")
			}

			server.ServeHTTP(w, req)

			// httptest.ResponseRecorder cannot be hijacked, so an attempted upgrade ends in 500
			if tt.expectedStatus == http.StatusSwitchingProtocols && w.Code == http.StatusInternalServerError {
				return
			}

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}

	t.Run("No hub", func(t *testing.T) {
		server := NewServer(&MockSimService{}, nil)
		w := serve(server, httptest.NewRequest("GET", "/ws?session=abc", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}

// TestEndToEnd drives a real service through the REST surface
func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	quick := `{
  "name": "quick",
  "grid_width": 10,
  "grid_height": 10,
  "start_delay_ms": 0,
  "start_x": 32,
  "start_y": 32,
  "fixed_home": {"col": 2, "row": 2}
}`
	if err := os.WriteFile(filepath.Join(dir, "quick.json"), []byte(quick), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	configs, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("config.NewManager failed: %v", err)
	}
	svc := service.NewSimService(session.NewManager(), configs)
	server := NewServer(svc, nil)

	w := serve(server, makeRequest("POST", "/api/sessions", map[string]string{"config_id": "quick"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Create failed: %d %s", w.Code, w.Body.String())
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)
	base := "/api/sessions/" + info.ID

	w = serve(server, makeRequest("POST", base+"/start", nil))
	var state engine.State
	parseResponse(t, w, &state)
	if state.Mode != engine.Moving {
		t.Fatalf("Expected moving after immediate start, got %s", state.Mode)
	}

	w = serve(server, makeRequest("POST", base+"/tick", map[string]int{"ticks": 20000}))
	var result service.TickResult
	parseResponse(t, w, &result)
	if result.EndMode != engine.Idle || result.StoppedReason != "idle" {
		t.Errorf("Expected run to finish idle, got %+v", result)
	}
	if result.EndIndex != result.State.PathLength {
		t.Errorf("Expected path exhausted, index %d of %d", result.EndIndex, result.State.PathLength)
	}

	w = serve(server, makeRequest("GET", base+"/events?order=asc", nil))
	var events service.EventsResponse
	parseResponse(t, w, &events)
	if events.TotalEvents == 0 || events.Events[len(events.Events)-1].Reason != engine.ReasonPathCompleted {
		t.Errorf("Expected path_completed as last event, got %+v", events.Events)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/unknown/start", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", w.Code)
	}

	w = serve(server, makeRequest("POST", "/api/sessions", map[string]string{"config_id": "missing"}))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown config, got %d", w.Code)
	}
}
