package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/coveragebot/game/engine"
	"github.com/wricardo/mcp-training/coveragebot/game/grid"
	"github.com/wricardo/mcp-training/coveragebot/game/service"
)

// maxMapWidth bounds the placement map rendered in robot_state
const maxMapWidth = 80

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Coverage Robot Simulator",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Coverage Robot Simulator - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A square robot sweeps a rectangular grid along a serpentine coverage path,
returning to its charging home when the battery runs low and resuming where
it left off.

AVAILABLE TOOLS:
- create_session / list_sessions: manage simulations
- robot_state: mode, pose, battery and a map of the floor
- start_robot / stop_robot / reset_robot: drive the robot
- set_forbidden_area / clear_forbidden_area: keep the robot out of a region
- rotate: turn in place
- tick: advance a session by N simulation steps
- coverage_plan: plan diagnostics (targets, reached, skipped)
- robot_events: mode transition log
- list_configs: available simulation configs
- simulator_instructions: full rules`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionOnlySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProperty(),
		},
		Required: []string{"session_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new simulation session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config ID from list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List active simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sort": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"accessed", "created"},
					"description": "Sort key (default accessed)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"desc", "asc"},
					"description": "Sort order (default desc)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum sessions to return",
				},
			},
		},
	}, c.handleListSessions)

	// Queries
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "robot_state",
		Description: "Get the robot's mode, pose, battery, plan progress and a map of the floor",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"include_map": map[string]interface{}{
					"type":        "boolean",
					"description": "Render the placement map (default true)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRobotState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "coverage_plan",
		Description: "Get coverage plan diagnostics: targets, reached, skipped cells and path length",
		InputSchema: sessionOnlySchema(),
	}, c.handleCoveragePlan)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "robot_events",
		Description: "Get the mode transition log with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Events per page (default 20, max 100)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRobotEvents)

	// Robot commands
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_robot",
		Description: "Pick a home, plan coverage and start moving after the configured delay",
		InputSchema: sessionOnlySchema(),
	}, c.handleStart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stop_robot",
		Description: "Stop the robot, keeping its path and progress",
		InputSchema: sessionOnlySchema(),
	}, c.handleStop)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_robot",
		Description: "Reset to a pose with a full battery and no plan; omitting x and y uses the config start pose",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x": map[string]interface{}{
					"type":        "number",
					"description": "X position in world units",
				},
				"y": map[string]interface{}{
					"type":        "number",
					"description": "Y position in world units",
				},
				"angle": map[string]interface{}{
					"type":        "number",
					"description": "Heading in radians",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_forbidden_area",
		Description: "Forbid a rectangle of grid cells (inclusive corners) and replan",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x1":         map[string]interface{}{"type": "integer", "description": "First corner column"},
				"y1":         map[string]interface{}{"type": "integer", "description": "First corner row"},
				"x2":         map[string]interface{}{"type": "integer", "description": "Second corner column"},
				"y2":         map[string]interface{}{"type": "integer", "description": "Second corner row"},
			},
			Required: []string{"session_id", "x1", "y1", "x2", "y2"},
		},
	}, c.handleSetForbiddenArea)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "clear_forbidden_area",
		Description: "Remove the forbidden area and replan",
		InputSchema: sessionOnlySchema(),
	}, c.handleClearForbiddenArea)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rotate",
		Description: "Rotate the robot in place by angular steps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"left", "right"},
					"description": "Rotation direction",
				},
				"steps": map[string]interface{}{
					"type":        "integer",
					"description": "Number of angular steps (default 1)",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleRotate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance the simulation by N ticks, stopping early once the robot is idle",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"ticks": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Ticks to run (default 1, max %d)", engine.MaxTicksPerCall),
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTick)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available simulation configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulator_instructions",
		Description: "Get the complete simulator rules and a suggested workflow",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// argString returns a string argument or ""
func argString(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// argNumber returns a numeric argument; JSON numbers arrive as float64
func argNumber(args map[string]interface{}, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func argInt(args map[string]interface{}, key string) (int, bool) {
	v, ok := argNumber(args, key)
	return int(v), ok
}

func requireSession(args map[string]interface{}) (string, *mcp.CallToolResult) {
	sessionID := argString(args, "session_id")
	if sessionID == "" {
		return "", mcp.NewToolResultError("session_id is required")
	}
	return sessionID, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	body := map[string]string{}
	if configID := argString(args, "config_id"); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		session.ID, session.ConfigName, formatState(&session.State, false))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query := url.Values{}
	if v := argString(args, "sort"); v != "" {
		query.Set("sort", v)
	}
	if v := argString(args, "order"); v != "" {
		query.Set("order", v)
	}
	if v, ok := argInt(args, "limit"); ok && v > 0 {
		query.Set("limit", fmt.Sprint(v))
	}

	path := "/api/sessions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&result, "- %s (Config: %s, Mode: %s, Battery: %.1f%%, Progress: %d/%d, Created: %s)\n",
			s.ID, s.ConfigName, s.State.Mode, s.State.Battery,
			s.State.PathIndex, s.State.PathLength, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleRobotState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}

	includeMap := true
	if v, ok := args["include_map"].(bool); ok {
		includeMap = v
	}

	var state engine.State
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(&state, includeMap)), nil
}

func (c *Client) handleCoveragePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(request.GetArguments())
	if errResult != nil {
		return errResult, nil
	}

	var plan planSummary
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/plan"), nil, &plan); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlan(&plan)), nil
}

func (c *Client) handleRobotEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}

	query := url.Values{}
	if page, ok := argInt(args, "page"); ok && page > 0 {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := argInt(args, "limit"); ok && limit > 0 {
		query.Set("limit", fmt.Sprint(limit))
	}

	path := sessionPath(sessionID, "/events")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var events service.EventsResponse
	if err := c.apiCall(ctx, "GET", path, nil, &events); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEvents(&events)), nil
}

func (c *Client) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateCommand(ctx, request, "/start", "Robot started")
}

func (c *Client) handleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateCommand(ctx, request, "/stop", "Robot stopped")
}

// stateCommand posts a body-less command and renders the returned state
func (c *Client) stateCommand(ctx context.Context, request mcp.CallToolRequest, suffix, message string) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(request.GetArguments())
	if errResult != nil {
		return errResult, nil
	}

	var state engine.State
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, suffix), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(message + "\n\n" + formatState(&state, false)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}

	var body interface{}
	x, hasX := argNumber(args, "x")
	y, hasY := argNumber(args, "y")
	if hasX || hasY {
		if !hasX || !hasY {
			return mcp.NewToolResultError("x and y must be given together"), nil
		}
		angle, _ := argNumber(args, "angle")
		body = service.Pose{X: x, Y: y, Angle: angle}
	}

	var response struct {
		Message string       `json:"message"`
		State   engine.State `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message + "\n\n" + formatState(&response.State, false)), nil
}

func (c *Client) handleSetForbiddenArea(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}

	var coords [4]int
	for i, key := range []string{"x1", "y1", "x2", "y2"} {
		v, ok := argInt(args, key)
		if !ok {
			return mcp.NewToolResultError(key + " is required"), nil
		}
		coords[i] = v
	}
	region := grid.NewRegion(coords[0], coords[1], coords[2], coords[3])

	var state engine.State
	if err := c.apiCall(ctx, "PUT", sessionPath(sessionID, "/forbidden-area"), region, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Forbidden area set to %s\n\n%s", region, formatState(&state, true))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleClearForbiddenArea(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(request.GetArguments())
	if errResult != nil {
		return errResult, nil
	}

	var state engine.State
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, "/forbidden-area"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Forbidden area cleared\n\n" + formatState(&state, false)), nil
}

func (c *Client) handleRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}

	body := map[string]interface{}{
		"direction": argString(args, "direction"),
	}
	if steps, ok := argInt(args, "steps"); ok {
		body["steps"] = steps
	}

	var state engine.State
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/rotate"), body, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(&state, false)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}

	body := map[string]int{}
	if ticks, ok := argInt(args, "ticks"); ok {
		body["ticks"] = ticks
	}

	var result service.TickResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/tick"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTickResult(&result)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&result, "• %s (config_id: %s, %s)\n  %s\n  Grid: %dx%d, Footprint: %d\n\n",
			cfg.Name, cfg.ConfigID, cfg.Format, cfg.Description, cfg.GridWidth, cfg.GridHeight, cfg.Footprint)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Coverage Robot Simulator - Complete Instructions

WORLD:
- The floor is a grid of W x H cells, each CELL_SIZE world units wide.
- The robot is a square covering F x F cells (the footprint). A placement is
  the top-left cell of the footprint; valid placements are col 0..W-F and
  row 0..H-F. Positions are reported in world units at the footprint center.
- An optional forbidden area (inclusive cell rectangle) must never overlap
  the footprint.

COVERAGE PLAN:
- Targets are every F-th column on every F-th row, skipping forbidden ones.
- Rows are swept left to right, then right to left, alternating.
- Consecutive targets are joined by shortest grid paths (4-neighbor moves).
- Unreachable targets are skipped and listed by coverage_plan.

MODES:
- idle: not moving. Start picks a home, plans from it and schedules the
  switch to moving after start_delay_ms. Stop or reset cancels it.
- moving: follows the plan, draining battery every tick.
- diverting_to_home: battery at or below the low threshold; the robot heads
  straight home, still draining.
- charging: at home; battery rises each tick until full, then the robot
  resumes the plan where it left off.
- Completing the plan returns the robot to idle.

BATTERY STATUS:
- FULL (100), OK, LOW (at or below threshold), CRITICAL (at or below half the
  threshold), EMPTY (0). An empty battery keeps the robot moving at zero.

SUGGESTED WORKFLOW:
1. list_configs, then create_session with a config_id.
2. Optionally set_forbidden_area to fence off part of the floor.
3. coverage_plan to check reached and skipped targets.
4. start_robot, then tick in batches (for example 500) and watch robot_state.
5. robot_events shows every mode change with tick, battery and position.

MAP LEGEND (robot_state):
  R robot    H home    # forbidden footprint    . free placement`

// Formatting helpers

// planSummary mirrors the plan endpoint response
type planSummary struct {
	Start    grid.Cell       `json:"start"`
	Targets  int             `json:"targets"`
	Reached  int             `json:"reached"`
	Skipped  []grid.Cell     `json:"skipped"`
	Complete bool            `json:"complete"`
	Length   int             `json:"length"`
	Path     []grid.Waypoint `json:"path"`
}

func formatState(state *engine.State, includeMap bool) string {
	if state == nil {
		return "No robot state available"
	}

	var result strings.Builder

	fmt.Fprintf(&result, "Mode: %s", state.Mode)
	if state.StartPending {
		result.WriteString(" (start pending)")
	}
	result.WriteString("\n")
	fmt.Fprintf(&result, "Position: (%.1f, %.1f) | Heading: %.1f° | Battery: %.2f%% [%s]\n",
		state.Position.X, state.Position.Y, state.Heading*180/math.Pi,
		state.Battery, state.BatteryStatus)
	fmt.Fprintf(&result, "Home: cell (%d, %d) at (%.1f, %.1f)\n",
		state.HomeCell.Col, state.HomeCell.Row, state.Home.X, state.Home.Y)
	fmt.Fprintf(&result, "Progress: %d/%d waypoints", state.PathIndex, state.PathLength)
	if state.Mode == engine.DivertingToHome || state.Mode == engine.Charging {
		fmt.Fprintf(&result, " (resume at %d)", state.ResumeIndex)
	}
	if state.SkippedCount > 0 {
		fmt.Fprintf(&result, " | Skipped targets: %d", state.SkippedCount)
	}
	result.WriteString("\n")
	fmt.Fprintf(&result, "Grid: %dx%d, footprint %d | Ticks: %d\n",
		state.Grid.Width, state.Grid.Height, state.Grid.Footprint, state.Ticks)
	if state.ForbiddenArea != nil {
		fmt.Fprintf(&result, "Forbidden area: %s\n", *state.ForbiddenArea)
	}

	if includeMap {
		if m := formatMap(state); m != "" {
			result.WriteString("\n" + m)
		}
	}

	return result.String()
}

// formatMap renders one character per footprint placement
func formatMap(state *engine.State) string {
	g := state.Grid
	if g.Width <= 0 || g.Height <= 0 || g.CellSize <= 0 || g.MaxCol()+1 > maxMapWidth {
		return ""
	}

	robot := g.OriginOf(state.Position)
	var result strings.Builder
	for row := 0; row <= g.MaxRow(); row++ {
		for col := 0; col <= g.MaxCol(); col++ {
			switch {
			case col == robot.Col && row == robot.Row:
				result.WriteByte('R')
			case col == state.HomeCell.Col && row == state.HomeCell.Row:
				result.WriteByte('H')
			case g.IsFootprintForbidden(col, row, state.ForbiddenArea):
				result.WriteByte('#')
			default:
				result.WriteByte('.')
			}
		}
		result.WriteByte('\n')
	}
	return result.String()
}

func formatPlan(plan *planSummary) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Coverage plan from cell (%d, %d)\n", plan.Start.Col, plan.Start.Row)
	fmt.Fprintf(&result, "Targets: %d | Reached: %d | Skipped: %d | Waypoints: %d\n",
		plan.Targets, plan.Reached, len(plan.Skipped), plan.Length)
	if plan.Complete {
		result.WriteString("Every target is reachable.\n")
	} else {
		result.WriteString("Unreachable targets:")
		for i, c := range plan.Skipped {
			if i == 20 {
				fmt.Fprintf(&result, " ... and %d more", len(plan.Skipped)-i)
				break
			}
			fmt.Fprintf(&result, " (%d,%d)", c.Col, c.Row)
		}
		result.WriteString("\n")
	}
	return result.String()
}

func formatTickResult(result *service.TickResult) string {
	var out strings.Builder

	fmt.Fprintf(&out, "Ticks: %d/%d", result.TicksExecuted, result.RequestedTicks)
	if result.Truncated {
		fmt.Fprintf(&out, " (truncated to %d)", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&out, " | stopped: %s", result.StoppedReason)
	}
	out.WriteString("\n")
	fmt.Fprintf(&out, "Mode: %s -> %s | Battery: %.2f -> %.2f | Waypoint: %d -> %d\n",
		result.StartMode, result.EndMode, result.StartBattery, result.EndBattery,
		result.StartIndex, result.EndIndex)

	if len(result.Transitions) > 0 {
		out.WriteString("\nTransitions:\n")
		for _, e := range result.Transitions {
			out.WriteString(formatEvent(e) + "\n")
		}
	}

	out.WriteString("\n" + formatState(&result.State, false))
	return out.String()
}

func formatEvent(e engine.Event) string {
	return fmt.Sprintf("  #%d tick %d: %s -> %s (%s) battery %.2f at (%.1f, %.1f)",
		e.Seq, e.Tick, e.From, e.To, e.Reason, e.Battery, e.Position.X, e.Position.Y)
}

func formatEvents(events *service.EventsResponse) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Mode transitions (page %d/%d, total %d):\n",
		events.Page, events.TotalPages, events.TotalEvents)
	for _, e := range events.Events {
		result.WriteString(formatEvent(e) + "\n")
	}
	if events.HasNext {
		fmt.Fprintf(&result, "More: page=%d\n", events.Page+1)
	}
	return result.String()
}
