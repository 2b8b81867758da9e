// Package api provides HTTP REST API handlers for the coverage robot
// simulator.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session info with current state
//   - DELETE /api/sessions/{id} - Delete session
//
// Robot commands:
//   - POST /api/sessions/{id}/start - Pick a home, plan, and start after the configured delay
//   - POST /api/sessions/{id}/stop - Halt, keeping path and progress
//   - POST /api/sessions/{id}/reset - Full battery, no plan; optional {"x","y","angle"}
//   - PUT /api/sessions/{id}/forbidden-area - Set region {"x1","y1","x2","y2"} and replan
//   - DELETE /api/sessions/{id}/forbidden-area - Clear region and replan
//   - POST /api/sessions/{id}/rotate - {"direction": "left|right", "steps": N}
//   - POST /api/sessions/{id}/tick - Advance {"ticks": N}, stopping early once idle
//
// Queries:
//   - GET /api/sessions/{id}/state - Snapshot (?path=true adds the active path)
//   - GET /api/sessions/{id}/plan - Coverage plan diagnostics and waypoints
//   - GET /api/sessions/{id}/events - Mode transitions (?page=&limit=&order=)
//
// Configuration:
//   - GET /api/configs - List configs
//   - POST /api/configs - Save config; omitted fields take defaults
//   - GET /api/configs/{name} - Load config
//
// Other:
//   - GET /api/health - Liveness
//   - GET /ws?session={id} - WebSocket state stream
//
// Errors are returned as {"error": "message"} with 400 for bad input, 404
// for unknown sessions or configs and 500 otherwise.
//
// The server does not broadcast itself: the simulation service notifies the
// WebSocket hub and the MQTT publisher on every state change.
package api
