// Package mcp exposes the coverage robot simulator as Model Context Protocol
// tools.
//
// Client is a thin proxy: every tool translates its arguments into a call to
// the REST API and renders the JSON response as text for the model. It holds
// no simulation state of its own.
//
// Tools:
//   - create_session, list_sessions
//   - robot_state (with a placement map), coverage_plan, robot_events
//   - start_robot, stop_robot, reset_robot
//   - set_forbidden_area, clear_forbidden_area
//   - rotate, tick
//   - list_configs, simulator_instructions
//
// REST failures come back as tool errors (IsError) carrying the API's error
// message, never as protocol errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// The HTTP server also mounts the same MCP server on /mcp.
package mcp
