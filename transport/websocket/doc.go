// Package websocket provides WebSocket transport for the coverage robot
// simulator.
//
// A central Hub keeps the connected clients of each session and pushes every
// robot state change to them. The Hub implements service.Notifier, so the
// simulation service drives it directly:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	svc := service.NewSimService(sessions, configs, service.WithNotifier(hub))
//
// Clients connect with the session ID as a query parameter
// (/ws?session=3f2a9c1e) and receive one JSON document per frame:
//
//	{"session_id": "3f2a9c1e", "event": "tick", "state": {...}}
//
// Incoming client messages are ignored. Each connection runs a read pump for
// ping/pong keepalive and a write pump; a client whose send buffer fills is
// disconnected. Notify never blocks the caller: when the hub loop falls
// behind, updates are dropped.
package websocket
