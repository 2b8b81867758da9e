// Package service provides the business logic layer for the coverage robot
// simulator.
//
// The service package implements:
//   - Multi-session robot management
//   - Configuration loading and listing
//   - Robot commands (start, stop, reset, rotate, forbidden area)
//   - Manual stepping and the real-time Clock
//   - Event log pagination
//
// Core Interfaces:
//
// SimService is the main service interface providing high-level operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages simulation configuration loading and validation.
// Notifier receives every state change; the WebSocket hub and the MQTT
// publisher both implement it.
//
// Concurrency:
//
// Each Session owns one robot and one mutex. Commands, ticks and the
// deferred start callback all run under that mutex, so the robot itself
// never needs to be thread-safe.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	svc := service.NewSimService(sessionMgr, configMgr, service.WithNotifier(hub))
//
//	info, err := svc.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc.Start(ctx, info.ID)
//
//	go service.NewClock(svc, 60).Run(ctx)
package service
