// Package session provides in-memory session management for the coverage
// robot simulator.
//
// Manager is thread-safe. Session IDs are case-insensitive; generated IDs
// are the first 8 hex characters of a random UUID. Idle sessions can be
// expired with CleanupExpiredSessions.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
package session
