// Package realtime routes asynchronous push payloads to WebSocket clients.
//
// A client connects to GET /ws and announces its session key:
//
//	{"type": "session-id", "sessionKey": "abc123"}
//
// The server confirms the bind:
//
//	{"type": "session-ack", "sessionKey": "abc123"}
//
// From then on the connection receives composing signals and final answers
// for that session as they are produced:
//
//	{"isTyping": true}
//	{"isTyping": false}
//	{"reply": "...", "needsEscalation": false}
//
// Routing state is purely in-memory. There is no replay buffer: payloads
// published while no connection is bound are dropped, and all bindings are
// rebuilt from scratch after a restart. Each connection has a small ordered
// send queue drained by its own writer goroutine, so one stalled consumer
// never delays delivery to the others.
package realtime
