// Package gateway assembles the coursly-gateway components and owns the
// server lifecycle.
//
// The wiring, leaves first: the SQLite store persists sessions, turns, and
// escalations; the realtime hub routes typing signals and replies to bound
// websocket connections; the tool catalog answers model tool calls and
// creates escalations; the orchestrator drives the two-round-trip completion
// protocol; the HTTP API exposes chat submission, history, escalations, the
// websocket endpoint, and health.
//
// Run blocks until the context is canceled, then shuts down in order: stop
// the HTTP server, drain in-flight turns, close the store.
package gateway
