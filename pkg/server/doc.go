// Package server hosts livetree update sessions over websocket
// connections.
//
// Each connection owns one Session: a small state machine that renders the
// application, diffs the result against the connection's last known tree,
// and streams the resulting patches to the client. Events from one
// connection are processed strictly in receipt order with at most one
// render in flight, so handler n's tree replacement always completes
// before handler n+1 begins.
//
// The Server wires sessions to HTTP: a chi router exposes the websocket
// endpoint, a health check, and optionally Prometheus metrics. Handler
// modifier declarations are validated once at startup into a read-only
// protocol.Registry shared by every session.
package server
