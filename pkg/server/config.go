package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/livetree-go/livetree/pkg/protocol"
)

// Config holds configuration for the Server and its sessions.
type Config struct {
	// NewApplication constructs the per-connection Application. Required.
	NewApplication func() Application

	// Modifiers declares the modifier chain for each handler name. It is
	// validated into a protocol.Registry at startup; a handler may appear
	// with a nil chain, and handlers absent from the map carry no
	// modifiers.
	Modifiers map[string][]protocol.Modifier

	// Address is the listen address for ListenAndServe.
	// Default: ":8080".
	Address string

	// WebSocketPath is the route for the update session endpoint.
	// Default: "/livetree/ws".
	WebSocketPath string

	// DisableMetrics leaves the Prometheus handler off the router. By
	// default /metrics is mounted.
	DisableMetrics bool

	// Registerer receives the server's Prometheus collectors.
	// Default: prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Logger is the structured logger for server and session events.
	// Default: slog.Default().
	Logger *slog.Logger

	// ReadTimeout is the maximum time to wait for a client message.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is the time between websocket keepalive pings.
	// Default: 30 seconds.
	PingInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming websocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxEventQueue is the size of the per-session event channel buffer.
	// Default: 256.
	MaxEventQueue int

	// CheckOrigin validates the websocket upgrade origin. Default allows
	// same-host requests only.
	CheckOrigin func(r *http.Request) bool
}

// withDefaults fills in zero-valued fields. The receiver is not modified.
func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.WebSocketPath == "" {
		c.WebSocketPath = "/livetree/ws"
	}
	if c.Registerer == nil {
		c.Registerer = prometheus.DefaultRegisterer
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 64 * 1024
	}
	if c.MaxEventQueue == 0 {
		c.MaxEventQueue = 256
	}
	return c
}
