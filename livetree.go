// Package livetree provides the public API for the livetree framework.
//
// This is the recommended import for most applications:
//
//	import "github.com/livetree-go/livetree"
//
// Usage:
//
//	srv, err := livetree.NewServer(livetree.ServerConfig{
//	    NewApplication: func() livetree.Application { return newApp() },
//	    Modifiers: map[string][]livetree.Modifier{
//	        "search": {livetree.Debounce(300*time.Millisecond, 0)},
//	    },
//	})
package livetree

import (
	"time"

	"github.com/livetree-go/livetree/pkg/protocol"
	"github.com/livetree-go/livetree/pkg/server"
	"github.com/livetree-go/livetree/pkg/vdom"
)

// Server-side types, re-exported for the common single-import case.
type (
	Application  = server.Application
	HandlerFunc  = server.HandlerFunc
	HandlerMap   = server.HandlerMap
	Server       = server.Server
	ServerConfig = server.Config

	Modifier = protocol.Modifier

	VNode = vdom.VNode
	Attr  = vdom.Attr
	Path  = vdom.Path
	Patch = vdom.Patch
)

// NewServer validates cfg and assembles a Server.
func NewServer(cfg ServerConfig) (*Server, error) {
	return server.New(cfg)
}

// Validationf builds a handler rejection whose message reaches the client
// verbatim.
func Validationf(format string, args ...any) error {
	return server.Validationf(format, args...)
}

// Modifier constructors.

func Debounce(wait, maxWait time.Duration) Modifier {
	return protocol.Debounce(wait, maxWait)
}

func Throttle(interval time.Duration, leading, trailing bool) Modifier {
	return protocol.Throttle(interval, leading, trailing)
}

func Optimistic() Modifier {
	return protocol.Optimistic()
}

func Cache(ttl time.Duration, keyParams ...string) Modifier {
	return protocol.Cache(ttl, keyParams...)
}

func ClientState(keys ...string) Modifier {
	return protocol.ClientState(keys...)
}

// Diff computes the ordered patch list transforming old into new.
func Diff(old, new *VNode) []Patch {
	return vdom.Diff(old, new)
}

// Apply applies patches in order to root and returns the resulting tree.
func Apply(root *VNode, patches []Patch) (*VNode, error) {
	return vdom.Apply(root, patches)
}
