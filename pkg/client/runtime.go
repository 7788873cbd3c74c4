package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livetree-go/livetree/pkg/draft"
	"github.com/livetree-go/livetree/pkg/protocol"
	"github.com/livetree-go/livetree/pkg/vdom"
)

// Transport carries protocol messages for one connection.
type Transport interface {
	// WriteEvent sends a client event.
	WriteEvent(msg *protocol.EventMessage) error
	// ReadMessage blocks for the next server message. The first message
	// on a fresh connection is the boot payload.
	ReadMessage() (protocol.ServerMessage, error)
	Close() error
}

// ErrTransportClosed reports a closed connection to the read loop.
var ErrTransportClosed = errors.New("client: transport closed")

// Runtime ties a transport, a tree applier, and a pipeline into a running
// client. Responses are associated with handlers by arrival order: the
// server processes one connection's events FIFO, so the oldest in-flight
// event owns the next non-error response.
type Runtime struct {
	loop      *Loop
	transport Transport
	tree      *TreeApplier
	pipeline  *Pipeline
	logger    *slog.Logger

	inflight []string

	// OnError, when set, observes server rejections after the optimistic
	// revert has run. UIs hook it to show a brief rejection affordance.
	OnError func(handler, message string)
}

// RuntimeConfig assembles a Runtime.
type RuntimeConfig struct {
	// Transport is the connected transport. Required; its next read must
	// yield the boot payload.
	Transport Transport
	// Loop defaults to a loop starting at time.Now.
	Loop *Loop
	// Drafts is the optional draft persistence hook.
	Drafts draft.Store
	// CacheCapacity bounds the response cache. Default 64.
	CacheCapacity int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewRuntime reads the boot payload from the transport and builds the
// client: live tree from the boot tree, pipeline bindings from the boot
// registry.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loop := cfg.Loop
	if loop == nil {
		loop = NewLoop(time.Now())
	}

	msg, err := cfg.Transport.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("client: reading boot payload: %w", err)
	}
	if msg.Boot == nil {
		return nil, fmt.Errorf("client: first message is not a boot payload")
	}
	registry, err := protocol.NewRegistry(msg.Boot.Handlers)
	if err != nil {
		return nil, fmt.Errorf("client: boot registry: %w", err)
	}

	r := &Runtime{
		loop:      loop,
		transport: cfg.Transport,
		tree:      NewTreeApplier(msg.Boot.Tree),
		logger:    logger.With("component", "runtime"),
	}
	r.pipeline = NewPipeline(PipelineConfig{
		Loop:          loop,
		Tree:          r.tree,
		Registry:      registry,
		CacheCapacity: cfg.CacheCapacity,
		Drafts:        cfg.Drafts,
		Logger:        logger,
		Send:          r.sendEvent,
	})
	return r, nil
}

// Tree returns the live tree applier.
func (r *Runtime) Tree() *TreeApplier {
	return r.tree
}

// Pipeline returns the event pipeline.
func (r *Runtime) Pipeline() *Pipeline {
	return r.pipeline
}

// Loop returns the runtime's scheduler.
func (r *Runtime) Loop() *Loop {
	return r.loop
}

// Dispatch feeds one UI event into the pipeline.
func (r *Runtime) Dispatch(handler string, params map[string]any, source vdom.Path) {
	r.pipeline.Dispatch(handler, params, source)
}

func (r *Runtime) sendEvent(msg *protocol.EventMessage) {
	r.inflight = append(r.inflight, msg.Event)
	if err := r.transport.WriteEvent(msg); err != nil {
		r.inflight = r.inflight[:len(r.inflight)-1]
		r.logger.Error("event send failed", "handler", msg.Event, "error", err)
	}
}

// Step reads and processes one server message. It returns
// ErrTransportClosed (or the underlying read error) when the connection
// is gone.
func (r *Runtime) Step() error {
	msg, err := r.transport.ReadMessage()
	if err != nil {
		return err
	}
	return r.handle(msg)
}

// Run processes server messages until ctx is cancelled or the transport
// fails.
func (r *Runtime) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Step(); err != nil {
			return err
		}
	}
}

func (r *Runtime) handle(msg protocol.ServerMessage) error {
	switch {
	case msg.Update != nil:
		handler := r.popInflight()
		if err := r.tree.Apply(msg.Update.Patches); err != nil {
			return fmt.Errorf("client: applying update for %q: %w", handler, err)
		}
		for name, mods := range msg.Update.Handlers {
			r.pipeline.Bind(name, mods)
		}
		r.pipeline.HandleResponse(handler, msg.Update)
		return nil

	case msg.Err != nil:
		r.popInflight()
		handler := msg.Err.Error.Handler
		r.pipeline.HandleError(handler, msg.Err.Error.Message)
		if r.OnError != nil {
			r.OnError(handler, msg.Err.Error.Message)
		}
		return nil

	case msg.Boot != nil:
		return fmt.Errorf("client: unexpected boot payload mid-session")

	default:
		return fmt.Errorf("client: empty server message")
	}
}

func (r *Runtime) popInflight() string {
	if len(r.inflight) == 0 {
		return ""
	}
	handler := r.inflight[0]
	r.inflight = r.inflight[1:]
	return handler
}

// Close shuts the transport down.
func (r *Runtime) Close() error {
	return r.transport.Close()
}

// WSTransport is the websocket Transport.
type WSTransport struct {
	conn *websocket.Conn
}

// DialWS connects to a server's websocket endpoint.
func DialWS(ctx context.Context, url string) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	return &WSTransport{conn: conn}, nil
}

func (t *WSTransport) WriteEvent(msg *protocol.EventMessage) error {
	return t.conn.WriteJSON(msg)
}

func (t *WSTransport) ReadMessage() (protocol.ServerMessage, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return protocol.ServerMessage{}, ErrTransportClosed
		}
		return protocol.ServerMessage{}, err
	}
	return protocol.DecodeServerMessage(data)
}

func (t *WSTransport) Close() error {
	return t.conn.Close()
}
