package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/livetree-go/livetree/pkg/protocol"
	"github.com/livetree-go/livetree/pkg/vdom"
)

// SessionState is the lifecycle state of a Session.
type SessionState int32

const (
	// StateCreated is the state before Mount.
	StateCreated SessionState = iota
	// StateMounted means the initial tree has been rendered but the boot
	// payload has not yet been handed to the transport.
	StateMounted
	// StateIdle means the session is waiting for the next event.
	StateIdle
	// StateRendering means an event is being processed. At most one event
	// is in this state per session.
	StateRendering
	// StateClosed is terminal. Events against a closed session fail.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateMounted:
		return "mounted"
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrSessionClosed is returned for operations on a closed session.
var ErrSessionClosed = errors.New("server: session closed")

// Session is one connection's update session. It owns the connection's
// last known tree and processes events strictly one at a time: each event
// runs its handler, re-renders, diffs against the previous tree, and
// replaces it before the next event begins.
type Session struct {
	// ID is a random identifier used in logs and traces.
	ID string

	app      Application
	handlers HandlerMap
	registry *protocol.Registry
	config   *Config
	logger   *slog.Logger
	metrics  *Metrics

	state atomic.Int32
	mu    sync.Mutex // serializes Mount and OnEvent

	tree *vdom.VNode

	// pendingMeta tracks handler names whose modifier metadata has not
	// been transmitted on this connection. The boot payload drains it;
	// anything registered later rides out on update responses.
	pendingMeta map[string]struct{}

	closeOnce  sync.Once
	eventCount atomic.Uint64
	patchCount atomic.Uint64
}

func newSession(app Application, registry *protocol.Registry, cfg *Config, metrics *Metrics) *Session {
	id := generateSessionID()
	s := &Session{
		ID:          id,
		app:         app,
		handlers:    app.Handlers(),
		registry:    registry,
		config:      cfg,
		logger:      cfg.Logger.With("component", "session", "session_id", id),
		metrics:     metrics,
		pendingMeta: make(map[string]struct{}),
	}
	for _, name := range registry.Names() {
		s.pendingMeta[name] = struct{}{}
	}
	return s
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("server: session ID generation: %v", err))
	}
	return hex.EncodeToString(b)
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
}

// Mount renders the initial tree and returns the boot payload: the tree
// plus the full handler metadata map. The boot payload must be the first
// message the transport delivers.
func (s *Session) Mount(ctx context.Context) (*protocol.BootMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case StateClosed:
		return nil, ErrSessionClosed
	case StateCreated:
	default:
		return nil, fmt.Errorf("server: session already mounted (state %s)", s.State())
	}

	s.tree = s.app.Render(ctx)
	s.setState(StateMounted)

	boot := &protocol.BootMessage{
		Tree:     s.tree.Clone(),
		Handlers: s.registry.Snapshot(),
	}
	// The boot payload carries every registered handler, so nothing is
	// pending afterwards.
	clear(s.pendingMeta)

	s.setState(StateIdle)
	s.logger.Debug("session mounted", "nodes", vdom.CountNodes(s.tree))
	return boot, nil
}

// OnEvent processes one client event to completion: dispatch, re-render,
// diff, tree replacement. Exactly one of the returned message's Update and
// Err fields is set. The error return is reserved for lifecycle failures
// such as a closed or unmounted session.
//
// Calls are serialized; the transport's run loop delivers events in
// receipt order, so ordering on the wire matches processing order.
func (s *Session) OnEvent(ctx context.Context, msg *protocol.EventMessage) (protocol.ServerMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case StateClosed:
		return protocol.ServerMessage{}, ErrSessionClosed
	case StateIdle:
	default:
		return protocol.ServerMessage{}, fmt.Errorf("server: event before mount (state %s)", s.State())
	}

	s.setState(StateRendering)
	defer s.setState(StateIdle)

	s.eventCount.Add(1)
	if s.metrics != nil {
		s.metrics.EventsTotal.WithLabelValues(msg.Event).Inc()
	}

	ctx, span := startEventSpan(ctx, s.ID, msg.Event)
	start := time.Now()

	handlerErr := s.dispatch(ctx, msg)
	if handlerErr != nil {
		if s.metrics != nil {
			s.metrics.HandlerErrors.WithLabelValues(msg.Event).Inc()
		}
		endEventSpan(span, 0, handlerErr)
		return protocol.ServerMessage{Err: &protocol.ErrorMessage{
			Error: protocol.ErrorDetail{
				Handler: msg.Event,
				Message: clientMessage(handlerErr),
			},
		}}, nil
	}

	newTree := s.app.Render(ctx)
	patches := vdom.Diff(s.tree, newTree)
	if patches == nil {
		patches = []vdom.Patch{}
	}
	s.tree = newTree

	s.patchCount.Add(uint64(len(patches)))
	if s.metrics != nil {
		s.metrics.PatchesTotal.Add(float64(len(patches)))
		s.metrics.EventDuration.Observe(time.Since(start).Seconds())
	}
	endEventSpan(span, len(patches), nil)

	s.logger.Debug("event processed",
		"handler", msg.Event,
		"patches", len(patches),
		"duration", time.Since(start))

	return protocol.ServerMessage{Update: &protocol.UpdateMessage{
		Patches:  patches,
		Handlers: s.takeMetadataDelta(),
		CacheKey: msg.CacheKey,
	}}, nil
}

// dispatch runs the handler for msg, converting panics into errors so a
// misbehaving handler cannot take down the session goroutine.
func (s *Session) dispatch(ctx context.Context, msg *protocol.EventMessage) (err error) {
	fn, ok := s.handlers[msg.Event]
	if !ok {
		s.logger.Warn("unknown handler", "handler", msg.Event)
		return &ValidationError{Message: fmt.Sprintf("unknown handler %q", msg.Event)}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic",
				"handler", msg.Event,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("server: handler %q panicked: %v", msg.Event, r)
		}
	}()

	if err := fn(ctx, msg.Params); err != nil {
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			s.logger.Error("handler failed", "handler", msg.Event, "error", err)
		}
		return err
	}
	return nil
}

// clientMessage maps a handler error to the message sent over the wire.
// Validation messages pass through; everything else is reported
// generically and kept server-side.
func clientMessage(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	return "internal error"
}

// takeMetadataDelta drains the untransmitted handler metadata set. Returns
// nil when nothing is pending, which keeps the field off the wire.
func (s *Session) takeMetadataDelta() map[string][]protocol.Modifier {
	if len(s.pendingMeta) == 0 {
		return nil
	}
	delta := make(map[string][]protocol.Modifier, len(s.pendingMeta))
	for name := range s.pendingMeta {
		if mods, ok := s.registry.Get(name); ok {
			delta[name] = mods
		}
	}
	clear(s.pendingMeta)
	return delta
}

// Close moves the session to its terminal state. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.setState(StateClosed)
		s.logger.Debug("session closed",
			"events", s.eventCount.Load(),
			"patches", s.patchCount.Load())
	})
}
