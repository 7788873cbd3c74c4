package server

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/livetree-go/livetree/pkg/protocol"
	"github.com/livetree-go/livetree/pkg/vdom"
)

// counterApp is a minimal application: a counter plus a handler log so
// tests can observe dispatch order.
type counterApp struct {
	count int
	log   []string
}

func (a *counterApp) Render(context.Context) *vdom.VNode {
	return vdom.Div(
		vdom.H1("Counter"),
		vdom.Span(vdom.ID("count"), fmt.Sprintf("%d", a.count)),
	)
}

func (a *counterApp) Handlers() HandlerMap {
	return HandlerMap{
		"increment": func(_ context.Context, params map[string]any) error {
			a.count += max(1, IntParam(params, "by"))
			a.log = append(a.log, fmt.Sprintf("increment:%d", a.count))
			return nil
		},
		"reject": func(context.Context, map[string]any) error {
			a.log = append(a.log, "reject")
			return Validationf("count must stay below %d", 10)
		},
		"explode": func(context.Context, map[string]any) error {
			panic("unreachable state")
		},
		"opaque": func(context.Context, map[string]any) error {
			return errors.New("database connection refused")
		},
	}
}

func newTestServer(t *testing.T, mods map[string][]protocol.Modifier) *Server {
	t.Helper()
	s, err := New(Config{
		NewApplication: func() Application { return &counterApp{} },
		Modifiers:      mods,
		Registerer:     prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mountedSession(t *testing.T) (*Session, *protocol.BootMessage) {
	t.Helper()
	sess := newTestServer(t, map[string][]protocol.Modifier{
		"increment": {protocol.Debounce(300*time.Millisecond, 0)},
	}).NewSession()
	boot, err := sess.Mount(context.Background())
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return sess, boot
}

func TestSessionMountProducesBoot(t *testing.T) {
	sess, boot := mountedSession(t)

	if boot.Tree == nil || boot.Tree.Tag != "div" {
		t.Fatalf("boot tree = %+v", boot.Tree)
	}
	if len(boot.Handlers["increment"]) != 1 {
		t.Errorf("boot handlers = %v, want increment metadata", boot.Handlers)
	}
	if got := sess.State(); got != StateIdle {
		t.Errorf("state after mount = %s, want idle", got)
	}

	if _, err := sess.Mount(context.Background()); err == nil {
		t.Error("second Mount should fail")
	}
}

func TestSessionEventAdvancesTree(t *testing.T) {
	sess, boot := mountedSession(t)

	resp, err := sess.OnEvent(context.Background(), &protocol.EventMessage{
		Event:  "increment",
		Params: map[string]any{"by": float64(3)},
	})
	if err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if resp.Update == nil {
		t.Fatalf("response = %+v, want update", resp)
	}

	got, err := vdom.Apply(boot.Tree, resp.Update.Patches)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !vdom.Equal(got, sess.tree) {
		t.Error("applying update patches does not reproduce the session tree")
	}
	if got.Children[1].Children[0].Text != "3" {
		t.Errorf("count text = %q, want 3", got.Children[1].Children[0].Text)
	}
}

func TestSessionErrorLeavesTreeUnadvanced(t *testing.T) {
	sess, boot := mountedSession(t)

	resp, err := sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "reject"})
	if err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if resp.Err == nil {
		t.Fatalf("response = %+v, want error", resp)
	}
	if resp.Err.Error.Handler != "reject" {
		t.Errorf("Handler = %q, want reject", resp.Err.Error.Handler)
	}
	if resp.Err.Error.Message != "count must stay below 10" {
		t.Errorf("Message = %q, validation text should pass through", resp.Err.Error.Message)
	}

	// The next successful event diffs against the pre-error tree, so its
	// patches apply cleanly to the client's unadvanced copy.
	resp, err = sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "increment"})
	if err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if _, err := vdom.Apply(boot.Tree, resp.Update.Patches); err != nil {
		t.Errorf("patches after error do not apply to the client tree: %v", err)
	}
}

func TestSessionUnknownHandler(t *testing.T) {
	sess, _ := mountedSession(t)

	resp, err := sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "missing"})
	if err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if resp.Err == nil || resp.Err.Error.Message != `unknown handler "missing"` {
		t.Errorf("response = %+v", resp)
	}
}

func TestSessionRecoversFromHandlerPanic(t *testing.T) {
	sess, _ := mountedSession(t)

	resp, err := sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "explode"})
	if err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if resp.Err == nil || resp.Err.Error.Message != "internal error" {
		t.Errorf("response = %+v, want generic internal error", resp)
	}

	// The session survives and keeps processing.
	resp, err = sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "increment"})
	if err != nil || resp.Update == nil {
		t.Fatalf("OnEvent after panic = %+v, %v", resp, err)
	}
}

func TestSessionOpaqueErrorsStayServerSide(t *testing.T) {
	sess, _ := mountedSession(t)

	resp, err := sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "opaque"})
	if err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if resp.Err == nil || resp.Err.Error.Message != "internal error" {
		t.Errorf("response = %+v, internal detail must not reach the wire", resp)
	}
}

func TestSessionCacheKeyEcho(t *testing.T) {
	sess, _ := mountedSession(t)

	resp, err := sess.OnEvent(context.Background(), &protocol.EventMessage{
		Event:    "increment",
		CacheKey: "increment|5",
	})
	if err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if resp.Update.CacheKey != "increment|5" {
		t.Errorf("CacheKey = %q, want echo", resp.Update.CacheKey)
	}
}

func TestSessionClosedRejectsEvents(t *testing.T) {
	sess, _ := mountedSession(t)
	sess.Close()

	if _, err := sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "increment"}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("err = %v, want ErrSessionClosed", err)
	}
	if got := sess.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}

func TestSessionEventsProcessedInOrder(t *testing.T) {
	sess, _ := mountedSession(t)
	app := sess.app.(*counterApp)

	for i := 0; i < 3; i++ {
		if _, err := sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "increment"}); err != nil {
			t.Fatalf("OnEvent %d: %v", i, err)
		}
	}
	if _, err := sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "reject"}); err != nil {
		t.Fatalf("OnEvent reject: %v", err)
	}

	want := []string{"increment:1", "increment:2", "increment:3", "reject"}
	if len(app.log) != len(want) {
		t.Fatalf("log = %v, want %v", app.log, want)
	}
	for i := range want {
		if app.log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, app.log[i], want[i])
		}
	}
}

func TestSessionMetadataDeltaDrainsOnce(t *testing.T) {
	sess, boot := mountedSession(t)

	// Boot carried the full registry, so the first update has no delta.
	if len(boot.Handlers) == 0 {
		t.Fatal("boot should carry the registry")
	}
	resp, err := sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "increment"})
	if err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if resp.Update.Handlers != nil {
		t.Errorf("Handlers = %v, want nil after boot drained the delta", resp.Update.Handlers)
	}

	// Re-arm one entry: the next update carries it exactly once.
	sess.pendingMeta["increment"] = struct{}{}
	resp, _ = sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "increment"})
	if len(resp.Update.Handlers["increment"]) != 1 {
		t.Fatalf("Handlers = %v, want re-armed increment entry", resp.Update.Handlers)
	}
	resp, _ = sess.OnEvent(context.Background(), &protocol.EventMessage{Event: "increment"})
	if resp.Update.Handlers != nil {
		t.Errorf("Handlers = %v, delta must drain after one transmission", resp.Update.Handlers)
	}
}

func TestSessionStateStrings(t *testing.T) {
	states := map[SessionState]string{
		StateCreated:   "created",
		StateMounted:   "mounted",
		StateIdle:      "idle",
		StateRendering: "rendering",
		StateClosed:    "closed",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
