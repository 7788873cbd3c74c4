package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/livetree-go/livetree/pkg/protocol"
	"github.com/livetree-go/livetree/pkg/vdom"
)

func TestNewRequiresApplication(t *testing.T) {
	if _, err := New(Config{Registerer: prometheus.NewRegistry()}); err == nil {
		t.Error("expected error without NewApplication")
	}
}

func TestNewRejectsBadModifiers(t *testing.T) {
	_, err := New(Config{
		NewApplication: func() Application { return &counterApp{} },
		Modifiers: map[string][]protocol.Modifier{
			"increment": {protocol.Debounce(0, 0)},
		},
		Registerer: prometheus.NewRegistry(),
	})
	var cfgErr *protocol.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "livetree_sessions_active") {
		t.Error("metrics output missing livetree_sessions_active")
	}
}

func TestMetricsDisabled(t *testing.T) {
	s, err := New(Config{
		NewApplication: func() Application { return &counterApp{} },
		Registerer:     prometheus.NewRegistry(),
		DisableMetrics: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Error("/metrics should not be mounted")
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/livetree/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn) protocol.ServerMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	msg, err := protocol.DecodeServerMessage(data)
	if err != nil {
		t.Fatalf("DecodeServerMessage: %v", err)
	}
	return msg
}

func TestWebSocketSessionEndToEnd(t *testing.T) {
	srv := newTestServer(t, map[string][]protocol.Modifier{
		"increment": {protocol.Optimistic()},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)

	// The boot payload is the first message on the wire.
	boot := readServerMessage(t, conn)
	if boot.Boot == nil {
		t.Fatalf("first message = %+v, want boot", boot)
	}
	tree := boot.Boot.Tree
	if len(boot.Boot.Handlers["increment"]) != 1 {
		t.Fatalf("boot handlers = %v", boot.Boot.Handlers)
	}

	// A valid event comes back as an update whose patches apply cleanly.
	err := conn.WriteJSON(&protocol.EventMessage{Event: "increment", Params: map[string]any{"by": 2}})
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readServerMessage(t, conn)
	if msg.Update == nil {
		t.Fatalf("message = %+v, want update", msg)
	}
	tree, err = vdom.Apply(tree, msg.Update.Patches)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if tree.Children[1].Children[0].Text != "2" {
		t.Errorf("count = %q, want 2", tree.Children[1].Children[0].Text)
	}

	// A failing event produces an error message and does not advance the
	// tree: the following update still applies to our copy.
	if err := conn.WriteJSON(&protocol.EventMessage{Event: "reject"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg = readServerMessage(t, conn)
	if msg.Err == nil || msg.Err.Error.Handler != "reject" {
		t.Fatalf("message = %+v, want reject error", msg)
	}

	if err := conn.WriteJSON(&protocol.EventMessage{Event: "increment"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg = readServerMessage(t, conn)
	if msg.Update == nil {
		t.Fatalf("message = %+v, want update", msg)
	}
	if _, err := vdom.Apply(tree, msg.Update.Patches); err != nil {
		t.Errorf("post-error patches do not apply: %v", err)
	}
}

func TestWebSocketResponsesInEventOrder(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	boot := readServerMessage(t, conn)
	tree := boot.Boot.Tree

	// Burst of events: responses must arrive in send order, each applying
	// on top of the last.
	const n = 5
	for i := 0; i < n; i++ {
		if err := conn.WriteJSON(&protocol.EventMessage{Event: "increment"}); err != nil {
			t.Fatalf("WriteJSON %d: %v", i, err)
		}
	}
	for i := 1; i <= n; i++ {
		msg := readServerMessage(t, conn)
		if msg.Update == nil {
			t.Fatalf("message %d = %+v, want update", i, msg)
		}
		var err error
		tree, err = vdom.Apply(tree, msg.Update.Patches)
		if err != nil {
			t.Fatalf("Apply %d: %v", i, err)
		}
	}
	if tree.Children[1].Children[0].Text != "5" {
		t.Errorf("final count = %q, want 5", tree.Children[1].Children[0].Text)
	}
}

func TestWebSocketDropsMalformedEvents(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	readServerMessage(t, conn) // boot

	// Garbage is dropped without killing the connection.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := conn.WriteJSON(&protocol.EventMessage{Event: "increment"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readServerMessage(t, conn)
	if msg.Update == nil {
		t.Fatalf("message = %+v, want update after malformed frame", msg)
	}
}

func TestShutdownWithoutListen(t *testing.T) {
	srv := newTestServer(t, nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
