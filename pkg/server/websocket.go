package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livetree-go/livetree/pkg/protocol"
)

// wsConn drives one websocket connection: a reader goroutine decodes
// incoming events into a buffered FIFO channel, and the run loop pulls
// them off one at a time, processes them through the session, and writes
// the response. One event in flight per connection, in receipt order.
type wsConn struct {
	sess   *Session
	conn   *websocket.Conn
	config *Config
	logger *slog.Logger

	writeMu sync.Mutex
	events  chan *protocol.EventMessage
	done    chan struct{}

	closeOnce sync.Once
}

func newWSConn(sess *Session, conn *websocket.Conn, cfg *Config) *wsConn {
	return &wsConn{
		sess:   sess,
		conn:   conn,
		config: cfg,
		logger: cfg.Logger.With("component", "websocket", "session_id", sess.ID),
		events: make(chan *protocol.EventMessage, cfg.MaxEventQueue),
		done:   make(chan struct{}),
	}
}

// serve mounts the session, sends the boot payload as the first message,
// and runs until the connection drops or ctx is cancelled.
func (c *wsConn) serve(ctx context.Context) error {
	defer c.close()

	boot, err := c.sess.Mount(ctx)
	if err != nil {
		return err
	}
	if err := c.writeJSON(boot); err != nil {
		return err
	}

	go c.readLoop()
	return c.runLoop(ctx)
}

func (c *wsConn) readLoop() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		msg, err := protocol.DecodeEventMessage(data)
		if err != nil {
			c.logger.Warn("dropping malformed event", "error", err)
			continue
		}

		select {
		case c.events <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) runLoop(ctx context.Context) error {
	ping := time.NewTicker(c.config.PingInterval)
	defer ping.Stop()

	for {
		select {
		case msg := <-c.events:
			resp, err := c.sess.OnEvent(ctx, msg)
			if err != nil {
				return err
			}
			var payload any
			switch {
			case resp.Update != nil:
				payload = resp.Update
			case resp.Err != nil:
				payload = resp.Err
			default:
				continue
			}
			if err := c.writeJSON(payload); err != nil {
				return err
			}

		case <-ping.C:
			if err := c.writeControl(websocket.PingMessage); err != nil {
				return err
			}

		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *wsConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) writeControl(messageType int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, nil, time.Now().Add(c.config.WriteTimeout))
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.sess.Close()
		_ = c.conn.Close()
	})
}
