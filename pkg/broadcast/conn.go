package broadcast

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ConnSubscriber delivers events over a WebSocket connection. Send only
// enqueues; Run owns every data write to the connection.
type ConnSubscriber struct {
	*outbox
	conn *websocket.Conn
}

// NewConnSubscriber wraps conn with an outbox of size messages (0 for the default).
func NewConnSubscriber(conn *websocket.Conn, size int) *ConnSubscriber {
	return &ConnSubscriber{
		outbox: newOutbox(size),
		conn:   conn,
	}
}

// Run writes queued messages and keep-alive pings until ctx is done, the
// peer goes away, or Close is called. It closes the connection on return.
func (s *ConnSubscriber) Run(ctx context.Context) error {
	defer s.Close()

	go s.readPump()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return ctx.Err()

		case <-s.done:
			return nil

		case msg := <-s.ch:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}

		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

// readPump consumes control frames and detects a closed peer. Viewers never
// send data, so any inbound payload is ignored.
func (s *ConnSubscriber) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(4096)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close marks the subscriber closed and closes the connection.
func (s *ConnSubscriber) Close() error {
	if s.shut() {
		return s.conn.Close()
	}
	return nil
}
