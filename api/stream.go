package api

import (
	"bufio"
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/papercomputeco/minutes/pkg/broadcast"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// handleWebSocket upgrades the request and registers the connection as a
// hub subscriber until the peer goes away or the server shuts down.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sub := broadcast.NewConnSubscriber(conn, 0)
	s.deps.Hub.Register(sub)
	defer s.deps.Hub.Unregister(sub.ID())

	s.logger.Debug("websocket viewer connected", "remote", r.RemoteAddr, "subscriber_id", sub.ID())

	err = sub.Run(r.Context())
	if err != nil && !errors.Is(err, context.Canceled) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Debug("websocket viewer ended", "subscriber_id", sub.ID(), "error", err)
	}
}

// handleEvents streams hub events as Server-Sent Events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := broadcast.NewStreamSubscriber(0)
	s.deps.Hub.Register(sub)
	defer s.deps.Hub.Unregister(sub.ID())

	s.logger.Debug("sse viewer connected", "remote", r.RemoteAddr, "subscriber_id", sub.ID())

	bw := bufio.NewWriter(flushWriter{w: w, flusher: flusher})
	if err := sub.Run(r.Context(), bw); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("sse viewer ended", "subscriber_id", sub.ID(), "error", err)
	}
}

// flushWriter pushes every write through to the client.
type flushWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	f.flusher.Flush()
	return n, nil
}
