package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/foodcart/internal/adapter/metrics"
	"github.com/pscheid92/foodcart/internal/domain"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
	pongDeadline  = 60 * time.Second
	readLimit     = 512

	topicCart    = "cart"
	topicSession = "session"
)

func (s *Server) registerStreamRoutes() {
	s.echo.GET("/ws/cart", s.handleCartStream)
	s.echo.GET("/ws/session", s.handleSessionStream)
}

func (s *Server) handleCartStream(c echo.Context) error {
	sub := s.cart.Subscribe()
	defer sub.Close()

	serveStream(s, c, topicCart, sub.C(), func(v domain.CartSnapshot) any { return v })
	return nil
}

func (s *Server) handleSessionStream(c echo.Context) error {
	sub := s.session.Subscribe()
	defer sub.Close()

	serveStream(s, c, topicSession, sub.C(), func(v domain.Session) any { return newSessionResponse(v) })
	return nil
}

// serveStream upgrades the request and writes every value from updates as a
// JSON text frame until the client goes away, updates is closed or the
// server shuts down.
func serveStream[T any](s *Server, c echo.Context, topic string, updates <-chan T, view func(T) any) {
	ctx := c.Request().Context()

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the request
		slog.WarnContext(ctx, "WebSocket upgrade failed", "topic", topic, "error", err)
		return
	}

	s.streams.Add(1)
	s.streamMetrics.ActiveStreams.WithLabelValues(topic).Inc()
	defer func() {
		s.streamMetrics.ActiveStreams.WithLabelValues(topic).Dec()
		s.streams.Add(-1)
	}()

	w := newStreamWriter[T](conn, s.clock, s.streamMetrics, topic)
	defer w.close()

	go w.readUntilClosed()

	slog.DebugContext(ctx, "Stream opened", "topic", topic)
	reason := w.run(ctx, updates, view, s.closing)
	slog.DebugContext(ctx, "Stream closed", "topic", topic, "reason", reason)
}

// streamWriter owns all writes to conn. Reads happen on a separate goroutine
// that only drains control frames and reports disconnects.
type streamWriter[T any] struct {
	conn     *websocket.Conn
	clock    clockwork.Clock
	metrics  *metrics.StreamMetrics
	topic    string
	gone     chan struct{}
	goneOnce sync.Once
}

func newStreamWriter[T any](conn *websocket.Conn, clock clockwork.Clock, m *metrics.StreamMetrics, topic string) *streamWriter[T] {
	w := &streamWriter[T]{
		conn:    conn,
		clock:   clock,
		metrics: m,
		topic:   topic,
		gone:    make(chan struct{}),
	}
	w.configurePongHandler()
	return w
}

func (w *streamWriter[T]) run(ctx context.Context, updates <-chan T, view func(T) any, shutdown <-chan struct{}) string {
	ticker := w.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-updates:
			if !ok {
				w.closeGraceful("subscription closed")
				return "subscription closed"
			}
			payload, err := json.Marshal(view(v))
			if err != nil {
				slog.ErrorContext(ctx, "Failed to encode stream message", "topic", w.topic, "error", err)
				continue
			}
			w.updateWriteDeadline()
			if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return "write failed"
			}
			w.metrics.MessagesSent.WithLabelValues(w.topic).Inc()
		case <-ticker.Chan():
			w.updateWriteDeadline()
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.metrics.PingFailures.Inc()
				return "ping failed"
			}
		case <-shutdown:
			w.closeGraceful("server shutting down")
			return "server shutting down"
		case <-w.gone:
			return "client disconnected"
		}
	}
}

// readUntilClosed processes pong and close frames. Any read error, including a
// missed pong deadline, ends the stream.
func (w *streamWriter[T]) readUntilClosed() {
	defer w.goneOnce.Do(func() { close(w.gone) })

	w.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := w.conn.NextReader(); err != nil {
			return
		}
	}
}

// closeGraceful sends a close frame. Only called from run, so it never races
// another writer.
func (w *streamWriter[T]) closeGraceful(reason string) {
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	w.updateWriteDeadline()
	_ = w.conn.WriteMessage(websocket.CloseMessage, closeMsg)
}

func (w *streamWriter[T]) close() {
	_ = w.conn.Close()
}

func (w *streamWriter[T]) configurePongHandler() {
	w.updateReadDeadline()
	w.conn.SetPongHandler(func(string) error {
		w.updateReadDeadline()
		return nil
	})
}

func (w *streamWriter[T]) updateWriteDeadline() {
	_ = w.conn.SetWriteDeadline(w.clock.Now().Add(writeDeadline))
}

func (w *streamWriter[T]) updateReadDeadline() {
	_ = w.conn.SetReadDeadline(w.clock.Now().Add(pongDeadline))
}
