// Package stream pushes mirrored lists to screens over WebSocket. Every
// change of a list sends the whole list; a screen that falls behind only
// receives the latest one.
package stream

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/mirror"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Message is one frame sent to a screen.
type Message struct {
	Collection string      `json:"collection"`
	Items      interface{} `json:"items"`
	Stale      bool        `json:"stale,omitempty"`
	SentAt     time.Time   `json:"sentAt"`
}

// NewUpgrader accepts same-host requests and requests from allowedOrigin.
func NewUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if allowedOrigin != "" && strings.EqualFold(origin, allowedOrigin) {
				return true
			}
			return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
		},
	}
}

// Serve writes every list published to store's watchers on conn until the
// screen disconnects. It blocks and closes conn before returning.
func Serve[T mirror.Entity[T]](conn *websocket.Conn, store *mirror.Store[T], logger *zap.Logger) {
	w := store.Watch()
	defer w.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	done := make(chan struct{})
	go readPump(conn, done, logger)

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case items, ok := <-w.C():
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msg := Message{
				Collection: store.Name(),
				Items:      items,
				Stale:      store.Stale(),
				SentAt:     time.Now().UTC(),
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("Failed to write stream frame", zap.String("collection", store.Name()), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and closes done when the connection ends.
func readPump(conn *websocket.Conn, done chan<- struct{}, logger *zap.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("Unexpected websocket close", zap.Error(err))
			}
			return
		}
	}
}
