package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingWait       = 2 * time.Second
	maxMessageSize = 4096
)

// Transport is the per-connection socket seen by a Connection. One goroutine
// calls ReadMessage and one calls WriteMessage; Ping and Close may be called
// from any goroutine.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Ping() error
	// SetPongHandler registers fn to run, on the reading goroutine, for each pong.
	SetPongHandler(fn func())
	// Close sends a close frame with code and reason (unless code is CloseNone)
	// and releases the socket.
	Close(code int, reason string) error
}

type wsTransport struct {
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	conn.SetReadLimit(maxMessageSize)
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (t *wsTransport) WriteMessage(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWait))
}

func (t *wsTransport) SetPongHandler(fn func()) {
	t.conn.SetPongHandler(func(string) error {
		fn()
		return nil
	})
}

func (t *wsTransport) Close(code int, reason string) error {
	if code != CloseNone {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	return t.conn.Close()
}

// newUpgrader accepts same-host origins, requests without an Origin header
// (non-browser clients) and any origin listed in allowed.
func newUpgrader(allowed []string) websocket.Upgrader {
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := origins[origin]; ok {
				return true
			}
			host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
			return strings.EqualFold(host, r.Host)
		},
	}
}
