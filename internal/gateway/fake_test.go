package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/event"
	"github.com/Tenac92/LEXIS-sub001/internal/geo"

	"github.com/stretchr/testify/require"
)

var errTransportClosed = errors.New("fake transport closed")

// pongFrame delivered on frames triggers the pong handler instead of
// returning data, the way gorilla runs handlers inside ReadMessage.
var pongFrame = []byte{0}

type fakeTransport struct {
	frames  chan []byte
	written chan []byte
	closed  chan struct{}

	mu        sync.Mutex
	pongFn    func()
	closeCode int
	closeOnce sync.Once

	pings    atomic.Int32
	pingErr   error
	pingDelay time.Duration
	writeErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames:    make(chan []byte, 16),
		written:   make(chan []byte, 64),
		closed:    make(chan struct{}),
		closeCode: -1,
	}
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	for {
		select {
		case data := <-f.frames:
			if len(data) == 1 && data[0] == 0 {
				f.mu.Lock()
				fn := f.pongFn
				f.mu.Unlock()
				if fn != nil {
					fn()
				}
				continue
			}
			return data, nil
		case <-f.closed:
			return nil, errTransportClosed
		}
	}
}

func (f *fakeTransport) WriteMessage(data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	select {
	case f.written <- data:
		return nil
	case <-f.closed:
		return errTransportClosed
	}
}

func (f *fakeTransport) Ping() error {
	time.Sleep(f.pingDelay)
	f.pings.Add(1)
	return f.pingErr
}

func (f *fakeTransport) SetPongHandler(fn func()) {
	f.mu.Lock()
	f.pongFn = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Close(code int, _ string) error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closeCode = code
		f.mu.Unlock()
		close(f.closed)
	})
	return nil
}

func (f *fakeTransport) code() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeTransport) next(t *testing.T) event.Envelope {
	t.Helper()
	select {
	case data := <-f.written:
		var env event.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no message written")
		return event.Envelope{}
	}
}

type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) RecordActivity(sessionID string) {
	r.mu.Lock()
	r.ids = append(r.ids, sessionID)
	r.mu.Unlock()
}

func (r *recorder) count(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range r.ids {
		if id == sessionID {
			n++
		}
	}
	return n
}

type fakeResolver struct {
	ident   *Identity
	marked  atomic.Int32
	markErr error
}

func (f *fakeResolver) Resolve(context.Context, *http.Request) (*Identity, error) {
	if f.ident == nil {
		return nil, ErrUnauthenticated
	}
	cp := *f.ident
	return &cp, nil
}

func (f *fakeResolver) MarkGeoVerified(_ context.Context, id *Identity) error {
	f.marked.Add(1)
	if f.markErr != nil {
		return f.markErr
	}
	id.GeoVerified = true
	return nil
}

type fakeGuard struct {
	decision     geo.Decision
	lastVerified atomic.Bool
}

func (f *fakeGuard) Decide(_ context.Context, _, _ net.IP, verified bool) geo.Decision {
	f.lastVerified.Store(verified)
	return f.decision
}

// openConn registers and authenticates a connection without starting pumps,
// so tests can inspect its outbound queue directly.
func openConn(t *testing.T, reg *Registry, id, userID string, buffer int, units ...int64) (*Connection, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	c := newConnection(id, ft, "203.0.113.7", buffer)
	require.NoError(t, reg.Add(c))
	require.NoError(t, reg.MarkAuthenticated(id, userID, "sess-"+id, event.NewUnitSet(units...), false))
	return c, ft
}

func drain(c *Connection) [][]byte {
	var out [][]byte
	for {
		select {
		case m := <-c.outbound:
			out = append(out, m)
		default:
			return out
		}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}
