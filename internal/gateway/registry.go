package gateway

import (
	"fmt"
	"sync"

	"github.com/Tenac92/LEXIS-sub001/internal/event"
)

// ActivityRecorder receives session activity observed on live sockets.
// *directory.Directory satisfies it.
type ActivityRecorder interface {
	RecordActivity(sessionID string)
}

// Registry tracks every admitted connection by id. Rejected handshakes are
// never added.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Connection

	activity ActivityRecorder
	metrics  *Metrics
}

func NewRegistry(activity ActivityRecorder, metrics *Metrics) *Registry {
	return &Registry{
		conns:    make(map[string]*Connection),
		activity: activity,
		metrics:  metrics,
	}
}

// Add registers c in StateAuthenticating.
func (r *Registry) Add(c *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[c.id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateConnection, c.id)
	}
	c.owner = r
	c.setState([]State{StateConnecting}, StateAuthenticating)
	r.conns[c.id] = c
	return nil
}

// Remove forgets the connection. Unknown ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if c.Authenticated() {
		r.metrics.connectionClosed()
		if sid := c.SessionID(); sid != "" {
			r.recordActivity(sid)
		}
	}
}

func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	return c, ok
}

// MarkAuthenticated binds identity and scope to a registered connection and
// opens it for delivery.
func (r *Registry) MarkAuthenticated(id, userID, sessionID string, scope event.UnitSet, geoVerified bool) error {
	c, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, id)
	}
	if err := c.authenticate(userID, sessionID, scope, geoVerified); err != nil {
		return err
	}
	r.metrics.connectionOpened()
	return nil
}

func (r *Registry) snapshot() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// ForEachOpen calls fn for every authenticated connection in StateOpen. It
// works on a snapshot, so fn may close or remove connections.
func (r *Registry) ForEachOpen(fn func(*Connection)) {
	for _, c := range r.snapshot() {
		if c.State() == StateOpen && c.Authenticated() {
			fn(c)
		}
	}
}

// forEachLive includes stale connections; the heartbeat needs them.
func (r *Registry) forEachLive(fn func(*Connection)) {
	for _, c := range r.snapshot() {
		s := c.State()
		if (s == StateOpen || s == StateStale) && c.Authenticated() {
			fn(c)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CountOpen returns the number of connections currently accepting events.
func (r *Registry) CountOpen() int {
	n := 0
	r.ForEachOpen(func(*Connection) { n++ })
	return n
}

// Clear drops every entry without closing them.
func (r *Registry) Clear() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Connection)
	r.mu.Unlock()

	for _, c := range conns {
		if c.Authenticated() {
			r.metrics.connectionClosed()
		}
	}
}

func (r *Registry) recordActivity(sessionID string) {
	if r.activity != nil {
		r.activity.RecordActivity(sessionID)
	}
}
