package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/event"
	"github.com/Tenac92/LEXIS-sub001/internal/logger"
)

type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateOpen
	// StateStale marks a connection whose liveness is known bad (a failed
	// delivery or a missed probe). It stops receiving broadcasts and is pruned
	// at the next heartbeat unless a pong revives it.
	StateStale
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateOpen:
		return "open"
	case StateStale:
		return "stale"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type inbound struct {
	data []byte
	pong bool
}

// Connection is one accepted websocket. Frames from the peer arrive on
// inbound; envelopes for the peer leave through outbound. Both pumps and the
// run loop stop when done is closed.
type Connection struct {
	id         string
	remoteAddr string
	transport  Transport
	now        func() time.Time

	mu            sync.RWMutex
	state         State
	authenticated bool
	userID        string
	sessionID     string
	scope         event.UnitSet
	geoVerified   bool
	lastActivity  time.Time

	alive atomic.Bool

	inbound  chan inbound
	outbound chan []byte
	done     chan struct{}

	closeOnce sync.Once
	owner     *Registry
	started   bool
}

func newConnection(id string, t Transport, remoteAddr string, sendBuffer int) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	c := &Connection{
		id:         id,
		remoteAddr: remoteAddr,
		transport:  t,
		now:        time.Now,
		state:      StateConnecting,
		inbound:    make(chan inbound, 16),
		outbound:   make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
	c.lastActivity = c.now()
	return c
}

func (c *Connection) ID() string         { return c.id }
func (c *Connection) RemoteAddr() string { return c.remoteAddr }

func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Connection) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

func (c *Connection) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Connection) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Scope is captured at authentication and never changes afterwards; callers
// must not mutate the returned set.
func (c *Connection) Scope() event.UnitSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scope
}

func (c *Connection) GeoVerified() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.geoVerified
}

func (c *Connection) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

func (c *Connection) Alive() bool {
	return c.alive.Load()
}

// Done is closed once the connection reaches StateClosed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) setState(from []State, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range from {
		if c.state == s {
			c.state = to
			return true
		}
	}
	return false
}

func (c *Connection) authenticate(userID, sessionID string, scope event.UnitSet, geoVerified bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnecting && c.state != StateAuthenticating {
		return fmt.Errorf("gateway: cannot authenticate connection in state %s", c.state)
	}
	if scope == nil {
		scope = event.NewUnitSet()
	}
	c.authenticated = true
	c.userID = userID
	c.sessionID = sessionID
	c.scope = scope
	c.geoVerified = geoVerified
	c.state = StateOpen
	c.alive.Store(true)
	return nil
}

// touch records inbound traffic or a successful write.
func (c *Connection) touch() {
	c.mu.Lock()
	c.lastActivity = c.now()
	sessionID := c.sessionID
	c.mu.Unlock()

	if c.owner != nil && sessionID != "" {
		c.owner.recordActivity(sessionID)
	}
}

// markStale clears the liveness flag so the next heartbeat prunes the
// connection unless it answers a probe first.
func (c *Connection) markStale() {
	c.alive.Store(false)
	c.setState([]State{StateOpen}, StateStale)
}

func (c *Connection) markAlive() {
	c.alive.Store(true)
	c.setState([]State{StateStale}, StateOpen)
}

// Send queues msg for the write pump. It never blocks: a full buffer is a
// send failure.
func (c *Connection) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.outbound <- msg:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return fmt.Errorf("%w: send buffer full", ErrSendFailed)
	}
}

// Close moves the connection to StateClosed, closes the transport with code
// and removes it from its Registry before returning. Safe to call repeatedly
// and from any goroutine.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		c.alive.Store(false)

		close(c.done)

		if err := c.transport.Close(code, reason); err != nil {
			logger.Debug("transport close failed", map[string]any{
				"connection_id": c.id,
				"error":         err.Error(),
			})
		}

		if c.owner != nil {
			c.owner.Remove(c.id)
		}
	})
}

// start launches the read pump, write pump and run loop.
func (c *Connection) start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.transport.SetPongHandler(func() {
		select {
		case c.inbound <- inbound{pong: true}:
		case <-c.done:
		}
	})

	go c.readPump()
	go c.writePump()
	go c.run()
}

func (c *Connection) readPump() {
	defer close(c.inbound)

	for {
		data, err := c.transport.ReadMessage()
		if err != nil {
			return
		}
		select {
		case c.inbound <- inbound{data: data}:
		case <-c.done:
			return
		}
	}
}

func (c *Connection) writePump() {
	for {
		select {
		case msg := <-c.outbound:
			if err := c.transport.WriteMessage(msg); err != nil {
				logger.Warn("websocket write failed", map[string]any{
					"connection_id": c.id,
					"user_id":       c.UserID(),
					"error":         err.Error(),
				})
				c.markStale()
				c.Close(CloseNone, "")
				return
			}
			c.touch()
		case <-c.done:
			return
		}
	}
}

func (c *Connection) run() {
	for {
		select {
		case in, ok := <-c.inbound:
			if !ok {
				// peer closed or the socket broke
				c.Close(CloseNormal, "")
				return
			}
			c.handle(in)
		case <-c.done:
			return
		}
	}
}

type clientMessage struct {
	Type string `json:"type"`
}

func (c *Connection) handle(in inbound) {
	c.touch()

	if in.pong {
		c.markAlive()
		return
	}

	var msg clientMessage
	if err := json.Unmarshal(in.data, &msg); err != nil {
		logger.Debug("ignoring malformed client frame", map[string]any{
			"connection_id": c.id,
		})
		return
	}

	switch msg.Type {
	case "ping":
		reply, err := event.EncodeValue(event.KindPong, struct{}{}, c.now())
		if err != nil {
			return
		}
		if err := c.Send(reply); err != nil {
			logger.Debug("pong reply failed", map[string]any{
				"connection_id": c.id,
				"error":         err.Error(),
			})
		}
	default:
		logger.Debug("ignoring client frame", map[string]any{
			"connection_id": c.id,
			"type":          msg.Type,
		})
	}
}
