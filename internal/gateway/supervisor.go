package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/logger"
)

// SessionValidator reports whether the HTTP session behind a connection is
// still usable. *directory.Directory satisfies it.
type SessionValidator interface {
	IsValid(sessionID string) bool
}

// Supervisor probes every live connection once per interval. A connection
// that answered neither of the last two probes is dropped without a close
// frame; one whose session was invalidated is closed with 4401.
type Supervisor struct {
	registry *Registry
	sessions SessionValidator
	interval time.Duration
	metrics  *Metrics
}

func NewSupervisor(registry *Registry, sessions SessionValidator, interval time.Duration, metrics *Metrics) *Supervisor {
	return &Supervisor{
		registry: registry,
		sessions: sessions,
		interval: interval,
		metrics:  metrics,
	}
}

// Run ticks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one heartbeat cycle. Verdicts and the alive reset happen in order
// on the caller's goroutine; the pings themselves go out concurrently, so one
// stalled peer cannot hold back probes to the rest. Tick returns once every
// ping has been written or has failed.
func (s *Supervisor) Tick() {
	var pending []*Connection

	s.registry.forEachLive(func(c *Connection) {
		if s.sessions != nil && !s.sessions.IsValid(c.SessionID()) {
			logger.Info("closing connection for invalidated session", map[string]any{
				"connection_id": c.ID(),
				"user_id":       c.UserID(),
			})
			s.metrics.prunedConnection("session")
			c.Close(CloseUnauthenticated, "session ended")
			return
		}

		if !c.Alive() {
			c.markStale()
			logger.Info("pruning unresponsive connection", map[string]any{
				"connection_id": c.ID(),
				"user_id":       c.UserID(),
			})
			s.metrics.prunedConnection("heartbeat")
			c.Close(CloseNone, "")
			return
		}

		c.alive.Store(false)
		pending = append(pending, c)
	})

	var wg sync.WaitGroup
	for _, c := range pending {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			s.ping(c)
		}(c)
	}
	wg.Wait()
}

func (s *Supervisor) ping(c *Connection) {
	if err := c.transport.Ping(); err != nil {
		logger.Warn("heartbeat ping failed", map[string]any{
			"connection_id": c.ID(),
			"error":         err.Error(),
		})
		s.metrics.prunedConnection("ping_failed")
		c.Close(CloseNone, "")
	}
}
