// Package gateway is the real-time notification server: it admits websocket
// connections by replaying the HTTP session, applies the jurisdiction policy,
// keeps connections alive with a heartbeat and multicasts domain events to
// the connections whose unit scope entitles them.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/directory"
	"github.com/Tenac92/LEXIS-sub001/internal/event"
	"github.com/Tenac92/LEXIS-sub001/internal/geo"
	"github.com/Tenac92/LEXIS-sub001/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Options struct {
	HeartbeatInterval      time.Duration
	SendBuffer             int
	AllowedOrigins         []string
	DirectorySweepInterval time.Duration
}

type Deps struct {
	Resolver  IdentityResolver
	Guard     AccessGuard
	Directory *directory.Directory
	Metrics   *Metrics
	Options   Options
}

type Gateway struct {
	resolver   IdentityResolver
	guard      AccessGuard
	directory  *directory.Directory
	metrics    *Metrics
	opts       Options
	upgrader   websocket.Upgrader
	registry   *Registry
	router     *Router
	supervisor *Supervisor

	closing atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time
}

func New(d Deps) *Gateway {
	opts := d.Options
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.DirectorySweepInterval <= 0 {
		opts.DirectorySweepInterval = 5 * time.Minute
	}

	var (
		activity ActivityRecorder
		sessions SessionValidator
	)
	if d.Directory != nil {
		activity = d.Directory
		sessions = d.Directory
	}
	registry := NewRegistry(activity, d.Metrics)

	return &Gateway{
		resolver:   d.Resolver,
		guard:      d.Guard,
		directory:  d.Directory,
		metrics:    d.Metrics,
		opts:       opts,
		upgrader:   newUpgrader(opts.AllowedOrigins),
		registry:   registry,
		router:     NewRouter(registry, d.Metrics),
		supervisor: NewSupervisor(registry, sessions, opts.HeartbeatInterval, d.Metrics),
		now:        time.Now,
	}
}

func (g *Gateway) Registry() *Registry { return g.registry }
func (g *Gateway) Router() *Router     { return g.router }

// Publish is shorthand for Router().Publish.
func (g *Gateway) Publish(ctx context.Context, ev event.Event) (Report, error) {
	return g.router.Publish(ctx, ev)
}

// Start launches the heartbeat supervisor and the directory sweep.
func (g *Gateway) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.supervisor.Run(ctx)
	}()

	if g.directory != nil {
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.directory.Run(ctx, g.opts.DirectorySweepInterval)
		}()
	}
}

// HandleUpgrade is the gin handler mounted on the websocket path.
//
// The session is resolved and the jurisdiction policy applied before the
// upgrade completes; a rejected handshake is still upgraded so the client
// receives the policy close code, and is never registered.
func (g *Gateway) HandleUpgrade(c *gin.Context) {
	if g.closing.Load() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	ctx := c.Request.Context()

	ident, authErr := g.resolver.Resolve(ctx, c.Request)
	verified := authErr == nil && ident.GeoVerified

	remote, direct := geo.ClientAddress(c.Request)
	decision := geo.AllowedDisabled
	if g.guard != nil {
		decision = g.guard.Decide(ctx, remote, direct, verified)
	}

	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		logger.Debug("websocket upgrade failed", map[string]any{
			"error": err.Error(),
		})
		return
	}
	transport := newWSTransport(ws)

	fields := map[string]any{
		"remote":   remote.String(),
		"decision": decision.String(),
	}

	if !decision.Allowed() {
		g.metrics.rejected("geo")
		logger.Warn("websocket rejected by jurisdiction policy", fields)
		_ = transport.Close(CloseGeoDenied, "access restricted")
		return
	}
	if authErr != nil {
		g.metrics.rejected("unauthenticated")
		logger.Info("websocket rejected: unauthenticated", fields)
		_ = transport.Close(CloseUnauthenticated, "authentication required")
		return
	}

	if decision == geo.AllowedJurisdiction {
		if err := g.resolver.MarkGeoVerified(ctx, ident); err != nil {
			logger.Warn("failed to persist geo verification", map[string]any{
				"user_id": ident.UserID,
				"error":   err.Error(),
			})
		}
	}

	if _, err := g.Admit(transport, remote.String(), ident); err != nil {
		if errors.Is(err, ErrShuttingDown) {
			return
		}
		logger.Error("websocket admission failed", map[string]any{
			"user_id": ident.UserID,
			"error":   err.Error(),
		})
		_ = transport.Close(websocket.CloseInternalServerErr, "")
	}
}

// Admit registers an authenticated transport, sends the readiness message and
// opens it for broadcasts.
func (g *Gateway) Admit(t Transport, remoteAddr string, ident *Identity) (*Connection, error) {
	conn := newConnection(uuid.NewString(), t, remoteAddr, g.opts.SendBuffer)

	if err := g.registry.Add(conn); err != nil {
		return nil, err
	}
	// Shutdown flips closing before it snapshots the registry, so a connection
	// added after that snapshot always observes the flag here.
	if g.closing.Load() {
		conn.Close(CloseGoingAway, "server shutting down")
		return nil, ErrShuttingDown
	}

	if g.directory != nil {
		g.directory.Track(ident.SessionID, ident.UserID, ident.ExpiresAt)
	}

	ready, err := event.EncodeValue(event.KindConnection, struct {
		ConnectionID string `json:"connectionId"`
		UserID       string `json:"userId"`
	}{conn.ID(), ident.UserID}, g.now())
	if err != nil {
		g.registry.Remove(conn.ID())
		return nil, err
	}
	// queued before the connection is open, so it precedes any broadcast
	if err := conn.Send(ready); err != nil {
		g.registry.Remove(conn.ID())
		return nil, err
	}

	if err := g.registry.MarkAuthenticated(conn.ID(), ident.UserID, ident.SessionID, ident.Scope, ident.GeoVerified); err != nil {
		g.registry.Remove(conn.ID())
		return nil, err
	}

	conn.start()

	logger.Info("websocket connected", map[string]any{
		"connection_id": conn.ID(),
		"user_id":       ident.UserID,
		"units":         len(ident.Scope),
		"remote":        remoteAddr,
	})

	return conn, nil
}

// Stats is served on the internal stats endpoint.
type Stats struct {
	Connections int `json:"connections"`
	Open        int `json:"open"`
	Sessions    int `json:"sessions"`
}

func (g *Gateway) Stats() Stats {
	s := Stats{
		Connections: g.registry.Len(),
		Open:        g.registry.CountOpen(),
	}
	if g.directory != nil {
		s.Sessions = g.directory.Len()
	}
	return s
}

// Shutdown stops the heartbeat, closes every connection with 1001 and clears
// the registry and directory. Upgrades arriving afterwards get 503.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if !g.closing.CompareAndSwap(false, true) {
		return nil
	}

	if g.cancel != nil {
		g.cancel()
	}

	stopped := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	closed := 0
	for _, c := range g.registry.snapshot() {
		c.Close(CloseGoingAway, "server shutting down")
		closed++
	}
	g.registry.Clear()
	if g.directory != nil {
		g.directory.Clear()
	}

	logger.Info("websocket gateway stopped", map[string]any{
		"closed": closed,
	})
	return nil
}
