package ingest

import (
	"context"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/logger"

	"github.com/lib/pq"
)

const pgPingInterval = 90 * time.Second

// PGListener turns NOTIFY payloads on one channel into published events, so
// database triggers and stored procedures can raise notifications directly:
//
//	SELECT pg_notify('case_events', '{"type":"dashboard_refresh","data":{}}');
type PGListener struct {
	listener *pq.Listener
	channel  string
	pub      Publisher
}

func NewPGListener(dsn, channel string, pub Publisher) (*PGListener, error) {
	l := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("postgres listener event", map[string]any{
				"event": int(ev),
				"error": err.Error(),
			})
		}
	})
	if err := l.Listen(channel); err != nil {
		_ = l.Close()
		return nil, err
	}
	return &PGListener{listener: l, channel: channel, pub: pub}, nil
}

// Run handles notifications until ctx is cancelled.
func (p *PGListener) Run(ctx context.Context) {
	defer func() { _ = p.listener.Close() }()

	logger.Info("listening for postgres notifications", map[string]any{
		"channel": p.channel,
	})

	consumeNotifications(ctx, p.listener.Notify, p.listener.Ping, p.pub, pgPingInterval)
}

func consumeNotifications(
	ctx context.Context,
	notify <-chan *pq.Notification,
	ping func() error,
	pub Publisher,
	pingEvery time.Duration,
) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-notify:
			if !ok {
				return
			}
			// nil after a reconnect; notifications sent meanwhile are lost
			if n == nil {
				logger.Info("postgres listener reconnected", nil)
				continue
			}
			_, _ = deliver(ctx, pub, "postgres", []byte(n.Extra))
		case <-ticker.C:
			if ping != nil {
				if err := ping(); err != nil {
					logger.Warn("postgres listener ping failed", map[string]any{
						"error": err.Error(),
					})
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
