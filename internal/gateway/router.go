package gateway

import (
	"context"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/event"
	"github.com/Tenac92/LEXIS-sub001/internal/logger"
)

// Report summarises one Publish call.
type Report struct {
	Kind      event.Kind `json:"kind"`
	Targeted  int        `json:"targeted"`
	Delivered int        `json:"delivered"`
	Failed    int        `json:"failed"`
}

// Router multicasts events to the open connections entitled to them.
type Router struct {
	registry *Registry
	metrics  *Metrics
	now      func() time.Time
}

func NewRouter(registry *Registry, metrics *Metrics) *Router {
	return &Router{
		registry: registry,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Publish encodes ev once and queues it to every open connection whose scope
// matches the event's filter. A failed send marks that one connection stale
// and never stops delivery to the rest. The returned error is non-nil only
// when the event itself is unusable.
func (r *Router) Publish(ctx context.Context, ev event.Event) (Report, error) {
	report := Report{Kind: ev.Kind}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if err := ev.Validate(); err != nil {
		return report, err
	}

	msg, err := event.Encode(ev.Kind, ev.Raw, r.now())
	if err != nil {
		return report, err
	}

	r.registry.ForEachOpen(func(c *Connection) {
		if !ev.Filter.Matches(c.UserID(), c.Scope()) {
			return
		}
		report.Targeted++

		if err := c.Send(msg); err != nil {
			report.Failed++
			c.markStale()
			logger.Warn("event delivery failed", map[string]any{
				"connection_id": c.ID(),
				"user_id":       c.UserID(),
				"kind":          string(ev.Kind),
				"error":         err.Error(),
			})
			return
		}
		report.Delivered++
	})

	r.metrics.publishedEvent(string(ev.Kind), report.Delivered, report.Failed)

	logger.Debug("event published", map[string]any{
		"kind":      string(ev.Kind),
		"targeted":  report.Targeted,
		"delivered": report.Delivered,
		"failed":    report.Failed,
	})

	return report, nil
}
