// Package ingest feeds domain events from producers into the gateway's
// broadcast router. Every source speaks the same {"type","data"} message.
package ingest

import (
	"context"

	"github.com/Tenac92/LEXIS-sub001/internal/event"
	"github.com/Tenac92/LEXIS-sub001/internal/gateway"
	"github.com/Tenac92/LEXIS-sub001/internal/logger"
)

// Publisher is satisfied by *gateway.Gateway and *gateway.Router.
type Publisher interface {
	Publish(ctx context.Context, ev event.Event) (gateway.Report, error)
}

// deliver decodes one producer message and publishes it. Malformed messages
// are logged and dropped; they never stop the source.
func deliver(ctx context.Context, pub Publisher, source string, raw []byte) (gateway.Report, error) {
	ev, err := event.DecodeMessage(raw)
	if err != nil {
		logger.Warn("dropping malformed event", map[string]any{
			"source": source,
			"error":  err.Error(),
		})
		return gateway.Report{}, err
	}

	report, err := pub.Publish(ctx, ev)
	if err != nil {
		logger.Error("event publish failed", map[string]any{
			"source": source,
			"kind":   string(ev.Kind),
			"error":  err.Error(),
		})
		return report, err
	}
	return report, nil
}
