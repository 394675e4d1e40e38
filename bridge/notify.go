package bridge

import (
	"context"
	"io"

	"github.com/justapithecus/ingot/adapter"
	"github.com/justapithecus/ingot/iox"
	"github.com/justapithecus/ingot/log"
	"github.com/justapithecus/ingot/metrics"
)

// Notifier dispatches stream lifecycle events to the configured
// adapters. Publishing is best effort: failures are logged and counted,
// never surfaced to the sample path. All methods are nil-receiver safe
// so an unconfigured event bus costs nothing at call sites.
type Notifier struct {
	adapters  []adapter.Adapter
	logger    *log.Logger
	collector *metrics.Collector
}

// NewNotifier returns a notifier over the given adapters. A nil or
// empty adapter list yields a notifier whose Publish is a no-op.
func NewNotifier(adapters []adapter.Adapter, logger *log.Logger, collector *metrics.Collector) *Notifier {
	return &Notifier{
		adapters:  adapters,
		logger:    logger,
		collector: collector,
	}
}

// Publish sends the event to every adapter in order. Each adapter
// applies its own timeout and retry policy.
func (n *Notifier) Publish(ctx context.Context, event *adapter.StreamEvent) {
	if n == nil || event == nil {
		return
	}
	for _, a := range n.adapters {
		if err := a.Publish(ctx, event); err != nil {
			n.collector.IncAdapterPublishError()
			if n.logger != nil {
				n.logger.Warn("stream event publish failed", map[string]any{
					"event_type": event.EventType,
					"error":      err.Error(),
				})
			}
		}
	}
}

// Close releases every adapter, attempting all even when one fails.
func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	closers := make([]io.Closer, len(n.adapters))
	for i, a := range n.adapters {
		closers[i] = a
	}
	return iox.CloseAll(closers...)
}
