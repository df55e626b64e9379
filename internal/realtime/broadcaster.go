package realtime

import (
	"errors"

	"go.uber.org/zap"
)

// Broadcaster delivers named events to a specific connected actor. Delivery
// is best-effort at-most-once: no queuing, no retry. Every lifecycle and
// location event reaches a client through this type; nothing else touches
// transport directly.
type Broadcaster struct {
	registry *Registry
	log      *zap.Logger
}

// NewBroadcaster creates a Broadcaster over the given registry.
func NewBroadcaster(registry *Registry, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{registry: registry, log: log}
}

// Publish sends the event to actorID's channel if one is bound, else drops
// it silently. A channel closed concurrently with the publish counts as not
// connected. Never an error to the caller; misses are logged for
// observability only.
func (b *Broadcaster) Publish(actorID, event string, payload any) {
	ch := b.registry.Lookup(actorID)
	if ch == nil {
		b.log.Debug("publish dropped, actor not connected",
			zap.String("actor_id", actorID),
			zap.String("event", event))
		return
	}

	if err := ch.Send(event, payload); err != nil {
		if errors.Is(err, ErrChannelClosed) {
			b.log.Debug("publish dropped, channel closed",
				zap.String("actor_id", actorID),
				zap.String("event", event))
			return
		}
		b.log.Warn("publish failed",
			zap.String("actor_id", actorID),
			zap.String("event", event),
			zap.Error(err))
	}
}
