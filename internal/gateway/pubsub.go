package gateway

import (
	"context"
	"log"
	"time"

	redisstore "agrimarket/internal/store/redis"
)

// PubSubRouter relays updates published by any dashboard process into the
// local hub.
type PubSubRouter struct {
	hub    *Hub
	reader *redisstore.Reader
}

// NewPubSubRouter creates a router feeding hub from reader.
func NewPubSubRouter(hub *Hub, reader *redisstore.Reader) *PubSubRouter {
	return &PubSubRouter{hub: hub, reader: reader}
}

// Warm seeds the hub with the latest stored series updates.
func (r *PubSubRouter) Warm(ctx context.Context) {
	n := r.reader.Warm(ctx, func(channel string, data []byte) {
		kind, key, ok := redisstore.ParseChannel(channel)
		if ok {
			r.hub.Seed(kind, key, data)
		}
	})
	log.Printf("[gateway] warmed %d channels from redis", n)
}

// Run subscribes and relays until ctx is cancelled, resubscribing after
// errors.
func (r *PubSubRouter) Run(ctx context.Context) {
	for {
		err := r.reader.Subscribe(ctx, r.hub.Broadcast)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("[gateway] pubsub: %v, retrying", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}
