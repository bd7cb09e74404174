package matching

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// NotificationThrottle enforces a per-pair cooldown on "new match" emails so
// a flapping schedule cannot re-trigger the same introduction within the
// window. Redis being unavailable degrades to allowing the send; dedup here
// is best effort on top of the reconciler's own new-vs-existing diffing.
type NotificationThrottle struct {
	client *redis.Client
	ttl    time.Duration
}

func NewNotificationThrottle(client *redis.Client, ttl time.Duration) *NotificationThrottle {
	return &NotificationThrottle{client: client, ttl: ttl}
}

// Allow reports whether a notification for this (owner, peer) pair may go out,
// and claims the cooldown slot when it may.
func (t *NotificationThrottle) Allow(ctx context.Context, ownerID, peerID int64) bool {
	if t == nil || t.client == nil {
		return true
	}

	key := fmt.Sprintf("match:cooldown:%d:%d", ownerID, peerID)
	ok, err := t.client.SetNX(ctx, key, 1, t.ttl).Result()
	if err != nil {
		log.Printf("matching: cooldown check failed for %d->%d: %v", ownerID, peerID, err)
		return true
	}
	return ok
}
