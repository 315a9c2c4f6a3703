package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/redis/go-redis/v9"
)

// EventCache keeps public share-id lookups off the database; the
// registration page is the hottest read path and events barely change.
// A cache miss or redis outage just falls through to postgres.
type EventCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventCache(rdb *redis.Client, ttl time.Duration) *EventCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &EventCache{
		rdb: rdb,
		ttl: ttl,
	}
}

func shareKey(shareID string) string {
	return "events:share:v1:" + shareID
}

func (c *EventCache) GetByShareID(ctx context.Context, shareID string) (event.Event, bool) {
	if c == nil || c.rdb == nil {
		return event.Event{}, false
	}

	b, err := c.rdb.Get(ctx, shareKey(shareID)).Bytes()

	if err != nil {
		return event.Event{}, false
	}

	var e event.Event

	if err := json.Unmarshal(b, &e); err != nil {
		return event.Event{}, false
	}

	return e, true
}

func (c *EventCache) SetByShareID(ctx context.Context, e event.Event) {
	if c == nil || c.rdb == nil {
		return
	}

	b, err := json.Marshal(e)

	if err != nil {
		return
	}

	// best effort; a failed SET only costs the next read a DB trip
	_ = c.rdb.Set(ctx, shareKey(e.ShareID), b, c.ttl).Err()
}

func (c *EventCache) Invalidate(ctx context.Context, shareID string) {
	if c == nil || c.rdb == nil {
		return
	}

	_ = c.rdb.Del(ctx, shareKey(shareID)).Err()
}
