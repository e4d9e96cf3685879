package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/weathercast/internal/store"
)

const (
	// TTL is how long any cached response stays valid.
	TTL = 5 * time.Minute

	defaultLRUSize = 256
)

// entry is the serialized record kept in the durable store.
type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
}

func (e entry) storedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Cache is a time-boxed response cache layered as an in-process LRU over a
// durable store. The durable store is the source of truth across sessions.
// Caching is an optimization: Get and Set never fail.
type Cache struct {
	durable store.Store
	lru     *lru.Cache[string, entry]
	ttl     time.Duration
	clock   clock

	lruHits     atomic.Uint64
	durableHits atomic.Uint64
	misses      atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock) Option {
	return func(cache *Cache) {
		cache.clock = c
	}
}

// New creates a Cache over durable with an LRU front of lruSize entries.
func New(durable store.Store, lruSize int, opts ...Option) (*Cache, error) {
	if lruSize <= 0 {
		lruSize = defaultLRUSize
	}
	front, err := lru.New[string, entry](lruSize)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}

	c := &Cache{
		durable: durable,
		lru:     front,
		ttl:     TTL,
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the payload stored under key if it is younger than the TTL.
// Expired entries are purged from both layers. Unreadable records are
// logged and reported as absent.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	now := c.clock.Now()

	if e, ok := c.lru.Get(key); ok {
		if c.fresh(e, now) {
			c.lruHits.Add(1)
			return e.Data, true
		}
		c.purge(ctx, key)
		c.misses.Add(1)
		return nil, false
	}

	raw, err := c.durable.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("cache read error")
		}
		c.misses.Add(1)
		return nil, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || len(e.Data) == 0 {
		log.Warn().Err(err).Str("key", key).Msg("malformed cache record ignored")
		c.misses.Add(1)
		return nil, false
	}
	if !c.fresh(e, now) {
		c.purge(ctx, key)
		c.misses.Add(1)
		return nil, false
	}

	c.lru.Add(key, e)
	c.durableHits.Add(1)
	return e.Data, true
}

// Set stores payload under key with the current time, replacing any
// previous entry. Write failures are logged and otherwise ignored.
func (c *Cache) Set(ctx context.Context, key string, payload json.RawMessage) {
	e := entry{
		Data:      payload,
		Timestamp: c.clock.Now().UnixMilli(),
	}
	c.lru.Add(key, e)

	raw, err := json.Marshal(e)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache encode error")
		return
	}
	if err := c.durable.Set(ctx, key, string(raw)); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write error")
	}
}

// Stats returns hit and miss counters for this process.
func (c *Cache) Stats() map[string]uint64 {
	return map[string]uint64{
		"lru_hits":     c.lruHits.Load(),
		"durable_hits": c.durableHits.Load(),
		"misses":       c.misses.Load(),
	}
}

func (c *Cache) fresh(e entry, now time.Time) bool {
	return now.Sub(e.storedAt()) < c.ttl
}

func (c *Cache) purge(ctx context.Context, key string) {
	c.lru.Remove(key)
	if err := c.durable.Remove(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache purge error")
	}
}
