// Package querycache caches page payloads per session and shares in-flight fetches.
package querycache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/vitaldash/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads a payload. It runs detached from the caller's cancellation
// so a fetch outlives the request that started it.
type Fetcher func(ctx context.Context) (any, error)

// Entry is a cached payload.
type Entry struct {
	Value     any
	FetchedAt time.Time
}

// Outcome is delivered once a fetch resolves.
type Outcome struct {
	Entry
	Err error
	// Cached is set when the value came from the cache without fetching.
	Cached bool
	// Shared is set when the fetch was joined rather than started.
	Shared bool
}

type item struct {
	key       string
	sessionID string
	entry     Entry
}

// Cache is a bounded TTL cache keyed by session and logical query name.
type Cache struct {
	mu         sync.Mutex
	items      map[string]*list.Element // key -> element holding *item
	order      *list.List               // front is oldest
	generation map[string]uint64        // sessionID -> invalidation generation
	group      singleflight.Group

	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// New creates a cache with configuration options.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:        30 * time.Second,
		maxEntries: 10000,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.items = make(map[string]*list.Element)
	c.order = list.New()
	c.generation = make(map[string]uint64)
	return c
}

// Key joins a session id and a logical query name.
func Key(sessionID, name string) string { return sessionID + "/" + name }

// Get returns a fresh entry.
func (c *Cache) Get(sessionID, name string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(Key(sessionID, name))
}

func (c *Cache) getLocked(key string) (Entry, bool) {
	el, ok := c.items[key]
	if !ok {
		return Entry{}, false
	}
	it := el.Value.(*item)
	if c.ttl <= 0 || c.now().Sub(it.entry.FetchedAt) >= c.ttl {
		c.removeLocked(el)
		return Entry{}, false
	}
	return it.entry, true
}

// Fetch returns a channel that yields the cached entry when fresh, or the
// outcome of a fetch shared by every concurrent caller of the same key.
// Failures are not cached.
func (c *Cache) Fetch(ctx context.Context, sessionID, name string, fn Fetcher) <-chan Outcome {
	key := Key(sessionID, name)
	out := make(chan Outcome, 1)

	c.mu.Lock()
	if e, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		metrics.RecordCacheHit()
		out <- Outcome{Entry: e, Cached: true}
		close(out)
		return out
	}
	gen := c.generation[sessionID]
	c.mu.Unlock()
	metrics.RecordCacheMiss()

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := fn(detached)
		if err != nil {
			return nil, err
		}
		e := Entry{Value: v, FetchedAt: c.now()}
		c.store(key, sessionID, gen, e)
		return e, nil
	})

	go func() {
		defer close(out)
		res := <-ch
		if res.Shared {
			metrics.RecordCacheShared()
		}
		if res.Err != nil {
			out <- Outcome{Err: res.Err, Shared: res.Shared}
			return
		}
		out <- Outcome{Entry: res.Val.(Entry), Shared: res.Shared}
	}()
	return out
}

func (c *Cache) store(key, sessionID string, gen uint64, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The session was invalidated while the fetch was in flight.
	if c.generation[sessionID] != gen || c.ttl <= 0 {
		return
	}

	if el, ok := c.items[key]; ok {
		el.Value.(*item).entry = e
		c.order.MoveToBack(el)
		return
	}

	if c.maxEntries > 0 {
		for len(c.items) >= c.maxEntries {
			c.removeLocked(c.order.Front())
			metrics.RecordCacheEviction()
		}
	}
	c.items[key] = c.order.PushBack(&item{key: key, sessionID: sessionID, entry: e})
	metrics.UpdateCacheEntries(len(c.items))
}

func (c *Cache) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	it := c.order.Remove(el).(*item)
	delete(c.items, it.key)
	metrics.UpdateCacheEntries(len(c.items))
}

// InvalidateSession drops every entry of a session and discards fetches
// for it that are still in flight.
func (c *Cache) InvalidateSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation[sessionID]++
	prefix := sessionID + "/"
	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(el)
		}
	}
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
