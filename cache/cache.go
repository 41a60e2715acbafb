package cache

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Cache errors.
var (
	// ErrCapacityExceeded is returned by Insert when the new entry does not
	// fit even after every idle entry has been evicted.
	ErrCapacityExceeded = errors.New("cache: capacity exceeded")

	// ErrKeyExists is returned by Insert when the key is already resident.
	ErrKeyExists = errors.New("cache: key already present")
)

// Options configures a Cache.
type Options[K comparable, V any] struct {
	// Capacity is the byte budget. Zero means unlimited.
	Capacity uint64

	// Timeout is how long an idle entry survives before Collect evicts it.
	// Zero disables time-based eviction.
	Timeout time.Duration

	// OnEvict is called for every evicted entry, outside the cache lock.
	OnEvict func(key K, value V)

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the number of resident entries.
	Len int
	// Idle is the number of resident entries without live handles.
	Idle int
	// Used is the sum of resident entry sizes in bytes.
	Used uint64
	// Capacity is the byte budget (0 = unlimited).
	Capacity uint64
	// Hits is the number of successful Get calls.
	Hits uint64
	// Misses is the number of failed Get calls.
	Misses uint64
	// Evictions is the number of entries removed by capacity or timeout.
	Evictions uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Cache[%d entries (%d idle), %d/%d bytes, %d hits, %d misses, %d evictions]",
		s.Len, s.Idle, s.Used, s.Capacity, s.Hits, s.Misses, s.Evictions)
}

// entry is a resident value with its reference count.
type entry[K comparable, V any] struct {
	key       K
	value     V
	size      uint64
	refs      int
	idleSince time.Time
}

// Cache is a reference-counted, byte-bounded cache with idle timeout.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]

	// idle holds entries with refs == 0, oldest idle first.
	idle *simplelru.LRU[K, *entry[K, V]]

	capacity uint64
	used     uint64
	timeout  time.Duration
	onEvict  func(K, V)
	now      func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates an empty cache.
func New[K comparable, V any](opts Options[K, V]) *Cache[K, V] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	// simplelru only rejects non-positive sizes; eviction is driven by bytes
	// here, so the list itself is effectively unbounded.
	idle, _ := simplelru.NewLRU[K, *entry[K, V]](math.MaxInt32, nil)
	return &Cache[K, V]{
		entries:  make(map[K]*entry[K, V]),
		idle:     idle,
		capacity: opts.Capacity,
		timeout:  opts.Timeout,
		onEvict:  opts.OnEvict,
		now:      now,
	}
}

// Get returns a new handle to the entry stored under key.
// Returns (nil, false) if the key is not resident.
func (c *Cache[K, V]) Get(key K) (*Handle[K, V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.retainLocked(e)
	return &Handle[K, V]{c: c, e: e}, true
}

// Insert stores value under key and returns the first handle to it.
//
// Expired idle entries are swept first. If the entry still does not fit,
// idle entries are evicted oldest first; when nothing evictable is left the
// insert fails with ErrCapacityExceeded and value is not retained.
func (c *Cache[K, V]) Insert(key K, value V, size uint64) (*Handle[K, V], error) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return nil, ErrKeyExists
	}

	evicted := c.expireLocked(c.now())
	evicted, ok := c.reclaimLocked(size, evicted)
	if !ok {
		used := c.used
		c.mu.Unlock()
		c.notify(evicted)
		return nil, fmt.Errorf("%w: need %d bytes, %d of %d in use", ErrCapacityExceeded, size, used, c.capacity)
	}

	e := &entry[K, V]{key: key, value: value, size: size, refs: 1}
	c.entries[key] = e
	c.used += size
	c.mu.Unlock()

	c.notify(evicted)
	return &Handle[K, V]{c: c, e: e}, nil
}

// Contains reports whether key is resident without touching statistics.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Collect evicts idle entries older than the timeout and returns how many
// were removed.
func (c *Cache[K, V]) Collect() int {
	c.mu.Lock()
	evicted := c.expireLocked(c.now())
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

// Purge evicts every idle entry regardless of age.
func (c *Cache[K, V]) Purge() int {
	c.mu.Lock()
	var evicted []*entry[K, V]
	for {
		_, e, ok := c.idle.RemoveOldest()
		if !ok {
			break
		}
		c.removeLocked(e)
		evicted = append(evicted, e)
	}
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Used returns the resident size in bytes.
func (c *Cache[K, V]) Used() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:       len(c.entries),
		Idle:      c.idle.Len(),
		Used:      c.used,
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// retainLocked adds a reference, taking the entry off the idle list.
// Caller must hold c.mu.
func (c *Cache[K, V]) retainLocked(e *entry[K, V]) {
	if e.refs == 0 {
		c.idle.Remove(e.key)
	}
	e.refs++
}

// release drops one reference; the last one makes the entry idle.
func (c *Cache[K, V]) release(e *entry[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.refs--
	if e.refs > 0 {
		return
	}
	e.idleSince = c.now()
	c.idle.Add(e.key, e)
}

// expireLocked removes idle entries whose idle time reached the timeout.
// Caller must hold c.mu.
func (c *Cache[K, V]) expireLocked(now time.Time) []*entry[K, V] {
	if c.timeout <= 0 {
		return nil
	}
	var evicted []*entry[K, V]
	for {
		_, e, ok := c.idle.GetOldest()
		if !ok || now.Sub(e.idleSince) < c.timeout {
			return evicted
		}
		c.idle.RemoveOldest()
		c.removeLocked(e)
		evicted = append(evicted, e)
	}
}

// reclaimLocked evicts idle entries until size more bytes fit.
// Caller must hold c.mu.
func (c *Cache[K, V]) reclaimLocked(size uint64, evicted []*entry[K, V]) ([]*entry[K, V], bool) {
	if c.capacity == 0 {
		return evicted, true
	}
	for c.used+size > c.capacity {
		_, e, ok := c.idle.RemoveOldest()
		if !ok {
			return evicted, false
		}
		c.removeLocked(e)
		evicted = append(evicted, e)
	}
	return evicted, true
}

// removeLocked deletes a resident entry. Caller must hold c.mu.
func (c *Cache[K, V]) removeLocked(e *entry[K, V]) {
	delete(c.entries, e.key)
	c.used -= e.size
	c.evictions++
}

// notify runs the eviction callback without holding the lock.
func (c *Cache[K, V]) notify(evicted []*entry[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range evicted {
		c.onEvict(e.key, e.value)
	}
}

// Handle is one reference to a resident cache entry.
//
// The entry cannot be evicted while any handle to it is live. Release must
// be called exactly once per handle; further calls are no-ops.
type Handle[K comparable, V any] struct {
	c        *Cache[K, V]
	e        *entry[K, V]
	released atomic.Bool
}

// Key returns the key the entry is stored under.
func (h *Handle[K, V]) Key() K { return h.e.key }

// Value returns the cached value.
func (h *Handle[K, V]) Value() V { return h.e.value }

// Size returns the entry size in bytes.
func (h *Handle[K, V]) Size() uint64 { return h.e.size }

// Clone returns an independent handle to the same entry.
// Returns nil if h has already been released.
func (h *Handle[K, V]) Clone() *Handle[K, V] {
	if h.released.Load() {
		return nil
	}
	h.c.mu.Lock()
	h.c.retainLocked(h.e)
	h.c.mu.Unlock()
	return &Handle[K, V]{c: h.c, e: h.e}
}

// Same reports whether h and o refer to the same resident entry.
func (h *Handle[K, V]) Same(o *Handle[K, V]) bool {
	return h != nil && o != nil && h.e == o.e
}

// Release drops this handle's reference.
func (h *Handle[K, V]) Release() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	h.c.release(h.e)
}

// Released reports whether Release has been called.
func (h *Handle[K, V]) Released() bool { return h.released.Load() }
