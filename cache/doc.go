// Package cache provides a reference-counted, content-addressed cache for
// GPU resources.
//
// Values are stored under a comparable key together with a size in bytes.
// Lookups and inserts return a [Handle]; an entry stays resident while at
// least one handle to it is live. Once the last handle is released the entry
// becomes idle and may be evicted, either to make room for a new insert when
// the byte capacity would be exceeded, or by [Cache.Collect] once it has been
// idle for longer than the configured timeout.
//
//	c := cache.New[uint32, gpucore.BufferID](cache.Options[uint32, gpucore.BufferID]{
//	    Capacity: 1 << 20,
//	    Timeout:  time.Minute,
//	    OnEvict:  func(_ uint32, id gpucore.BufferID) { dev.DestroyBuffer(id) },
//	})
//	h, ok := c.Get(slot)
//	if !ok {
//	    h, err = c.Insert(slot, buf, 96)
//	}
//	defer h.Release()
//
// Idle entries are ordered by the time they became idle using
// hashicorp/golang-lru's simplelru list, so eviction always removes the
// entry that has been unused the longest.
//
// # Thread Safety
//
// Cache and Handle are safe for concurrent use. The eviction callback runs
// after the cache lock has been released, so it may release handles of other
// caches.
package cache
