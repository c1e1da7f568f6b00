// Package nodecache implements the bounded, randomly-evicting, load-through
// device node cache (spec.md §4.4, component C6).
//
// muscle doesn't cache by eviction at all — tree.Node.Trim (tree/node.go)
// unloads nodes based on reference count and idle age, never at random. The
// catalog's cache needs true random eviction instead (spec.md §9 design
// note: "avoid LRU semantics — callers do not assume them"), so this
// package is new, but keeps the same math/rand source muscle already
// depends on for Pointer generation (storage/pointer.go) and config
// parsing (internal/config/config.go's mathrand import) rather than
// reaching for a third-party cache library whose eviction policy would be
// wrong for this spec.
package nodecache

import (
	"math/rand"
	"sync"

	"github.com/catalogdb/metacatalog/internal/mnode"
)

// Loader resolves a device path to a node, typically through MTree under a
// read lock. Loader must be idempotent: concurrent misses for the same key
// may each call it independently (spec.md §5).
type Loader func(path string) (*mnode.Node, error)

// Cache is a bounded mapping from device path to *mnode.Node.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*mnode.Node
	rand     *rand.Rand
}

// New creates a cache with the given capacity (spec.md §6:
// mmanager_cache_size).
func New(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*mnode.Node, capacity),
		rand:     rand.New(rand.NewSource(randSeed())),
	}
}

// randSeed is split out so tests can make eviction deterministic by
// constructing a Cache and then overwriting its rand source; production
// callers get a seed drawn from math/rand's package-level source.
func randSeed() int64 {
	return rand.Int63()
}

// Get returns the cached node for path, loading it through load on a miss
// and inserting it into the cache. A load error (CacheMiss) is returned
// unwrapped: the loader is expected to return a catalogerr-tagged
// PathNotExist or StorageGroupNotSet error already, which this cache does
// not need to re-tag (spec.md §7).
func (c *Cache) Get(path string, load Loader) (*mnode.Node, error) {
	c.mu.Lock()
	if n, ok := c.entries[path]; ok {
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()

	n, err := load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capacity <= 0 {
		return n, nil
	}
	if _, ok := c.entries[path]; !ok && len(c.entries) >= c.capacity {
		c.evictLocked()
	}
	c.entries[path] = n
	return n, nil
}

// evictLocked removes one uniformly random resident key. Caller must hold
// c.mu.
func (c *Cache) evictLocked() {
	if len(c.entries) == 0 {
		return
	}
	victim := c.rand.Intn(len(c.entries))
	i := 0
	for k := range c.entries {
		if i == victim {
			delete(c.entries, k)
			return
		}
		i++
	}
}

// Flush clears every entry. Every mutating MManager operation that could
// invalidate a device path calls Flush rather than attempting selective
// invalidation (spec.md §4.4: "the safe rule the implementer must
// enforce is: every writer clears the cache").
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]*mnode.Node, c.capacity)
	c.mu.Unlock()
}

// Len reports the number of resident entries, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
