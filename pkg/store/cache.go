package store

import (
	"container/list"
	"sync"

	"github.com/lemonberrylabs/holomorph/pkg/remap"
)

// DefaultTableCapacity is the number of lookup tables kept when no
// capacity is configured. A 1920×1080 table is about 8 MB.
const DefaultTableCapacity = 32

// tableKey identifies a table. The revision makes tables of an older
// version of an expression unreachable even before they are evicted.
type tableKey struct {
	name     string
	revision string
	width    int
	height   int
}

type tableEntry struct {
	key   tableKey
	table *remap.LookupTable
}

// tableCache is a thread-safe LRU cache of lookup tables.
type tableCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[tableKey]*list.Element
	hits     uint64
	misses   uint64
}

func newTableCache(capacity int) *tableCache {
	if capacity <= 0 {
		capacity = DefaultTableCapacity
	}
	return &tableCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[tableKey]*list.Element, capacity),
	}
}

// get returns the table for key and marks it most recently used.
func (c *tableCache) get(key tableKey) (*remap.LookupTable, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*tableEntry).table, true
}

// set inserts or replaces a table, evicting the least recently used entry
// when full.
func (c *tableCache) set(key tableKey, t *remap.LookupTable) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*tableEntry).table = t
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&tableEntry{key: key, table: t})
}

// invalidate drops every table of the named expression.
func (c *tableCache) invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, el := range c.items {
		if key.name == name {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held.
func (c *tableCache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*tableEntry).key)
}

func (c *tableCache) stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		Tables:        c.ll.Len(),
		TableCapacity: c.capacity,
		Hits:          c.hits,
		Misses:        c.misses,
	}
	for el := c.ll.Front(); el != nil; el = el.Next() {
		st.TableBytes += el.Value.(*tableEntry).table.Bytes()
	}
	return st
}
