package book

import "sync"

// Cache is an in-memory SnapshotSource fed by whatever receives exchange
// data. Readers and the feed writer may run concurrently.
type Cache struct {
	mu        sync.RWMutex
	snapshots map[TradePlace]Snapshot
}

func NewCache() *Cache {
	return &Cache{snapshots: make(map[TradePlace]Snapshot)}
}

func (c *Cache) Put(tp TradePlace, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[tp] = snap
}

func (c *Cache) Snapshot(tp TradePlace) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[tp]
	return snap, ok
}
