package session

import (
	"sync"

	"github.com/kylixs/flareon/internal/aggregate"
	"github.com/kylixs/flareon/internal/models"
)

// Cache maps file IDs to their aggregation slot. Slots live for the process
// lifetime.
type Cache struct {
	mu    sync.Mutex
	slots map[string]*aggregate.Aggregation
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		slots: make(map[string]*aggregate.Aggregation),
	}
}

// GetOrCreate returns the slot for id, creating an empty one bound to file if
// none exists. An existing slot is returned unchanged.
func (c *Cache) GetOrCreate(id string, file *models.TraceFile) *aggregate.Aggregation {
	c.mu.Lock()
	defer c.mu.Unlock()

	if agg, ok := c.slots[id]; ok {
		return agg
	}
	agg := aggregate.NewAggregation(file)
	c.slots[id] = agg
	return agg
}

// Get returns the slot for id, if any.
func (c *Cache) Get(id string) (*aggregate.Aggregation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	agg, ok := c.slots[id]
	return agg, ok
}

// Len returns the number of slots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// ParsedCount returns the number of slots the decoder has run for.
func (c *Cache) ParsedCount() int {
	c.mu.Lock()
	slots := make([]*aggregate.Aggregation, 0, len(c.slots))
	for _, agg := range c.slots {
		slots = append(slots, agg)
	}
	c.mu.Unlock()

	n := 0
	for _, agg := range slots {
		if agg.Parsed() {
			n++
		}
	}
	return n
}
