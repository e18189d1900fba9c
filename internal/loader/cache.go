package loader

import (
	"sync"
	"time"

	"immopilot/server/internal/models"
)

// BatchCache holds the result of one successful load for a fixed TTL.
// Writes fully replace the previous entry, so readers never observe a
// partially updated batch.
type BatchCache struct {
	mu           sync.RWMutex
	ttl          time.Duration
	transactions []models.Transaction
	vintage      string
	expiresAt    time.Time
}

func NewBatchCache(ttl time.Duration) *BatchCache {
	return &BatchCache{ttl: ttl}
}

// Get returns the cached batch and its vintage, or ok=false when the cache
// is empty or expired.
func (c *BatchCache) Get() (transactions []models.Transaction, vintage string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.transactions == nil || time.Now().After(c.expiresAt) {
		return nil, "", false
	}
	return c.transactions, c.vintage, true
}

// Set replaces the cached batch and restarts the TTL window.
func (c *BatchCache) Set(transactions []models.Transaction, vintage string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transactions = transactions
	c.vintage = vintage
	c.expiresAt = time.Now().Add(c.ttl)
}

// Clear drops the cached batch.
func (c *BatchCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transactions = nil
	c.vintage = ""
	c.expiresAt = time.Time{}
}
