// Package cache provides caching implementations for Heron.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// LRUCache is an in-process cache with per-entry TTL and least-recently-used
// eviction. It serves the Community tier on its own and acts as the local
// phase when two-phase caching is enabled on the Pro tier. Keys are scoped
// by tenant, so two tenants never observe each other's entries.
type LRUCache struct {
	mu       sync.RWMutex
	maxSize  int
	index    map[string]*list.Element
	recency  *list.List
	counters map[string]*windowCounter
}

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// windowCounter tracks a count inside a fixed time window. The window
// resets, rather than slides, when it expires.
type windowCounter struct {
	count     int64
	expiresAt time.Time
}

// NewLRUCache creates a cache holding at most maxSize entries.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &LRUCache{
		maxSize:  maxSize,
		index:    make(map[string]*list.Element),
		recency:  list.New(),
		counters: make(map[string]*windowCounter),
	}
}

func scopedKey(tenantID, key string) string {
	return tenantID + ":" + key
}

// Get returns the cached value, or nil on a miss or expired entry.
func (c *LRUCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[scopedKey(tenantID, key)]
	if !ok {
		return nil, nil
	}

	entry := elem.Value.(*lruEntry)
	if time.Now().After(entry.expiresAt) {
		c.evict(elem)
		return nil, nil
	}

	c.recency.MoveToFront(elem)
	return entry.value, nil
}

// Set stores a value with the given TTL, evicting the least recently used
// entries if the cache is full.
func (c *LRUCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	full := scopedKey(tenantID, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[full]; ok {
		c.recency.MoveToFront(elem)
		entry := elem.Value.(*lruEntry)
		entry.value = value
		entry.expiresAt = time.Now().Add(ttl)
		return nil
	}

	elem := c.recency.PushFront(&lruEntry{
		key:       full,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	c.index[full] = elem

	for c.recency.Len() > c.maxSize {
		if oldest := c.recency.Back(); oldest != nil {
			c.evict(oldest)
		}
	}
	return nil
}

// Delete removes an entry. Deleting a missing key is not an error.
func (c *LRUCache) Delete(ctx context.Context, tenantID string, key string) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[scopedKey(tenantID, key)]; ok {
		c.evict(elem)
	}
	return nil
}

// GetAssessmentSummary retrieves a customer's cached latest assessment.
func (c *LRUCache) GetAssessmentSummary(ctx context.Context, tenantID string, customerID string) (*domain.AssessmentSummary, error) {
	data, err := c.Get(ctx, tenantID, "assessment:"+customerID)
	if err != nil || data == nil {
		return nil, err
	}

	var s domain.AssessmentSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetAssessmentSummary caches a customer's latest assessment summary.
func (c *LRUCache) SetAssessmentSummary(ctx context.Context, tenantID string, customerID string, s *domain.AssessmentSummary, ttl time.Duration) error {
	bytes, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, "assessment:"+customerID, bytes, ttl)
}

// IncrementCounter bumps a windowed counter and returns the new count.
// An expired window starts over at 1.
func (c *LRUCache) IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}

	full := scopedKey(tenantID, "counter:"+key)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	wc, ok := c.counters[full]
	if !ok || now.After(wc.expiresAt) {
		c.counters[full] = &windowCounter{count: 1, expiresAt: now.Add(window)}
		return 1, nil
	}

	wc.count++
	return wc.count, nil
}

// Ping always succeeds for the in-process cache.
func (c *LRUCache) Ping(ctx context.Context) error {
	return nil
}

// Close drops all entries and counters.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]*list.Element)
	c.recency = list.New()
	c.counters = make(map[string]*windowCounter)
	return nil
}

// Stats returns the current entry count and the configured capacity.
func (c *LRUCache) Stats() (size int, capacity int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recency.Len(), c.maxSize
}

// evict removes an element from both the recency list and the index.
// Callers must hold the write lock.
func (c *LRUCache) evict(elem *list.Element) {
	c.recency.Remove(elem)
	delete(c.index, elem.Value.(*lruEntry).key)
}
