// File: internal/cache/cache.go
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/internal/metrics"
	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/internal/store"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// WatchCache is an in-memory read-through mirror of the cursor store. It is
// write-through: every mutation goes to the store first and the cache entry is
// replaced only after the write succeeds, so a reader never observes a write
// that failed to persist. A periodic full refresh heals drift from any
// out-of-band store mutation. The cache is derived state and never
// authoritative.
//
// The cache holds every subscriber record in memory. That is fine for the
// bounded subscriber counts this service is built for and is the known
// scalability ceiling of the design.
type WatchCache struct {
	store           store.Store
	refreshInterval time.Duration
	logger          *logrus.Logger
	metrics         *metrics.Manager

	mu      sync.RWMutex
	records map[string]*models.SubscriberRecord
	loaded  map[string]bool
}

// NewWatchCache creates a cache over the given store. m may be nil.
func NewWatchCache(s store.Store, refreshInterval time.Duration, m *metrics.Manager) *WatchCache {
	return &WatchCache{
		store:           s,
		refreshInterval: refreshInterval,
		logger:          utils.GetLogger(),
		metrics:         m,
		records:         make(map[string]*models.SubscriberRecord),
		loaded:          make(map[string]bool),
	}
}

// Get returns the record for a subscriber, reading through to the store on a
// miss. A NOT_FOUND from the store is cached as an empty entry so repeated
// lookups for unknown subscribers do not hammer the store.
func (c *WatchCache) Get(ctx context.Context, subscriberID string) (*models.SubscriberRecord, error) {
	c.mu.RLock()
	if c.loaded[subscriberID] {
		record := c.records[subscriberID]
		c.mu.RUnlock()
		if record == nil {
			return nil, utils.NewAppError(utils.ErrCodeNotFound, "Subscriber not found", "")
		}
		return record.Clone(), nil
	}
	c.mu.RUnlock()

	record, err := c.store.Get(ctx, subscriberID)
	if err != nil && !utils.HasCode(err, utils.ErrCodeNotFound) {
		return nil, err
	}

	c.mu.Lock()
	c.loaded[subscriberID] = true
	if record != nil {
		c.records[subscriberID] = record.Clone()
	} else {
		c.records[subscriberID] = nil
	}
	c.mu.Unlock()

	if record == nil {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Subscriber not found", "")
	}
	return record.Clone(), nil
}

// Snapshot returns a deep copy of every cached record. The poller iterates
// over the snapshot so a slow tick never holds the cache lock.
func (c *WatchCache) Snapshot() []*models.SubscriberRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := make([]*models.SubscriberRecord, 0, len(c.records))
	for _, record := range c.records {
		if record != nil {
			records = append(records, record.Clone())
		}
	}
	return records
}

// Update replaces one cache entry. Callers invoke it only after the backing
// store write succeeded.
func (c *WatchCache) Update(record *models.SubscriberRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded[record.SubscriberID] = true
	c.records[record.SubscriberID] = record.Clone()
}

// Invalidate drops one cache entry, forcing the next Get to read through.
func (c *WatchCache) Invalidate(subscriberID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, subscriberID)
	delete(c.loaded, subscriberID)
}

// Refresh replaces the whole cache with a fresh store scan.
func (c *WatchCache) Refresh(ctx context.Context) error {
	records, err := c.store.Scan(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[string]*models.SubscriberRecord, len(records))
	loaded := make(map[string]bool, len(records))
	for _, record := range records {
		fresh[record.SubscriberID] = record.Clone()
		loaded[record.SubscriberID] = true
	}

	c.mu.Lock()
	c.records = fresh
	c.loaded = loaded
	c.mu.Unlock()

	c.logger.WithField("subscribers", len(fresh)).Debug("Watch cache refreshed")
	return nil
}

// Run refreshes the cache periodically until the context is cancelled.
// Refresh failures are logged and retried on the next interval.
func (c *WatchCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	c.logger.WithField("interval", c.refreshInterval).Info("Starting cache refresh loop")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Cache refresh loop stopped")
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.WithError(err).Error("Failed to refresh watch cache")
				if c.metrics != nil {
					c.metrics.RecordCacheRefresh("failed")
				}
				continue
			}
			if c.metrics != nil {
				c.metrics.RecordCacheRefresh("ok")
			}
		}
	}
}
