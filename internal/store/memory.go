// File: internal/store/memory.go
package store

import (
	"context"
	"sync"

	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// MemoryStore is an in-memory Store used for development and tests.
// It keeps the same whole-record-replace semantics as the SQL backends.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.SubscriberRecord

	// FailWrites makes Put/Delete return a persistence error when set.
	FailWrites bool
	// FailScans makes Scan return a persistence error when set.
	FailScans bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.SubscriberRecord),
	}
}

func (s *MemoryStore) Connect() error { return nil }
func (s *MemoryStore) Close() error   { return nil }
func (s *MemoryStore) Ping() error    { return nil }
func (s *MemoryStore) Migrate() error { return nil }

// Get returns a copy of the record for a subscriber, or NOT_FOUND.
func (s *MemoryStore) Get(ctx context.Context, subscriberID string) (*models.SubscriberRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[subscriberID]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Subscriber not found", "")
	}
	return record.Clone(), nil
}

// Put replaces the whole record for a subscriber.
func (s *MemoryStore) Put(ctx context.Context, record *models.SubscriberRecord) error {
	if s.FailWrites {
		return utils.NewAppError(utils.ErrCodePersistence, "Write failure injected", "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SubscriberID] = record.Clone()
	return nil
}

// Scan returns copies of all subscriber records.
func (s *MemoryStore) Scan(ctx context.Context) ([]*models.SubscriberRecord, error) {
	if s.FailScans {
		return nil, utils.NewAppError(utils.ErrCodePersistence, "Scan failure injected", "")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*models.SubscriberRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.Clone())
	}
	return records, nil
}

// Delete removes a subscriber record.
func (s *MemoryStore) Delete(ctx context.Context, subscriberID string) error {
	if s.FailWrites {
		return utils.NewAppError(utils.ErrCodePersistence, "Write failure injected", "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, subscriberID)
	return nil
}
