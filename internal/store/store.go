// File: internal/store/store.go
package store

import (
	"context"
	"strings"
	"time"

	"github.com/smartdevs17/eth-activity-monitor/internal/config"
	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// Store is the durable cursor store: one record per subscriber holding the
// whole watch list. Put replaces the record; callers read-modify-write under
// a per-subscriber critical section. The store performs no retries, any I/O
// error is reported to the caller as a PERSISTENCE_ERROR.
type Store interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Record operations
	Get(ctx context.Context, subscriberID string) (*models.SubscriberRecord, error)
	Put(ctx context.Context, record *models.SubscriberRecord) error
	Scan(ctx context.Context) ([]*models.SubscriberRecord, error)
	Delete(ctx context.Context, subscriberID string) error
}

// StoreConfig holds store configuration
type StoreConfig struct {
	Type             string
	ConnectionString string
	MaxConnections   int
	MaxIdleTime      time.Duration
}

// NewStore creates a new store instance based on configuration
func NewStore(cfg *config.StorageConfig) (Store, error) {
	storeConfig := &StoreConfig{
		Type:             cfg.Type,
		ConnectionString: cfg.ConnectionString,
		MaxConnections:   cfg.MaxConnections,
		MaxIdleTime:      cfg.MaxIdleTime,
	}

	switch strings.ToLower(cfg.Type) {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(storeConfig), nil
	case "postgres", "postgresql":
		return NewPostgresStore(storeConfig), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported storage type", cfg.Type)
	}
}
