// File: internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	config *StoreConfig
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL store instance
func NewPostgresStore(config *StoreConfig) *PostgresStore {
	return &PostgresStore{
		config: config,
		logger: utils.GetLogger(),
	}
}

// Connect establishes the database connection
func (s *PostgresStore) Connect() error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to open PostgreSQL database", err.Error())
	}

	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to ping PostgreSQL database", err.Error())
	}

	s.db = db
	s.logger.Info("Connected to PostgreSQL store")
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection
func (s *PostgresStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Store not connected", "")
	}
	return s.db.Ping()
}

// Migrate applies the schema
func (s *PostgresStore) Migrate() error {
	for _, m := range postgresMigrations {
		if _, err := s.db.Exec(m.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodePersistence, "Migration failed", m.Name+": "+err.Error())
		}
	}
	s.logger.WithField("migrations", len(postgresMigrations)).Info("PostgreSQL migrations applied")
	return nil
}

// Get returns the record for a subscriber, or NOT_FOUND.
func (s *PostgresStore) Get(ctx context.Context, subscriberID string) (*models.SubscriberRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT subscriber_id, watches, green_threshold, yellow_threshold
		 FROM subscribers WHERE subscriber_id = $1`, subscriberID)
	return scanRecord(row)
}

// Put replaces the whole record for a subscriber.
func (s *PostgresStore) Put(ctx context.Context, record *models.SubscriberRecord) error {
	watches, err := json.Marshal(record.Watches)
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to encode watches", err.Error())
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO subscribers (subscriber_id, watches, green_threshold, yellow_threshold, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (subscriber_id) DO UPDATE SET
		   watches = EXCLUDED.watches,
		   green_threshold = EXCLUDED.green_threshold,
		   yellow_threshold = EXCLUDED.yellow_threshold,
		   updated_at = EXCLUDED.updated_at`,
		record.SubscriberID, string(watches),
		record.Thresholds.Green, record.Thresholds.Yellow,
		time.Now().UTC())
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to write subscriber record", err.Error())
	}
	return nil
}

// Scan returns all subscriber records.
func (s *PostgresStore) Scan(ctx context.Context) ([]*models.SubscriberRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subscriber_id, watches, green_threshold, yellow_threshold FROM subscribers`)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodePersistence, "Failed to scan subscribers", err.Error())
	}
	defer rows.Close()

	var records []*models.SubscriberRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodePersistence, "Failed to scan subscribers", err.Error())
	}
	return records, nil
}

// Delete removes a subscriber record.
func (s *PostgresStore) Delete(ctx context.Context, subscriberID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM subscribers WHERE subscriber_id = $1`, subscriberID)
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to delete subscriber record", err.Error())
	}
	return nil
}
