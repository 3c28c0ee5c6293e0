// File: internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	config *StoreConfig
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(config *StoreConfig) *SQLiteStore {
	return &SQLiteStore{
		config: config,
		logger: utils.GetLogger(),
	}
}

// Connect establishes the database connection
func (s *SQLiteStore) Connect() error {
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodePersistence, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to open SQLite database", err.Error())
	}

	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to ping SQLite database", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("Connected to SQLite store")
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Store not connected", "")
	}
	return s.db.Ping()
}

// Migrate applies the schema
func (s *SQLiteStore) Migrate() error {
	for _, m := range sqliteMigrations {
		if _, err := s.db.Exec(m.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodePersistence, "Migration failed", m.Name+": "+err.Error())
		}
	}
	s.logger.WithField("migrations", len(sqliteMigrations)).Info("SQLite migrations applied")
	return nil
}

// Get returns the record for a subscriber, or NOT_FOUND.
func (s *SQLiteStore) Get(ctx context.Context, subscriberID string) (*models.SubscriberRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT subscriber_id, watches, green_threshold, yellow_threshold
		 FROM subscribers WHERE subscriber_id = ?`, subscriberID)
	return scanRecord(row)
}

// Put replaces the whole record for a subscriber.
func (s *SQLiteStore) Put(ctx context.Context, record *models.SubscriberRecord) error {
	watches, err := json.Marshal(record.Watches)
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to encode watches", err.Error())
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO subscribers (subscriber_id, watches, green_threshold, yellow_threshold, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(subscriber_id) DO UPDATE SET
		   watches = excluded.watches,
		   green_threshold = excluded.green_threshold,
		   yellow_threshold = excluded.yellow_threshold,
		   updated_at = excluded.updated_at`,
		record.SubscriberID, string(watches),
		record.Thresholds.Green, record.Thresholds.Yellow,
		time.Now().UTC())
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to write subscriber record", err.Error())
	}
	return nil
}

// Scan returns all subscriber records.
func (s *SQLiteStore) Scan(ctx context.Context) ([]*models.SubscriberRecord, error) {
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
func (s *SQLiteStore) Delete(ctx context.Context, subscriberID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM subscribers WHERE subscriber_id = ?`, subscriberID)
	if err != nil {
		return utils.NewAppError(utils.ErrCodePersistence, "Failed to delete subscriber record", err.Error())
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.SubscriberRecord, error) {
	var (
		record  models.SubscriberRecord
		watches string
	)
	err := row.Scan(&record.SubscriberID, &watches,
		&record.Thresholds.Green, &record.Thresholds.Yellow)
	if err == sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Subscriber not found", "")
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodePersistence, "Failed to read subscriber record", err.Error())
	}
	if err := json.Unmarshal([]byte(watches), &record.Watches); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeData, "Corrupt watches column", err.Error())
	}
	return &record, nil
}
