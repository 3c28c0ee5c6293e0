// File: internal/models/watch.go
package models

// GasPriceTarget is the singleton target for gas-price alert subscriptions.
// All other targets are hex wallet addresses.
const GasPriceTarget = "gas-price"

// Default alert thresholds in gwei.
const (
	DefaultGreenThreshold  = 30
	DefaultYellowThreshold = 35
)

// Watch is one tracked entity for one subscriber. The cursor is the last
// processed block number; it is exclusive, the next fetch starts at cursor+1.
type Watch struct {
	Target string `json:"target" db:"target"`
	Tag    string `json:"tag,omitempty" db:"tag"`
	Cursor uint64 `json:"cursor" db:"cursor"`
	Paused bool   `json:"paused" db:"paused"`
}

// IsGasPrice reports whether the watch tracks the shared gas-price feed.
func (w *Watch) IsGasPrice() bool {
	return w.Target == GasPriceTarget
}

// Clone returns a copy of the watch.
func (w *Watch) Clone() *Watch {
	c := *w
	return &c
}

// AlertThresholds are the per-subscriber gas price bands in gwei.
// Green means cheap, yellow means moderate, anything above is expensive.
type AlertThresholds struct {
	Green  int `json:"green" db:"green_threshold"`
	Yellow int `json:"yellow" db:"yellow_threshold"`
}

// DefaultThresholds returns the default alert thresholds.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		Green:  DefaultGreenThreshold,
		Yellow: DefaultYellowThreshold,
	}
}

// SubscriberRecord is the persisted unit of the cursor store: one record per
// subscriber holding the whole watch list. Writes replace the record, so
// callers must read-modify-write under the subscriber's lock.
type SubscriberRecord struct {
	SubscriberID string          `json:"subscriber_id" db:"subscriber_id"`
	Watches      []*Watch        `json:"watches"`
	Thresholds   AlertThresholds `json:"thresholds"`
}

// NewSubscriberRecord creates an empty record with default thresholds.
func NewSubscriberRecord(subscriberID string) *SubscriberRecord {
	return &SubscriberRecord{
		SubscriberID: subscriberID,
		Thresholds:   DefaultThresholds(),
	}
}

// FindWatch returns the watch for the given target, or nil.
func (r *SubscriberRecord) FindWatch(target string) *Watch {
	for _, w := range r.Watches {
		if w.Target == target {
			return w
		}
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *SubscriberRecord) Clone() *SubscriberRecord {
	c := &SubscriberRecord{
		SubscriberID: r.SubscriberID,
		Watches:      make([]*Watch, 0, len(r.Watches)),
		Thresholds:   r.Thresholds,
	}
	for _, w := range r.Watches {
		c.Watches = append(c.Watches, w.Clone())
	}
	return c
}
