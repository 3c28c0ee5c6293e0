// File: internal/registry/registry.go
package registry

import (
	"context"
	"regexp"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/internal/cache"
	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/internal/resolver"
	"github.com/smartdevs17/eth-activity-monitor/internal/store"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// tagPattern matches a hashtag-style watch label.
var tagPattern = regexp.MustCompile(`^#[A-Za-z0-9_]+$`)

// Registry owns all watch mutations. Every mutation validates first, then
// runs a read-modify-write of the subscriber's whole record under that
// subscriber's lock: store write first, cache update after, so the cache
// never leads the store. The poller shares this path through AdvanceCursor,
// which serializes cursor advances against pause/remove races.
type Registry struct {
	store    store.Store
	cache    *cache.WatchCache
	resolver resolver.Resolver
	logger   *logrus.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a watch registry.
func New(s store.Store, c *cache.WatchCache, r resolver.Resolver) *Registry {
	return &Registry{
		store:    s,
		cache:    c,
		resolver: r,
		logger:   utils.GetLogger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// subscriberLock returns the mutex guarding one subscriber's record.
func (r *Registry) subscriberLock(subscriberID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[subscriberID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[subscriberID] = lock
	}
	return lock
}

// Add registers a new watch. The target must be a valid address, a
// resolvable name, or the gas-price singleton. startingCursor is the current
// upstream block at creation time so monitoring never replays history
// predating the subscription; it is ignored for gas-price watches.
func (r *Registry) Add(ctx context.Context, subscriberID, target, tag string, startingCursor uint64) (*models.Watch, error) {
	if tag != "" && !tagPattern.MatchString(tag) {
		return nil, utils.NewAppError(utils.ErrCodeValidation,
			"Invalid tag", "tags start with # followed by letters, numbers, or underscores")
	}

	switch {
	case target == models.GasPriceTarget:
		startingCursor = 0
	case r.resolver.IsValidAddress(target):
		if startingCursor == 0 {
			return nil, utils.NewAppError(utils.ErrCodeValidation,
				"Starting cursor is required", "wallet watches begin at the current block")
		}
	case r.resolver.IsValidName(target):
		resolved, err := r.resolver.ResolveName(ctx, target)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeValidation,
				"Failed to resolve name", err.Error())
		}
		target = resolved
		if startingCursor == 0 {
			return nil, utils.NewAppError(utils.ErrCodeValidation,
				"Starting cursor is required", "wallet watches begin at the current block")
		}
	default:
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Invalid watch target", target)
	}

	lock := r.subscriberLock(subscriberID)
	lock.Lock()
	defer lock.Unlock()

	record, err := r.loadOrCreate(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	if record.FindWatch(target) != nil {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Target already watched", target)
	}

	watch := &models.Watch{
		Target: target,
		Tag:    tag,
		Cursor: startingCursor,
	}
	record.Watches = append(record.Watches, watch)

	if err := r.persist(ctx, record); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"subscriber": subscriberID,
		"target":     target,
		"cursor":     startingCursor,
	}).Info("Watch added")

	return watch.Clone(), nil
}

// Remove deletes a watch. When the last watch goes, the whole record is
// removed from the store.
func (r *Registry) Remove(ctx context.Context, subscriberID, target string) error {
	lock := r.subscriberLock(subscriberID)
	lock.Lock()
	defer lock.Unlock()

	record, err := r.store.Get(ctx, subscriberID)
	if err != nil {
		return err
	}

	kept := record.Watches[:0]
	found := false
	for _, w := range record.Watches {
		if w.Target == target {
			found = true
			continue
		}
		kept = append(kept, w)
	}
	if !found {
		return utils.NewAppError(utils.ErrCodeNotFound, "Target not watched", target)
	}
	record.Watches = kept

	if len(record.Watches) == 0 {
		if err := r.store.Delete(ctx, subscriberID); err != nil {
			return err
		}
		r.cache.Invalidate(subscriberID)
	} else if err := r.persist(ctx, record); err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"subscriber": subscriberID,
		"target":     target,
	}).Info("Watch removed")

	return nil
}

// Pause freezes a watch; polling skips it but the cursor is preserved.
func (r *Registry) Pause(ctx context.Context, subscriberID, target string) error {
	return r.setPaused(ctx, subscriberID, target, true)
}

// Resume reactivates a paused watch.
func (r *Registry) Resume(ctx context.Context, subscriberID, target string) error {
	return r.setPaused(ctx, subscriberID, target, false)
}

func (r *Registry) setPaused(ctx context.Context, subscriberID, target string, paused bool) error {
	lock := r.subscriberLock(subscriberID)
	lock.Lock()
	defer lock.Unlock()

	record, err := r.store.Get(ctx, subscriberID)
	if err != nil {
		return err
	}

	watch := record.FindWatch(target)
	if watch == nil {
		return utils.NewAppError(utils.ErrCodeNotFound, "Target not watched", target)
	}
	watch.Paused = paused

	if err := r.persist(ctx, record); err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"subscriber": subscriberID,
		"target":     target,
		"paused":     paused,
	}).Info("Watch state changed")

	return nil
}

// List returns the subscriber's watches; an unknown subscriber has none.
func (r *Registry) List(ctx context.Context, subscriberID string) ([]*models.Watch, error) {
	record, err := r.cache.Get(ctx, subscriberID)
	if err != nil {
		if utils.HasCode(err, utils.ErrCodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record.Watches, nil
}

// SetThresholds updates the subscriber's gas alert bands.
func (r *Registry) SetThresholds(ctx context.Context, subscriberID string, green, yellow int) error {
	if green <= 0 || green >= yellow {
		return utils.NewAppError(utils.ErrCodeValidation,
			"Invalid thresholds", "green must be positive and below yellow")
	}

	lock := r.subscriberLock(subscriberID)
	lock.Lock()
	defer lock.Unlock()

	record, err := r.loadOrCreate(ctx, subscriberID)
	if err != nil {
		return err
	}
	record.Thresholds = models.AlertThresholds{Green: green, Yellow: yellow}

	return r.persist(ctx, record)
}

// Thresholds returns the subscriber's gas alert bands, defaulted when unset.
func (r *Registry) Thresholds(ctx context.Context, subscriberID string) (models.AlertThresholds, error) {
	record, err := r.cache.Get(ctx, subscriberID)
	if err != nil {
		if utils.HasCode(err, utils.ErrCodeNotFound) {
			return models.DefaultThresholds(), nil
		}
		return models.AlertThresholds{}, err
	}
	return record.Thresholds, nil
}

// AdvanceCursor moves a watch's cursor forward. Regressions are ignored so
// the cursor stays monotonic even if a stale tick races a fresher one. A
// watch removed since the tick started is a no-op, not an error.
func (r *Registry) AdvanceCursor(ctx context.Context, subscriberID, target string, newCursor uint64) error {
	lock := r.subscriberLock(subscriberID)
	lock.Lock()
	defer lock.Unlock()

	record, err := r.store.Get(ctx, subscriberID)
	if err != nil {
		if utils.HasCode(err, utils.ErrCodeNotFound) {
			return nil
		}
		return err
	}

	watch := record.FindWatch(target)
	if watch == nil || watch.Cursor >= newCursor {
		return nil
	}
	watch.Cursor = newCursor

	return r.persist(ctx, record)
}

// loadOrCreate reads the subscriber's record, creating a fresh one for
// first-time subscribers.
func (r *Registry) loadOrCreate(ctx context.Context, subscriberID string) (*models.SubscriberRecord, error) {
	record, err := r.store.Get(ctx, subscriberID)
	if err != nil {
		if utils.HasCode(err, utils.ErrCodeNotFound) {
			return models.NewSubscriberRecord(subscriberID), nil
		}
		return nil, err
	}
	return record, nil
}

// persist writes the record to the store, then mirrors it into the cache.
// On a failed write the cache is left untouched so it never diverges from
// the store.
func (r *Registry) persist(ctx context.Context, record *models.SubscriberRecord) error {
	if err := r.store.Put(ctx, record); err != nil {
		return err
	}
	r.cache.Update(record)
	return nil
}
