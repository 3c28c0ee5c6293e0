// File: internal/poller/poller.go
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/internal/cache"
	"github.com/smartdevs17/eth-activity-monitor/internal/dispatch"
	"github.com/smartdevs17/eth-activity-monitor/internal/metrics"
	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/internal/registry"
	"github.com/smartdevs17/eth-activity-monitor/internal/source"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// PollerConfig holds activity poller configuration.
type PollerConfig struct {
	GasInterval     time.Duration `json:"gas_interval"`
	WalletInterval  time.Duration `json:"wallet_interval"`
	UpdateThreshold int           `json:"update_threshold"` // gwei
}

// ActivityPoller drives the two polling loops. The gas loop makes one shared
// fetch per tick and fans the reading out to gas-price watches; the wallet
// loop scans every active wallet watch and advances its cursor after each
// delivered event. Only the registry changes a watch's paused state; the
// poller reads it and never writes it.
type ActivityPoller struct {
	cache      *cache.WatchCache
	registry   *registry.Registry
	gas        source.GasSource
	tx         source.TxSource
	price      source.PriceSource
	dispatcher *dispatch.Dispatcher
	config     *PollerConfig
	logger     *logrus.Logger
	metrics    *metrics.Manager

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Last delivered gas reading per subscriber; process lifetime only. A
	// missing entry means nothing was sent yet, which always alerts.
	snapMu    sync.Mutex
	snapshots map[string]*models.PriceSnapshot
}

// New creates an activity poller.
func New(
	c *cache.WatchCache,
	r *registry.Registry,
	gas source.GasSource,
	tx source.TxSource,
	price source.PriceSource,
	d *dispatch.Dispatcher,
	config *PollerConfig,
	m *metrics.Manager,
) *ActivityPoller {
	return &ActivityPoller{
		cache:      c,
		registry:   r,
		gas:        gas,
		tx:         tx,
		price:      price,
		dispatcher: d,
		config:     config,
		logger:     utils.GetLogger(),
		metrics:    m,
		stopChan:   make(chan struct{}),
		snapshots:  make(map[string]*models.PriceSnapshot),
	}
}

// Start launches the gas and wallet loops.
func (p *ActivityPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Poller already running", "")
	}
	p.running = true

	p.wg.Add(2)
	go p.gasLoop(ctx)
	go p.walletLoop(ctx)

	p.logger.WithFields(logrus.Fields{
		"gas_interval":    p.config.GasInterval,
		"wallet_interval": p.config.WalletInterval,
	}).Info("Activity poller started")

	return nil
}

// Stop signals both loops and waits for them to exit.
func (p *ActivityPoller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
	p.wg.Wait()

	p.logger.Info("Activity poller stopped")
	return nil
}

// IsRunning reports whether the loops are active.
func (p *ActivityPoller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// gasLoop polls the gas oracle on a fixed cadence. One fetch serves every
// subscriber, so polling cost does not scale with subscriber count.
func (p *ActivityPoller) gasLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.GasInterval)
	defer ticker.Stop()

	p.logger.WithField("interval", p.config.GasInterval).Info("Starting gas price loop")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Gas price loop stopped by context")
			return
		case <-p.stopChan:
			p.logger.Info("Gas price loop stopped")
			return
		case <-ticker.C:
			p.checkGasPrices(ctx)
		}
	}
}

// checkGasPrices runs one gas tick: fetch once, compare per subscriber.
func (p *ActivityPoller) checkGasPrices(ctx context.Context) {
	price, err := p.gas.FetchGasPrice(ctx)
	if err != nil {
		// Transient source failure: skip this tick, retry next cadence.
		p.logger.WithError(err).Error("Failed to fetch gas prices")
		if p.metrics != nil {
			p.metrics.RecordGasPoll("failed")
		}
		return
	}
	if p.metrics != nil {
		p.metrics.RecordGasPoll("ok")
	}

	for _, record := range p.cache.Snapshot() {
		watch := record.FindWatch(models.GasPriceTarget)
		if watch == nil || watch.Paused {
			continue
		}

		p.snapMu.Lock()
		snap := p.snapshots[record.SubscriberID]
		p.snapMu.Unlock()

		// The first reading after start is always sent; after that the
		// delta gate applies against the last sent reading.
		if snap != nil && !price.ExceedsDelta(snap.LastSent, p.config.UpdateThreshold) {
			p.logger.WithField("subscriber", record.SubscriberID).
				Debug("No significant gas price change, no alert sent")
			continue
		}

		p.snapMu.Lock()
		p.snapshots[record.SubscriberID] = &models.PriceSnapshot{LastSent: *price}
		p.snapMu.Unlock()

		if err := p.dispatcher.Send(ctx, record.SubscriberID, price.FormatAlert(record.Thresholds)); err != nil {
			p.logger.WithError(err).WithField("subscriber", record.SubscriberID).
				Error("Failed to send gas price alert")
		}
	}
}

// walletLoop scans the watch lists on a fixed cadence.
func (p *ActivityPoller) walletLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.WalletInterval)
	defer ticker.Stop()

	p.logger.WithField("interval", p.config.WalletInterval).Info("Starting wallet loop")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Wallet loop stopped by context")
			return
		case <-p.stopChan:
			p.logger.Info("Wallet loop stopped")
			return
		case <-ticker.C:
			p.pollWatches(ctx)
		}
	}
}

// pollWatches runs one wallet tick across all subscribers. A failure in one
// watch never aborts the tick for the others.
func (p *ActivityPoller) pollWatches(ctx context.Context) {
	if p.metrics != nil {
		p.metrics.RecordWalletTick()
	}

	records := p.cache.Snapshot()
	if p.metrics != nil {
		p.metrics.SetWatchedSubscribers(len(records))
	}

	for _, record := range records {
		for _, watch := range record.Watches {
			if watch.IsGasPrice() || watch.Paused {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-p.stopChan:
				return
			default:
			}

			if err := p.checkWatch(ctx, record.SubscriberID, watch); err != nil {
				p.logger.WithError(err).WithFields(logrus.Fields{
					"subscriber": record.SubscriberID,
					"target":     watch.Target,
				}).Error("Watch check failed")
				if p.metrics != nil {
					p.metrics.RecordWatchCheck("failed")
				}
			}
		}
	}
}

// checkWatch fetches one watch's new transactions and delivers them oldest
// first, persisting the advanced cursor after each delivered event. A crash
// mid-batch therefore redelivers at most the in-flight tail, never an
// already-persisted prefix.
func (p *ActivityPoller) checkWatch(ctx context.Context, subscriberID string, watch *models.Watch) error {
	if watch.Cursor == 0 {
		// A cursor is assigned at activation; zero means the stored record
		// is damaged. Tell the subscriber and skip; auto-resetting would
		// either gap the history or flood it with replays.
		msg := fmt.Sprintf("Data error: invalid stored cursor for wallet %s; the watch is being skipped.", watch.Target)
		if err := p.dispatcher.Send(ctx, subscriberID, msg); err != nil {
			p.logger.WithError(err).Warn("Failed to notify subscriber of cursor data error")
		}
		if p.metrics != nil {
			p.metrics.RecordWatchCheck("invalid_cursor")
		}
		return nil
	}

	events, err := p.tx.FetchTransactions(ctx, watch.Target, watch.Cursor)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		if p.metrics != nil {
			p.metrics.RecordWatchCheck("ok")
		}
		return nil
	}

	// One price lookup covers the whole batch. An unavailable oracle just
	// means the alerts omit USD amounts.
	usd, priceKnown := p.price.FetchETHPriceUSD(ctx)

	pacer := p.dispatcher.NewPacer(len(events))
	for i, event := range events {
		msg := event.FormatAlert(watch.Target, watch.Tag, usd, priceKnown)
		if err := p.dispatcher.Send(ctx, subscriberID, msg); err != nil {
			p.logger.WithError(err).WithField("tx", event.Hash).Warn("Notification delivery failed, not retrying")
		}
		if p.metrics != nil {
			p.metrics.RecordTransactionEvent()
		}

		// The cursor write must finish even when shutdown races it, or the
		// next cache refresh would regress the cursor to a stale value.
		if err := p.registry.AdvanceCursor(context.WithoutCancel(ctx), subscriberID, watch.Target, event.BlockNumber); err != nil {
			return err
		}

		if i < len(events)-1 {
			if err := pacer.Wait(ctx); err != nil {
				return nil
			}
		}
	}

	if p.metrics != nil {
		p.metrics.RecordWatchCheck("ok")
	}

	p.logger.WithFields(logrus.Fields{
		"subscriber": subscriberID,
		"target":     watch.Target,
		"events":     len(events),
		"cursor":     events[len(events)-1].BlockNumber,
	}).Info("Watch advanced")

	return nil
}
