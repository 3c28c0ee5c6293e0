// File: internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/internal/metrics"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// Sink delivers one formatted message to a subscriber's channel. The chat
// front-end lives behind this interface; the monitor itself never retries a
// failed delivery because the channel's own at-least-once semantics could
// duplicate a notification the user already saw.
type Sink interface {
	Deliver(ctx context.Context, subscriberID, message string) error
}

// DispatcherConfig holds delivery pacing configuration.
type DispatcherConfig struct {
	BaseDelay   time.Duration `json:"base_delay"`
	DelayFactor float64       `json:"delay_factor"`
	MaxDelay    time.Duration `json:"max_delay"`
	MediumBatch int           `json:"medium_batch"`
	LargeBatch  int           `json:"large_batch"`
}

// Dispatcher sends notifications through the sink with failure isolation.
type Dispatcher struct {
	sink    Sink
	config  *DispatcherConfig
	logger  *logrus.Logger
	metrics *metrics.Manager
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(sink Sink, config *DispatcherConfig, m *metrics.Manager) *Dispatcher {
	return &Dispatcher{
		sink:    sink,
		config:  config,
		logger:  utils.GetLogger(),
		metrics: m,
	}
}

// Send delivers one message. A failure is logged and counted but never
// retried; the error is returned so callers can log context, not so they
// can retry.
func (d *Dispatcher) Send(ctx context.Context, subscriberID, message string) error {
	err := d.sink.Deliver(ctx, subscriberID, message)
	if err != nil {
		d.logger.WithError(err).WithField("subscriber", subscriberID).Error("Failed to deliver notification")
		if d.metrics != nil {
			d.metrics.RecordNotification("failed")
		}
		return err
	}

	if d.metrics != nil {
		d.metrics.RecordNotification("sent")
	}
	return nil
}

// NewPacer creates a pacer for a burst of batchSize deliveries.
func (d *Dispatcher) NewPacer(batchSize int) *Pacer {
	return &Pacer{
		config:    d.config,
		batchSize: batchSize,
		started:   time.Now(),
	}
}

// Pacer spaces the deliveries of one burst so a busy wallet cannot flood a
// subscriber's channel or trip the channel's rate limiter, while quiet
// wallets stay snappy.
type Pacer struct {
	config    *DispatcherConfig
	batchSize int
	started   time.Time
}

// DelayFor computes the inter-delivery delay for a burst that has been
// processing for elapsed time: max(base, elapsed*factor), scaled up when the
// batch crosses the volume tiers, and capped at the configured maximum.
func (p *Pacer) DelayFor(elapsed time.Duration) time.Duration {
	delay := time.Duration(float64(elapsed) * p.config.DelayFactor)
	if delay < p.config.BaseDelay {
		delay = p.config.BaseDelay
	}

	switch {
	case p.batchSize > p.config.LargeBatch:
		delay = delay * 2
	case p.batchSize > p.config.MediumBatch:
		delay = delay * 3 / 2
	}

	if delay > p.config.MaxDelay {
		delay = p.config.MaxDelay
	}
	return delay
}

// Wait sleeps for the current delay or until the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	timer := time.NewTimer(p.DelayFor(time.Since(p.started)))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LogSink writes notifications to the application log. It stands in for the
// external chat channel in development and tests.
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink() *LogSink {
	return &LogSink{logger: utils.GetLogger()}
}

// Deliver logs the message.
func (s *LogSink) Deliver(ctx context.Context, subscriberID, message string) error {
	s.logger.WithFields(logrus.Fields{
		"subscriber": subscriberID,
		"message":    message,
	}).Info("Notification delivered")
	return nil
}
