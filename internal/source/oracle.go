// File: internal/source/oracle.go
package source

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// PriceSource resolves the current ETH price in USD. The boolean is false
// when no provider answered; callers must then omit USD conversions rather
// than fabricate a price.
type PriceSource interface {
	FetchETHPriceUSD(ctx context.Context) (float64, bool)
}

// PriceOracle queries a prioritized list of independent USD price providers
// and returns the first success.
type PriceOracle struct {
	providers []string
	client    *http.Client
	logger    *logrus.Logger
}

// NewPriceOracle creates a failover price oracle over the given provider URLs,
// tried in order.
func NewPriceOracle(providers []string, timeout time.Duration) *PriceOracle {
	return &PriceOracle{
		providers: providers,
		client:    &http.Client{Timeout: timeout},
		logger:    utils.GetLogger(),
	}
}

// FetchETHPriceUSD returns the first provider's price, or (0, false) when
// every provider fails.
func (o *PriceOracle) FetchETHPriceUSD(ctx context.Context) (float64, bool) {
	for _, provider := range o.providers {
		price, err := o.fetchFrom(ctx, provider)
		if err != nil {
			o.logger.WithError(err).WithField("provider", provider).Debug("Price provider failed")
			continue
		}
		return price, true
	}
	o.logger.Warn("All price providers failed, USD conversions unavailable")
	return 0, false
}

func (o *PriceOracle) fetchFrom(ctx context.Context, providerURL string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, providerURL, nil)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeSource, "Failed to build price request", err.Error())
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeSource, "Price request failed", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, utils.NewAppError(utils.ErrCodeSource, "Price provider returned non-200", resp.Status)
	}

	// Coingecko simple-price shape: {"ethereum": {"usd": <float>}}
	var payload struct {
		Ethereum struct {
			USD *float64 `json:"usd"`
		} `json:"ethereum"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, utils.NewAppError(utils.ErrCodeData, "Failed to decode price response", err.Error())
	}
	if payload.Ethereum.USD == nil {
		return 0, utils.NewAppError(utils.ErrCodeData, "Price response missing usd field", "")
	}

	return *payload.Ethereum.USD, nil
}
