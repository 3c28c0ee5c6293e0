// File: internal/source/gas.go
package source

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// GasSource fetches the current gas price reading.
type GasSource interface {
	FetchGasPrice(ctx context.Context) (*models.GasPrice, error)
}

// GasClient polls an etherscan-style gas oracle. All transport and parse
// failures come back as SOURCE_ERROR or DATA_ERROR; the adapter never panics
// on a bad response.
type GasClient struct {
	url    string
	apiKey string
	client *http.Client
	logger *logrus.Logger
}

// NewGasClient creates a gas price adapter.
func NewGasClient(url, apiKey string, timeout time.Duration) *GasClient {
	return &GasClient{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: utils.GetLogger(),
	}
}

// gasOracleResponse is the etherscan gastracker envelope. All numeric fields
// arrive as decimal strings.
type gasOracleResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  struct {
		SafeGasPrice    string `json:"SafeGasPrice"`
		ProposeGasPrice string `json:"ProposeGasPrice"`
		FastGasPrice    string `json:"FastGasPrice"`
	} `json:"result"`
}

// FetchGasPrice returns the current reading in gwei.
func (c *GasClient) FetchGasPrice(ctx context.Context) (*models.GasPrice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.withAPIKey(c.url), nil)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeSource, "Failed to build gas oracle request", err.Error())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeSource, "Gas oracle request failed", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewAppError(utils.ErrCodeSource, "Gas oracle returned non-200", resp.Status)
	}

	var envelope gasOracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeData, "Failed to decode gas oracle response", err.Error())
	}

	if envelope.Status != "1" {
		return nil, utils.NewAppError(utils.ErrCodeSource, "Gas oracle reported failure", envelope.Message)
	}

	price := &models.GasPrice{}
	for _, field := range []struct {
		name  string
		raw   string
		value *int
	}{
		{"SafeGasPrice", envelope.Result.SafeGasPrice, &price.Low},
		{"ProposeGasPrice", envelope.Result.ProposeGasPrice, &price.Average},
		{"FastGasPrice", envelope.Result.FastGasPrice, &price.Fast},
	} {
		n, err := strconv.Atoi(field.raw)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeData, "Invalid gas price field", field.name+"="+field.raw)
		}
		*field.value = n
	}

	c.logger.WithFields(logrus.Fields{
		"low":     price.Low,
		"average": price.Average,
		"fast":    price.Fast,
	}).Debug("Fetched gas prices")

	return price, nil
}

func (c *GasClient) withAPIKey(url string) string {
	if c.apiKey == "" {
		return url
	}
	return url + "&apikey=" + c.apiKey
}
