// File: internal/source/tokens.go
package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// TokenSource looks up name and symbol for an ERC-20 contract. Lookups are
// best-effort: callers fall back to a generic description on error.
type TokenSource interface {
	TokenDetails(ctx context.Context, contract string) (name, symbol string, err error)
}

// TokenClient queries an etherscan-style tokeninfo endpoint. Token metadata is
// immutable in practice, so successful lookups are cached for the process
// lifetime and each contract costs at most one upstream call.
type TokenClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logrus.Logger

	mu    sync.Mutex
	cache map[string]tokenDetails
}

type tokenDetails struct {
	name   string
	symbol string
}

// NewTokenClient creates a token metadata adapter.
func NewTokenClient(baseURL, apiKey string, timeout time.Duration) *TokenClient {
	return &TokenClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  utils.GetLogger(),
		cache:   make(map[string]tokenDetails),
	}
}

type tokenInfoResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []struct {
		TokenName string `json:"tokenName"`
		Symbol    string `json:"symbol"`
	} `json:"result"`
}

// TokenDetails returns the token's name and symbol, serving repeats from the
// cache.
func (c *TokenClient) TokenDetails(ctx context.Context, contract string) (string, string, error) {
	c.mu.Lock()
	if details, ok := c.cache[contract]; ok {
		c.mu.Unlock()
		return details.name, details.symbol, nil
	}
	c.mu.Unlock()

	query := url.Values{}
	query.Set("module", "token")
	query.Set("action", "tokeninfo")
	query.Set("contractaddress", contract)
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", "", utils.NewAppError(utils.ErrCodeSource, "Failed to build tokeninfo request", err.Error())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", utils.NewAppError(utils.ErrCodeSource, "Tokeninfo request failed", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", utils.NewAppError(utils.ErrCodeSource, "Tokeninfo returned non-200", resp.Status)
	}

	var envelope tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", "", utils.NewAppError(utils.ErrCodeData, "Failed to decode tokeninfo response", err.Error())
	}

	if envelope.Status != "1" || len(envelope.Result) == 0 {
		return "", "", utils.NewAppError(utils.ErrCodeSource, "Tokeninfo reported failure", envelope.Message)
	}

	details := tokenDetails{
		name:   envelope.Result[0].TokenName,
		symbol: envelope.Result[0].Symbol,
	}
	if details.name == "" || details.symbol == "" {
		return "", "", utils.NewAppError(utils.ErrCodeData, "Tokeninfo response missing name or symbol", contract)
	}

	c.mu.Lock()
	c.cache[contract] = details
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"contract": contract,
		"symbol":   details.symbol,
	}).Debug("Fetched token details")

	return details.name, details.symbol, nil
}
