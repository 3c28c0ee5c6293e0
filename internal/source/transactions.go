// File: internal/source/transactions.go
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

// TxSource fetches new transactions for a watched address. Results are
// ordered ascending by block number; the poller picks the new cursor as the
// last element's block.
type TxSource interface {
	FetchTransactions(ctx context.Context, address string, sinceBlock uint64) ([]*models.TransactionEvent, error)
}

// TxClient polls an etherscan-style account txlist endpoint.
type TxClient struct {
	baseURL string
	apiKey  string
	tokens  TokenSource
	client  *http.Client
	logger  *logrus.Logger
}

// NewTxClient creates a transaction history adapter. tokens enriches ERC-20
// transfer descriptions and may be nil.
func NewTxClient(baseURL, apiKey string, tokens TokenSource, timeout time.Duration) *TxClient {
	return &TxClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		logger:  utils.GetLogger(),
	}
}

type txListResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Result  []txRecord `json:"result"`
}

// txRecord is one raw transaction; every field is a decimal string except
// input and hash which are hex.
type txRecord struct {
	BlockNumber string `json:"blockNumber"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	GasUsed     string `json:"gasUsed"`
	GasPrice    string `json:"gasPrice"`
	Input       string `json:"input"`
}

// FetchTransactions returns new transactions for the address strictly after
// sinceBlock, ascending by block number. An empty feed yields (nil, nil).
func (c *TxClient) FetchTransactions(ctx context.Context, address string, sinceBlock uint64) ([]*models.TransactionEvent, error) {
	query := url.Values{}
	query.Set("module", "account")
	query.Set("action", "txlist")
	query.Set("address", address)
	query.Set("startblock", strconv.FormatUint(sinceBlock+1, 10))
	query.Set("endblock", "99999999")
	query.Set("sort", "asc")
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeSource, "Failed to build txlist request", err.Error())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeSource, "Txlist request failed", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewAppError(utils.ErrCodeSource, "Txlist returned non-200", resp.Status)
	}

	var envelope txListResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeData, "Failed to decode txlist response", err.Error())
	}

	// The upstream reports status "0" both for errors and for an empty
	// result set; only the latter carries an empty result array.
	if envelope.Status != "1" {
		if len(envelope.Result) == 0 {
			return nil, nil
		}
		return nil, utils.NewAppError(utils.ErrCodeSource, "Txlist reported failure", envelope.Message)
	}

	events := make([]*models.TransactionEvent, 0, len(envelope.Result))
	for _, record := range envelope.Result {
		event, err := record.toEvent()
		if err != nil {
			return nil, err
		}
		event.AssetDescription = c.assetDescription(ctx, &record)
		events = append(events, event)
	}

	c.logger.WithFields(logrus.Fields{
		"address": address,
		"since":   sinceBlock,
		"count":   len(events),
	}).Debug("Fetched transactions")

	return events, nil
}

func (r *txRecord) toEvent() (*models.TransactionEvent, error) {
	blockNumber, err := strconv.ParseUint(r.BlockNumber, 10, 64)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeData, "Invalid block number in transaction", r.BlockNumber)
	}

	value, ok := new(big.Int).SetString(r.Value, 10)
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeData, "Invalid value in transaction", r.Value)
	}

	gasUsed, err := strconv.ParseUint(r.GasUsed, 10, 64)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeData, "Invalid gasUsed in transaction", r.GasUsed)
	}

	gasPrice, err := strconv.ParseUint(r.GasPrice, 10, 64)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeData, "Invalid gasPrice in transaction", r.GasPrice)
	}

	return &models.TransactionEvent{
		Hash:        r.Hash,
		From:        r.From,
		To:          r.To,
		Value:       value,
		GasUsed:     gasUsed,
		GasPrice:    gasPrice,
		BlockNumber: blockNumber,
	}, nil
}

// isERC20Transfer recognizes token transfers by the transfer(address,uint256)
// method id in the input.
func (r *txRecord) isERC20Transfer() bool {
	return strings.HasPrefix(r.Input, models.ERC20TransferMethodID) && r.To != ""
}

// assetDescription classifies the transferred asset. ERC-20 transfers are
// enriched with the token's name and symbol when the lookup succeeds; on any
// failure the generic description stands in. Anything else is plain ETH.
func (c *TxClient) assetDescription(ctx context.Context, r *txRecord) string {
	if !r.isERC20Transfer() {
		return "ETH"
	}
	if c.tokens != nil {
		name, symbol, err := c.tokens.TokenDetails(ctx, r.To)
		if err == nil {
			return fmt.Sprintf("%s Token (%s)", symbol, name)
		}
		c.logger.WithError(err).WithField("contract", r.To).Debug("Token detail lookup failed")
	}
	return fmt.Sprintf("ERC-20 Token (%s)", r.To)
}
