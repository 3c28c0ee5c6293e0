// File: internal/models/event.go
package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// ERC20TransferMethodID is the 4-byte method id of transfer(address,uint256),
// used to recognize token transfers in the transaction input.
const ERC20TransferMethodID = "0xa9059cbb"

// TransactionEvent is one observed chain transaction. It is derived from the
// transaction feed and consumed once by the dispatcher, never stored.
type TransactionEvent struct {
	Hash             string   `json:"hash"`
	From             string   `json:"from"`
	To               string   `json:"to"`
	Value            *big.Int `json:"value"`     // wei
	GasUsed          uint64   `json:"gas_used"`
	GasPrice         uint64   `json:"gas_price"` // wei
	BlockNumber      uint64   `json:"block_number"`
	AssetDescription string   `json:"asset_description"`
}

// Direction reports "Incoming" or "Outgoing" relative to the watched wallet.
func (e *TransactionEvent) Direction(walletAddress string) string {
	if strings.EqualFold(e.From, walletAddress) {
		return "Outgoing"
	}
	return "Incoming"
}

// ValueETH returns the transferred value in ETH.
func (e *TransactionEvent) ValueETH() float64 {
	if e.Value == nil {
		return 0
	}
	eth, _ := new(big.Float).Quo(
		new(big.Float).SetInt(e.Value),
		big.NewFloat(params.Ether),
	).Float64()
	return eth
}

// GasPaidETH returns the fee paid for the transaction in ETH.
func (e *TransactionEvent) GasPaidETH() float64 {
	fee := new(big.Int).Mul(
		new(big.Int).SetUint64(e.GasUsed),
		new(big.Int).SetUint64(e.GasPrice),
	)
	eth, _ := new(big.Float).Quo(
		new(big.Float).SetInt(fee),
		big.NewFloat(params.Ether),
	).Float64()
	return eth
}

// FormatAlert renders a transaction alert message. ethPriceUSD adds USD
// conversions when known; when the price oracle is unavailable the USD parts
// are omitted rather than fabricated.
func (e *TransactionEvent) FormatAlert(walletAddress, tag string, ethPriceUSD float64, priceKnown bool) string {
	direction := e.Direction(walletAddress)
	counterpartyLabel, counterparty := "From", e.From
	if direction == "Outgoing" {
		counterpartyLabel, counterparty = "To", e.To
	}

	valueETH := e.ValueETH()
	gasPaidETH := e.GasPaidETH()

	var valueUSD, gasPaidUSD string
	if priceKnown {
		valueUSD = fmt.Sprintf(" ($%.2f USD)", valueETH*ethPriceUSD)
		gasPaidUSD = fmt.Sprintf(" ($%.2f USD)", gasPaidETH*ethPriceUSD)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Transaction Alert\n", direction)
	if tag != "" {
		fmt.Fprintf(&b, "Tag: %s\n", tag)
	}
	fmt.Fprintf(&b, "%s: %s\n", counterpartyLabel, counterparty)
	fmt.Fprintf(&b, "Asset: %s\n", e.AssetDescription)
	fmt.Fprintf(&b, "Value: %g ETH%s\n", valueETH, valueUSD)
	fmt.Fprintf(&b, "Gas Paid: %g ETH%s\n", gasPaidETH, gasPaidUSD)
	fmt.Fprintf(&b, "Block: %d", e.BlockNumber)
	return b.String()
}
