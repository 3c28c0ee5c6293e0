// File: internal/models/gas.go
package models

import "fmt"

// Gas price band emojis used in alert messages.
const (
	GreenEmoji  = "\U0001F7E2"
	YellowEmoji = "\U0001F7E1"
	RedEmoji    = "\U0001F534"
)

// GasPrice is one gas oracle reading in gwei.
type GasPrice struct {
	Low     int `json:"low"`
	Average int `json:"average"`
	Fast    int `json:"fast"`
}

// ExceedsDelta reports whether any of the three values differs from last by
// strictly more than threshold gwei. The boundary is exclusive: a change of
// exactly threshold does not trigger an alert.
func (g GasPrice) ExceedsDelta(last GasPrice, threshold int) bool {
	return absDiff(g.Low, last.Low) > threshold ||
		absDiff(g.Average, last.Average) > threshold ||
		absDiff(g.Fast, last.Fast) > threshold
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// FormatAlert renders a gas price alert using the subscriber's thresholds.
func (g GasPrice) FormatAlert(t AlertThresholds) string {
	return fmt.Sprintf(
		"Current ETH Gas Prices\nLow: %d gwei %s\nAverage: %d gwei %s\nFast: %d gwei %s",
		g.Low, bandEmoji(g.Low, t),
		g.Average, bandEmoji(g.Average, t),
		g.Fast, bandEmoji(g.Fast, t),
	)
}

func bandEmoji(gwei int, t AlertThresholds) string {
	switch {
	case gwei <= t.Green:
		return GreenEmoji
	case gwei <= t.Yellow:
		return YellowEmoji
	default:
		return RedEmoji
	}
}

// PriceSnapshot tracks the last gas reading delivered to a subscriber.
// It lives only for the process lifetime; after a restart the next differing
// reading is simply re-sent.
type PriceSnapshot struct {
	LastSent GasPrice
}
