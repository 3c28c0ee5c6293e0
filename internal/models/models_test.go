package models

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExceedsDelta(t *testing.T) {
	last := GasPrice{Low: 30, Average: 35, Fast: 40}

	// A change of exactly the threshold is not significant.
	assert.False(t, GasPrice{Low: 35, Average: 40, Fast: 45}.ExceedsDelta(last, 5))
	assert.False(t, GasPrice{Low: 25, Average: 30, Fast: 35}.ExceedsDelta(last, 5))

	// One more gwei in any single field is.
	assert.True(t, GasPrice{Low: 36, Average: 35, Fast: 40}.ExceedsDelta(last, 5))
	assert.True(t, GasPrice{Low: 30, Average: 35, Fast: 46}.ExceedsDelta(last, 5))
	assert.True(t, GasPrice{Low: 24, Average: 35, Fast: 40}.ExceedsDelta(last, 5))

	// The first reading compares against the zero snapshot.
	assert.True(t, last.ExceedsDelta(GasPrice{}, 5))
}

func TestGasFormatAlertBands(t *testing.T) {
	price := GasPrice{Low: 20, Average: 33, Fast: 50}
	msg := price.FormatAlert(DefaultThresholds())

	assert.Contains(t, msg, "Low: 20 gwei "+GreenEmoji)
	assert.Contains(t, msg, "Average: 33 gwei "+YellowEmoji)
	assert.Contains(t, msg, "Fast: 50 gwei "+RedEmoji)

	// Band boundaries are inclusive.
	boundary := GasPrice{Low: 30, Average: 35, Fast: 36}
	msg = boundary.FormatAlert(DefaultThresholds())
	assert.Contains(t, msg, "Low: 30 gwei "+GreenEmoji)
	assert.Contains(t, msg, "Average: 35 gwei "+YellowEmoji)
	assert.Contains(t, msg, "Fast: 36 gwei "+RedEmoji)
}

func TestTransactionDirection(t *testing.T) {
	event := &TransactionEvent{
		From: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		To:   "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	}

	// Address comparison is case-insensitive.
	assert.Equal(t, "Outgoing", event.Direction("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.Equal(t, "Incoming", event.Direction("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"))
}

func TestTransactionValueConversions(t *testing.T) {
	event := &TransactionEvent{
		Value:    big.NewInt(1_500_000_000_000_000_000), // 1.5 ETH
		GasUsed:  21000,
		GasPrice: 30_000_000_000, // 30 gwei
	}

	assert.InDelta(t, 1.5, event.ValueETH(), 1e-9)
	assert.InDelta(t, 0.00063, event.GasPaidETH(), 1e-9)

	var empty TransactionEvent
	assert.Zero(t, empty.ValueETH())
}

func TestTransactionFormatAlert(t *testing.T) {
	event := &TransactionEvent{
		Hash:             "0xhash",
		From:             "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		To:               "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Value:            big.NewInt(1_000_000_000_000_000_000),
		GasUsed:          21000,
		GasPrice:         30_000_000_000,
		BlockNumber:      1234,
		AssetDescription: "ETH",
	}

	msg := event.FormatAlert(event.From, "#savings", 3000, true)
	assert.Contains(t, msg, "Outgoing Transaction Alert")
	assert.Contains(t, msg, "Tag: #savings")
	assert.Contains(t, msg, "To: "+event.To)
	assert.Contains(t, msg, "$3000.00 USD")
	assert.Contains(t, msg, "Block: 1234")

	// Without a price the USD parts are omitted, never fabricated.
	msg = event.FormatAlert(event.To, "", 0, false)
	assert.Contains(t, msg, "Incoming Transaction Alert")
	assert.Contains(t, msg, "From: "+event.From)
	assert.NotContains(t, msg, "USD")
	assert.NotContains(t, msg, "Tag:")
}

func TestSubscriberRecordClone(t *testing.T) {
	record := NewSubscriberRecord("chat-1")
	record.Watches = append(record.Watches, &Watch{Target: "0xabc", Cursor: 100})

	clone := record.Clone()
	clone.Watches[0].Cursor = 200

	assert.Equal(t, uint64(100), record.Watches[0].Cursor)
	assert.Equal(t, DefaultThresholds(), clone.Thresholds)
}

func TestFindWatch(t *testing.T) {
	record := NewSubscriberRecord("chat-1")
	record.Watches = append(record.Watches,
		&Watch{Target: "0xabc"},
		&Watch{Target: GasPriceTarget},
	)

	require.NotNil(t, record.FindWatch("0xabc"))
	assert.True(t, record.FindWatch(GasPriceTarget).IsGasPrice())
	assert.Nil(t, record.FindWatch("0xmissing"))
}
