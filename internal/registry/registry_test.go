package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/eth-activity-monitor/internal/cache"
	"github.com/smartdevs17/eth-activity-monitor/internal/models"
	"github.com/smartdevs17/eth-activity-monitor/internal/store"
	"github.com/smartdevs17/eth-activity-monitor/pkg/utils"
)

const testWallet = "0x1234567890123456789012345678901234567890"

// stubResolver accepts 0x-prefixed 42-char addresses and resolves
// "vitalik.eth" to a fixed address.
type stubResolver struct{}

func (stubResolver) IsValidAddress(s string) bool {
	return len(s) == 42 && s[:2] == "0x"
}

func (stubResolver) IsValidName(s string) bool {
	return len(s) > 4 && s[len(s)-4:] == ".eth"
}

func (stubResolver) ResolveName(ctx context.Context, name string) (string, error) {
	if name == "vitalik.eth" {
		return "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", nil
	}
	return "", utils.NewAppError(utils.ErrCodeNotFound, "Name does not resolve to an address", name)
}

func (stubResolver) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	return 1000, nil
}

func newTestRegistry(t *testing.T) (*Registry, *store.MemoryStore, *cache.WatchCache) {
	t.Helper()
	s := store.NewMemoryStore()
	c := cache.NewWatchCache(s, time.Minute, nil)
	return New(s, c, stubResolver{}), s, c
}

func TestAddListRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	watch, err := r.Add(ctx, "chat-1", testWallet, "#savings", 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), watch.Cursor)

	watches, err := r.List(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, watches, 1)
	assert.Equal(t, testWallet, watches[0].Target)
	assert.Equal(t, "#savings", watches[0].Tag)
	assert.Equal(t, uint64(1000), watches[0].Cursor)
	assert.False(t, watches[0].Paused)

	require.NoError(t, r.Remove(ctx, "chat-1", testWallet))

	watches, err = r.List(ctx, "chat-1")
	require.NoError(t, err)
	assert.Empty(t, watches)
}

func TestAddRejectsInvalidTarget(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newTestRegistry(t)

	_, err := r.Add(ctx, "chat-1", "not-an-address", "", 1000)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))

	// Rejection leaves no side effect.
	records, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAddRejectsDuplicateTarget(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	_, err := r.Add(ctx, "chat-1", testWallet, "", 1000)
	require.NoError(t, err)

	_, err = r.Add(ctx, "chat-1", testWallet, "", 2000)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))

	// The same target for a different subscriber is fine.
	_, err = r.Add(ctx, "chat-2", testWallet, "", 2000)
	require.NoError(t, err)
}

func TestAddRequiresStartingCursor(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	_, err := r.Add(ctx, "chat-1", testWallet, "", 0)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))
}

func TestAddRejectsInvalidTag(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	_, err := r.Add(ctx, "chat-1", testWallet, "no-hash", 1000)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))
}

func TestAddResolvesName(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	watch, err := r.Add(ctx, "chat-1", "vitalik.eth", "", 1000)
	require.NoError(t, err)
	assert.Equal(t, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", watch.Target)

	_, err = r.Add(ctx, "chat-1", "unknown.eth", "", 1000)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))
}

func TestGasPriceWatch(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	watch, err := r.Add(ctx, "chat-1", models.GasPriceTarget, "", 0)
	require.NoError(t, err)
	assert.True(t, watch.IsGasPrice())

	watches, err := r.List(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, watches, 1)
}

func TestPauseResume(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	_, err := r.Add(ctx, "chat-1", testWallet, "", 1000)
	require.NoError(t, err)

	require.NoError(t, r.Pause(ctx, "chat-1", testWallet))
	watches, err := r.List(ctx, "chat-1")
	require.NoError(t, err)
	assert.True(t, watches[0].Paused)
	assert.Equal(t, uint64(1000), watches[0].Cursor)

	require.NoError(t, r.Resume(ctx, "chat-1", testWallet))
	watches, err = r.List(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, watches[0].Paused)

	err = r.Pause(ctx, "chat-1", "0x0000000000000000000000000000000000000000")
	assert.True(t, utils.HasCode(err, utils.ErrCodeNotFound))
}

func TestThresholds(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	got, err := r.Thresholds(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultThresholds(), got)

	require.NoError(t, r.SetThresholds(ctx, "chat-1", 20, 40))
	got, err = r.Thresholds(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertThresholds{Green: 20, Yellow: 40}, got)

	err = r.SetThresholds(ctx, "chat-1", 40, 20)
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))
	err = r.SetThresholds(ctx, "chat-1", 0, 20)
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))
}

func TestAdvanceCursorMonotonic(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newTestRegistry(t)

	_, err := r.Add(ctx, "chat-1", testWallet, "", 1000)
	require.NoError(t, err)

	require.NoError(t, r.AdvanceCursor(ctx, "chat-1", testWallet, 1200))

	rec, err := s.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), rec.FindWatch(testWallet).Cursor)

	// A stale advance never regresses the cursor.
	require.NoError(t, r.AdvanceCursor(ctx, "chat-1", testWallet, 1100))
	rec, err = s.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), rec.FindWatch(testWallet).Cursor)

	// Advancing a watch removed mid-tick is a no-op.
	require.NoError(t, r.AdvanceCursor(ctx, "chat-9", testWallet, 50))
}

func TestFailedWriteLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	r, s, c := newTestRegistry(t)

	s.FailWrites = true
	_, err := r.Add(ctx, "chat-1", testWallet, "", 1000)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodePersistence))

	// The cache never observes a write that failed to persist.
	_, err = c.Get(ctx, "chat-1")
	assert.True(t, utils.HasCode(err, utils.ErrCodeNotFound))
}
