package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "eth-activity-monitor", cfg.App.Name)
	assert.Equal(t, 60*time.Second, cfg.Poller.GasInterval)
	assert.Equal(t, 15*time.Second, cfg.Poller.WalletInterval)
	assert.Equal(t, 5, cfg.Poller.UpdateThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Cache.RefreshInterval)
	assert.Equal(t, time.Second, cfg.Dispatch.BaseDelay)
	assert.Equal(t, 15*time.Second, cfg.Dispatch.MaxDelay)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.NotEmpty(t, cfg.Ethereum.PriceProviders)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	broken := *cfg
	broken.Poller.GasInterval = 0
	assert.Error(t, broken.Validate())

	broken = *cfg
	broken.Storage.ConnectionString = ""
	assert.Error(t, broken.Validate())

	broken = *cfg
	broken.Dispatch.MaxDelay = broken.Dispatch.BaseDelay / 2
	assert.Error(t, broken.Validate())
}
