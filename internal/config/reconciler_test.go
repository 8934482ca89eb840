package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultReconcilerConfigIsValid(t *testing.T) {
	cfg := DefaultReconcilerConfig()
	require.NoError(t, validateReconcilerConfig(cfg))
	assert.Equal(t, 2*time.Hour, cfg.StaleBookingAfter)
	assert.Equal(t, 8*time.Hour, cfg.CheckInMaxDuration)
	assert.Equal(t, "0 */2 * * *", cfg.Sweep("cancel_stale_bookings").Schedule)
	assert.Equal(t, "0 * * * *", cfg.Sweep("auto_checkout").Schedule)
}

func TestSweepFallsBackToDefaultSchedule(t *testing.T) {
	cfg := DefaultReconcilerConfig()
	cfg.Sweeps = map[string]SweepConfig{"expire_subscriptions": {Disabled: true}}

	sweep := cfg.Sweep("expire_subscriptions")
	assert.True(t, sweep.Disabled)
	assert.Equal(t, "0 0 * * *", sweep.Schedule)
}

func TestValidateRejectsBadCronSpec(t *testing.T) {
	cfg := DefaultReconcilerConfig()
	cfg.Sweeps["auto_checkout"] = SweepConfig{Schedule: "every hour"}
	assert.Error(t, validateReconcilerConfig(cfg))
}

func TestValidateRejectsUnknownTimezone(t *testing.T) {
	cfg := DefaultReconcilerConfig()
	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, validateReconcilerConfig(cfg))
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := DefaultReconcilerConfig()
	cfg.Timezone = ""
	assert.Equal(t, time.UTC, cfg.Location())
}
