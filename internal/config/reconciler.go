package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// SweepConfig controls a single reconciler sweep. Disabled rather than
// Enabled so that a partially specified entry keeps the sweep running.
type SweepConfig struct {
	Schedule string `mapstructure:"schedule"`
	Disabled bool   `mapstructure:"disabled"`
}

type ReconcilerConfig struct {
	Timezone              string                 `mapstructure:"timezone"`
	BatchSize             int                    `mapstructure:"batchSize"`
	JobTimeout            time.Duration          `mapstructure:"jobTimeout"`
	StaleBookingAfter     time.Duration          `mapstructure:"staleBookingAfter"`
	StaleScheduleAfter    time.Duration          `mapstructure:"staleScheduleAfter"`
	ScheduleCompleteAfter time.Duration          `mapstructure:"scheduleCompleteAfter"`
	CheckInMaxDuration    time.Duration          `mapstructure:"checkInMaxDuration"`
	Sweeps                map[string]SweepConfig `mapstructure:"sweeps"`
}

const (
	cronDaily      = "0 0 * * *"
	cronDailyAfter = "5 0 * * *"
	cronHourly     = "0 * * * *"
	cronEvery2Hrs  = "0 */2 * * *"
)

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Timezone:              "Asia/Ho_Chi_Minh",
		BatchSize:             100,
		JobTimeout:            5 * time.Minute,
		StaleBookingAfter:     2 * time.Hour,
		StaleScheduleAfter:    2 * time.Hour,
		ScheduleCompleteAfter: 24 * time.Hour,
		CheckInMaxDuration:    8 * time.Hour,
		Sweeps: map[string]SweepConfig{
			"expire_subscriptions":             {Schedule: cronDaily},
			"activate_scheduled_subscriptions": {Schedule: cronDailyAfter},
			"auto_unsuspend":                   {Schedule: cronDaily},
			"deactivate_discounts":             {Schedule: cronDaily},
			"reactivate_discounts":             {Schedule: cronDaily},
			"cancel_stale_bookings":            {Schedule: cronEvery2Hrs},
			"cancel_stale_schedules":           {Schedule: cronHourly},
			"auto_complete_schedules":          {Schedule: cronDaily},
			"auto_checkout":                    {Schedule: cronHourly},
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c ReconcilerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil || strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	return loc
}

func (c ReconcilerConfig) Sweep(name string) SweepConfig {
	if sc, ok := c.Sweeps[name]; ok {
		if strings.TrimSpace(sc.Schedule) == "" {
			sc.Schedule = DefaultReconcilerConfig().Sweeps[name].Schedule
		}
		return sc
	}
	return DefaultReconcilerConfig().Sweeps[name]
}

type ReconcilerConfigHolder struct {
	current atomic.Value // holds ReconcilerConfig
}

// NewStaticReconcilerConfig returns a holder that never reloads.
func NewStaticReconcilerConfig(cfg ReconcilerConfig) *ReconcilerConfigHolder {
	holder := &ReconcilerConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewReconcilerConfigHolder(timezone string) (*ReconcilerConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("reconciler")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/gymcore")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GYMCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultReconcilerConfig()
	if strings.TrimSpace(timezone) != "" {
		cfg.Timezone = timezone
	}

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}
	if fileFound {
		if err := v.UnmarshalKey("reconciler", &cfg); err != nil {
			return nil, err
		}
	}
	if err := validateReconcilerConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticReconcilerConfig(cfg)
	if !fileFound {
		return holder, nil
	}

	// Thresholds reload live; cron schedules are bound at start.
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := holder.Get()
		if err := v.UnmarshalKey("reconciler", &updated); err != nil {
			log.Printf("[reconciler-config] reload failed: %v", err)
			return
		}
		if err := validateReconcilerConfig(updated); err != nil {
			log.Printf("[reconciler-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[reconciler-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ReconcilerConfigHolder) Get() ReconcilerConfig {
	return h.current.Load().(ReconcilerConfig)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func validateReconcilerConfig(cfg ReconcilerConfig) error {
	if cfg.BatchSize <= 0 {
		return errors.New("reconciler.batchSize must be positive")
	}
	if cfg.StaleBookingAfter <= 0 || cfg.StaleScheduleAfter <= 0 || cfg.ScheduleCompleteAfter <= 0 || cfg.CheckInMaxDuration <= 0 {
		return errors.New("reconciler thresholds must be positive")
	}
	if strings.TrimSpace(cfg.Timezone) != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("reconciler.timezone: %w", err)
		}
	}
	for name, sweep := range cfg.Sweeps {
		if strings.TrimSpace(sweep.Schedule) == "" {
			continue
		}
		if _, err := parser.Parse(sweep.Schedule); err != nil {
			return fmt.Errorf("reconciler.sweeps.%s.schedule: %w", name, err)
		}
	}
	return nil
}
