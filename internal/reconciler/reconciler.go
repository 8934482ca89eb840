// Package reconciler owns the time-driven sweeps that advance subscriptions,
// discounts, bookings, schedules and check-ins without user action.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	bookingdomain "github.com/smallbiznis/gymcore/internal/booking/domain"
	checkindomain "github.com/smallbiznis/gymcore/internal/checkin/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	"github.com/smallbiznis/gymcore/internal/notification"
	obsmetrics "github.com/smallbiznis/gymcore/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	SweepExpireSubscriptions   = "expire_subscriptions"
	SweepActivateScheduled     = "activate_scheduled_subscriptions"
	SweepAutoUnsuspend         = "auto_unsuspend"
	SweepDeactivateDiscounts   = "deactivate_discounts"
	SweepReactivateDiscounts   = "reactivate_discounts"
	SweepCancelStaleBookings   = "cancel_stale_bookings"
	SweepCancelStaleSchedules  = "cancel_stale_schedules"
	SweepAutoCompleteSchedules = "auto_complete_schedules"
	SweepAutoCheckout          = "auto_checkout"
)

var (
	ErrUnknownSweep  = apperr.NotFound("unknown_sweep")
	ErrInvalidConfig = errors.New("reconciler: missing dependency")
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Config          *config.ReconcilerConfigHolder
	SubscriptionSvc subscriptiondomain.Service
	DiscountSvc     discountdomain.Service
	BookingSvc      bookingdomain.Service
	CheckInSvc      checkindomain.Service
	Notifier        notification.Dispatcher       `optional:"true"`
	Metrics         *obsmetrics.ReconcilerMetrics `optional:"true"`
}

type sweep struct {
	name string
	run  func(ctx context.Context) error
}

type Reconciler struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	cfg             *config.ReconcilerConfigHolder
	subscriptionSvc subscriptiondomain.Service
	discountSvc     discountdomain.Service
	bookingSvc      bookingdomain.Service
	checkInSvc      checkindomain.Service
	notifier        notification.Dispatcher
	metrics         *obsmetrics.ReconcilerMetrics

	sweeps []sweep
	cron   *cron.Cron
}

func New(p Params) (*Reconciler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Config == nil ||
		p.SubscriptionSvc == nil || p.DiscountSvc == nil || p.BookingSvc == nil || p.CheckInSvc == nil {
		return nil, ErrInvalidConfig
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Reconciler()
	}
	r := &Reconciler{
		db:              p.DB,
		log:             p.Log.Named("reconciler").With(zap.String("component", "reconciler")),
		genID:           p.GenID,
		clock:           p.Clock,
		cfg:             p.Config,
		subscriptionSvc: p.SubscriptionSvc,
		discountSvc:     p.DiscountSvc,
		bookingSvc:      p.BookingSvc,
		checkInSvc:      p.CheckInSvc,
		notifier:        p.Notifier,
		metrics:         metrics,
	}
	r.sweeps = []sweep{
		{SweepExpireSubscriptions, r.ExpireSubscriptions},
		{SweepActivateScheduled, r.ActivateScheduledSubscriptions},
		{SweepAutoUnsuspend, r.AutoUnsuspend},
		{SweepDeactivateDiscounts, r.DeactivateDiscounts},
		{SweepReactivateDiscounts, r.ReactivateDiscounts},
		{SweepCancelStaleBookings, r.CancelStaleBookings},
		{SweepCancelStaleSchedules, r.CancelStaleSchedules},
		{SweepAutoCompleteSchedules, r.AutoCompleteSchedules},
		{SweepAutoCheckout, r.AutoCheckout},
	}
	return r, nil
}

// Sweeps lists the sweep names in execution order.
func (r *Reconciler) Sweeps() []string {
	names := make([]string, 0, len(r.sweeps))
	for _, s := range r.sweeps {
		names = append(names, s.name)
	}
	return names
}

// RunSweep runs one sweep now, regardless of its schedule or disabled flag.
func (r *Reconciler) RunSweep(ctx context.Context, name string) error {
	for _, s := range r.sweeps {
		if s.name == name {
			return r.runSweep(ctx, s.name, s.run)
		}
	}
	return ErrUnknownSweep
}

// RunOnce runs every enabled sweep in order and joins their errors.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	cfg := r.cfg.Get()
	var err error
	for _, s := range r.sweeps {
		if cfg.Sweep(s.name).Disabled {
			continue
		}
		err = errors.Join(err, r.runSweep(ctx, s.name, s.run))
	}
	return err
}

// Start registers every enabled sweep on a cron bound to the configured
// timezone. Overlapping runs of the same sweep are skipped.
func (r *Reconciler) Start() error {
	cfg := r.cfg.Get()
	logger := cronLogger{log: r.log}
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		cron.WithLogger(logger),
	)
	for _, s := range r.sweeps {
		sc := cfg.Sweep(s.name)
		if sc.Disabled {
			r.log.Info("reconciler.sweep.disabled", zap.String("sweep", s.name))
			continue
		}
		s := s
		if _, err := c.AddFunc(sc.Schedule, func() {
			_ = r.runSweep(context.Background(), s.name, s.run)
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", s.name, err)
		}
		r.log.Info("reconciler.sweep.scheduled",
			zap.String("sweep", s.name),
			zap.String("schedule", sc.Schedule),
			zap.String("timezone", cfg.Location().String()),
		)
	}
	r.cron = c
	c.Start()
	return nil
}

// Stop prevents new runs and waits for running sweeps until ctx is done.
func (r *Reconciler) Stop(ctx context.Context) error {
	if r.cron == nil {
		return nil
	}
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runSweep bounds fn by the configured timeout and records metrics. Per-item
// failures are already logged inside fn; the joined error is returned for
// manual triggers and dropped by the cron wrapper.
func (r *Reconciler) runSweep(parent context.Context, name string, fn func(ctx context.Context) error) error {
	cfg := r.cfg.Get()
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, cfg.JobTimeout)
	defer cancel()

	ctx, run := r.startRun(ctx, name, cfg.BatchSize)
	r.logSweepStart(ctx, run)
	r.metrics.IncSweepRun(name)

	err := fn(ctx)
	r.metrics.ObserveSweepDuration(name, time.Since(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	r.logSweepFinish(ctx, run)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		r.metrics.IncSweepTimeout(name)
		r.logger(ctx).Warn("reconciler.sweep.timeout",
			zap.String("sweep", name),
			zap.Duration("timeout", cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw("reconciler.cron."+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw("reconciler.cron."+msg, append(keysAndValues, "error", err)...)
}
