package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"gorm.io/gorm"
)

const (
	SweepErrorTypeDeadlineExceeded = "deadline_exceeded"
	SweepErrorTypeDomain           = "domain"
	SweepErrorTypeDB               = "db"
	SweepErrorTypeUnknown          = "unknown"
)

const (
	SweepReasonDeadlineExceeded     = "deadline_exceeded"
	SweepReasonDBLockTimeout        = "db_lock_timeout"
	SweepReasonSerializationFailure = "serialization_failure"
	SweepReasonUniqueViolation      = "unique_violation"
	SweepReasonConflict             = "conflict"
	SweepReasonNotification         = "notification"
	SweepReasonUnknown              = "unknown"
)

// Config labels every reconciler series with the running service.
type Config struct {
	ServiceName string
	Environment string
}

// ReconcilerMetrics captures sweep health: runs, latency, failures and throughput.
type ReconcilerMetrics struct {
	sweepRuns      *prometheus.CounterVec
	sweepDuration  *prometheus.HistogramVec
	sweepTimeouts  *prometheus.CounterVec
	sweepErrors    *prometheus.CounterVec
	itemsProcessed *prometheus.CounterVec
	itemsSkipped   *prometheus.CounterVec
}

var (
	reconcilerMetricsOnce sync.Once
	reconcilerMetrics     *ReconcilerMetrics
)

// Reconciler returns the singleton reconciler metrics registry.
func Reconciler() *ReconcilerMetrics {
	return ReconcilerWithConfig(Config{})
}

// ReconcilerWithConfig returns the singleton using config labels on first call.
func ReconcilerWithConfig(cfg Config) *ReconcilerMetrics {
	reconcilerMetricsOnce.Do(func() {
		reconcilerMetrics = newReconcilerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcilerMetrics
}

// ResetReconcilerMetricsForTest resets the singleton for tests.
func ResetReconcilerMetricsForTest() {
	reconcilerMetricsOnce = sync.Once{}
	reconcilerMetrics = nil
}

func newReconcilerMetrics(registerer prometheus.Registerer, cfg Config) *ReconcilerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "gymcore"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	sweepRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymcore_reconciler_sweep_runs_total",
		Help:        "Reconciler sweep runs by name.",
		ConstLabels: constLabels,
	}, []string{"sweep"})
	sweepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "gymcore_reconciler_sweep_duration_seconds",
		Help:        "Reconciler sweep latency.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	}, []string{"sweep"})
	sweepTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymcore_reconciler_sweep_timeouts_total",
		Help:        "Reconciler sweeps cut short by their timeout.",
		ConstLabels: constLabels,
	}, []string{"sweep"})
	sweepErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymcore_reconciler_sweep_errors_total",
		Help:        "Reconciler per-item and per-run errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"sweep", "reason"})
	itemsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymcore_reconciler_items_processed_total",
		Help:        "Records transitioned by reconciler sweeps.",
		ConstLabels: constLabels,
	}, []string{"sweep", "resource"})
	itemsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymcore_reconciler_items_skipped_total",
		Help:        "Records matched but left untouched because a concurrent writer moved them first.",
		ConstLabels: constLabels,
	}, []string{"sweep", "resource"})

	registerer.MustRegister(
		sweepRuns,
		sweepDuration,
		sweepTimeouts,
		sweepErrors,
		itemsProcessed,
		itemsSkipped,
	)

	return &ReconcilerMetrics{
		sweepRuns:      sweepRuns,
		sweepDuration:  sweepDuration,
		sweepTimeouts:  sweepTimeouts,
		sweepErrors:    sweepErrors,
		itemsProcessed: itemsProcessed,
		itemsSkipped:   itemsSkipped,
	}
}

func (m *ReconcilerMetrics) IncSweepRun(sweep string) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(sweep).Inc()
}

func (m *ReconcilerMetrics) ObserveSweepDuration(sweep string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
}

func (m *ReconcilerMetrics) IncSweepTimeout(sweep string) {
	if m == nil {
		return
	}
	m.sweepTimeouts.WithLabelValues(sweep).Inc()
}

// IncSweepError increments the error counter with a classified reason.
func (m *ReconcilerMetrics) IncSweepError(sweep string, err error) {
	if m == nil || err == nil {
		return
	}
	m.sweepErrors.WithLabelValues(sweep, ClassifySweepReason(err)).Inc()
}

func (m *ReconcilerMetrics) IncSweepErrorReason(sweep, reason string) {
	if m == nil {
		return
	}
	m.sweepErrors.WithLabelValues(sweep, reason).Inc()
}

func (m *ReconcilerMetrics) AddProcessed(sweep, resource string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.itemsProcessed.WithLabelValues(sweep, resource).Add(float64(count))
}

func (m *ReconcilerMetrics) AddSkipped(sweep, resource string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.itemsSkipped.WithLabelValues(sweep, resource).Add(float64(count))
}

// ClassifySweepErrorType returns a low-cardinality error type for logging.
func ClassifySweepErrorType(err error) string {
	if err == nil {
		return SweepErrorTypeUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SweepErrorTypeDeadlineExceeded
	}
	if _, ok := apperr.As(err); ok {
		return SweepErrorTypeDomain
	}
	if isDBError(err) {
		return SweepErrorTypeDB
	}
	return SweepErrorTypeUnknown
}

// IsSweepErrorRetryable reports whether the next scheduled run can be expected to succeed.
func IsSweepErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return isDBError(err)
}

// ClassifySweepReason maps sweep errors to low-cardinality reasons.
func ClassifySweepReason(err error) string {
	if err == nil {
		return SweepReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SweepReasonDeadlineExceeded
	}
	switch pkgdb.Classify(err) {
	case pkgdb.ErrorClassLockTimeout:
		return SweepReasonDBLockTimeout
	case pkgdb.ErrorClassSerialization:
		return SweepReasonSerializationFailure
	case pkgdb.ErrorClassDuplicateKey:
		return SweepReasonUniqueViolation
	}
	if apperr.IsKind(err, apperr.KindConflict) {
		return SweepReasonConflict
	}
	return SweepReasonUnknown
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) || pkgdb.Classify(err) != pkgdb.ErrorClassOther
}
