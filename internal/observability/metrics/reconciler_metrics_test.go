package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifySweepReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, SweepReasonDeadlineExceeded},
		{"db_lock_timeout", &pgconn.PgError{Code: "55P03"}, SweepReasonDBLockTimeout},
		{"serialization_failure", &pgconn.PgError{Code: "40001"}, SweepReasonSerializationFailure},
		{"mysql_deadlock", &mysql.MySQLError{Number: 1213}, SweepReasonSerializationFailure},
		{"sqlite_busy", errors.New("database is locked"), SweepReasonDBLockTimeout},
		{"unique_violation", gorm.ErrDuplicatedKey, SweepReasonUniqueViolation},
		{"conflict", fmt.Errorf("wrap: %w", apperr.Conflict("stale_status")), SweepReasonConflict},
		{"unknown", errors.New("boom"), SweepReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySweepReason(tc.err))
		})
	}
}

func TestClassifySweepErrorType(t *testing.T) {
	assert.Equal(t, SweepErrorTypeDeadlineExceeded, ClassifySweepErrorType(context.Canceled))
	assert.Equal(t, SweepErrorTypeDomain, ClassifySweepErrorType(apperr.NotFound("subscription_not_found")))
	assert.Equal(t, SweepErrorTypeDB, ClassifySweepErrorType(&pgconn.PgError{Code: "08006"}))
	assert.Equal(t, SweepErrorTypeUnknown, ClassifySweepErrorType(errors.New("boom")))
	assert.True(t, IsSweepErrorRetryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsSweepErrorRetryable(apperr.Conflict("x")))
}

func TestReconcilerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newReconcilerMetrics(registry, Config{ServiceName: "gymcore", Environment: "test"})

	m.IncSweepRun("expire_subscriptions")
	m.IncSweepRun("expire_subscriptions")
	m.AddProcessed("expire_subscriptions", "subscription", 3)
	m.AddSkipped("expire_subscriptions", "subscription", 0)
	m.IncSweepError("auto_checkout", errors.New("boom"))
	m.ObserveSweepDuration("expire_subscriptions", 25*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.sweepRuns.WithLabelValues("expire_subscriptions")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.itemsProcessed.WithLabelValues("expire_subscriptions", "subscription")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sweepErrors.WithLabelValues("auto_checkout", SweepReasonUnknown)))
}

func TestSweepDurationCarriesServiceLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newReconcilerMetrics(registry, Config{Environment: "staging"})

	m.ObserveSweepDuration("auto_checkout", 40*time.Millisecond)
	m.ObserveSweepDuration("auto_checkout", 3*time.Second)

	metric := findMetric(t, registry, "gymcore_reconciler_sweep_duration_seconds", map[string]string{
		"service": "gymcore",
		"env":     "staging",
		"sweep":   "auto_checkout",
	})
	require.NotNil(t, metric.Histogram)
	assert.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
	assert.InDelta(t, 3.04, metric.GetHistogram().GetSampleSum(), 0.001)
}

func findMetric(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if labelsMatch(metric, labels) {
				return metric
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return nil
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}

func TestNilReconcilerMetricsIsSafe(t *testing.T) {
	var m *ReconcilerMetrics
	m.IncSweepRun("x")
	m.AddProcessed("x", "y", 1)
	m.IncSweepError("x", errors.New("boom"))
}
