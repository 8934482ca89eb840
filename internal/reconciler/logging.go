package reconciler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/gymcore/internal/observability/context"
	obslogger "github.com/smallbiznis/gymcore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gymcore/internal/observability/metrics"
	"go.uber.org/zap"
)

type sweepRun struct {
	sweep          string
	runID          string
	batchSize      int
	startedAt      time.Time
	processedCount int
	skippedCount   int
	errorCount     int
}

type sweepRunKey struct{}

func (r *sweepRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processedCount += count
}

func (r *sweepRun) AddSkipped(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.skippedCount += count
}

func (r *sweepRun) name() string {
	if r == nil {
		return ""
	}
	return r.sweep
}

func (r *sweepRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (r *Reconciler) startRun(ctx context.Context, sweep string, batchSize int) (context.Context, *sweepRun) {
	run := &sweepRun{
		sweep:     sweep,
		runID:     r.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: time.Now(),
	}
	ctx = context.WithValue(ctx, sweepRunKey{}, run)
	ctx = obscontext.WithActor(ctx, "system", "reconciler")
	return ctx, run
}

func runFromContext(ctx context.Context) *sweepRun {
	if run, ok := ctx.Value(sweepRunKey{}).(*sweepRun); ok {
		return run
	}
	return nil
}

func (r *Reconciler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, r.log)
}

func (r *Reconciler) logSweepStart(ctx context.Context, run *sweepRun) {
	r.logger(ctx).Info("reconciler.sweep.start",
		zap.String("sweep", run.sweep),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", run.batchSize),
	)
}

func (r *Reconciler) logSweepFinish(ctx context.Context, run *sweepRun) {
	fields := []zap.Field{
		zap.String("sweep", run.sweep),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processedCount),
		zap.Int("skipped_count", run.skippedCount),
		zap.Int("error_count", run.errorCount),
	}
	log := r.logger(ctx)
	if run.errorCount > 0 {
		log.Warn("reconciler.sweep.finish", fields...)
		return
	}
	log.Info("reconciler.sweep.finish", fields...)
}

// logSweepError records one failed item. It never aborts the sweep.
func (r *Reconciler) logSweepError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	run := runFromContext(ctx)
	sweep := ""
	if run != nil {
		run.IncError()
		sweep = run.sweep
	}
	r.metrics.IncSweepError(sweep, err)
	baseFields := []zap.Field{
		zap.String("sweep", sweep),
		zap.String("error_type", obsmetrics.ClassifySweepErrorType(err)),
		zap.String("error", err.Error()),
		zap.Bool("retryable", obsmetrics.IsSweepErrorRetryable(err)),
	}
	r.logger(ctx).Error(msg, append(baseFields, fields...)...)
}
