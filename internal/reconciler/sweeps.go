package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/gymcore/internal/booking/domain"
	checkindomain "github.com/smallbiznis/gymcore/internal/checkin/domain"
	"github.com/smallbiznis/gymcore/internal/notification"
	obsmetrics "github.com/smallbiznis/gymcore/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
)

// forEachBatch pages through candidates by ascending id and hands each one to
// handle. A failing item is logged and counted; the sweep moves on.
func forEachBatch[T any](
	ctx context.Context,
	r *Reconciler,
	resource string,
	fetch func(ctx context.Context, afterID snowflake.ID, limit int) ([]T, error),
	idOf func(T) snowflake.ID,
	handle func(ctx context.Context, item T) (outcome, error),
) error {
	run := runFromContext(ctx)
	batchSize := r.cfg.Get().BatchSize
	var afterID snowflake.ID
	var sweepErr error

	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(sweepErr, err)
		}
		items, err := fetch(ctx, afterID, batchSize)
		if err != nil {
			r.logSweepError(ctx, "reconciler.candidates.failed", err, zap.String("resource", resource))
			return errors.Join(sweepErr, err)
		}

		for _, item := range items {
			id := idOf(item)
			afterID = id
			result, err := handle(ctx, item)
			if err != nil {
				sweepErr = errors.Join(sweepErr, fmt.Errorf("%s %s: %w", resource, id, err))
				r.logSweepError(ctx, "reconciler.item.failed", err,
					zap.String("resource", resource),
					zap.String("id", id.String()),
				)
				continue
			}
			switch result {
			case outcomeProcessed:
				run.AddProcessed(1)
				r.metrics.AddProcessed(run.name(), resource, 1)
			case outcomeSkipped:
				run.AddSkipped(1)
				r.metrics.AddSkipped(run.name(), resource, 1)
			}
		}

		if len(items) < batchSize {
			return sweepErr
		}
	}
}

func identity(id snowflake.ID) snowflake.ID { return id }

// lostRace reports errors meaning another writer already moved the record.
func lostRace(err error) bool {
	return errors.Is(err, subscriptiondomain.ErrStatusUnchanged) ||
		errors.Is(err, subscriptiondomain.ErrConcurrentUpdate) ||
		errors.Is(err, subscriptiondomain.ErrInvalidTransition)
}

func (r *Reconciler) ExpireSubscriptions(ctx context.Context) error {
	now := r.clock.Now().UTC()
	return forEachBatch(ctx, r, "subscription",
		func(ctx context.Context, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
			return r.subscriptionsToExpire(ctx, now, afterID, limit)
		},
		identity,
		func(ctx context.Context, id snowflake.ID) (outcome, error) {
			_, err := r.subscriptionSvc.ChangeStatus(ctx, id, subscriptiondomain.StatusExpired)
			if lostRace(err) {
				return outcomeSkipped, nil
			}
			return outcomeProcessed, err
		},
	)
}

func (r *Reconciler) ActivateScheduledSubscriptions(ctx context.Context) error {
	now := r.clock.Now().UTC()
	return forEachBatch(ctx, r, "subscription",
		func(ctx context.Context, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
			return r.subscriptionsToActivate(ctx, now, afterID, limit)
		},
		identity,
		func(ctx context.Context, id snowflake.ID) (outcome, error) {
			sub, err := r.subscriptionSvc.Activate(ctx, id)
			if lostRace(err) {
				return outcomeSkipped, nil
			}
			if err != nil {
				return outcomeProcessed, err
			}
			if sub.Status != subscriptiondomain.StatusActive {
				return outcomeSkipped, nil
			}
			return outcomeProcessed, nil
		},
	)
}

func (r *Reconciler) AutoUnsuspend(ctx context.Context) error {
	now := r.clock.Now().UTC()
	return forEachBatch(ctx, r, "subscription",
		func(ctx context.Context, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
			return r.subscriptionsToUnsuspend(ctx, now, afterID, limit)
		},
		identity,
		func(ctx context.Context, id snowflake.ID) (outcome, error) {
			if r.subscriptionSvc.AutoUnsuspend(ctx, id) == nil {
				return outcomeSkipped, nil
			}
			return outcomeProcessed, nil
		},
	)
}

func (r *Reconciler) DeactivateDiscounts(ctx context.Context) error {
	now := r.clock.Now().UTC()
	return forEachBatch(ctx, r, "discount",
		func(ctx context.Context, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
			return r.discountsToDeactivate(ctx, now, afterID, limit)
		},
		identity,
		func(ctx context.Context, id snowflake.ID) (outcome, error) {
			ok, err := r.discountSvc.Deactivate(ctx, id)
			return outcomeFor(ok), err
		},
	)
}

func (r *Reconciler) ReactivateDiscounts(ctx context.Context) error {
	now := r.clock.Now().UTC()
	return forEachBatch(ctx, r, "discount",
		func(ctx context.Context, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
			return r.discountsToReactivate(ctx, now, afterID, limit)
		},
		identity,
		func(ctx context.Context, id snowflake.ID) (outcome, error) {
			ok, err := r.discountSvc.Reactivate(ctx, id)
			return outcomeFor(ok), err
		},
	)
}

// CancelStaleBookings expires booking requests nobody answered in time and
// tells both the member and the trainer.
func (r *Reconciler) CancelStaleBookings(ctx context.Context) error {
	before := r.clock.Now().UTC().Add(-r.cfg.Get().StaleBookingAfter)
	return forEachBatch(ctx, r, "booking_request",
		func(ctx context.Context, afterID snowflake.ID, limit int) ([]bookingdomain.BookingRequest, error) {
			return r.bookingSvc.ListStaleBookingRequests(ctx, before, afterID, limit)
		},
		func(b bookingdomain.BookingRequest) snowflake.ID { return b.ID },
		func(ctx context.Context, b bookingdomain.BookingRequest) (outcome, error) {
			ok, err := r.bookingSvc.ExpireBookingRequest(ctx, b.ID)
			if err != nil || !ok {
				return outcomeFor(ok), err
			}
			when := b.RequestDateTime.Format(time.RFC1123)
			meta := map[string]any{"booking_request_id": b.ID.String()}
			r.notifyAll(ctx,
				notification.Message{
					RecipientID: b.MemberID,
					Type:        notification.TypeBookingExpired,
					Title:       "Booking request expired",
					Body:        fmt.Sprintf("Your PT booking for %s was not confirmed in time and has expired.", when),
					Metadata:    meta,
				},
				notification.Message{
					RecipientID: b.TrainerID,
					Type:        notification.TypeBookingExpired,
					Title:       "Booking request expired",
					Body:        fmt.Sprintf("A booking request for %s expired before it was answered.", when),
					Metadata:    meta,
				},
			)
			return outcomeProcessed, nil
		},
	)
}

func (r *Reconciler) CancelStaleSchedules(ctx context.Context) error {
	before := r.clock.Now().UTC().Add(-r.cfg.Get().StaleScheduleAfter)
	return forEachBatch(ctx, r, "schedule",
		func(ctx context.Context, afterID snowflake.ID, limit int) ([]bookingdomain.Schedule, error) {
			return r.bookingSvc.ListSchedulesBefore(ctx, bookingdomain.ScheduleStatusPending, before, afterID, limit)
		},
		func(s bookingdomain.Schedule) snowflake.ID { return s.ID },
		func(ctx context.Context, s bookingdomain.Schedule) (outcome, error) {
			ok, err := r.bookingSvc.CancelSchedule(ctx, s.ID)
			if err != nil || !ok {
				return outcomeFor(ok), err
			}
			r.notifyAll(ctx, notification.Message{
				RecipientID: s.MemberID,
				Type:        notification.TypeScheduleCancelled,
				Title:       "Session cancelled",
				Body:        fmt.Sprintf("Your PT session on %s was never confirmed and has been cancelled.", s.DateTime.Format(time.RFC1123)),
				Metadata:    map[string]any{"schedule_id": s.ID.String()},
			})
			return outcomeProcessed, nil
		},
	)
}

func (r *Reconciler) AutoCompleteSchedules(ctx context.Context) error {
	before := r.clock.Now().UTC().Add(-r.cfg.Get().ScheduleCompleteAfter)
	return forEachBatch(ctx, r, "schedule",
		func(ctx context.Context, afterID snowflake.ID, limit int) ([]bookingdomain.Schedule, error) {
			return r.bookingSvc.ListSchedulesBefore(ctx, bookingdomain.ScheduleStatusConfirmed, before, afterID, limit)
		},
		func(s bookingdomain.Schedule) snowflake.ID { return s.ID },
		func(ctx context.Context, s bookingdomain.Schedule) (outcome, error) {
			ok, err := r.bookingSvc.CompleteSchedule(ctx, s.ID)
			if err != nil || !ok {
				return outcomeFor(ok), err
			}
			r.notifyAll(ctx, notification.Message{
				RecipientID: s.MemberID,
				Type:        notification.TypeScheduleCompleted,
				Title:       "Session completed",
				Body:        fmt.Sprintf("Your PT session on %s was marked completed.", s.DateTime.Format(time.RFC1123)),
				Metadata:    map[string]any{"schedule_id": s.ID.String(), "subscription_id": s.SubscriptionID.String()},
			})
			return outcomeProcessed, nil
		},
	)
}

func (r *Reconciler) AutoCheckout(ctx context.Context) error {
	before := r.clock.Now().UTC().Add(-r.cfg.Get().CheckInMaxDuration)
	return forEachBatch(ctx, r, "check_in",
		func(ctx context.Context, afterID snowflake.ID, limit int) ([]checkindomain.CheckIn, error) {
			return r.checkInSvc.ListOpenBefore(ctx, before, afterID, limit)
		},
		func(c checkindomain.CheckIn) snowflake.ID { return c.ID },
		func(ctx context.Context, c checkindomain.CheckIn) (outcome, error) {
			ok, err := r.checkInSvc.AutoCheckOut(ctx, c.ID)
			if err != nil || !ok {
				return outcomeFor(ok), err
			}
			r.notifyAll(ctx, notification.Message{
				RecipientID: c.MemberID,
				Type:        notification.TypeAutoCheckout,
				Title:       "Checked out automatically",
				Body:        "You were checked out automatically because your visit exceeded the maximum duration.",
				Metadata:    map[string]any{"check_in_id": c.ID.String()},
			})
			return outcomeProcessed, nil
		},
	)
}

func outcomeFor(ok bool) outcome {
	if ok {
		return outcomeProcessed
	}
	return outcomeSkipped
}

// notifyAll sends msgs concurrently. Each send runs on its own so one failed
// recipient never cancels another. Failures are logged against the sweep and
// never undo the transition that triggered them.
func (r *Reconciler) notifyAll(ctx context.Context, msgs ...notification.Message) {
	if r.notifier == nil {
		return
	}
	var g errgroup.Group
	for _, msg := range msgs {
		msg := msg
		g.Go(func() error {
			if err := r.notifier.Notify(ctx, msg); err != nil {
				r.metrics.IncSweepErrorReason(runFromContext(ctx).name(), obsmetrics.SweepReasonNotification)
				r.logger(ctx).Warn("reconciler.notify.failed",
					zap.String("recipient_id", msg.RecipientID.String()),
					zap.String("type", string(msg.Type)),
					zap.Error(err),
				)
				return fmt.Errorf("notify %s: %w", msg.RecipientID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
