package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/gymcore/internal/booking/domain"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) ExpireBookingRequest(ctx context.Context, id snowflake.ID) (bool, error) {
	now := s.clock.Now().UTC()
	return s.repo.TransitionBooking(ctx, pkgdb.Conn(ctx, s.db), id,
		bookingdomain.BookingStatusPending, bookingdomain.BookingStatusExpired, nil, now)
}

func (s *Service) CancelSchedule(ctx context.Context, id snowflake.ID) (bool, error) {
	now := s.clock.Now().UTC()
	return s.repo.TransitionSchedule(ctx, pkgdb.Conn(ctx, s.db), id,
		bookingdomain.ScheduleStatusPending, bookingdomain.ScheduleStatusCancelled, now)
}

// CompleteSchedule marks a confirmed session completed and consumes one PT
// session from the linked subscription in the same transaction. An exhausted
// balance does not block completion.
func (s *Service) CompleteSchedule(ctx context.Context, id snowflake.ID) (bool, error) {
	var completed bool
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		schedule, err := s.repo.FindScheduleByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if schedule == nil {
			return bookingdomain.ErrScheduleNotFound
		}
		now := s.clock.Now().UTC()
		ok, err := s.repo.TransitionSchedule(ctx, tx, id,
			bookingdomain.ScheduleStatusConfirmed, bookingdomain.ScheduleStatusCompleted, now)
		if err != nil || !ok {
			return err
		}
		completed = true

		err = s.subscriptionSvc.ConsumePTSession(ctx, schedule.SubscriptionID)
		if errors.Is(err, subscriptiondomain.ErrNoPTSessionsRemaining) {
			s.log.Warn("booking.schedule_completed_without_balance",
				zap.String("schedule_id", id.String()),
				zap.String("subscription_id", schedule.SubscriptionID.String()),
			)
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return completed, nil
}

func (s *Service) ListStaleBookingRequests(ctx context.Context, before time.Time, afterID snowflake.ID, limit int) ([]bookingdomain.BookingRequest, error) {
	return s.repo.ListBookingsBefore(ctx, pkgdb.Conn(ctx, s.db), bookingdomain.BookingStatusPending, before.UTC(), afterID, limit)
}

func (s *Service) ListSchedulesBefore(ctx context.Context, status bookingdomain.ScheduleStatus, before time.Time, afterID snowflake.ID, limit int) ([]bookingdomain.Schedule, error) {
	return s.repo.ListSchedulesBefore(ctx, pkgdb.Conn(ctx, s.db), status, before.UTC(), afterID, limit)
}
