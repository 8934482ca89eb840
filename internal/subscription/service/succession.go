package service

import (
	"context"
	"time"

	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// settlePredecessor lines a renewal up behind the subscription it renews. While
// the predecessor still runs, the renewal is moved to start at its end date. A
// predecessor whose window already closed but was not swept yet is expired so
// the renewal can take over. It reports whether sub's window moved.
func (s *Service) settlePredecessor(ctx context.Context, tx *gorm.DB, sub *subscriptiondomain.Subscription, now time.Time) (bool, error) {
	if sub.RenewedFromID == nil {
		return false, nil
	}
	pred, err := s.repo.FindByID(ctx, tx, *sub.RenewedFromID)
	if err != nil {
		return false, err
	}
	if pred == nil {
		return false, nil
	}
	if pred.Status != subscriptiondomain.StatusActive && pred.Status != subscriptiondomain.StatusSuspended {
		return false, nil
	}

	if pred.EndDate.After(now) {
		if !pred.EndDate.After(sub.StartDate) {
			return false, nil
		}
		shiftStart(sub, pred.EndDate)
		return true, nil
	}
	if err := s.expireLocked(ctx, tx, pred, now); err != nil {
		return false, err
	}
	s.log.Info("subscription.predecessor_expired",
		zap.String("subscription_id", pred.ID.String()),
		zap.String("successor_id", sub.ID.String()),
	)
	return false, nil
}

// alignSuccessors keeps pending renewals of pred attached to its end date after
// that date moved from oldEnd. Renewals chained to the old end follow it either
// way; any other renewal that now overlaps pred is pushed behind it.
func (s *Service) alignSuccessors(ctx context.Context, tx *gorm.DB, pred *subscriptiondomain.Subscription, oldEnd, now time.Time) error {
	if pred.EndDate.Equal(oldEnd) {
		return nil
	}
	successors, err := s.repo.ListPendingSuccessors(ctx, tx, pred.ID)
	if err != nil {
		return err
	}
	for i := range successors {
		next := &successors[i]
		if !next.StartDate.Equal(oldEnd) && !next.StartDate.Before(pred.EndDate) {
			continue
		}
		nextOldEnd := next.EndDate
		shiftStart(next, pred.EndDate)
		if err := s.save(ctx, tx, next, next.Status, now); err != nil {
			return err
		}
		s.log.Info("subscription.successor_rescheduled",
			zap.String("subscription_id", next.ID.String()),
			zap.String("renewed_from_id", pred.ID.String()),
			zap.Time("start_date", next.StartDate),
			zap.Time("end_date", next.EndDate),
		)
		if err := s.alignSuccessors(ctx, tx, next, nextOldEnd, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) expireLocked(ctx context.Context, tx *gorm.DB, sub *subscriptiondomain.Subscription, now time.Time) error {
	from := sub.Status
	if from == subscriptiondomain.StatusSuspended {
		if _, err := s.repo.CloseOpenSuspension(ctx, tx, sub.ID, now, 0); err != nil {
			return err
		}
		clearSuspension(sub)
	}
	sub.Status = subscriptiondomain.StatusExpired
	sub.ExpiredAt = &now
	return s.save(ctx, tx, sub, from, now)
}

// shiftStart moves the window to begin at start, keeping its length.
func shiftStart(sub *subscriptiondomain.Subscription, start time.Time) {
	length := sub.EndDate.Sub(sub.StartDate)
	sub.StartDate = start.UTC()
	sub.EndDate = sub.StartDate.Add(length)
}
