package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Suspend pauses an Active subscription and pushes its end date forward by the
// planned suspension span.
func (s *Service) Suspend(ctx context.Context, id snowflake.ID, req subscriptiondomain.SuspendRequest) (*subscriptiondomain.Subscription, error) {
	now := s.clock.Now().UTC()
	start := now
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	end := req.EndDate.UTC()
	if !end.After(start) {
		return nil, subscriptiondomain.ErrInvalidSuspensionRange
	}
	if !end.After(now) {
		return nil, subscriptiondomain.ErrSuspensionEndInPast
	}
	span := end.Sub(start)
	if span > subscriptiondomain.MaxSuspensionSpan {
		return nil, subscriptiondomain.ErrSuspensionTooLong
	}
	reason := strings.TrimSpace(req.Reason)

	var out *subscriptiondomain.Subscription
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		sub, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub.Status != subscriptiondomain.StatusActive {
			return subscriptiondomain.ErrNotActive
		}

		oldEnd := sub.EndDate
		sub.EndDate = sub.EndDate.Add(span)
		sub.Status = subscriptiondomain.StatusSuspended
		sub.IsSuspended = true
		sub.SuspensionStartDate = &start
		sub.SuspensionEndDate = &end
		sub.SuspensionReason = &reason
		if err := s.save(ctx, tx, sub, subscriptiondomain.StatusActive, now); err != nil {
			return err
		}
		if err := s.alignSuccessors(ctx, tx, sub, oldEnd, now); err != nil {
			return err
		}

		record := &subscriptiondomain.SuspensionRecord{
			ID:             s.genID.Generate(),
			SubscriptionID: sub.ID,
			StartDate:      start,
			EndDate:        end,
			Reason:         reason,
			Status:         subscriptiondomain.SuspensionStatusActive,
			CreatedAt:      now,
		}
		if err := s.repo.InsertSuspension(ctx, tx, record); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription.suspended",
		zap.String("subscription_id", id.String()),
		zap.Time("suspension_start", start),
		zap.Time("suspension_end", end),
		zap.Time("end_date", out.EndDate),
	)
	return out, nil
}

// Unsuspend resumes a Suspended subscription. An early resume gives back the
// unused part of the planned window, never more than was added by Suspend.
func (s *Service) Unsuspend(ctx context.Context, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var (
		out      *subscriptiondomain.Subscription
		refunded int
	)
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		sub, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub.Status != subscriptiondomain.StatusSuspended {
			return subscriptiondomain.ErrNotSuspended
		}
		if err := subscriptiondomain.CheckSuspensionInvariant(sub); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		oldEnd := sub.EndDate
		plannedStart := sub.SuspensionStartDate.UTC()
		plannedEnd := sub.SuspensionEndDate.UTC()
		if now.Before(plannedEnd) {
			refund := time.Duration(daysCeil(plannedEnd.Sub(now))) * subscriptiondomain.Day
			if span := plannedEnd.Sub(plannedStart); refund > span {
				refund = span
			}
			sub.EndDate = sub.EndDate.Add(-refund)
			refunded = daysCeil(refund)
		}

		sub.Status = subscriptiondomain.StatusActive
		clearSuspension(sub)
		if err := s.save(ctx, tx, sub, subscriptiondomain.StatusSuspended, now); err != nil {
			return err
		}
		if _, err := s.repo.CloseOpenSuspension(ctx, tx, sub.ID, now, refunded); err != nil {
			return err
		}
		if err := s.alignSuccessors(ctx, tx, sub, oldEnd, now); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription.unsuspended",
		zap.String("subscription_id", id.String()),
		zap.Int("days_refunded", refunded),
		zap.Time("end_date", out.EndDate),
	)
	return out, nil
}

// AutoUnsuspend never returns an error; a nil result means the subscription
// was left untouched.
func (s *Service) AutoUnsuspend(ctx context.Context, id snowflake.ID) *subscriptiondomain.Subscription {
	sub, err := s.Unsuspend(ctx, id)
	if err != nil {
		s.log.Warn("subscription.auto_unsuspend_failed",
			zap.String("subscription_id", id.String()),
			zap.Error(err),
		)
		return nil
	}
	return sub
}

// Extend shifts the end date and duration forward by days.
func (s *Service) Extend(ctx context.Context, id snowflake.ID, days int) (*subscriptiondomain.Subscription, error) {
	if days <= 0 {
		return nil, subscriptiondomain.ErrInvalidExtension
	}

	var out *subscriptiondomain.Subscription
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		sub, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub.Status == subscriptiondomain.StatusExpired {
			return subscriptiondomain.ErrSubscriptionExpired
		}
		now := s.clock.Now().UTC()
		oldEnd := sub.EndDate
		sub.EndDate = sub.EndDate.Add(time.Duration(days) * subscriptiondomain.Day)
		sub.DurationDays += days
		if err := s.save(ctx, tx, sub, sub.Status, now); err != nil {
			return err
		}
		if err := s.alignSuccessors(ctx, tx, sub, oldEnd, now); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription.extended",
		zap.String("subscription_id", id.String()),
		zap.Int("days", days),
		zap.Time("end_date", out.EndDate),
	)
	return out, nil
}
