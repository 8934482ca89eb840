package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/gymcore/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/lock"
	"github.com/smallbiznis/gymcore/internal/notification"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const trainerLockTTL = 10 * time.Second

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            bookingdomain.Repository
	Catalog         catalogdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Locker          *lock.Locker            `optional:"true"`
	Notifier        notification.Dispatcher `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID           *snowflake.Node
	clock           clock.Clock
	repo            bookingdomain.Repository
	catalog         catalogdomain.Service
	subscriptionSvc subscriptiondomain.Service
	locker          *lock.Locker
	notifier        notification.Dispatcher
}

func NewService(p Params) bookingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("booking.service"),

		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		catalog:         p.Catalog,
		subscriptionSvc: p.SubscriptionSvc,
		locker:          p.Locker,
		notifier:        p.Notifier,
	}
}

func (s *Service) CreateBookingRequest(ctx context.Context, req bookingdomain.CreateBookingRequest) (*bookingdomain.BookingRequest, error) {
	duration := req.DurationMinutes
	if duration == 0 {
		duration = bookingdomain.DefaultSessionMinutes
	}
	if duration < 0 {
		return nil, bookingdomain.ErrInvalidDuration
	}
	now := s.clock.Now().UTC()
	start := req.RequestDateTime.UTC()
	if start.IsZero() || !start.After(now) {
		return nil, bookingdomain.ErrInvalidDateTime
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	if err := s.requireTrainer(ctx, req.TrainerID); err != nil {
		return nil, err
	}
	if _, err := s.bookableSubscription(ctx, req.MemberID, req.SubscriptionID); err != nil {
		return nil, err
	}

	booking := &bookingdomain.BookingRequest{
		ID:              s.genID.Generate(),
		MemberID:        req.MemberID,
		TrainerID:       req.TrainerID,
		SubscriptionID:  req.SubscriptionID,
		RequestDateTime: start,
		EndDateTime:     end,
		DurationMinutes: duration,
		Notes:           strings.TrimSpace(req.Notes),
		Status:          bookingdomain.BookingStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	key := fmt.Sprintf("booking:trainer:%s", req.TrainerID)
	err := s.locker.WithLock(ctx, key, trainerLockTTL, func(ctx context.Context) error {
		return pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
			overlaps, err := s.repo.CountTrainerOverlaps(ctx, tx, req.TrainerID, start, end)
			if err != nil {
				return err
			}
			if overlaps > 0 {
				return bookingdomain.ErrTrainerSlotTaken
			}
			return s.repo.InsertBooking(ctx, tx, booking)
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking.requested",
		zap.String("booking_request_id", booking.ID.String()),
		zap.String("trainer_id", booking.TrainerID.String()),
		zap.Time("request_date_time", booking.RequestDateTime),
	)
	return booking, nil
}

func (s *Service) GetBookingRequest(ctx context.Context, id snowflake.ID) (*bookingdomain.BookingRequest, error) {
	return s.loadBooking(ctx, pkgdb.Conn(ctx, s.db), id)
}

func (s *Service) Confirm(ctx context.Context, id snowflake.ID) (*bookingdomain.ConfirmResult, error) {
	var result bookingdomain.ConfirmResult
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		booking, err := s.loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		switch booking.Status {
		case bookingdomain.BookingStatusConfirmed:
			return bookingdomain.ErrAlreadyConfirmed
		case bookingdomain.BookingStatusPending:
		default:
			return bookingdomain.ErrBookingNotPending
		}

		existing, err := s.repo.FindScheduleAt(ctx, tx, booking.MemberID, booking.TrainerID, booking.RequestDateTime)
		if err != nil {
			return err
		}
		if existing != nil {
			return bookingdomain.ErrDuplicateSchedule
		}

		sub, err := s.subscriptionSvc.Get(ctx, booking.SubscriptionID)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		ok, err := s.repo.TransitionBooking(ctx, tx, booking.ID, bookingdomain.BookingStatusPending, bookingdomain.BookingStatusConfirmed, nil, now)
		if err != nil {
			return err
		}
		if !ok {
			return bookingdomain.ErrAlreadyConfirmed
		}
		booking.Status = bookingdomain.BookingStatusConfirmed
		booking.ConfirmedAt = &now
		booking.UpdatedAt = now

		schedule := &bookingdomain.Schedule{
			ID:               s.genID.Generate(),
			MemberID:         booking.MemberID,
			TrainerID:        booking.TrainerID,
			DateTime:         booking.RequestDateTime,
			DurationMinutes:  booking.DurationMinutes,
			BranchID:         sub.BranchID,
			SubscriptionID:   sub.ID,
			BookingRequestID: &booking.ID,
			Notes:            booking.Notes,
			Status:           bookingdomain.ScheduleStatusConfirmed,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.repo.InsertSchedule(ctx, tx, schedule); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return bookingdomain.ErrDuplicateSchedule
			}
			return err
		}

		result.BookingRequest = booking
		result.Schedule = schedule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking.confirmed",
		zap.String("booking_request_id", id.String()),
		zap.String("schedule_id", result.Schedule.ID.String()),
	)
	s.notify(ctx, notification.Message{
		RecipientID: result.BookingRequest.MemberID,
		Type:        notification.TypeBookingConfirmed,
		Title:       "Booking confirmed",
		Body:        fmt.Sprintf("Your PT session on %s is confirmed.", result.Schedule.DateTime.Format(time.RFC1123)),
		Metadata:    map[string]any{"booking_request_id": id.String(), "schedule_id": result.Schedule.ID.String()},
	})
	return &result, nil
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID, reason string) (*bookingdomain.BookingRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, bookingdomain.ErrReasonRequired
	}

	db := pkgdb.Conn(ctx, s.db)
	booking, err := s.loadBooking(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != bookingdomain.BookingStatusPending {
		return nil, bookingdomain.ErrBookingNotPending
	}
	now := s.clock.Now().UTC()
	ok, err := s.repo.TransitionBooking(ctx, db, id, bookingdomain.BookingStatusPending, bookingdomain.BookingStatusRejected, &reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, bookingdomain.ErrBookingNotPending
	}
	booking.Status = bookingdomain.BookingStatusRejected
	booking.RejectionReason = &reason
	booking.UpdatedAt = now

	s.log.Info("booking.rejected", zap.String("booking_request_id", id.String()))
	s.notify(ctx, notification.Message{
		RecipientID: booking.MemberID,
		Type:        notification.TypeBookingRejected,
		Title:       "Booking rejected",
		Body:        reason,
		Metadata:    map[string]any{"booking_request_id": id.String()},
	})
	return booking, nil
}

func (s *Service) CreateSchedule(ctx context.Context, req bookingdomain.CreateScheduleRequest) (*bookingdomain.Schedule, error) {
	duration := req.DurationMinutes
	if duration == 0 {
		duration = bookingdomain.DefaultSessionMinutes
	}
	if duration < 0 {
		return nil, bookingdomain.ErrInvalidDuration
	}
	if req.DateTime.IsZero() {
		return nil, bookingdomain.ErrInvalidDateTime
	}
	if err := s.requireTrainer(ctx, req.TrainerID); err != nil {
		return nil, err
	}
	sub, err := s.bookableSubscription(ctx, req.MemberID, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	schedule := &bookingdomain.Schedule{
		ID:              s.genID.Generate(),
		MemberID:        req.MemberID,
		TrainerID:       req.TrainerID,
		DateTime:        req.DateTime.UTC(),
		DurationMinutes: duration,
		BranchID:        sub.BranchID,
		SubscriptionID:  sub.ID,
		Notes:           strings.TrimSpace(req.Notes),
		Status:          bookingdomain.ScheduleStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertSchedule(ctx, pkgdb.Conn(ctx, s.db), schedule); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, bookingdomain.ErrDuplicateSchedule
		}
		return nil, err
	}
	return schedule, nil
}

func (s *Service) GetSchedule(ctx context.Context, id snowflake.ID) (*bookingdomain.Schedule, error) {
	schedule, err := s.repo.FindScheduleByID(ctx, pkgdb.Conn(ctx, s.db), id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, bookingdomain.ErrScheduleNotFound
	}
	return schedule, nil
}

func (s *Service) requireTrainer(ctx context.Context, trainerID snowflake.ID) error {
	trainer, err := s.catalog.GetMember(ctx, trainerID)
	if err != nil {
		return err
	}
	if trainer.Role != catalogdomain.RoleTrainer || !trainer.Active {
		return catalogdomain.ErrNotATrainer
	}
	return nil
}

// bookableSubscription requires a live PT-capable subscription owned by memberID.
func (s *Service) bookableSubscription(ctx context.Context, memberID, subscriptionID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	sub, err := s.subscriptionSvc.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.MemberID != memberID {
		return nil, bookingdomain.ErrSubscriptionNotOwned
	}
	if sub.Status != subscriptiondomain.StatusActive || !sub.Type.HasPTSessions() {
		return nil, bookingdomain.ErrSubscriptionNotBookable
	}
	if sub.PTSessionsRemaining <= 0 {
		return nil, subscriptiondomain.ErrNoPTSessionsRemaining
	}
	return sub, nil
}

func (s *Service) loadBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.BookingRequest, error) {
	booking, err := s.repo.FindBookingByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}
	return booking, nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Warn("booking.notify_failed",
			zap.String("recipient_id", msg.RecipientID.String()),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
	}
}
