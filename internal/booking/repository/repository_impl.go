package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/gymcore/internal/booking/domain"
	"gorm.io/gorm"
)

const bookingColumns = `id, member_id, trainer_id, subscription_id, request_date_time, end_date_time,
	 duration_minutes, notes, status, rejection_reason, confirmed_at, created_at, updated_at`

const scheduleColumns = `id, member_id, trainer_id, date_time, duration_minutes, branch_id, subscription_id,
	 booking_request_id, notes, status, completed_at, cancelled_at, created_at, updated_at`

type repo struct{}

func Provide() bookingdomain.Repository {
	return &repo{}
}

func (r *repo) InsertBooking(ctx context.Context, db *gorm.DB, b *bookingdomain.BookingRequest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO booking_requests (`+bookingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.MemberID,
		b.TrainerID,
		b.SubscriptionID,
		b.RequestDateTime,
		b.EndDateTime,
		b.DurationMinutes,
		b.Notes,
		b.Status,
		b.RejectionReason,
		b.ConfirmedAt,
		b.CreatedAt,
		b.UpdatedAt,
	).Error
}

func (r *repo) FindBookingByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.BookingRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var b bookingdomain.BookingRequest
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM booking_requests WHERE id = ?`,
		id,
	).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

// CountTrainerOverlaps counts live bookings of the trainer whose window
// intersects [start, end).
func (r *repo) CountTrainerOverlaps(ctx context.Context, db *gorm.DB, trainerID snowflake.ID, start, end time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM booking_requests
		 WHERE trainer_id = ?
		   AND status IN ?
		   AND request_date_time < ?
		   AND end_date_time > ?`,
		trainerID,
		[]bookingdomain.BookingStatus{bookingdomain.BookingStatusPending, bookingdomain.BookingStatusConfirmed},
		end,
		start,
	).Scan(&count).Error
	return count, err
}

func (r *repo) TransitionBooking(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to bookingdomain.BookingStatus, reason *string, now time.Time) (bool, error) {
	var confirmedAt *time.Time
	if to == bookingdomain.BookingStatusConfirmed {
		confirmedAt = &now
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE booking_requests
		 SET status = ?, rejection_reason = COALESCE(?, rejection_reason),
		     confirmed_at = COALESCE(?, confirmed_at), updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		reason,
		confirmedAt,
		now,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListBookingsBefore(ctx context.Context, db *gorm.DB, status bookingdomain.BookingStatus, before time.Time, afterID snowflake.ID, limit int) ([]bookingdomain.BookingRequest, error) {
	var items []bookingdomain.BookingRequest
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM booking_requests
		 WHERE status = ? AND request_date_time < ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		status,
		before,
		afterID,
		limit,
	).Scan(&items).Error
	return items, err
}

func (r *repo) InsertSchedule(ctx context.Context, db *gorm.DB, s *bookingdomain.Schedule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO schedules (`+scheduleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.MemberID,
		s.TrainerID,
		s.DateTime,
		s.DurationMinutes,
		s.BranchID,
		s.SubscriptionID,
		s.BookingRequestID,
		s.Notes,
		s.Status,
		s.CompletedAt,
		s.CancelledAt,
		s.CreatedAt,
		s.UpdatedAt,
	).Error
}

func (r *repo) FindScheduleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Schedule, error) {
	if id == 0 {
		return nil, nil
	}
	var s bookingdomain.Schedule
	err := db.WithContext(ctx).Raw(
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`,
		id,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) FindScheduleAt(ctx context.Context, db *gorm.DB, memberID, trainerID snowflake.ID, at time.Time) (*bookingdomain.Schedule, error) {
	var s bookingdomain.Schedule
	err := db.WithContext(ctx).Raw(
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE member_id = ? AND trainer_id = ? AND date_time = ?
		 LIMIT 1`,
		memberID,
		trainerID,
		at,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) TransitionSchedule(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to bookingdomain.ScheduleStatus, now time.Time) (bool, error) {
	var completedAt, cancelledAt *time.Time
	switch to {
	case bookingdomain.ScheduleStatusCompleted:
		completedAt = &now
	case bookingdomain.ScheduleStatusCancelled:
		cancelledAt = &now
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE schedules
		 SET status = ?, completed_at = COALESCE(?, completed_at),
		     cancelled_at = COALESCE(?, cancelled_at), updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		completedAt,
		cancelledAt,
		now,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListSchedulesBefore(ctx context.Context, db *gorm.DB, status bookingdomain.ScheduleStatus, before time.Time, afterID snowflake.ID, limit int) ([]bookingdomain.Schedule, error) {
	var items []bookingdomain.Schedule
	err := db.WithContext(ctx).Raw(
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE status = ? AND date_time < ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		status,
		before,
		afterID,
		limit,
	).Scan(&items).Error
	return items, err
}
