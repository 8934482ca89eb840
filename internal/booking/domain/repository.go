package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertBooking(ctx context.Context, db *gorm.DB, b *BookingRequest) error
	FindBookingByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BookingRequest, error)
	CountTrainerOverlaps(ctx context.Context, db *gorm.DB, trainerID snowflake.ID, start, end time.Time) (int64, error)
	// TransitionBooking moves a booking out of from. It reports false when the
	// row was no longer in from.
	TransitionBooking(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to BookingStatus, reason *string, now time.Time) (bool, error)
	ListBookingsBefore(ctx context.Context, db *gorm.DB, status BookingStatus, before time.Time, afterID snowflake.ID, limit int) ([]BookingRequest, error)

	InsertSchedule(ctx context.Context, db *gorm.DB, s *Schedule) error
	FindScheduleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Schedule, error)
	FindScheduleAt(ctx context.Context, db *gorm.DB, memberID, trainerID snowflake.ID, at time.Time) (*Schedule, error)
	TransitionSchedule(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to ScheduleStatus, now time.Time) (bool, error)
	ListSchedulesBefore(ctx context.Context, db *gorm.DB, status ScheduleStatus, before time.Time, afterID snowflake.ID, limit int) ([]Schedule, error)
}
