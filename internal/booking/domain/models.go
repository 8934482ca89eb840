package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusRejected  BookingStatus = "Rejected"
	BookingStatusExpired   BookingStatus = "Expired"
)

// BookingRequest is a member's request for a PT session with a trainer.
// EndDateTime is stored so overlap checks stay plain comparisons.
type BookingRequest struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	MemberID        snowflake.ID  `gorm:"not null;index" json:"member_id"`
	TrainerID       snowflake.ID  `gorm:"not null;index:idx_booking_trainer_window,priority:1" json:"trainer_id"`
	SubscriptionID  snowflake.ID  `gorm:"not null" json:"subscription_id"`
	RequestDateTime time.Time     `gorm:"not null;index:idx_booking_trainer_window,priority:2" json:"request_date_time"`
	EndDateTime     time.Time     `gorm:"not null" json:"end_date_time"`
	DurationMinutes int           `gorm:"not null" json:"duration_minutes"`
	Notes           string        `gorm:"type:text" json:"notes,omitempty"`
	Status          BookingStatus `gorm:"type:text;not null;index" json:"status"`
	RejectionReason *string       `gorm:"type:text" json:"rejection_reason,omitempty"`
	ConfirmedAt     *time.Time    `json:"confirmed_at,omitempty"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`
}

func (BookingRequest) TableName() string { return "booking_requests" }

type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "Pending"
	ScheduleStatusConfirmed ScheduleStatus = "Confirmed"
	ScheduleStatusCompleted ScheduleStatus = "Completed"
	ScheduleStatusCancelled ScheduleStatus = "Cancelled"
	ScheduleStatusNoShow    ScheduleStatus = "NoShow"
)

// Schedule is a PT session on the calendar. Schedules converted from a
// booking start Confirmed; staff-entered ones start Pending.
type Schedule struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	MemberID         snowflake.ID   `gorm:"not null;uniqueIndex:ux_schedule_slot,priority:1" json:"member_id"`
	TrainerID        snowflake.ID   `gorm:"not null;uniqueIndex:ux_schedule_slot,priority:2" json:"trainer_id"`
	DateTime         time.Time      `gorm:"not null;uniqueIndex:ux_schedule_slot,priority:3" json:"date_time"`
	DurationMinutes  int            `gorm:"not null" json:"duration_minutes"`
	BranchID         *snowflake.ID  `json:"branch_id,omitempty"`
	SubscriptionID   snowflake.ID   `gorm:"not null" json:"subscription_id"`
	BookingRequestID *snowflake.ID  `json:"booking_request_id,omitempty"`
	Notes            string         `gorm:"type:text" json:"notes,omitempty"`
	Status           ScheduleStatus `gorm:"type:text;not null;index" json:"status"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	CancelledAt      *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (Schedule) TableName() string { return "schedules" }
