package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/pkg/apperr"
)

type Service interface {
	CreateBookingRequest(ctx context.Context, req CreateBookingRequest) (*BookingRequest, error)
	GetBookingRequest(ctx context.Context, id snowflake.ID) (*BookingRequest, error)
	Confirm(ctx context.Context, id snowflake.ID) (*ConfirmResult, error)
	Reject(ctx context.Context, id snowflake.ID, reason string) (*BookingRequest, error)

	CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*Schedule, error)
	GetSchedule(ctx context.Context, id snowflake.ID) (*Schedule, error)

	// Time-driven transitions used by the reconciler. Each returns false
	// without error when the record already left the source status.
	ExpireBookingRequest(ctx context.Context, id snowflake.ID) (bool, error)
	CancelSchedule(ctx context.Context, id snowflake.ID) (bool, error)
	CompleteSchedule(ctx context.Context, id snowflake.ID) (bool, error)
	ListStaleBookingRequests(ctx context.Context, before time.Time, afterID snowflake.ID, limit int) ([]BookingRequest, error)
	ListSchedulesBefore(ctx context.Context, status ScheduleStatus, before time.Time, afterID snowflake.ID, limit int) ([]Schedule, error)
}

type CreateBookingRequest struct {
	MemberID        snowflake.ID
	TrainerID       snowflake.ID
	SubscriptionID  snowflake.ID
	RequestDateTime time.Time
	DurationMinutes int
	Notes           string
}

type CreateScheduleRequest struct {
	MemberID        snowflake.ID
	TrainerID       snowflake.ID
	SubscriptionID  snowflake.ID
	DateTime        time.Time
	DurationMinutes int
	Notes           string
}

type ConfirmResult struct {
	BookingRequest *BookingRequest `json:"booking_request"`
	Schedule       *Schedule       `json:"schedule"`
}

const DefaultSessionMinutes = 60

var (
	ErrBookingNotFound         = apperr.NotFound("booking_request_not_found")
	ErrScheduleNotFound        = apperr.NotFound("schedule_not_found")
	ErrInvalidDuration         = apperr.Validation("invalid_session_duration")
	ErrInvalidDateTime         = apperr.Validation("invalid_session_date_time")
	ErrReasonRequired          = apperr.Validation("rejection_reason_required")
	ErrAlreadyConfirmed        = apperr.Conflict("booking_request_already_confirmed")
	ErrDuplicateSchedule       = apperr.Conflict("schedule_already_exists")
	ErrTrainerSlotTaken        = apperr.Conflict("trainer_slot_taken")
	ErrBookingNotPending       = apperr.DomainRuleViolation("booking_request_not_pending")
	ErrSubscriptionNotOwned    = apperr.DomainRuleViolation("subscription_not_owned_by_member")
	ErrSubscriptionNotBookable = apperr.DomainRuleViolation("subscription_not_bookable")
)
