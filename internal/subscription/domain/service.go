package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"github.com/smallbiznis/gymcore/pkg/apperr"
)

// Service is the lifecycle manager for subscriptions. Every status or date
// mutation of a subscription goes through it.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Subscription, error)
	Get(ctx context.Context, id snowflake.ID) (*Subscription, error)
	ListByMember(ctx context.Context, memberID snowflake.ID) ([]Subscription, error)
	ChangeStatus(ctx context.Context, id snowflake.ID, status Status) (*Subscription, error)
	Activate(ctx context.Context, id snowflake.ID) (*Subscription, error)
	Renew(ctx context.Context, id snowflake.ID, req RenewRequest) (*Subscription, error)
	GetActiveForMember(ctx context.Context, memberID snowflake.ID, types ...catalogdomain.PackageType) (*Subscription, error)
	ConsumePTSession(ctx context.Context, id snowflake.ID) error

	Suspend(ctx context.Context, id snowflake.ID, req SuspendRequest) (*Subscription, error)
	Unsuspend(ctx context.Context, id snowflake.ID) (*Subscription, error)
	AutoUnsuspend(ctx context.Context, id snowflake.ID) *Subscription
	Extend(ctx context.Context, id snowflake.ID, days int) (*Subscription, error)
}

type CreateRequest struct {
	MemberID      snowflake.ID
	PackageID     snowflake.ID
	BranchID      *snowflake.ID
	StartDate     *time.Time
	EndDate       *time.Time
	Status        Status
	RenewedFromID *snowflake.ID
}

// RenewRequest renews onto PackageID. With Extend set and the current
// subscription still live, the current window is extended by the package
// duration instead of creating a new subscription.
type RenewRequest struct {
	PackageID snowflake.ID
	StartDate *time.Time
	Extend    bool
}

type SuspendRequest struct {
	Reason    string
	StartDate *time.Time
	EndDate   time.Time
}

// MaxSuspensionSpan is the longest single suspension window.
const MaxSuspensionSpan = 60 * 24 * time.Hour

const Day = 24 * time.Hour

var (
	ErrSubscriptionNotFound        = apperr.NotFound("subscription_not_found")
	ErrInvalidStatus               = apperr.Validation("invalid_status")
	ErrInvalidInitialStatus        = apperr.Validation("invalid_initial_status")
	ErrInvalidPeriod               = apperr.Validation("invalid_period")
	ErrInvalidSuspensionRange      = apperr.Validation("invalid_suspension_range")
	ErrSuspensionEndInPast         = apperr.Validation("suspension_end_in_past")
	ErrSuspensionTooLong           = apperr.Validation("suspension_too_long")
	ErrInvalidExtension            = apperr.Validation("invalid_extension_days")
	ErrDuplicateActiveSubscription = apperr.Conflict("duplicate_active_subscription")
	ErrStatusUnchanged             = apperr.Conflict("status_unchanged")
	ErrConcurrentUpdate            = apperr.Conflict("subscription_concurrently_modified")
	ErrInvalidTransition           = apperr.DomainRuleViolation("invalid_transition")
	ErrSuspensionManaged           = apperr.DomainRuleViolation("use_suspend_or_unsuspend")
	ErrNotActive                   = apperr.DomainRuleViolation("subscription_not_active")
	ErrNotSuspended                = apperr.DomainRuleViolation("subscription_not_suspended")
	ErrSubscriptionExpired         = apperr.DomainRuleViolation("subscription_expired")
	ErrNoActiveSubscription        = apperr.DomainRuleViolation("no_active_subscription")
	ErrNoPTSessionsRemaining       = apperr.DomainRuleViolation("no_pt_sessions_remaining")
	ErrRenewTypeMismatch           = apperr.DomainRuleViolation("renew_type_mismatch")
	ErrSuspensionStateDrift        = apperr.DomainRuleViolation("suspension_state_drift")
)
