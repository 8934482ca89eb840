package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gymcore/pkg/apperr"
)

type Service interface {
	ValidateCode(ctx context.Context, req ValidateCodeRequest) (*Application, error)
	ApplyManual(ctx context.Context, discountID snowflake.ID, originalAmount int64) (*Application, error)
	ConsumeUsage(ctx context.Context, discountID snowflake.ID) error

	Create(ctx context.Context, req UpsertRequest) (*Discount, error)
	Update(ctx context.Context, id snowflake.ID, req UpsertRequest) (*Discount, error)
	Get(ctx context.Context, id snowflake.ID) (*Discount, error)
	List(ctx context.Context, req ListRequest) ([]Discount, error)

	Deactivate(ctx context.Context, id snowflake.ID) (bool, error)
	Reactivate(ctx context.Context, id snowflake.ID) (bool, error)
}

type ValidateCodeRequest struct {
	Code            string
	MemberID        snowflake.ID
	PackageID       snowflake.ID
	OriginalAmount  int64
	PackageType     string
	PackageCategory string
}

// Application is the priced result of applying a discount.
type Application struct {
	Discount       *Discount `json:"discount"`
	OriginalAmount int64     `json:"original_amount"`
	DiscountAmount int64     `json:"discount_amount"`
	FinalAmount    int64     `json:"final_amount"`
	BonusDays      int       `json:"bonus_days"`
	Detail         Detail    `json:"detail"`
}

type UpsertRequest struct {
	Code               string
	Name               string
	Description        string
	Type               string
	DiscountPercentage *decimal.Decimal
	DiscountAmount     *int64
	MaxDiscount        *int64
	MinPurchaseAmount  int64
	BonusDays          int
	UsageLimit         *int64
	PackageTypes       []string
	DurationTypes      []string
	StartDate          time.Time
	EndDate            time.Time
	Status             Status
}

type ListRequest struct {
	Status Status
	Limit  int
}

var (
	ErrDiscountNotFound        = apperr.NotFound("discount_not_found")
	ErrInvalidCode             = apperr.Validation("invalid_discount_code")
	ErrInvalidAmount           = apperr.Validation("invalid_amount")
	ErrInvalidPercentage       = apperr.Validation("invalid_discount_percentage")
	ErrDiscountValueRequired   = apperr.Validation("discount_value_required")
	ErrInvalidWindow           = apperr.Validation("invalid_discount_window")
	ErrInvalidStatus           = apperr.Validation("invalid_discount_status")
	ErrNameRequired            = apperr.Validation("discount_name_required")
	ErrUnknownDiscountType     = apperr.Validation("unknown_discount_type")
	ErrDuplicateCode           = apperr.Conflict("duplicate_discount_code")
	ErrDiscountInactive        = apperr.DomainRuleViolation("discount_inactive")
	ErrDiscountNotStarted      = apperr.DomainRuleViolation("discount_not_started")
	ErrDiscountExpired         = apperr.DomainRuleViolation("discount_expired")
	ErrUsageExhausted          = apperr.DomainRuleViolation("discount_usage_exhausted")
	ErrPackageTypeNotEligible  = apperr.DomainRuleViolation("discount_package_type_not_eligible")
	ErrDurationTypeNotEligible = apperr.DomainRuleViolation("discount_duration_type_not_eligible")
	ErrBelowMinimumPurchase    = apperr.DomainRuleViolation("discount_below_minimum_purchase")
	ErrDiscountTypeRetired     = apperr.DomainRuleViolation("discount_type_retired")
)
