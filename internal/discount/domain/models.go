// Package domain defines discounts, the pricing rule that applies them and the
// frozen snapshot recorded on payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Discount is a pricing rule. When DiscountPercentage is positive it drives the
// computation and DiscountAmount is ignored.
type Discount struct {
	ID                 snowflake.ID                `gorm:"primaryKey" json:"id"`
	Code               *string                     `gorm:"type:text;uniqueIndex" json:"code,omitempty"`
	Name               string                      `gorm:"type:text;not null" json:"name"`
	Description        string                      `gorm:"type:text" json:"description,omitempty"`
	Type               string                      `gorm:"type:text;not null" json:"type"`
	DiscountPercentage *decimal.Decimal            `gorm:"type:numeric(5,2)" json:"discount_percentage,omitempty"`
	DiscountAmount     *int64                      `json:"discount_amount,omitempty"`
	MaxDiscount        *int64                      `json:"max_discount,omitempty"`
	MinPurchaseAmount  int64                       `gorm:"not null;default:0" json:"min_purchase_amount"`
	BonusDays          int                         `gorm:"not null;default:0" json:"bonus_days"`
	UsageLimit         *int64                      `json:"usage_limit,omitempty"`
	UsageCount         int64                       `gorm:"not null;default:0" json:"usage_count"`
	PackageTypes       datatypes.JSONSlice[string] `gorm:"type:json" json:"package_types"`
	DurationTypes      datatypes.JSONSlice[string] `gorm:"type:json" json:"duration_types"`
	StartDate          time.Time                   `gorm:"not null" json:"start_date"`
	EndDate            time.Time                   `gorm:"not null;index" json:"end_date"`
	Status             Status                      `gorm:"type:text;not null;index" json:"status"`
	CreatedAt          time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Discount) TableName() string { return "discounts" }

// UsageExhausted reports whether a limited discount has been used up.
func (d *Discount) UsageExhausted() bool {
	return d.UsageLimit != nil && d.UsageCount >= *d.UsageLimit
}

// InWindow reports whether t lies within [StartDate, EndDate].
func (d *Discount) InWindow(t time.Time) bool {
	return !t.Before(d.StartDate) && !t.After(d.EndDate)
}

// Detail is the snapshot of an applied discount stored on a payment. It is
// never re-derived from the live discount.
type Detail struct {
	DiscountID     snowflake.ID     `json:"discount_id"`
	Code           string           `json:"code,omitempty"`
	Type           string           `json:"type"`
	Percentage     *decimal.Decimal `json:"percentage,omitempty"`
	DiscountAmount int64            `json:"discount_amount"`
	Description    string           `json:"description,omitempty"`
	AppliedAt      time.Time        `json:"applied_at"`
}
