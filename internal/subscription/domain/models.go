// Package domain contains persistence models for membership subscriptions and
// their suspension history.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
)

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusPendingPayment Status = "PendingPayment"
	StatusPendingStart   Status = "PendingStart"
	StatusActive         Status = "Active"
	StatusSuspended      Status = "Suspended"
	StatusExpired        Status = "Expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPendingStart, StatusActive, StatusSuspended, StatusExpired:
		return true
	}
	return false
}

// Subscription is a member's entitlement window. EndDate is the live source of
// truth once a suspension has moved it; DurationDays is not re-derived.
type Subscription struct {
	ID             snowflake.ID                 `gorm:"primaryKey" json:"id"`
	MemberID       snowflake.ID                 `gorm:"not null;index" json:"member_id"`
	PackageID      snowflake.ID                 `gorm:"not null;index" json:"package_id"`
	BranchID       *snowflake.ID                `gorm:"index" json:"branch_id,omitempty"`
	Type           catalogdomain.PackageType    `gorm:"type:text;not null" json:"type"`
	MembershipType catalogdomain.MembershipType `gorm:"type:text;not null" json:"membership_type"`
	StartDate      time.Time                    `gorm:"not null" json:"start_date"`
	EndDate        time.Time                    `gorm:"not null;index" json:"end_date"`
	DurationDays   int                          `gorm:"not null" json:"duration_days"`

	PTSessionsRemaining int `gorm:"not null;default:0" json:"pt_sessions_remaining"`
	PTSessionsUsed      int `gorm:"not null;default:0" json:"pt_sessions_used"`

	Status Status `gorm:"type:text;not null;index" json:"status"`

	IsSuspended         bool       `gorm:"not null;default:false" json:"is_suspended"`
	SuspensionStartDate *time.Time `json:"suspension_start_date,omitempty"`
	SuspensionEndDate   *time.Time `gorm:"index" json:"suspension_end_date,omitempty"`
	SuspensionReason    *string    `gorm:"type:text" json:"suspension_reason,omitempty"`

	RenewedFromID *snowflake.ID `json:"renewed_from_id,omitempty"`
	ActivatedAt   *time.Time    `json:"activated_at,omitempty"`
	ExpiredAt     *time.Time    `json:"expired_at,omitempty"`

	Version   int64     `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	SuspensionHistory []SuspensionRecord `gorm:"-" json:"suspension_history,omitempty"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// SuspensionStatus marks whether a suspension window is still open.
type SuspensionStatus string

const (
	SuspensionStatusActive    SuspensionStatus = "Active"
	SuspensionStatusCompleted SuspensionStatus = "Completed"
)

// SuspensionRecord is one entry of a subscription's append-only suspension log.
// Only the open record is ever updated, and only to close it.
type SuspensionRecord struct {
	ID             snowflake.ID     `gorm:"primaryKey" json:"id"`
	SubscriptionID snowflake.ID     `gorm:"not null;index" json:"subscription_id"`
	StartDate      time.Time        `gorm:"not null" json:"start_date"`
	EndDate        time.Time        `gorm:"not null" json:"end_date"`
	Reason         string           `gorm:"type:text;not null" json:"reason"`
	Status         SuspensionStatus `gorm:"type:text;not null" json:"status"`
	ResumedAt      *time.Time       `json:"resumed_at,omitempty"`
	DaysRefunded   int              `gorm:"not null;default:0" json:"days_refunded"`
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SuspensionRecord) TableName() string { return "subscription_suspensions" }
