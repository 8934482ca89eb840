package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive     Status = "Active"
	StatusCheckedOut Status = "CheckedOut"
)

type CheckIn struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	MemberID       snowflake.ID `gorm:"not null;index" json:"member_id"`
	BranchID       snowflake.ID `gorm:"not null" json:"branch_id"`
	SubscriptionID snowflake.ID `gorm:"not null" json:"subscription_id"`
	CheckInTime    time.Time    `gorm:"not null;index" json:"check_in_time"`
	CheckOutTime   *time.Time   `json:"check_out_time,omitempty"`
	Status         Status       `gorm:"type:text;not null;index" json:"status"`
	AutoCheckedOut bool         `gorm:"not null;default:false" json:"auto_checked_out"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (CheckIn) TableName() string { return "check_ins" }
