// Package domain holds the reference data the billing core reads but does not own:
// members, packages and the discount type catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PackageType string

const (
	PackageTypeMembership PackageType = "Membership"
	PackageTypeCombo      PackageType = "Combo"
	PackageTypePT         PackageType = "PT"
)

// HasPTSessions reports whether subscriptions of this type carry a PT session balance.
func (t PackageType) HasPTSessions() bool {
	return t == PackageTypePT || t == PackageTypeCombo
}

func (t PackageType) Valid() bool {
	switch t {
	case PackageTypeMembership, PackageTypeCombo, PackageTypePT:
		return true
	}
	return false
}

type MembershipType string

const (
	MembershipTypeBasic MembershipType = "Basic"
	MembershipTypeVIP   MembershipType = "VIP"
)

type Role string

const (
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

type Member struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	FullName  string       `gorm:"type:text;not null"`
	Email     string       `gorm:"type:text;not null;uniqueIndex"`
	Phone     string       `gorm:"type:text"`
	Role      Role         `gorm:"type:text;not null;default:member"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Member) TableName() string { return "members" }

// Package is a purchasable plan. Category is the duration bucket
// ("1_month", "3_months", ...) that discount durationTypes filter on.
type Package struct {
	ID             snowflake.ID   `gorm:"primaryKey"`
	Name           string         `gorm:"type:text;not null"`
	Type           PackageType    `gorm:"type:text;not null"`
	Category       string         `gorm:"type:text;not null"`
	MembershipType MembershipType `gorm:"type:text;not null;default:Basic"`
	DurationDays   int            `gorm:"not null"`
	Price          int64          `gorm:"not null"`
	PTSessions     int            `gorm:"not null;default:0"`
	BranchID       *snowflake.ID  `gorm:"index"`
	Active         bool           `gorm:"not null;default:true"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Package) TableName() string { return "packages" }

type DiscountType struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null;uniqueIndex"`
	Description string       `gorm:"type:text"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DiscountType) TableName() string { return "discount_types" }
