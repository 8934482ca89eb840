package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]Subscription, error)
	FindByMemberTypeStatus(ctx context.Context, db *gorm.DB, memberID snowflake.ID, types []catalogdomain.PackageType, status Status) ([]Subscription, error)
	// ListPendingSuccessors returns renewals of predecessorID that are not yet active.
	ListPendingSuccessors(ctx context.Context, db *gorm.DB, predecessorID snowflake.ID) ([]Subscription, error)

	// Save writes the mutable lifecycle columns when the stored row still has
	// expectedStatus and sub.Version. It bumps Version on success.
	Save(ctx context.Context, db *gorm.DB, sub *Subscription, expectedStatus Status) (bool, error)
	DecrementPTSession(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	InsertSuspension(ctx context.Context, db *gorm.DB, record *SuspensionRecord) error
	CloseOpenSuspension(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, resumedAt time.Time, daysRefunded int) (bool, error)
	ListSuspensions(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]SuspensionRecord, error)
}
