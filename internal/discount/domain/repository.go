package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, discount *Discount) error
	Update(ctx context.Context, db *gorm.DB, discount *Discount) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Discount, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Discount, error)
	List(ctx context.Context, db *gorm.DB, status Status, limit int) ([]Discount, error)

	// IncrementUsage bumps usage_count only while the discount is Active and
	// below its limit.
	IncrementUsage(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	Reactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
}
