package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *CheckIn) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CheckIn, error)
	FindOpenForMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*CheckIn, error)
	Close(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, auto bool) (bool, error)
	ListOpenBefore(ctx context.Context, db *gorm.DB, before time.Time, afterID snowflake.ID, limit int) ([]CheckIn, error)
}
