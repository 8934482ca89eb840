package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByInvoiceNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*Payment, error)
	ListBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]Payment, error)
	// FindPendingBySubscription returns the open checkout of a subscription, or nil.
	FindPendingBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) (*Payment, error)

	// TransitionFromPending moves a Pending payment to status. It reports false
	// when the payment was no longer Pending.
	TransitionFromPending(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, transactionID, reason *string, now time.Time) (bool, error)

	InsertGatewayEvent(ctx context.Context, db *gorm.DB, event *GatewayEvent) (bool, error)
}
