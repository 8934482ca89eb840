package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const paymentColumns = `id, subscription_id, member_id, original_amount, amount, discount_details, payment_method,
	 status, invoice_number, transaction_id, failure_reason, paid_at, created_at, updated_at`

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *paymentdomain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.SubscriptionID,
		p.MemberID,
		p.OriginalAmount,
		p.Amount,
		p.DiscountDetails,
		p.PaymentMethod,
		p.Status,
		p.InvoiceNumber,
		p.TransactionID,
		p.FailureReason,
		p.PaidAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	var p paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByInvoiceNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*paymentdomain.Payment, error) {
	var p paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE invoice_number = ?`,
		invoiceNumber,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]paymentdomain.Payment, error) {
	var items []paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE subscription_id = ?
		 ORDER BY created_at DESC, id DESC`,
		subscriptionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindPendingBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) (*paymentdomain.Payment, error) {
	var p paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE subscription_id = ? AND status = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`,
		subscriptionID,
		paymentdomain.StatusPending,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) TransitionFromPending(ctx context.Context, db *gorm.DB, id snowflake.ID, status paymentdomain.Status, transactionID, reason *string, now time.Time) (bool, error) {
	var paidAt *time.Time
	if status == paymentdomain.StatusCompleted {
		paidAt = &now
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE payments SET
			status = ?,
			transaction_id = COALESCE(?, transaction_id),
			failure_reason = ?,
			paid_at = ?,
			updated_at = ?
		 WHERE id = ? AND status = ?`,
		status,
		transactionID,
		reason,
		paidAt,
		now,
		id,
		paymentdomain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// InsertGatewayEvent reports false when the same (order, transaction, result)
// triple was already stored.
func (r *repo) InsertGatewayEvent(ctx context.Context, db *gorm.DB, event *paymentdomain.GatewayEvent) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "transaction_id"}, {Name: "result_code"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
