package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"gorm.io/gorm"
)

const subscriptionColumns = `id, member_id, package_id, branch_id, type, membership_type, start_date, end_date,
	 duration_days, pt_sessions_remaining, pt_sessions_used, status, is_suspended,
	 suspension_start_date, suspension_end_date, suspension_reason, renewed_from_id,
	 activated_at, expired_at, version, created_at, updated_at`

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, member_id, package_id, branch_id, type, membership_type, start_date, end_date,
			duration_days, pt_sessions_remaining, pt_sessions_used, status, is_suspended,
			suspension_start_date, suspension_end_date, suspension_reason, renewed_from_id,
			activated_at, expired_at, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.MemberID,
		sub.PackageID,
		sub.BranchID,
		sub.Type,
		sub.MembershipType,
		sub.StartDate,
		sub.EndDate,
		sub.DurationDays,
		sub.PTSessionsRemaining,
		sub.PTSessionsUsed,
		sub.Status,
		sub.IsSuspended,
		sub.SuspensionStartDate,
		sub.SuspensionEndDate,
		sub.SuspensionReason,
		sub.RenewedFromID,
		sub.ActivatedAt,
		sub.ExpiredAt,
		sub.Version,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`,
		id,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var subs []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE member_id = ?
		 ORDER BY start_date DESC, id DESC`,
		memberID,
	).Scan(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repo) FindByMemberTypeStatus(ctx context.Context, db *gorm.DB, memberID snowflake.ID, types []catalogdomain.PackageType, status subscriptiondomain.Status) ([]subscriptiondomain.Subscription, error) {
	var subs []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE member_id = ? AND type IN ? AND status = ?
		 ORDER BY end_date DESC, id DESC`,
		memberID,
		types,
		status,
	).Scan(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repo) ListPendingSuccessors(ctx context.Context, db *gorm.DB, predecessorID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var subs []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE renewed_from_id = ? AND status IN ?
		 ORDER BY start_date ASC, id ASC`,
		predecessorID,
		[]subscriptiondomain.Status{subscriptiondomain.StatusPendingPayment, subscriptiondomain.StatusPendingStart},
	).Scan(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription, expectedStatus subscriptiondomain.Status) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET
			status = ?, start_date = ?, end_date = ?, duration_days = ?,
			is_suspended = ?, suspension_start_date = ?, suspension_end_date = ?, suspension_reason = ?,
			activated_at = ?, expired_at = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND version = ?`,
		sub.Status,
		sub.StartDate,
		sub.EndDate,
		sub.DurationDays,
		sub.IsSuspended,
		sub.SuspensionStartDate,
		sub.SuspensionEndDate,
		sub.SuspensionReason,
		sub.ActivatedAt,
		sub.ExpiredAt,
		sub.UpdatedAt,
		sub.ID,
		expectedStatus,
		sub.Version,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	sub.Version++
	return true, nil
}

func (r *repo) DecrementPTSession(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET
			pt_sessions_remaining = pt_sessions_remaining - 1,
			pt_sessions_used = pt_sessions_used + 1,
			version = version + 1,
			updated_at = ?
		 WHERE id = ? AND pt_sessions_remaining > 0`,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertSuspension(ctx context.Context, db *gorm.DB, record *subscriptiondomain.SuspensionRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscription_suspensions (
			id, subscription_id, start_date, end_date, reason, status, resumed_at, days_refunded, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.SubscriptionID,
		record.StartDate,
		record.EndDate,
		record.Reason,
		record.Status,
		record.ResumedAt,
		record.DaysRefunded,
		record.CreatedAt,
	).Error
}

func (r *repo) CloseOpenSuspension(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, resumedAt time.Time, daysRefunded int) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE subscription_suspensions SET status = ?, resumed_at = ?, days_refunded = ?
		 WHERE subscription_id = ? AND status = ?`,
		subscriptiondomain.SuspensionStatusCompleted,
		resumedAt,
		daysRefunded,
		subscriptionID,
		subscriptiondomain.SuspensionStatusActive,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListSuspensions(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]subscriptiondomain.SuspensionRecord, error) {
	var records []subscriptiondomain.SuspensionRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, subscription_id, start_date, end_date, reason, status, resumed_at, days_refunded, created_at
		 FROM subscription_suspensions
		 WHERE subscription_id = ?
		 ORDER BY start_date ASC, id ASC`,
		subscriptionID,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
