package reconciler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"github.com/smallbiznis/gymcore/pkg/db"
)

// Candidate queries only select ids. The owning service applies the
// transition with its own status-guarded update, so a row that moved between
// selection and update is skipped, never overwritten.

func (r *Reconciler) selectIDs(ctx context.Context, query string, args ...any) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.Conn(ctx, r.db).Raw(query, args...).Scan(&ids).Error
	return ids, err
}

func (r *Reconciler) subscriptionsToExpire(ctx context.Context, now time.Time, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
	return r.selectIDs(ctx,
		`SELECT id FROM subscriptions
		 WHERE status = ? AND end_date <= ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		subscriptiondomain.StatusActive, now, afterID, limit,
	)
}

func (r *Reconciler) subscriptionsToActivate(ctx context.Context, now time.Time, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
	return r.selectIDs(ctx,
		`SELECT id FROM subscriptions
		 WHERE status = ? AND start_date <= ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		subscriptiondomain.StatusPendingStart, now, afterID, limit,
	)
}

func (r *Reconciler) subscriptionsToUnsuspend(ctx context.Context, now time.Time, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
	return r.selectIDs(ctx,
		`SELECT id FROM subscriptions
		 WHERE status = ? AND suspension_end_date IS NOT NULL AND suspension_end_date <= ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		subscriptiondomain.StatusSuspended, now, afterID, limit,
	)
}

func (r *Reconciler) discountsToDeactivate(ctx context.Context, now time.Time, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
	return r.selectIDs(ctx,
		`SELECT id FROM discounts
		 WHERE status = ?
		   AND (end_date < ? OR (usage_limit IS NOT NULL AND usage_count >= usage_limit))
		   AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		discountdomain.StatusActive, now, afterID, limit,
	)
}

func (r *Reconciler) discountsToReactivate(ctx context.Context, now time.Time, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
	return r.selectIDs(ctx,
		`SELECT id FROM discounts
		 WHERE status = ? AND start_date <= ? AND end_date >= ?
		   AND (usage_limit IS NULL OR usage_count < usage_limit)
		   AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		discountdomain.StatusInactive, now, now, afterID, limit,
	)
}
