package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	"gorm.io/gorm"
)

const discountColumns = `id, code, name, description, type, discount_percentage, discount_amount, max_discount,
	 min_purchase_amount, bonus_days, usage_limit, usage_count, package_types, duration_types,
	 start_date, end_date, status, created_at, updated_at`

type repo struct{}

func Provide() discountdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, d *discountdomain.Discount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO discounts (`+discountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.Code,
		d.Name,
		d.Description,
		d.Type,
		d.DiscountPercentage,
		d.DiscountAmount,
		d.MaxDiscount,
		d.MinPurchaseAmount,
		d.BonusDays,
		d.UsageLimit,
		d.UsageCount,
		d.PackageTypes,
		d.DurationTypes,
		d.StartDate,
		d.EndDate,
		d.Status,
		d.CreatedAt,
		d.UpdatedAt,
	).Error
}

// Update rewrites the administrative fields. usage_count is left alone.
func (r *repo) Update(ctx context.Context, db *gorm.DB, d *discountdomain.Discount) error {
	return db.WithContext(ctx).Exec(
		`UPDATE discounts SET
			code = ?, name = ?, description = ?, type = ?, discount_percentage = ?, discount_amount = ?,
			max_discount = ?, min_purchase_amount = ?, bonus_days = ?, usage_limit = ?, package_types = ?,
			duration_types = ?, start_date = ?, end_date = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		d.Code,
		d.Name,
		d.Description,
		d.Type,
		d.DiscountPercentage,
		d.DiscountAmount,
		d.MaxDiscount,
		d.MinPurchaseAmount,
		d.BonusDays,
		d.UsageLimit,
		d.PackageTypes,
		d.DurationTypes,
		d.StartDate,
		d.EndDate,
		d.Status,
		d.UpdatedAt,
		d.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*discountdomain.Discount, error) {
	var d discountdomain.Discount
	err := db.WithContext(ctx).Raw(
		`SELECT `+discountColumns+` FROM discounts WHERE id = ?`,
		id,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*discountdomain.Discount, error) {
	var d discountdomain.Discount
	err := db.WithContext(ctx).Raw(
		`SELECT `+discountColumns+` FROM discounts WHERE code = ?`,
		code,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status discountdomain.Status, limit int) ([]discountdomain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var items []discountdomain.Discount
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE discounts SET usage_count = usage_count + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND (usage_limit IS NULL OR usage_count < usage_limit)`,
		now,
		id,
		discountdomain.StatusActive,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE discounts SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?
		   AND (end_date < ? OR (usage_limit IS NOT NULL AND usage_count >= usage_limit))`,
		discountdomain.StatusInactive,
		now,
		id,
		discountdomain.StatusActive,
		now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Reactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE discounts SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?
		   AND start_date <= ? AND end_date >= ?
		   AND (usage_limit IS NULL OR usage_count < usage_limit)`,
		discountdomain.StatusActive,
		now,
		id,
		discountdomain.StatusInactive,
		now,
		now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
