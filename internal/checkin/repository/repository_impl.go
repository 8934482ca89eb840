package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	checkindomain "github.com/smallbiznis/gymcore/internal/checkin/domain"
	"gorm.io/gorm"
)

const checkInColumns = `id, member_id, branch_id, subscription_id, check_in_time, check_out_time,
	 status, auto_checked_out, created_at, updated_at`

type repo struct{}

func Provide() checkindomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *checkindomain.CheckIn) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO check_ins (`+checkInColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.MemberID,
		c.BranchID,
		c.SubscriptionID,
		c.CheckInTime,
		c.CheckOutTime,
		c.Status,
		c.AutoCheckedOut,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*checkindomain.CheckIn, error) {
	if id == 0 {
		return nil, nil
	}
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindOpenForMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*checkindomain.CheckIn, error) {
	return r.findOne(ctx, db, `member_id = ? AND status = ?`, memberID, checkindomain.StatusActive)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, args ...any) (*checkindomain.CheckIn, error) {
	var c checkindomain.CheckIn
	err := db.WithContext(ctx).Raw(
		`SELECT `+checkInColumns+` FROM check_ins WHERE `+where+` ORDER BY check_in_time DESC LIMIT 1`,
		args...,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) Close(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, auto bool) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE check_ins
		 SET status = ?, check_out_time = ?, auto_checked_out = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		checkindomain.StatusCheckedOut,
		at,
		auto,
		at,
		id,
		checkindomain.StatusActive,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListOpenBefore(ctx context.Context, db *gorm.DB, before time.Time, afterID snowflake.ID, limit int) ([]checkindomain.CheckIn, error) {
	var items []checkindomain.CheckIn
	err := db.WithContext(ctx).Raw(
		`SELECT `+checkInColumns+` FROM check_ins
		 WHERE status = ? AND check_in_time <= ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		checkindomain.StatusActive,
		before,
		afterID,
		limit,
	).Scan(&items).Error
	return items, err
}
