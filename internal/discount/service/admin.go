package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultListLimit = 100

var hundred = decimal.NewFromInt(100)

func (s *Service) Create(ctx context.Context, req discountdomain.UpsertRequest) (*discountdomain.Discount, error) {
	now := s.clock.Now().UTC()
	d := &discountdomain.Discount{
		ID:        s.genID.Generate(),
		CreatedAt: now,
	}
	if err := s.fill(ctx, d, req); err != nil {
		return nil, err
	}
	d.UpdatedAt = now

	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		if err := s.ensureCodeFree(ctx, tx, d.Code, 0); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, d); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return discountdomain.ErrDuplicateCode
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("discount.created",
		zap.String("discount_id", d.ID.String()),
		zap.String("type", d.Type),
		zap.Stringp("code", d.Code),
	)
	return d, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req discountdomain.UpsertRequest) (*discountdomain.Discount, error) {
	var out *discountdomain.Discount
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		d, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.fill(ctx, d, req); err != nil {
			return err
		}
		if err := s.ensureCodeFree(ctx, tx, d.Code, d.ID); err != nil {
			return err
		}
		d.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, tx, d); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return discountdomain.ErrDuplicateCode
			}
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("discount.updated", zap.String("discount_id", id.String()))
	return out, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*discountdomain.Discount, error) {
	return s.load(ctx, pkgdb.Conn(ctx, s.db), id)
}

func (s *Service) List(ctx context.Context, req discountdomain.ListRequest) ([]discountdomain.Discount, error) {
	if req.Status != "" && req.Status != discountdomain.StatusActive && req.Status != discountdomain.StatusInactive {
		return nil, discountdomain.ErrInvalidStatus
	}
	limit := req.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.repo.List(ctx, pkgdb.Conn(ctx, s.db), req.Status, limit)
}

// fill validates req and copies it onto d.
func (s *Service) fill(ctx context.Context, d *discountdomain.Discount, req discountdomain.UpsertRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return discountdomain.ErrNameRequired
	}

	var code *string
	if raw := strings.TrimSpace(req.Code); raw != "" {
		normalized := NormalizeCode(raw)
		if !codePattern.MatchString(normalized) {
			return discountdomain.ErrInvalidCode
		}
		code = &normalized
	}

	typeName := strings.TrimSpace(req.Type)
	exists, err := s.catalog.DiscountTypeExists(ctx, typeName)
	if err != nil {
		return err
	}
	if !exists {
		return discountdomain.ErrUnknownDiscountType
	}

	hasPercentage := req.DiscountPercentage != nil && req.DiscountPercentage.IsPositive()
	hasAmount := req.DiscountAmount != nil && *req.DiscountAmount > 0
	if !hasPercentage && !hasAmount {
		return discountdomain.ErrDiscountValueRequired
	}
	if req.DiscountPercentage != nil && (req.DiscountPercentage.IsNegative() || req.DiscountPercentage.GreaterThan(hundred)) {
		return discountdomain.ErrInvalidPercentage
	}
	for _, v := range []*int64{req.DiscountAmount, req.MaxDiscount, req.UsageLimit} {
		if v != nil && *v < 0 {
			return discountdomain.ErrInvalidAmount
		}
	}
	if req.MinPurchaseAmount < 0 || req.BonusDays < 0 {
		return discountdomain.ErrInvalidAmount
	}
	if !req.EndDate.After(req.StartDate) {
		return discountdomain.ErrInvalidWindow
	}

	status := req.Status
	if status == "" {
		status = discountdomain.StatusActive
	}
	if status != discountdomain.StatusActive && status != discountdomain.StatusInactive {
		return discountdomain.ErrInvalidStatus
	}

	d.Code = code
	d.Name = name
	d.Description = strings.TrimSpace(req.Description)
	d.Type = typeName
	d.DiscountPercentage = req.DiscountPercentage
	d.DiscountAmount = req.DiscountAmount
	d.MaxDiscount = req.MaxDiscount
	d.MinPurchaseAmount = req.MinPurchaseAmount
	d.BonusDays = req.BonusDays
	d.UsageLimit = req.UsageLimit
	d.PackageTypes = datatypes.JSONSlice[string](cleanList(req.PackageTypes))
	d.DurationTypes = datatypes.JSONSlice[string](cleanList(req.DurationTypes))
	d.StartDate = req.StartDate.UTC()
	d.EndDate = req.EndDate.UTC()
	d.Status = status
	return nil
}

func (s *Service) ensureCodeFree(ctx context.Context, db *gorm.DB, code *string, self snowflake.ID) error {
	if code == nil {
		return nil
	}
	existing, err := s.repo.FindByCode(ctx, db, *code)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return discountdomain.ErrDuplicateCode
	}
	return nil
}

// NormalizeCode turns an admin-entered label such as "Summer sale 2025" into
// the canonical code form SUMMER_SALE_2025.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(slug.Make(raw), "-", "_"))
}

func cleanList(values []string) []string {
	out := lo.Uniq(lo.FilterMap(values, func(v string, _ int) (string, bool) {
		v = strings.TrimSpace(v)
		return v, v != ""
	}))
	if out == nil {
		out = []string{}
	}
	return out
}
