package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_]{3,20}$`)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    discountdomain.Repository
	Catalog catalogdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    discountdomain.Repository
	catalog catalogdomain.Service
}

func NewService(p Params) discountdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("discount.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		catalog: p.Catalog,
	}
}

// ValidateCode runs the full eligibility chain for a member-entered code and
// prices it. It never consumes usage.
func (s *Service) ValidateCode(ctx context.Context, req discountdomain.ValidateCodeRequest) (*discountdomain.Application, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !codePattern.MatchString(code) {
		return nil, discountdomain.ErrInvalidCode
	}

	packageType := strings.TrimSpace(req.PackageType)
	packageCategory := strings.TrimSpace(req.PackageCategory)
	originalAmount := req.OriginalAmount
	if req.PackageID != 0 && (packageType == "" || packageCategory == "" || originalAmount == 0) {
		pkg, err := s.catalog.GetPackage(ctx, req.PackageID)
		if err != nil {
			return nil, err
		}
		if packageType == "" {
			packageType = string(pkg.Type)
		}
		if packageCategory == "" {
			packageCategory = pkg.Category
		}
		if originalAmount == 0 {
			originalAmount = pkg.Price
		}
	}
	if originalAmount <= 0 {
		return nil, discountdomain.ErrInvalidAmount
	}

	d, err := s.repo.FindByCode(ctx, pkgdb.Conn(ctx, s.db), code)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, discountdomain.ErrDiscountNotFound
	}

	now := s.clock.Now().UTC()
	if err := checkActiveWindow(d, now); err != nil {
		return nil, err
	}
	if d.UsageExhausted() {
		return nil, discountdomain.ErrUsageExhausted
	}
	if len(d.PackageTypes) > 0 && !lo.Contains([]string(d.PackageTypes), packageType) {
		return nil, discountdomain.ErrPackageTypeNotEligible
	}
	if len(d.DurationTypes) > 0 && !lo.Contains([]string(d.DurationTypes), packageCategory) {
		return nil, discountdomain.ErrDurationTypeNotEligible
	}
	if originalAmount < d.MinPurchaseAmount {
		return nil, discountdomain.ErrBelowMinimumPurchase
	}
	exists, err := s.catalog.DiscountTypeExists(ctx, d.Type)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, discountdomain.ErrDiscountTypeRetired
	}

	app := s.apply(d, originalAmount, now)
	s.log.Debug("discount.validated",
		zap.String("discount_id", d.ID.String()),
		zap.String("member_id", req.MemberID.String()),
		zap.Int64("original_amount", originalAmount),
		zap.Int64("discount_amount", app.DiscountAmount),
	)
	return app, nil
}

// ApplyManual is the staff override path: only status and validity window are
// checked.
func (s *Service) ApplyManual(ctx context.Context, discountID snowflake.ID, originalAmount int64) (*discountdomain.Application, error) {
	if originalAmount <= 0 {
		return nil, discountdomain.ErrInvalidAmount
	}
	d, err := s.load(ctx, pkgdb.Conn(ctx, s.db), discountID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if err := checkActiveWindow(d, now); err != nil {
		return nil, err
	}

	app := s.apply(d, originalAmount, now)
	s.log.Info("discount.applied_manually",
		zap.String("discount_id", d.ID.String()),
		zap.Int64("discount_amount", app.DiscountAmount),
	)
	return app, nil
}

// ConsumeUsage records one use. The increment is a single conditional update
// so concurrent checkouts cannot run past the limit.
func (s *Service) ConsumeUsage(ctx context.Context, discountID snowflake.ID) error {
	ok, err := s.repo.IncrementUsage(ctx, pkgdb.Conn(ctx, s.db), discountID, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return discountdomain.ErrUsageExhausted
	}
	return nil
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) (bool, error) {
	ok, err := s.repo.Deactivate(ctx, pkgdb.Conn(ctx, s.db), id, s.clock.Now().UTC())
	if err != nil {
		return false, err
	}
	if ok {
		s.log.Info("discount.deactivated", zap.String("discount_id", id.String()))
	}
	return ok, nil
}

func (s *Service) Reactivate(ctx context.Context, id snowflake.ID) (bool, error) {
	ok, err := s.repo.Reactivate(ctx, pkgdb.Conn(ctx, s.db), id, s.clock.Now().UTC())
	if err != nil {
		return false, err
	}
	if ok {
		s.log.Info("discount.reactivated", zap.String("discount_id", id.String()))
	}
	return ok, nil
}

func (s *Service) apply(d *discountdomain.Discount, originalAmount int64, now time.Time) *discountdomain.Application {
	discountAmount, finalAmount := discountdomain.Compute(d, originalAmount)
	detail := discountdomain.Detail{
		DiscountID:     d.ID,
		Type:           d.Type,
		DiscountAmount: discountAmount,
		Description:    lo.Ternary(d.Description != "", d.Description, d.Name),
		AppliedAt:      now,
	}
	if d.Code != nil {
		detail.Code = *d.Code
	}
	if d.DiscountPercentage != nil && d.DiscountPercentage.IsPositive() {
		pct := *d.DiscountPercentage
		detail.Percentage = &pct
	}
	return &discountdomain.Application{
		Discount:       d,
		OriginalAmount: originalAmount,
		DiscountAmount: discountAmount,
		FinalAmount:    finalAmount,
		BonusDays:      d.BonusDays,
		Detail:         detail,
	}
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*discountdomain.Discount, error) {
	d, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, discountdomain.ErrDiscountNotFound
	}
	return d, nil
}

func checkActiveWindow(d *discountdomain.Discount, now time.Time) error {
	if d.Status != discountdomain.StatusActive {
		return discountdomain.ErrDiscountInactive
	}
	if now.Before(d.StartDate) {
		return discountdomain.ErrDiscountNotStarted
	}
	if now.After(d.EndDate) {
		return discountdomain.ErrDiscountExpired
	}
	return nil
}
