package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	catalogservice "github.com/smallbiznis/gymcore/internal/catalog/service"
	"github.com/smallbiznis/gymcore/internal/clock"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	"github.com/smallbiznis/gymcore/internal/discount/repository"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   discountdomain.Service
	pkg   catalogdomain.Package
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&catalogdomain.Package{},
		&catalogdomain.DiscountType{},
		&discountdomain.Discount{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	f := &fixture{db: db, node: node, clock: clock.NewFakeClock(now)}
	f.pkg = catalogdomain.Package{ID: node.Generate(), Name: "VIP 12 months", Type: catalogdomain.PackageTypeMembership, Category: "12_months", MembershipType: catalogdomain.MembershipTypeVIP, DurationDays: 365, Price: 18_000_000, Active: true}
	require.NoError(t, db.Create(&f.pkg).Error)
	require.NoError(t, db.Create(&catalogdomain.DiscountType{ID: node.Generate(), Name: "Seasonal"}).Error)

	log := zap.NewNop()
	f.svc = NewService(Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   f.clock,
		Repo:    repository.Provide(),
		Catalog: catalogservice.NewService(catalogservice.Params{DB: db, Log: log}),
	})
	return f
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) create(t *testing.T, req discountdomain.UpsertRequest) *discountdomain.Discount {
	t.Helper()
	if req.Name == "" {
		req.Name = "Promo"
	}
	if req.Type == "" {
		req.Type = "Seasonal"
	}
	if req.StartDate.IsZero() {
		req.StartDate = now.Add(-24 * time.Hour)
		req.EndDate = now.Add(30 * 24 * time.Hour)
	}
	d, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return d
}

func TestValidateCodeCapsPercentage(t *testing.T) {
	f := newFixture(t)
	f.create(t, discountdomain.UpsertRequest{
		Code:               "SUMMER15",
		DiscountPercentage: ptr(decimal.NewFromInt(15)),
		MaxDiscount:        ptr(int64(2_000_000)),
		BonusDays:          7,
	})

	app, err := f.svc.ValidateCode(context.Background(), discountdomain.ValidateCodeRequest{
		Code:      "summer15",
		PackageID: f.pkg.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(18_000_000), app.OriginalAmount)
	assert.Equal(t, int64(2_000_000), app.DiscountAmount)
	assert.Equal(t, int64(16_000_000), app.FinalAmount)
	assert.Equal(t, 7, app.BonusDays)
	assert.Equal(t, "SUMMER15", app.Detail.Code)
	require.NotNil(t, app.Detail.Percentage)
	assert.True(t, app.Detail.Percentage.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, now, app.Detail.AppliedAt)
}

func TestValidateCodeFixedAmountClamp(t *testing.T) {
	f := newFixture(t)
	f.create(t, discountdomain.UpsertRequest{Code: "FLAT500", DiscountAmount: ptr(int64(500_000))})

	app, err := f.svc.ValidateCode(context.Background(), discountdomain.ValidateCodeRequest{Code: "FLAT500", OriginalAmount: 300_000})
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), app.DiscountAmount)
	assert.Equal(t, int64(0), app.FinalAmount)
}

func TestValidateCodeChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, discountdomain.UpsertRequest{Code: "OFF", Status: discountdomain.StatusInactive, DiscountAmount: ptr(int64(1))})
	f.create(t, discountdomain.UpsertRequest{Code: "LATER", DiscountAmount: ptr(int64(1)), StartDate: now.Add(time.Hour), EndDate: now.Add(48 * time.Hour)})
	f.create(t, discountdomain.UpsertRequest{Code: "GONE", DiscountAmount: ptr(int64(1)), StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-time.Hour)})
	used := f.create(t, discountdomain.UpsertRequest{Code: "ONCE", DiscountAmount: ptr(int64(1)), UsageLimit: ptr(int64(1))})
	require.NoError(t, f.svc.ConsumeUsage(ctx, used.ID))
	f.create(t, discountdomain.UpsertRequest{Code: "PTONLY", DiscountAmount: ptr(int64(1)), PackageTypes: []string{"PT"}})
	f.create(t, discountdomain.UpsertRequest{Code: "MONTHLY", DiscountAmount: ptr(int64(1)), DurationTypes: []string{"1_month"}})
	f.create(t, discountdomain.UpsertRequest{Code: "BIGSPEND", DiscountAmount: ptr(int64(1)), MinPurchaseAmount: 20_000_000})

	cases := []struct {
		code string
		want error
	}{
		{"x", discountdomain.ErrInvalidCode},
		{"NOPE", discountdomain.ErrDiscountNotFound},
		{"OFF", discountdomain.ErrDiscountInactive},
		{"LATER", discountdomain.ErrDiscountNotStarted},
		{"GONE", discountdomain.ErrDiscountExpired},
		{"ONCE", discountdomain.ErrUsageExhausted},
		{"PTONLY", discountdomain.ErrPackageTypeNotEligible},
		{"MONTHLY", discountdomain.ErrDurationTypeNotEligible},
		{"BIGSPEND", discountdomain.ErrBelowMinimumPurchase},
	}
	for _, tc := range cases {
		_, err := f.svc.ValidateCode(ctx, discountdomain.ValidateCodeRequest{Code: tc.code, PackageID: f.pkg.ID})
		assert.ErrorIs(t, err, tc.want, tc.code)
	}

	_, err := f.svc.ValidateCode(ctx, discountdomain.ValidateCodeRequest{Code: "PTONLY", OriginalAmount: -5})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestApplyManualSkipsUsageAndPackageFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.create(t, discountdomain.UpsertRequest{
		DiscountAmount: ptr(int64(100_000)),
		UsageLimit:     ptr(int64(0)),
		PackageTypes:   []string{"PT"},
	})

	app, err := f.svc.ApplyManual(ctx, d.ID, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(900_000), app.FinalAmount)

	f.clock.Set(now.Add(60 * 24 * time.Hour))
	_, err = f.svc.ApplyManual(ctx, d.ID, 1_000_000)
	assert.ErrorIs(t, err, discountdomain.ErrDiscountExpired)

	_, err = f.svc.ApplyManual(ctx, f.node.Generate(), 1_000_000)
	assert.ErrorIs(t, err, discountdomain.ErrDiscountNotFound)
}

func TestConsumeUsageStopsAtLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.create(t, discountdomain.UpsertRequest{Code: "TWICE", DiscountAmount: ptr(int64(1)), UsageLimit: ptr(int64(2))})

	require.NoError(t, f.svc.ConsumeUsage(ctx, d.ID))
	require.NoError(t, f.svc.ConsumeUsage(ctx, d.ID))
	assert.ErrorIs(t, f.svc.ConsumeUsage(ctx, d.ID), discountdomain.ErrUsageExhausted)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UsageCount)
}

func TestDeactivateAndReactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.create(t, discountdomain.UpsertRequest{DiscountAmount: ptr(int64(1))})

	ok, err := f.svc.Deactivate(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, ok, "live discount stays active")

	f.clock.Set(now.Add(31 * 24 * time.Hour))
	ok, err = f.svc.Deactivate(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.svc.Deactivate(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.Reactivate(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, ok, "outside window")

	f.clock.Set(now)
	ok, err = f.svc.Reactivate(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := discountdomain.UpsertRequest{
		Name:           "Promo",
		Type:           "Seasonal",
		DiscountAmount: ptr(int64(1)),
		StartDate:      now,
		EndDate:        now.Add(time.Hour),
	}

	req := base
	req.Type = "Loyalty"
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, discountdomain.ErrUnknownDiscountType)

	req = base
	req.DiscountAmount = nil
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, discountdomain.ErrDiscountValueRequired)

	req = base
	req.DiscountPercentage = ptr(decimal.NewFromInt(150))
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, discountdomain.ErrInvalidPercentage)

	req = base
	req.EndDate = now
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, discountdomain.ErrInvalidWindow)

	req = base
	req.Code = "Summer sale 2025"
	d, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, d.Code)
	assert.Equal(t, "SUMMER_SALE_2025", *d.Code)

	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, discountdomain.ErrDuplicateCode)

	req.Code = "this code is far too long to be valid"
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, discountdomain.ErrInvalidCode)
}

func TestUpdateKeepsUsageCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.create(t, discountdomain.UpsertRequest{Code: "KEEP", DiscountAmount: ptr(int64(1))})
	require.NoError(t, f.svc.ConsumeUsage(ctx, d.ID))

	updated, err := f.svc.Update(ctx, d.ID, discountdomain.UpsertRequest{
		Code:           "KEEP",
		Name:           "Renamed",
		Type:           "Seasonal",
		DiscountAmount: ptr(int64(5)),
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsageCount)
	assert.Equal(t, int64(5), *got.DiscountAmount)

	list, err := f.svc.List(ctx, discountdomain.ListRequest{Status: discountdomain.StatusActive})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
