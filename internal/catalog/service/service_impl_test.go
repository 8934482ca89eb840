package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&catalogdomain.Member{},
		&catalogdomain.Package{},
		&catalogdomain.DiscountType{},
	))
	return db
}

func TestLookups(t *testing.T) {
	db := setupTestDB(t)
	node, _ := snowflake.NewNode(1)
	svc := NewService(Params{DB: db, Log: zap.NewNop()})
	ctx := context.Background()

	member := catalogdomain.Member{ID: node.Generate(), FullName: "Lan Nguyen", Email: "lan@example.com", Role: catalogdomain.RoleMember, Active: true}
	pkg := catalogdomain.Package{ID: node.Generate(), Name: "VIP 12 months", Type: catalogdomain.PackageTypeMembership, Category: "12_months", MembershipType: catalogdomain.MembershipTypeVIP, DurationDays: 365, Price: 18_000_000, Active: true}
	require.NoError(t, db.Create(&member).Error)
	require.NoError(t, db.Create(&pkg).Error)
	require.NoError(t, db.Create(&catalogdomain.DiscountType{ID: node.Generate(), Name: "Seasonal"}).Error)

	gotMember, err := svc.GetMember(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "lan@example.com", gotMember.Email)

	gotPkg, err := svc.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(18_000_000), gotPkg.Price)

	_, err = svc.GetMember(ctx, node.Generate())
	assert.ErrorIs(t, err, catalogdomain.ErrMemberNotFound)
	_, err = svc.GetPackage(ctx, node.Generate())
	assert.ErrorIs(t, err, catalogdomain.ErrPackageNotFound)

	ok, err := svc.DiscountTypeExists(ctx, "Seasonal")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.DiscountTypeExists(ctx, "Loyalty")
	require.NoError(t, err)
	assert.False(t, ok)
}
