package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	catalogservice "github.com/smallbiznis/gymcore/internal/catalog/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&catalogdomain.Member{}))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
		Catalog:  catalogservice.NewService(catalogservice.Params{DB: db, Log: zap.NewNop()}),
	})
	return svc, db, node
}

func TestAuthorizeByRole(t *testing.T) {
	svc, db, node := setup(t)
	ctx := context.Background()

	member := catalogdomain.Member{ID: node.Generate(), FullName: "Minh Tran", Email: "minh@example.com", Role: catalogdomain.RoleMember, Active: true}
	trainer := catalogdomain.Member{ID: node.Generate(), FullName: "Hoa Le", Email: "hoa@example.com", Role: catalogdomain.RoleTrainer, Active: true}
	admin := catalogdomain.Member{ID: node.Generate(), FullName: "Quang Do", Email: "quang@example.com", Role: catalogdomain.RoleAdmin, Active: true}
	require.NoError(t, db.Create(&member).Error)
	require.NoError(t, db.Create(&trainer).Error)
	require.NoError(t, db.Create(&admin).Error)

	memberActor := "member:" + member.ID.String()
	trainerActor := "member:" + trainer.ID.String()
	adminActor := "member:" + admin.ID.String()

	assert.NoError(t, svc.Authorize(ctx, memberActor, ObjectBooking, ActionBookingRequest))
	assert.ErrorIs(t, svc.Authorize(ctx, memberActor, ObjectBooking, ActionBookingConfirm), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, trainerActor, ObjectBooking, ActionBookingConfirm))
	assert.ErrorIs(t, svc.Authorize(ctx, trainerActor, ObjectDiscount, ActionDiscountManage), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, adminActor, ObjectDiscount, ActionDiscountManage))
	assert.NoError(t, svc.Authorize(ctx, adminActor, ObjectReconciler, ActionReconcilerRun))
	assert.NoError(t, svc.Authorize(ctx, SystemActor, ObjectPayment, ActionPaymentComplete))
}

func TestAuthorizeFollowsRoleChange(t *testing.T) {
	svc, db, node := setup(t)
	ctx := context.Background()

	member := catalogdomain.Member{ID: node.Generate(), FullName: "Lan Pham", Email: "lan@example.com", Role: catalogdomain.RoleAdmin, Active: true}
	require.NoError(t, db.Create(&member).Error)
	actor := "member:" + member.ID.String()

	require.NoError(t, svc.Authorize(ctx, actor, ObjectDiscount, ActionDiscountManage))

	require.NoError(t, db.Model(&catalogdomain.Member{}).Where("id = ?", member.ID).Update("role", catalogdomain.RoleMember).Error)
	assert.ErrorIs(t, svc.Authorize(ctx, actor, ObjectDiscount, ActionDiscountManage), ErrForbidden)
}

func TestAuthorizeRejectsUnknownActors(t *testing.T) {
	svc, _, node := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", ObjectPayment, ActionPaymentView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:1", ObjectPayment, ActionPaymentView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "member:"+node.Generate().String(), ObjectPayment, ActionPaymentView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, SystemActor, "", ActionPaymentView), ErrInvalidObject)
}
