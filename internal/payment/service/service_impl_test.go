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
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
	"github.com/smallbiznis/gymcore/internal/payment/repository"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/gymcore/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/gymcore/internal/subscription/service"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2025, 4, 10, 7, 30, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	subs   subscriptiondomain.Service
	svc    paymentdomain.Service
	member catalogdomain.Member
	pkg    catalogdomain.Package
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&catalogdomain.Member{},
		&catalogdomain.Package{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.SuspensionRecord{},
		&paymentdomain.Payment{},
		&paymentdomain.GatewayEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	f := &fixture{db: db, node: node, clock: clock.NewFakeClock(now)}
	f.member = catalogdomain.Member{ID: node.Generate(), FullName: "Hoa Le", Email: "hoa@example.com", Role: catalogdomain.RoleMember, Active: true}
	f.pkg = catalogdomain.Package{ID: node.Generate(), Name: "VIP 12 months", Type: catalogdomain.PackageTypeMembership, Category: "12_months", MembershipType: catalogdomain.MembershipTypeVIP, DurationDays: 365, Price: 18_000_000, Active: true}
	require.NoError(t, db.Create(&f.member).Error)
	require.NoError(t, db.Create(&f.pkg).Error)

	log := zap.NewNop()
	f.subs = subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   f.clock,
		Repo:    subscriptionrepo.Provide(),
		Catalog: catalogservice.NewService(catalogservice.Params{DB: db, Log: log}),
	})
	f.svc = NewService(Params{
		DB:              db,
		Log:             log,
		GenID:           node,
		Clock:           f.clock,
		Repo:            repository.Provide(),
		SubscriptionSvc: f.subs,
	})
	return f
}

func (f *fixture) pendingPayment(t *testing.T) (*subscriptiondomain.Subscription, *paymentdomain.Payment) {
	t.Helper()
	ctx := context.Background()
	sub, err := f.subs.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.pkg.ID})
	require.NoError(t, err)
	p, err := f.svc.Create(ctx, paymentdomain.CreateRequest{
		SubscriptionID: sub.ID,
		OriginalAmount: 18_000_000,
		DiscountDetails: []discountdomain.Detail{{
			DiscountID:     f.node.Generate(),
			Type:           "Seasonal",
			DiscountAmount: 2_000_000,
			AppliedAt:      now,
		}},
		PaymentMethod: paymentdomain.MethodGateway,
	})
	require.NoError(t, err)
	return sub, p
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	_, p := f.pendingPayment(t)

	assert.Equal(t, paymentdomain.StatusPending, p.Status)
	assert.Equal(t, int64(16_000_000), p.Amount)
	assert.Equal(t, f.member.ID, p.MemberID)
	assert.Regexp(t, `^INV-[0-9A-Z]{26}$`, p.InvoiceNumber)

	stored, err := f.svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, stored.DiscountDetails, 1)
	assert.Equal(t, int64(2_000_000), stored.DiscountDetails[0].DiscountAmount)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, p := f.pendingPayment(t)

	_, err := f.svc.Create(ctx, paymentdomain.CreateRequest{SubscriptionID: sub.ID, OriginalAmount: -1})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	wrong := int64(10)
	_, err = f.svc.Create(ctx, paymentdomain.CreateRequest{SubscriptionID: sub.ID, OriginalAmount: 100, Amount: &wrong})
	assert.ErrorIs(t, err, paymentdomain.ErrAmountMismatch)

	_, err = f.svc.Cancel(ctx, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, paymentdomain.CreateRequest{SubscriptionID: sub.ID, OriginalAmount: 100, InvoiceNumber: p.InvoiceNumber})
	assert.ErrorIs(t, err, paymentdomain.ErrDuplicateInvoice)

	_, err = f.svc.Create(ctx, paymentdomain.CreateRequest{SubscriptionID: f.node.Generate(), OriginalAmount: 100})
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)

	// discounts larger than the price floor the amount at zero
	free, err := f.svc.Create(ctx, paymentdomain.CreateRequest{
		SubscriptionID:  sub.ID,
		OriginalAmount:  100,
		DiscountDetails: []discountdomain.Detail{{DiscountAmount: 80}, {DiscountAmount: 80}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), free.Amount)
}

func TestCreateAllowsOneOpenCheckoutPerSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, first := f.pendingPayment(t)

	_, err := f.svc.Create(ctx, paymentdomain.CreateRequest{SubscriptionID: sub.ID, OriginalAmount: 18_000_000})
	require.ErrorIs(t, err, paymentdomain.ErrPendingPaymentExists)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	_, err = f.svc.Fail(ctx, first.ID, "card declined")
	require.NoError(t, err)

	retry, err := f.svc.Create(ctx, paymentdomain.CreateRequest{SubscriptionID: sub.ID, OriginalAmount: 18_000_000})
	require.NoError(t, err)

	res, err := f.svc.Complete(ctx, retry.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, res.Subscription.Status)

	payments, err := f.svc.ListBySubscription(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	statuses := []paymentdomain.Status{payments[0].Status, payments[1].Status}
	assert.ElementsMatch(t, []paymentdomain.Status{paymentdomain.StatusCompleted, paymentdomain.StatusFailed}, statuses)

	// the subscription is no longer payable once activated
	_, err = f.svc.Create(ctx, paymentdomain.CreateRequest{SubscriptionID: sub.ID, OriginalAmount: 18_000_000})
	assert.ErrorIs(t, err, paymentdomain.ErrSubscriptionNotPayable)
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, p := f.pendingPayment(t)

	res, err := f.svc.Complete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCompleted, res.Payment.Status)
	require.NotNil(t, res.Payment.PaidAt)
	require.NotNil(t, res.Subscription)
	assert.Equal(t, subscriptiondomain.StatusActive, res.Subscription.Status)
	activatedVersion := res.Subscription.Version

	_, err = f.svc.Complete(ctx, p.ID)
	require.ErrorIs(t, err, paymentdomain.ErrAlreadyCompleted)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	stored, err := f.subs.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, stored.Status)
	assert.Equal(t, activatedVersion, stored.Version)

	_, err = f.svc.Cancel(ctx, p.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyCompleted)
}

func TestCompleteRollsBackWhenActivationFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, p := f.pendingPayment(t)

	// another Active membership appears before the payment settles
	_, err := f.subs.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.pkg.ID, Status: subscriptiondomain.StatusActive})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, p.ID)
	require.ErrorIs(t, err, subscriptiondomain.ErrDuplicateActiveSubscription)

	stored, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, stored.Status)
}

func TestCompleteViaGatewaySuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, p := f.pendingPayment(t)

	res, err := f.svc.CompleteViaGateway(ctx, paymentdomain.GatewayResult{
		OrderID:       p.InvoiceNumber,
		TransactionID: "tx-1001",
		ResultCode:    "0",
		SuccessCode:   "0",
		Amount:        16_000_000,
		Payload:       []byte(`{"orderId":"x"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusCompleted, res.Payment.Status)
	require.NotNil(t, res.Payment.TransactionID)
	assert.Equal(t, "tx-1001", *res.Payment.TransactionID)
	assert.Equal(t, subscriptiondomain.StatusActive, res.Subscription.Status)

	// replayed callback
	_, err = f.svc.CompleteViaGateway(ctx, paymentdomain.GatewayResult{
		OrderID:       p.InvoiceNumber,
		TransactionID: "tx-1001",
		ResultCode:    "0",
		SuccessCode:   "0",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyCompleted)

	// a different callback for the same order
	_, err = f.svc.CompleteViaGateway(ctx, paymentdomain.GatewayResult{
		OrderID:       p.InvoiceNumber,
		TransactionID: "tx-1002",
		ResultCode:    "0",
		SuccessCode:   "0",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyCompleted)
}

func TestCompleteViaGatewayFailureDoesNotActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub, p := f.pendingPayment(t)

	res, err := f.svc.CompleteViaGateway(ctx, paymentdomain.GatewayResult{
		OrderID:       p.InvoiceNumber,
		TransactionID: "tx-9",
		ResultCode:    "1006",
		SuccessCode:   "0",
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, res.Payment.Status)
	assert.Nil(t, res.Subscription)
	require.NotNil(t, res.Payment.FailureReason)

	stored, err := f.subs.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusPendingPayment, stored.Status)

	_, err = f.svc.CompleteViaGateway(ctx, paymentdomain.GatewayResult{
		OrderID:       p.InvoiceNumber,
		TransactionID: "tx-9",
		ResultCode:    "1006",
		SuccessCode:   "0",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrDuplicateCallback)
}

func TestCompleteViaGatewayRejectsAmountMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, p := f.pendingPayment(t)

	_, err := f.svc.CompleteViaGateway(ctx, paymentdomain.GatewayResult{
		OrderID:     p.InvoiceNumber,
		ResultCode:  "0",
		SuccessCode: "0",
		Amount:      1,
	})
	require.ErrorIs(t, err, paymentdomain.ErrAmountMismatch)

	stored, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, stored.Status)

	_, err = f.svc.CompleteViaGateway(ctx, paymentdomain.GatewayResult{OrderID: "INV-UNKNOWN", ResultCode: "0", SuccessCode: "0"})
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentNotFound)
}

func TestFailAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, p := f.pendingPayment(t)

	failed, err := f.svc.Fail(ctx, p.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, failed.Status)
	assert.Equal(t, "card declined", *failed.FailureReason)

	_, err = f.svc.Cancel(ctx, p.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrNotPending)

	_, err = f.svc.Complete(ctx, p.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrNotPending)

	_, err = f.svc.Cancel(ctx, f.node.Generate())
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentNotFound)
}
