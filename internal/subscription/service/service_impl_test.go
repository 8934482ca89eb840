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
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"github.com/smallbiznis/gymcore/internal/subscription/repository"
	"github.com/smallbiznis/gymcore/pkg/apperr"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	svc    subscriptiondomain.Service
	member catalogdomain.Member
	gym    catalogdomain.Package
	pt     catalogdomain.Package
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
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(baseTime)

	f := &fixture{db: db, node: node, clock: fc}
	f.member = catalogdomain.Member{ID: node.Generate(), FullName: "Minh Tran", Email: "minh@example.com", Role: catalogdomain.RoleMember, Active: true}
	f.gym = catalogdomain.Package{ID: node.Generate(), Name: "Basic 1 month", Type: catalogdomain.PackageTypeMembership, Category: "1_month", MembershipType: catalogdomain.MembershipTypeBasic, DurationDays: 30, Price: 500_000, Active: true}
	f.pt = catalogdomain.Package{ID: node.Generate(), Name: "PT 10", Type: catalogdomain.PackageTypePT, Category: "1_month", MembershipType: catalogdomain.MembershipTypeBasic, DurationDays: 30, Price: 3_000_000, PTSessions: 10, Active: true}
	require.NoError(t, db.Create(&f.member).Error)
	require.NoError(t, db.Create(&f.gym).Error)
	require.NoError(t, db.Create(&f.pt).Error)

	log := zap.NewNop()
	f.svc = NewService(ServiceParam{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   fc,
		Repo:    repository.Provide(),
		Catalog: catalogservice.NewService(catalogservice.Params{DB: db, Log: log}),
	})
	return f
}

func (f *fixture) createActive(t *testing.T, pkg catalogdomain.Package) *subscriptiondomain.Subscription {
	t.Helper()
	sub, err := f.svc.Create(context.Background(), subscriptiondomain.CreateRequest{
		MemberID:  f.member.ID,
		PackageID: pkg.ID,
		Status:    subscriptiondomain.StatusActive,
	})
	require.NoError(t, err)
	return sub
}

func days(n int) time.Duration { return time.Duration(n) * subscriptiondomain.Day }

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.pt.ID})
	require.NoError(t, err)

	assert.Equal(t, subscriptiondomain.StatusPendingPayment, sub.Status)
	assert.Equal(t, baseTime, sub.StartDate)
	assert.Equal(t, baseTime.Add(days(30)), sub.EndDate)
	assert.Equal(t, 30, sub.DurationDays)
	assert.Equal(t, 10, sub.PTSessionsRemaining)
	assert.False(t, sub.IsSuspended)

	stored, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.EndDate.Equal(sub.EndDate))
	assert.Equal(t, catalogdomain.PackageTypePT, stored.Type)
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.node.Generate(), PackageID: f.gym.ID})
	assert.ErrorIs(t, err, catalogdomain.ErrMemberNotFound)

	_, err = f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.node.Generate()})
	assert.ErrorIs(t, err, catalogdomain.ErrPackageNotFound)

	_, err = f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.gym.ID, Status: subscriptiondomain.StatusExpired})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidInitialStatus)

	end := baseTime.Add(-time.Hour)
	_, err = f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.gym.ID, EndDate: &end})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateRejectsSecondActiveOfSameType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createActive(t, f.gym)

	_, err := f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.gym.ID})
	require.ErrorIs(t, err, subscriptiondomain.ErrDuplicateActiveSubscription)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	// other types are independent
	_, err = f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.pt.ID})
	assert.NoError(t, err)
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)

	_, err := f.svc.ChangeStatus(ctx, sub.ID, subscriptiondomain.StatusActive)
	require.ErrorIs(t, err, subscriptiondomain.ErrStatusUnchanged)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	_, err = f.svc.ChangeStatus(ctx, sub.ID, subscriptiondomain.StatusSuspended)
	assert.ErrorIs(t, err, subscriptiondomain.ErrSuspensionManaged)

	_, err = f.svc.ChangeStatus(ctx, sub.ID, subscriptiondomain.StatusPendingPayment)
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidTransition)

	expired, err := f.svc.ChangeStatus(ctx, sub.ID, subscriptiondomain.StatusExpired)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusExpired, expired.Status)
	require.NotNil(t, expired.ExpiredAt)

	_, err = f.svc.ChangeStatus(ctx, sub.ID, subscriptiondomain.StatusActive)
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidTransition)

	_, err = f.svc.ChangeStatus(ctx, f.node.Generate(), subscriptiondomain.StatusExpired)
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}

func TestActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now, err := f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.gym.ID})
	require.NoError(t, err)
	later := baseTime.Add(days(5))
	scheduled, err := f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.pt.ID, StartDate: &later})
	require.NoError(t, err)

	active, err := f.svc.Activate(ctx, now.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, active.Status)
	require.NotNil(t, active.ActivatedAt)

	again, err := f.svc.Activate(ctx, now.ID)
	require.NoError(t, err)
	assert.Equal(t, active.Version, again.Version)

	pending, err := f.svc.Activate(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusPendingStart, pending.Status)

	f.clock.Advance(days(5))
	started, err := f.svc.Activate(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, started.Status)
}

func TestSaveDetectsStaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)
	repo := repository.Provide()

	stale, err := repo.FindByID(ctx, f.db, sub.ID)
	require.NoError(t, err)

	_, err = f.svc.Extend(ctx, sub.ID, 3)
	require.NoError(t, err)

	stale.EndDate = stale.EndDate.Add(days(100))
	ok, err := repo.Save(ctx, f.db, stale, subscriptiondomain.StatusActive)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSuspendRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)
	originalEnd := sub.EndDate

	suspended, err := f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{
		Reason:  "travel",
		EndDate: baseTime.Add(days(14)),
	})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusSuspended, suspended.Status)
	assert.True(t, suspended.IsSuspended)
	assert.True(t, suspended.EndDate.Equal(originalEnd.Add(days(14))))

	f.clock.Advance(days(14))
	resumed, err := f.svc.Unsuspend(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, resumed.Status)
	assert.False(t, resumed.IsSuspended)
	assert.Nil(t, resumed.SuspensionEndDate)
	assert.True(t, resumed.EndDate.Equal(originalEnd.Add(days(14))))

	stored, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, stored.SuspensionHistory, 1)
	assert.Equal(t, subscriptiondomain.SuspensionStatusCompleted, stored.SuspensionHistory[0].Status)
	assert.Equal(t, 0, stored.SuspensionHistory[0].DaysRefunded)
}

func TestUnsuspendEarlyRefundsUnusedDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)
	originalEnd := sub.EndDate

	_, err := f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{
		Reason:  "injury",
		EndDate: baseTime.Add(days(10)),
	})
	require.NoError(t, err)

	f.clock.Advance(days(4))
	resumed, err := f.svc.Unsuspend(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, resumed.EndDate.Equal(originalEnd.Add(days(4))), "end date %s", resumed.EndDate)

	stored, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, stored.SuspensionHistory, 1)
	assert.Equal(t, 6, stored.SuspensionHistory[0].DaysRefunded)
}

func TestUnsuspendPartialDayRoundsRefundUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)
	originalEnd := sub.EndDate

	_, err := f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{EndDate: baseTime.Add(days(10))})
	require.NoError(t, err)

	// 5.5 days remain, 6 are refunded
	f.clock.Advance(days(4) + 12*time.Hour)
	resumed, err := f.svc.Unsuspend(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, resumed.EndDate.Equal(originalEnd.Add(days(4))))
}

func TestUnsuspendBeforeWindowStartsNeverShortensOriginalEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)
	originalEnd := sub.EndDate

	start := baseTime.Add(days(3))
	_, err := f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{StartDate: &start, EndDate: start.Add(days(7))})
	require.NoError(t, err)

	resumed, err := f.svc.Unsuspend(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, resumed.EndDate.Equal(originalEnd))
}

func TestSuspendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)

	_, err := f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{EndDate: baseTime.Add(days(61))})
	require.ErrorIs(t, err, subscriptiondomain.ErrSuspensionTooLong)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	past := baseTime.Add(-days(10))
	_, err = f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{StartDate: &past, EndDate: baseTime.Add(-days(1))})
	assert.ErrorIs(t, err, subscriptiondomain.ErrSuspensionEndInPast)

	_, err = f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{EndDate: baseTime})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidSuspensionRange)

	_, err = f.svc.Unsuspend(ctx, sub.ID)
	assert.ErrorIs(t, err, subscriptiondomain.ErrNotSuspended)

	_, err = f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{EndDate: baseTime.Add(days(60))})
	require.NoError(t, err)

	_, err = f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{EndDate: baseTime.Add(days(5))})
	assert.ErrorIs(t, err, subscriptiondomain.ErrNotActive)
}

func TestExpireWhileSuspendedClosesHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)

	_, err := f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{EndDate: baseTime.Add(days(5))})
	require.NoError(t, err)

	expired, err := f.svc.ChangeStatus(ctx, sub.ID, subscriptiondomain.StatusExpired)
	require.NoError(t, err)
	assert.False(t, expired.IsSuspended)

	stored, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, stored.SuspensionHistory, 1)
	assert.Equal(t, subscriptiondomain.SuspensionStatusCompleted, stored.SuspensionHistory[0].Status)
}

func TestAutoUnsuspendSwallowsErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)

	assert.Nil(t, f.svc.AutoUnsuspend(ctx, sub.ID))
	assert.Nil(t, f.svc.AutoUnsuspend(ctx, f.node.Generate()))

	_, err := f.svc.Suspend(ctx, sub.ID, subscriptiondomain.SuspendRequest{EndDate: baseTime.Add(days(2))})
	require.NoError(t, err)
	f.clock.Advance(days(2))
	resumed := f.svc.AutoUnsuspend(ctx, sub.ID)
	require.NotNil(t, resumed)
	assert.Equal(t, subscriptiondomain.StatusActive, resumed.Status)
}

func TestExtend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)

	_, err := f.svc.Extend(ctx, sub.ID, 0)
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidExtension)

	extended, err := f.svc.Extend(ctx, sub.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 37, extended.DurationDays)
	assert.True(t, extended.EndDate.Equal(sub.EndDate.Add(days(7))))

	_, err = f.svc.ChangeStatus(ctx, sub.ID, subscriptiondomain.StatusExpired)
	require.NoError(t, err)
	_, err = f.svc.Extend(ctx, sub.ID, 7)
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionExpired)
}

func TestRenew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.createActive(t, f.gym)

	extended, err := f.svc.Renew(ctx, sub.ID, subscriptiondomain.RenewRequest{Extend: true})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, extended.ID)
	assert.True(t, extended.EndDate.Equal(sub.EndDate.Add(days(30))))

	_, err = f.svc.Renew(ctx, sub.ID, subscriptiondomain.RenewRequest{PackageID: f.pt.ID, Extend: true})
	assert.ErrorIs(t, err, subscriptiondomain.ErrRenewTypeMismatch)

	successor, err := f.svc.Renew(ctx, sub.ID, subscriptiondomain.RenewRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, sub.ID, successor.ID)
	assert.Equal(t, subscriptiondomain.StatusPendingPayment, successor.Status)
	require.NotNil(t, successor.RenewedFromID)
	assert.Equal(t, sub.ID, *successor.RenewedFromID)
	assert.True(t, successor.StartDate.Equal(extended.EndDate))
}

func TestRenewalStartingNowQueuesBehindRunningSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	current := f.createActive(t, f.gym)

	now := f.clock.Now()
	successor, err := f.svc.Renew(ctx, current.ID, subscriptiondomain.RenewRequest{StartDate: &now})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusPendingPayment, successor.Status)

	paid, err := f.svc.Activate(ctx, successor.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusPendingStart, paid.Status)
	assert.True(t, paid.StartDate.Equal(current.EndDate))
	assert.True(t, paid.EndDate.Equal(current.EndDate.Add(days(30))))

	// The expiry sweep has not reached the old subscription yet.
	f.clock.Advance(days(30) + time.Hour)
	activated, err := f.svc.Activate(ctx, successor.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, activated.Status)

	previous, err := f.svc.Get(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusExpired, previous.Status)

	_, err = f.svc.ChangeStatus(ctx, current.ID, subscriptiondomain.StatusExpired)
	assert.ErrorIs(t, err, subscriptiondomain.ErrStatusUnchanged)
}

func TestScheduledRenewalFollowsSuspensionOfPredecessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	current := f.createActive(t, f.gym)

	successor, err := f.svc.Renew(ctx, current.ID, subscriptiondomain.RenewRequest{})
	require.NoError(t, err)
	paid, err := f.svc.Activate(ctx, successor.ID)
	require.NoError(t, err)
	require.Equal(t, subscriptiondomain.StatusPendingStart, paid.Status)
	require.True(t, paid.StartDate.Equal(baseTime.Add(days(30))))

	_, err = f.svc.Suspend(ctx, current.ID, subscriptiondomain.SuspendRequest{EndDate: baseTime.Add(days(10))})
	require.NoError(t, err)

	moved, err := f.svc.Get(ctx, successor.ID)
	require.NoError(t, err)
	assert.True(t, moved.StartDate.Equal(baseTime.Add(days(40))))
	assert.True(t, moved.EndDate.Equal(baseTime.Add(days(70))))

	// Resuming six days early gives those days back to both windows.
	f.clock.Set(baseTime.Add(days(4)))
	_, err = f.svc.Unsuspend(ctx, current.ID)
	require.NoError(t, err)

	moved, err = f.svc.Get(ctx, successor.ID)
	require.NoError(t, err)
	assert.True(t, moved.StartDate.Equal(baseTime.Add(days(34))))
	assert.True(t, moved.EndDate.Equal(baseTime.Add(days(64))))

	f.clock.Set(baseTime.Add(days(31)))
	waiting, err := f.svc.Activate(ctx, successor.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusPendingStart, waiting.Status)

	f.clock.Set(baseTime.Add(days(34)))
	activated, err := f.svc.Activate(ctx, successor.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusActive, activated.Status)
	assert.True(t, activated.EndDate.Equal(baseTime.Add(days(64))))
}

func TestExtendMovesChainedRenewal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	current := f.createActive(t, f.gym)

	successor, err := f.svc.Renew(ctx, current.ID, subscriptiondomain.RenewRequest{})
	require.NoError(t, err)

	_, err = f.svc.Extend(ctx, current.ID, 5)
	require.NoError(t, err)

	moved, err := f.svc.Get(ctx, successor.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.StatusPendingPayment, moved.Status)
	assert.True(t, moved.StartDate.Equal(baseTime.Add(days(35))))
	assert.Equal(t, 30, moved.DurationDays)
}

func TestConsumePTSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gym := f.createActive(t, f.gym)
	assert.ErrorIs(t, f.svc.ConsumePTSession(ctx, gym.ID), subscriptiondomain.ErrNoPTSessionsRemaining)

	pt := f.createActive(t, f.pt)
	require.NoError(t, f.db.Exec(`UPDATE subscriptions SET pt_sessions_remaining = 1 WHERE id = ?`, pt.ID).Error)

	require.NoError(t, f.svc.ConsumePTSession(ctx, pt.ID))
	assert.ErrorIs(t, f.svc.ConsumePTSession(ctx, pt.ID), subscriptiondomain.ErrNoPTSessionsRemaining)

	stored, err := f.svc.Get(ctx, pt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.PTSessionsRemaining)
	assert.Equal(t, 1, stored.PTSessionsUsed)
}

func TestOperationsJoinCallerTransaction(t *testing.T) {
	f := newFixture(t)

	var created snowflake.ID
	err := pkgdb.RunInTx(context.Background(), f.db, func(ctx context.Context, tx *gorm.DB) error {
		sub, err := f.svc.Create(ctx, subscriptiondomain.CreateRequest{MemberID: f.member.ID, PackageID: f.gym.ID})
		if err != nil {
			return err
		}
		created = sub.ID
		return apperr.Conflict("rollback")
	})
	require.Error(t, err)

	_, err = f.svc.Get(context.Background(), created)
	assert.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
}

func TestGetActiveForMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetActiveForMember(ctx, f.member.ID)
	assert.ErrorIs(t, err, subscriptiondomain.ErrNoActiveSubscription)

	pt := f.createActive(t, f.pt)
	got, err := f.svc.GetActiveForMember(ctx, f.member.ID, catalogdomain.PackageTypePT, catalogdomain.PackageTypeCombo)
	require.NoError(t, err)
	assert.Equal(t, pt.ID, got.ID)

	_, err = f.svc.GetActiveForMember(ctx, f.member.ID, catalogdomain.PackageTypeMembership)
	assert.ErrorIs(t, err, subscriptiondomain.ErrNoActiveSubscription)
}
