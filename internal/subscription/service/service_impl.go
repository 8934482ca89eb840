package service

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	repo    subscriptiondomain.Repository
	catalog catalogdomain.Service
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	Catalog catalogdomain.Service
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		catalog: p.Catalog,
	}
}

var initialStatuses = map[subscriptiondomain.Status]bool{
	subscriptiondomain.StatusPendingPayment: true,
	subscriptiondomain.StatusPendingStart:   true,
	subscriptiondomain.StatusActive:         true,
}

func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateRequest) (*subscriptiondomain.Subscription, error) {
	if _, err := s.catalog.GetMember(ctx, req.MemberID); err != nil {
		return nil, err
	}
	pkg, err := s.catalog.GetPackage(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Active {
		return nil, catalogdomain.ErrPackageInactive
	}

	status := req.Status
	if status == "" {
		status = subscriptiondomain.StatusPendingPayment
	}
	if !initialStatuses[status] {
		return nil, subscriptiondomain.ErrInvalidInitialStatus
	}

	now := s.clock.Now().UTC()
	start := now
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}

	durationDays := pkg.DurationDays
	var end time.Time
	if req.EndDate != nil {
		end = req.EndDate.UTC()
		if !end.After(start) {
			return nil, subscriptiondomain.ErrInvalidPeriod
		}
		durationDays = daysCeil(end.Sub(start))
	} else {
		if durationDays <= 0 {
			return nil, subscriptiondomain.ErrInvalidPeriod
		}
		end = start.Add(time.Duration(durationDays) * subscriptiondomain.Day)
	}

	branchID := req.BranchID
	if branchID == nil {
		branchID = pkg.BranchID
	}

	sub := &subscriptiondomain.Subscription{
		ID:             s.genID.Generate(),
		MemberID:       req.MemberID,
		PackageID:      pkg.ID,
		BranchID:       branchID,
		Type:           pkg.Type,
		MembershipType: pkg.MembershipType,
		StartDate:      start,
		EndDate:        end,
		DurationDays:   durationDays,
		Status:         status,
		RenewedFromID:  req.RenewedFromID,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if pkg.Type.HasPTSessions() {
		sub.PTSessionsRemaining = pkg.PTSessions
	}
	if status == subscriptiondomain.StatusActive {
		sub.ActivatedAt = &now
	}
	if err := subscriptiondomain.CheckSuspensionInvariant(sub); err != nil {
		return nil, err
	}

	err = pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		if err := s.ensureNoActiveOfType(ctx, tx, sub.MemberID, sub.Type, req.RenewedFromID); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, sub); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return subscriptiondomain.ErrDuplicateActiveSubscription
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription.created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("member_id", sub.MemberID.String()),
		zap.String("type", string(sub.Type)),
		zap.String("status", string(sub.Status)),
		zap.Time("start_date", sub.StartDate),
		zap.Time("end_date", sub.EndDate),
	)
	return sub, nil
}

// ensureNoActiveOfType enforces one Active subscription per type per member. A
// renewal successor may coexist with the subscription it renews.
func (s *Service) ensureNoActiveOfType(ctx context.Context, db *gorm.DB, memberID snowflake.ID, typ catalogdomain.PackageType, renewedFrom *snowflake.ID) error {
	actives, err := s.repo.FindByMemberTypeStatus(ctx, db, memberID, []catalogdomain.PackageType{typ}, subscriptiondomain.StatusActive)
	if err != nil {
		return err
	}
	for _, active := range actives {
		if renewedFrom != nil && active.ID == *renewedFrom {
			continue
		}
		return subscriptiondomain.ErrDuplicateActiveSubscription
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	db := pkgdb.Conn(ctx, s.db)
	sub, err := s.load(ctx, db, id)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListSuspensions(ctx, db, id)
	if err != nil {
		return nil, err
	}
	sub.SuspensionHistory = history
	return sub, nil
}

func (s *Service) ListByMember(ctx context.Context, memberID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	if _, err := s.catalog.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return s.repo.ListByMember(ctx, pkgdb.Conn(ctx, s.db), memberID)
}

func (s *Service) GetActiveForMember(ctx context.Context, memberID snowflake.ID, types ...catalogdomain.PackageType) (*subscriptiondomain.Subscription, error) {
	if len(types) == 0 {
		types = []catalogdomain.PackageType{
			catalogdomain.PackageTypeMembership,
			catalogdomain.PackageTypeCombo,
			catalogdomain.PackageTypePT,
		}
	}
	subs, err := s.repo.FindByMemberTypeStatus(ctx, pkgdb.Conn(ctx, s.db), memberID, types, subscriptiondomain.StatusActive)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	for i := range subs {
		if subs[i].EndDate.After(now) {
			return &subs[i], nil
		}
	}
	return nil, subscriptiondomain.ErrNoActiveSubscription
}

// ChangeStatus is a strict state change. Suspension transitions are rejected
// here and must go through Suspend and Unsuspend.
func (s *Service) ChangeStatus(ctx context.Context, id snowflake.ID, status subscriptiondomain.Status) (*subscriptiondomain.Subscription, error) {
	if !status.Valid() {
		return nil, subscriptiondomain.ErrInvalidStatus
	}

	var out *subscriptiondomain.Subscription
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		sub, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		from := sub.Status
		if from == status {
			return subscriptiondomain.ErrStatusUnchanged
		}
		if !subscriptiondomain.CanTransition(from, status) {
			return subscriptiondomain.ErrInvalidTransition
		}
		if subscriptiondomain.IsSuspensionManaged(from, status) {
			return subscriptiondomain.ErrSuspensionManaged
		}

		now := s.clock.Now().UTC()
		switch status {
		case subscriptiondomain.StatusActive:
			if err := s.ensureNoActiveOfType(ctx, tx, sub.MemberID, sub.Type, nil); err != nil {
				return err
			}
			sub.ActivatedAt = &now
		case subscriptiondomain.StatusExpired:
			sub.ExpiredAt = &now
			if from == subscriptiondomain.StatusSuspended {
				if _, err := s.repo.CloseOpenSuspension(ctx, tx, sub.ID, now, 0); err != nil {
					return err
				}
				clearSuspension(sub)
			}
		}
		sub.Status = status
		if err := s.save(ctx, tx, sub, from, now); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription.status_changed",
		zap.String("subscription_id", id.String()),
		zap.String("status", string(status)),
	)
	return out, nil
}

// Activate is the payment cascade target. A PendingPayment subscription whose
// start lies in the future moves to PendingStart instead of Active. A renewal
// never overlaps the subscription it renews: it queues behind a running one
// and replaces one whose window has closed. Already activated subscriptions
// are returned unchanged.
func (s *Service) Activate(ctx context.Context, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var out *subscriptiondomain.Subscription
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		sub, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now().UTC()

		switch sub.Status {
		case subscriptiondomain.StatusActive:
			out = sub
			return nil
		case subscriptiondomain.StatusPendingPayment, subscriptiondomain.StatusPendingStart:
		default:
			return subscriptiondomain.ErrInvalidTransition
		}

		from := sub.Status
		oldEnd := sub.EndDate
		moved, err := s.settlePredecessor(ctx, tx, sub, now)
		if err != nil {
			return err
		}

		target := subscriptiondomain.StatusActive
		if sub.StartDate.After(now) {
			target = subscriptiondomain.StatusPendingStart
		}
		if target == from && !moved {
			out = sub
			return nil
		}
		if target == subscriptiondomain.StatusActive {
			if err := s.ensureNoActiveOfType(ctx, tx, sub.MemberID, sub.Type, nil); err != nil {
				return err
			}
			sub.ActivatedAt = &now
		}
		sub.Status = target
		if err := s.save(ctx, tx, sub, from, now); err != nil {
			return err
		}
		if moved {
			if err := s.alignSuccessors(ctx, tx, sub, oldEnd, now); err != nil {
				return err
			}
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription.activated",
		zap.String("subscription_id", id.String()),
		zap.String("status", string(out.Status)),
	)
	return out, nil
}

func (s *Service) ConsumePTSession(ctx context.Context, id snowflake.ID) error {
	db := pkgdb.Conn(ctx, s.db)
	sub, err := s.load(ctx, db, id)
	if err != nil {
		return err
	}
	if !sub.Type.HasPTSessions() {
		return subscriptiondomain.ErrNoPTSessionsRemaining
	}
	ok, err := s.repo.DecrementPTSession(ctx, db, id, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return subscriptiondomain.ErrNoPTSessionsRemaining
	}
	s.log.Info("subscription.pt_session_consumed", zap.String("subscription_id", id.String()))
	return nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, subscriptiondomain.ErrSubscriptionNotFound
	}
	return sub, nil
}

// save persists sub when the stored row is still in status from at the version
// that was read.
func (s *Service) save(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription, from subscriptiondomain.Status, now time.Time) error {
	if err := subscriptiondomain.CheckSuspensionInvariant(sub); err != nil {
		return err
	}
	sub.UpdatedAt = now
	ok, err := s.repo.Save(ctx, db, sub, from)
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return subscriptiondomain.ErrDuplicateActiveSubscription
		}
		return err
	}
	if !ok {
		return subscriptiondomain.ErrConcurrentUpdate
	}
	return nil
}

func clearSuspension(sub *subscriptiondomain.Subscription) {
	sub.IsSuspended = false
	sub.SuspensionStartDate = nil
	sub.SuspensionEndDate = nil
	sub.SuspensionReason = nil
}

func daysCeil(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(subscriptiondomain.Day)))
}

func isLive(status subscriptiondomain.Status) bool {
	switch status {
	case subscriptiondomain.StatusActive, subscriptiondomain.StatusSuspended, subscriptiondomain.StatusPendingStart:
		return true
	}
	return false
}
