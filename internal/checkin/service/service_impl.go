package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	checkindomain "github.com/smallbiznis/gymcore/internal/checkin/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            checkindomain.Repository
	SubscriptionSvc subscriptiondomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID           *snowflake.Node
	clock           clock.Clock
	repo            checkindomain.Repository
	subscriptionSvc subscriptiondomain.Service
}

func NewService(p Params) checkindomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("checkin.service"),

		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		subscriptionSvc: p.SubscriptionSvc,
	}
}

// CheckIn admits a member holding a live Membership or Combo subscription.
// Branch-bound subscriptions only admit at their own branch.
func (s *Service) CheckIn(ctx context.Context, memberID, branchID snowflake.ID) (*checkindomain.CheckIn, error) {
	var checkIn *checkindomain.CheckIn
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		sub, err := s.subscriptionSvc.GetActiveForMember(ctx, memberID,
			catalogdomain.PackageTypeMembership, catalogdomain.PackageTypeCombo)
		if err != nil {
			return err
		}
		if sub.BranchID != nil && *sub.BranchID != branchID {
			return checkindomain.ErrWrongBranch
		}

		open, err := s.repo.FindOpenForMember(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if open != nil {
			return checkindomain.ErrAlreadyCheckedIn
		}

		now := s.clock.Now().UTC()
		checkIn = &checkindomain.CheckIn{
			ID:             s.genID.Generate(),
			MemberID:       memberID,
			BranchID:       branchID,
			SubscriptionID: sub.ID,
			CheckInTime:    now,
			Status:         checkindomain.StatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return s.repo.Insert(ctx, tx, checkIn)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkin.created",
		zap.String("check_in_id", checkIn.ID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("branch_id", branchID.String()),
	)
	return checkIn, nil
}

func (s *Service) CheckOut(ctx context.Context, id snowflake.ID) (*checkindomain.CheckIn, error) {
	db := pkgdb.Conn(ctx, s.db)
	checkIn, err := s.load(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if checkIn.Status != checkindomain.StatusActive {
		return nil, checkindomain.ErrAlreadyCheckedOut
	}
	now := s.clock.Now().UTC()
	ok, err := s.repo.Close(ctx, db, id, now, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, checkindomain.ErrAlreadyCheckedOut
	}
	checkIn.Status = checkindomain.StatusCheckedOut
	checkIn.CheckOutTime = &now
	checkIn.UpdatedAt = now
	return checkIn, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*checkindomain.CheckIn, error) {
	return s.load(ctx, pkgdb.Conn(ctx, s.db), id)
}

func (s *Service) AutoCheckOut(ctx context.Context, id snowflake.ID) (bool, error) {
	ok, err := s.repo.Close(ctx, pkgdb.Conn(ctx, s.db), id, s.clock.Now().UTC(), true)
	if err != nil {
		return false, err
	}
	if ok {
		s.log.Info("checkin.auto_checked_out", zap.String("check_in_id", id.String()))
	}
	return ok, nil
}

func (s *Service) ListOpenBefore(ctx context.Context, before time.Time, afterID snowflake.ID, limit int) ([]checkindomain.CheckIn, error) {
	return s.repo.ListOpenBefore(ctx, pkgdb.Conn(ctx, s.db), before.UTC(), afterID, limit)
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*checkindomain.CheckIn, error) {
	checkIn, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if checkIn == nil {
		return nil, checkindomain.ErrCheckInNotFound
	}
	return checkIn, nil
}
