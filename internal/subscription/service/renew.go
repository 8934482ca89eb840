package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
)

// Renew either extends a live subscription in place or creates its successor
// through the regular creation path. The successor starts when the current
// window ends, or now if that is already past.
func (s *Service) Renew(ctx context.Context, id snowflake.ID, req subscriptiondomain.RenewRequest) (*subscriptiondomain.Subscription, error) {
	current, err := s.load(ctx, pkgdb.Conn(ctx, s.db), id)
	if err != nil {
		return nil, err
	}

	packageID := req.PackageID
	if packageID == 0 {
		packageID = current.PackageID
	}

	if req.Extend && isLive(current.Status) {
		pkg, err := s.catalog.GetPackage(ctx, packageID)
		if err != nil {
			return nil, err
		}
		if !pkg.Active {
			return nil, catalogdomain.ErrPackageInactive
		}
		if pkg.Type != current.Type {
			return nil, subscriptiondomain.ErrRenewTypeMismatch
		}
		return s.Extend(ctx, id, pkg.DurationDays)
	}

	start := s.clock.Now().UTC()
	if current.Status != subscriptiondomain.StatusExpired && current.EndDate.After(start) {
		start = current.EndDate.UTC()
	}
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}

	renewedFrom := current.ID
	return s.Create(ctx, subscriptiondomain.CreateRequest{
		MemberID:      current.MemberID,
		PackageID:     packageID,
		BranchID:      current.BranchID,
		StartDate:     &start,
		RenewedFromID: &renewedFrom,
	})
}
