// Package checkout orchestrates a purchase: the subscription is created
// PendingPayment, the discount is priced and consumed and the Pending payment
// is recorded, all inside one transaction.
package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gymcore/internal/catalog/domain"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("checkout",
	fx.Provide(NewService),
)

type Request struct {
	MemberID         snowflake.ID
	PackageID        snowflake.ID
	BranchID         *snowflake.ID
	StartDate        *time.Time
	DiscountCode     string
	ManualDiscountID *snowflake.ID
	PaymentMethod    paymentdomain.Method
}

type Result struct {
	Subscription *subscriptiondomain.Subscription `json:"subscription"`
	Payment      *paymentdomain.Payment           `json:"payment"`
	Discount     *discountdomain.Application      `json:"discount,omitempty"`
}

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Catalog         catalogdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	DiscountSvc     discountdomain.Service
	PaymentSvc      paymentdomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	catalog       catalogdomain.Service
	subscriptions subscriptiondomain.Service
	discounts     discountdomain.Service
	payments      paymentdomain.Service
}

func NewService(p Params) *Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("checkout.service"),
		catalog:       p.Catalog,
		subscriptions: p.SubscriptionSvc,
		discounts:     p.DiscountSvc,
		payments:      p.PaymentSvc,
	}
}

// Checkout either completes every step or leaves no trace. A code-based
// discount consumes one use; a staff-applied manual discount does not.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	pkg, err := s.catalog.GetPackage(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.DiscountCode)

	var result Result
	err = pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		sub, err := s.subscriptions.Create(ctx, subscriptiondomain.CreateRequest{
			MemberID:  req.MemberID,
			PackageID: pkg.ID,
			BranchID:  req.BranchID,
			StartDate: req.StartDate,
		})
		if err != nil {
			return err
		}

		var app *discountdomain.Application
		switch {
		case code != "":
			app, err = s.discounts.ValidateCode(ctx, discountdomain.ValidateCodeRequest{
				Code:            code,
				MemberID:        req.MemberID,
				PackageID:       pkg.ID,
				OriginalAmount:  pkg.Price,
				PackageType:     string(pkg.Type),
				PackageCategory: pkg.Category,
			})
			if err != nil {
				return err
			}
			if err := s.discounts.ConsumeUsage(ctx, app.Discount.ID); err != nil {
				return err
			}
		case req.ManualDiscountID != nil:
			app, err = s.discounts.ApplyManual(ctx, *req.ManualDiscountID, pkg.Price)
			if err != nil {
				return err
			}
		}

		var details []discountdomain.Detail
		if app != nil {
			details = append(details, app.Detail)
		}
		payment, err := s.payments.Create(ctx, paymentdomain.CreateRequest{
			SubscriptionID:  sub.ID,
			OriginalAmount:  pkg.Price,
			DiscountDetails: details,
			PaymentMethod:   req.PaymentMethod,
		})
		if err != nil {
			return err
		}

		if app != nil && app.BonusDays > 0 {
			sub, err = s.subscriptions.Extend(ctx, sub.ID, app.BonusDays)
			if err != nil {
				return err
			}
		}

		result = Result{Subscription: sub, Payment: payment, Discount: app}
		return nil
	})
	if err != nil {
		s.log.Info("checkout.rejected",
			zap.String("member_id", req.MemberID.String()),
			zap.String("package_id", req.PackageID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("checkout.completed",
		zap.String("member_id", req.MemberID.String()),
		zap.String("subscription_id", result.Subscription.ID.String()),
		zap.String("payment_id", result.Payment.ID.String()),
		zap.Int64("amount", result.Payment.Amount),
	)
	return &result, nil
}
