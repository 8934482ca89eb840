package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/gymcore/internal/clock"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            paymentdomain.Repository
	SubscriptionSvc subscriptiondomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            paymentdomain.Repository
	subscriptionSvc subscriptiondomain.Service
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("payment.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		subscriptionSvc: p.SubscriptionSvc,
	}
}

var methods = map[paymentdomain.Method]bool{
	paymentdomain.MethodCash:     true,
	paymentdomain.MethodCard:     true,
	paymentdomain.MethodTransfer: true,
	paymentdomain.MethodGateway:  true,
}

func (s *Service) Create(ctx context.Context, req paymentdomain.CreateRequest) (*paymentdomain.Payment, error) {
	if req.OriginalAmount < 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	for _, d := range req.DiscountDetails {
		if d.DiscountAmount < 0 {
			return nil, paymentdomain.ErrInvalidAmount
		}
	}
	amount := req.OriginalAmount - discountdomain.TotalDiscount(req.DiscountDetails)
	if amount < 0 {
		amount = 0
	}
	if req.Amount != nil {
		if *req.Amount < 0 {
			return nil, paymentdomain.ErrInvalidAmount
		}
		if *req.Amount != amount {
			return nil, paymentdomain.ErrAmountMismatch
		}
	}

	method := req.PaymentMethod
	if method == "" {
		method = paymentdomain.MethodCash
	}
	if !methods[method] {
		return nil, paymentdomain.ErrInvalidMethod
	}

	sub, err := s.subscriptionSvc.Get(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != subscriptiondomain.StatusPendingPayment {
		return nil, paymentdomain.ErrSubscriptionNotPayable
	}

	now := s.clock.Now().UTC()
	invoiceNumber := strings.TrimSpace(req.InvoiceNumber)
	if invoiceNumber == "" {
		invoiceNumber = newInvoiceNumber(now)
	}
	details := req.DiscountDetails
	if details == nil {
		details = []discountdomain.Detail{}
	}

	p := &paymentdomain.Payment{
		ID:              s.genID.Generate(),
		SubscriptionID:  sub.ID,
		MemberID:        sub.MemberID,
		OriginalAmount:  req.OriginalAmount,
		Amount:          amount,
		DiscountDetails: datatypes.JSONSlice[discountdomain.Detail](details),
		PaymentMethod:   method,
		Status:          paymentdomain.StatusPending,
		InvoiceNumber:   invoiceNumber,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	// One open checkout per subscription, so a second completion can never
	// ride on an activation the first one already performed.
	err = pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		open, err := s.repo.FindPendingBySubscription(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return paymentdomain.ErrPendingPaymentExists
		}
		if err := s.repo.Insert(ctx, tx, p); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return paymentdomain.ErrDuplicateInvoice
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment.created",
		zap.String("payment_id", p.ID.String()),
		zap.String("subscription_id", p.SubscriptionID.String()),
		zap.String("invoice_number", p.InvoiceNumber),
		zap.Int64("amount", p.Amount),
	)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*paymentdomain.Payment, error) {
	return s.load(ctx, pkgdb.Conn(ctx, s.db), id)
}

func (s *Service) ListBySubscription(ctx context.Context, subscriptionID snowflake.ID) ([]paymentdomain.Payment, error) {
	return s.repo.ListBySubscription(ctx, pkgdb.Conn(ctx, s.db), subscriptionID)
}

func (s *Service) Complete(ctx context.Context, id snowflake.ID) (*paymentdomain.CompletionResult, error) {
	var result *paymentdomain.CompletionResult
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		result, err = s.complete(ctx, tx, id, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logCompleted(result)
	return result, nil
}

// CompleteViaGateway expects the callback to be authenticated already. Each
// distinct callback is recorded first, so a replay is rejected before any
// payment or subscription state changes.
func (s *Service) CompleteViaGateway(ctx context.Context, req paymentdomain.GatewayResult) (*paymentdomain.CompletionResult, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, paymentdomain.ErrInvalidOrderID
	}
	code := strings.TrimSpace(req.ResultCode)
	transactionID := strings.TrimSpace(req.TransactionID)

	var result *paymentdomain.CompletionResult
	err := pkgdb.RunInTx(ctx, s.db, func(ctx context.Context, tx *gorm.DB) error {
		p, err := s.repo.FindByInvoiceNumber(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if p == nil {
			return paymentdomain.ErrPaymentNotFound
		}

		payload := req.Payload
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		inserted, err := s.repo.InsertGatewayEvent(ctx, tx, &paymentdomain.GatewayEvent{
			ID:            s.genID.Generate(),
			PaymentID:     p.ID,
			OrderID:       orderID,
			TransactionID: transactionID,
			ResultCode:    code,
			Payload:       datatypes.JSON(payload),
			ReceivedAt:    s.clock.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			if p.Status == paymentdomain.StatusCompleted {
				return paymentdomain.ErrAlreadyCompleted
			}
			return paymentdomain.ErrDuplicateCallback
		}

		var txID *string
		if transactionID != "" {
			txID = &transactionID
		}

		if code != req.SuccessCode {
			reason := fmt.Sprintf("gateway result code %s", code)
			failed, err := s.transition(ctx, tx, p.ID, paymentdomain.StatusFailed, txID, &reason)
			if err != nil {
				return err
			}
			result = &paymentdomain.CompletionResult{Payment: failed}
			return nil
		}

		if req.Amount > 0 && req.Amount != p.Amount {
			return paymentdomain.ErrAmountMismatch
		}
		result, err = s.complete(ctx, tx, p.ID, txID)
		return err
	})
	if err != nil {
		s.log.Warn("payment.gateway_callback_rejected",
			zap.String("order_id", orderID),
			zap.String("result_code", code),
			zap.Error(err),
		)
		return nil, err
	}

	if result.Payment.Status == paymentdomain.StatusFailed {
		s.log.Info("payment.failed",
			zap.String("payment_id", result.Payment.ID.String()),
			zap.String("result_code", code),
		)
		return result, nil
	}
	s.logCompleted(result)
	return result, nil
}

func (s *Service) Fail(ctx context.Context, id snowflake.ID, reason string) (*paymentdomain.Payment, error) {
	reason = strings.TrimSpace(reason)
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	p, err := s.transition(ctx, pkgdb.Conn(ctx, s.db), id, paymentdomain.StatusFailed, nil, reasonPtr)
	if err != nil {
		return nil, err
	}
	s.log.Info("payment.failed", zap.String("payment_id", id.String()))
	return p, nil
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (*paymentdomain.Payment, error) {
	p, err := s.transition(ctx, pkgdb.Conn(ctx, s.db), id, paymentdomain.StatusCancelled, nil, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info("payment.cancelled", zap.String("payment_id", id.String()))
	return p, nil
}

// complete is the single conditional update guarding against double
// activation, followed by the subscription cascade on the same transaction.
func (s *Service) complete(ctx context.Context, tx *gorm.DB, id snowflake.ID, transactionID *string) (*paymentdomain.CompletionResult, error) {
	p, err := s.transition(ctx, tx, id, paymentdomain.StatusCompleted, transactionID, nil)
	if err != nil {
		return nil, err
	}
	sub, err := s.subscriptionSvc.Activate(ctx, p.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("activate subscription %s: %w", p.SubscriptionID, err)
	}
	return &paymentdomain.CompletionResult{Payment: p, Subscription: sub}, nil
}

func (s *Service) transition(ctx context.Context, db *gorm.DB, id snowflake.ID, status paymentdomain.Status, transactionID, reason *string) (*paymentdomain.Payment, error) {
	ok, err := s.repo.TransitionFromPending(ctx, db, id, status, transactionID, reason, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	p, err := s.load(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		if p.Status == paymentdomain.StatusCompleted {
			return nil, paymentdomain.ErrAlreadyCompleted
		}
		return nil, paymentdomain.ErrNotPending
	}
	return p, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	p, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	return p, nil
}

func (s *Service) logCompleted(result *paymentdomain.CompletionResult) {
	fields := []zap.Field{
		zap.String("payment_id", result.Payment.ID.String()),
		zap.String("subscription_id", result.Payment.SubscriptionID.String()),
		zap.Int64("amount", result.Payment.Amount),
	}
	if result.Subscription != nil {
		fields = append(fields, zap.String("subscription_status", string(result.Subscription.Status)))
	}
	s.log.Info("payment.completed", fields...)
}

func newInvoiceNumber(now time.Time) string {
	return "INV-" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}
