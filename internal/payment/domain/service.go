package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
	"github.com/smallbiznis/gymcore/pkg/apperr"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Payment, error)
	Get(ctx context.Context, id snowflake.ID) (*Payment, error)
	ListBySubscription(ctx context.Context, subscriptionID snowflake.ID) ([]Payment, error)

	// Complete marks the payment Completed and activates its subscription in
	// the same transaction.
	Complete(ctx context.Context, id snowflake.ID) (*CompletionResult, error)
	// CompleteViaGateway applies an already authenticated gateway result.
	CompleteViaGateway(ctx context.Context, req GatewayResult) (*CompletionResult, error)
	Fail(ctx context.Context, id snowflake.ID, reason string) (*Payment, error)
	Cancel(ctx context.Context, id snowflake.ID) (*Payment, error)
}

type CreateRequest struct {
	SubscriptionID  snowflake.ID
	OriginalAmount  int64
	Amount          *int64
	DiscountDetails []discountdomain.Detail
	PaymentMethod   Method
	InvoiceNumber   string
}

type GatewayResult struct {
	OrderID       string
	TransactionID string
	ResultCode    string
	SuccessCode   string
	Amount        int64
	Payload       []byte
}

type CompletionResult struct {
	Payment      *Payment                         `json:"payment"`
	Subscription *subscriptiondomain.Subscription `json:"subscription,omitempty"`
}

var (
	ErrPaymentNotFound        = apperr.NotFound("payment_not_found")
	ErrInvalidAmount          = apperr.Validation("invalid_amount")
	ErrAmountMismatch         = apperr.Validation("amount_mismatch")
	ErrInvalidMethod          = apperr.Validation("invalid_payment_method")
	ErrInvalidOrderID         = apperr.Validation("invalid_order_id")
	ErrAlreadyCompleted       = apperr.Conflict("payment_already_completed")
	ErrDuplicateInvoice       = apperr.Conflict("duplicate_invoice_number")
	ErrDuplicateCallback      = apperr.Conflict("duplicate_gateway_callback")
	ErrPendingPaymentExists   = apperr.Conflict("pending_payment_exists")
	ErrNotPending             = apperr.DomainRuleViolation("payment_not_pending")
	ErrSubscriptionNotPayable = apperr.DomainRuleViolation("subscription_not_payable")
)
