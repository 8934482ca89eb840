// Package domain defines payments, their status machine and the record of
// authenticated gateway callbacks.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusRefunded  Status = "Refunded"
	StatusCancelled Status = "Cancelled"
)

type Method string

const (
	MethodCash     Method = "Cash"
	MethodCard     Method = "Card"
	MethodTransfer Method = "BankTransfer"
	MethodGateway  Method = "Gateway"
)

// Payment is one checkout attempt against one subscription. Amount always
// equals OriginalAmount minus the snapshot total, floored at zero.
type Payment struct {
	ID              snowflake.ID                               `gorm:"primaryKey" json:"id"`
	SubscriptionID  snowflake.ID                               `gorm:"not null;index" json:"subscription_id"`
	MemberID        snowflake.ID                               `gorm:"not null;index" json:"member_id"`
	OriginalAmount  int64                                      `gorm:"not null" json:"original_amount"`
	Amount          int64                                      `gorm:"not null" json:"amount"`
	DiscountDetails datatypes.JSONSlice[discountdomain.Detail] `gorm:"type:json" json:"discount_details"`
	PaymentMethod   Method                                     `gorm:"type:text;not null" json:"payment_method"`
	Status          Status                                     `gorm:"type:text;not null;index" json:"payment_status"`
	InvoiceNumber   string                                     `gorm:"type:text;not null;uniqueIndex" json:"invoice_number"`
	TransactionID   *string                                    `gorm:"type:text" json:"transaction_id,omitempty"`
	FailureReason   *string                                    `gorm:"type:text" json:"failure_reason,omitempty"`
	PaidAt          *time.Time                                 `json:"paid_at,omitempty"`
	CreatedAt       time.Time                                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time                                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// GatewayEvent stores each authenticated gateway callback once.
type GatewayEvent struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	PaymentID     snowflake.ID   `gorm:"not null;index" json:"payment_id"`
	OrderID       string         `gorm:"type:text;not null;uniqueIndex:ux_gateway_event" json:"order_id"`
	TransactionID string         `gorm:"type:text;not null;uniqueIndex:ux_gateway_event" json:"transaction_id"`
	ResultCode    string         `gorm:"type:text;not null;uniqueIndex:ux_gateway_event" json:"result_code"`
	Payload       datatypes.JSON `gorm:"type:json;not null" json:"payload"`
	ReceivedAt    time.Time      `gorm:"not null" json:"received_at"`
}

func (GatewayEvent) TableName() string { return "payment_gateway_events" }
