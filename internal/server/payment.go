package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
)

type createPaymentRequest struct {
	SubscriptionID  snowflake.ID            `json:"subscription_id"`
	OriginalAmount  int64                   `json:"original_amount"`
	Amount          *int64                  `json:"amount"`
	DiscountDetails []discountdomain.Detail `json:"discount_details"`
	PaymentMethod   paymentdomain.Method    `json:"payment_method"`
	InvoiceNumber   string                  `json:"invoice_number"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.SubscriptionID == 0 {
		AbortWithError(c, newValidationError("subscription_id", "required", "subscription_id is required"))
		return
	}

	p, err := s.paymentSvc.Create(c.Request.Context(), paymentdomain.CreateRequest{
		SubscriptionID:  req.SubscriptionID,
		OriginalAmount:  req.OriginalAmount,
		Amount:          req.Amount,
		DiscountDetails: req.DiscountDetails,
		PaymentMethod:   req.PaymentMethod,
		InvoiceNumber:   strings.TrimSpace(req.InvoiceNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": p})
}

func (s *Server) GetPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) ListSubscriptionPayments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := s.paymentSvc.ListBySubscription(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CompletePayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := s.paymentSvc.Complete(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) FailPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	p, err := s.paymentSvc.Fail(c.Request.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) CancelPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.paymentSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) GetPaymentReceipt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if s.receipts == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	pdf, err := s.receipts.Render(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="receipt-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// HandleGatewayCallback authenticates the callback before the payment service
// sees it, so an unsigned request never reaches persisted state.
func (s *Server) HandleGatewayCallback(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cb, err := s.verifier.Verify(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.paymentSvc.CompleteViaGateway(c.Request.Context(), paymentdomain.GatewayResult{
		OrderID:       cb.OrderID,
		TransactionID: cb.TransactionID,
		ResultCode:    cb.Code(),
		SuccessCode:   s.verifier.SuccessCode(),
		Amount:        cb.Amount,
		Payload:       payload,
	})
	if err != nil {
		if errors.Is(err, paymentdomain.ErrDuplicateCallback) || errors.Is(err, paymentdomain.ErrAlreadyCompleted) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "payment_status": result.Payment.Status})
}
