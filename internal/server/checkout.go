package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gymcore/internal/checkout"
	paymentdomain "github.com/smallbiznis/gymcore/internal/payment/domain"
)

type checkoutRequest struct {
	MemberID         snowflake.ID         `json:"member_id"`
	PackageID        snowflake.ID         `json:"package_id"`
	BranchID         *snowflake.ID        `json:"branch_id"`
	StartDate        *time.Time           `json:"start_date"`
	DiscountCode     string               `json:"discount_code"`
	ManualDiscountID *snowflake.ID        `json:"manual_discount_id"`
	PaymentMethod    paymentdomain.Method `json:"payment_method"`
}

// Checkout buys a package. Members default to buying for themselves.
func (s *Server) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.MemberID == 0 {
		req.MemberID = actorMemberID(c)
	}
	if req.MemberID == 0 || req.PackageID == 0 {
		AbortWithError(c, newValidationError("package_id", "required", "member_id and package_id are required"))
		return
	}

	result, err := s.checkout.Checkout(c.Request.Context(), checkout.Request{
		MemberID:         req.MemberID,
		PackageID:        req.PackageID,
		BranchID:         req.BranchID,
		StartDate:        req.StartDate,
		DiscountCode:     req.DiscountCode,
		ManualDiscountID: req.ManualDiscountID,
		PaymentMethod:    req.PaymentMethod,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": result})
}
