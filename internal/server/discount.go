package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/gymcore/internal/discount/domain"
)

type validateDiscountRequest struct {
	Code            string       `json:"code"`
	MemberID        snowflake.ID `json:"member_id"`
	PackageID       snowflake.ID `json:"package_id"`
	OriginalAmount  int64        `json:"original_amount"`
	PackageType     string       `json:"package_type"`
	PackageCategory string       `json:"package_category"`
}

func (s *Server) ValidateDiscountCode(c *gin.Context) {
	var req validateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.MemberID == 0 {
		req.MemberID = actorMemberID(c)
	}

	app, err := s.discountSvc.ValidateCode(c.Request.Context(), discountdomain.ValidateCodeRequest{
		Code:            req.Code,
		MemberID:        req.MemberID,
		PackageID:       req.PackageID,
		OriginalAmount:  req.OriginalAmount,
		PackageType:     strings.TrimSpace(req.PackageType),
		PackageCategory: strings.TrimSpace(req.PackageCategory),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": app})
}

func (s *Server) ApplyDiscountManual(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		OriginalAmount int64 `json:"original_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	app, err := s.discountSvc.ApplyManual(c.Request.Context(), id, req.OriginalAmount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": app})
}

type upsertDiscountRequest struct {
	Code               string                `json:"code"`
	Name               string                `json:"name"`
	Description        string                `json:"description"`
	Type               string                `json:"type"`
	DiscountPercentage *decimal.Decimal      `json:"discount_percentage"`
	DiscountAmount     *int64                `json:"discount_amount"`
	MaxDiscount        *int64                `json:"max_discount"`
	MinPurchaseAmount  int64                 `json:"min_purchase_amount"`
	BonusDays          int                   `json:"bonus_days"`
	UsageLimit         *int64                `json:"usage_limit"`
	PackageTypes       []string              `json:"package_types"`
	DurationTypes      []string              `json:"duration_types"`
	StartDate          time.Time             `json:"start_date"`
	EndDate            time.Time             `json:"end_date"`
	Status             discountdomain.Status `json:"status"`
}

func (r upsertDiscountRequest) toDomain() discountdomain.UpsertRequest {
	return discountdomain.UpsertRequest{
		Code:               r.Code,
		Name:               strings.TrimSpace(r.Name),
		Description:        strings.TrimSpace(r.Description),
		Type:               strings.TrimSpace(r.Type),
		DiscountPercentage: r.DiscountPercentage,
		DiscountAmount:     r.DiscountAmount,
		MaxDiscount:        r.MaxDiscount,
		MinPurchaseAmount:  r.MinPurchaseAmount,
		BonusDays:          r.BonusDays,
		UsageLimit:         r.UsageLimit,
		PackageTypes:       r.PackageTypes,
		DurationTypes:      r.DurationTypes,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		Status:             r.Status,
	}
}

func (s *Server) CreateDiscount(c *gin.Context) {
	var req upsertDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	d, err := s.discountSvc.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": d})
}

func (s *Server) UpdateDiscount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req upsertDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	d, err := s.discountSvc.Update(c.Request.Context(), id, req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": d})
}

func (s *Server) GetDiscount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := s.discountSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": d})
}

func (s *Server) ListDiscounts(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"), 200)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	items, err := s.discountSvc.List(c.Request.Context(), discountdomain.ListRequest{
		Status: discountdomain.Status(strings.TrimSpace(c.Query("status"))),
		Limit:  limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}
