package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/gymcore/internal/subscription/domain"
)

type createSubscriptionRequest struct {
	MemberID  snowflake.ID              `json:"member_id"`
	PackageID snowflake.ID              `json:"package_id"`
	BranchID  *snowflake.ID             `json:"branch_id"`
	StartDate *time.Time                `json:"start_date"`
	EndDate   *time.Time                `json:"end_date"`
	Status    subscriptiondomain.Status `json:"status"`
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.MemberID == 0 || req.PackageID == 0 {
		AbortWithError(c, newValidationError("member_id", "required", "member_id and package_id are required"))
		return
	}

	sub, err := s.subscriptionSvc.Create(c.Request.Context(), subscriptiondomain.CreateRequest{
		MemberID:  req.MemberID,
		PackageID: req.PackageID,
		BranchID:  req.BranchID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    subscriptiondomain.Status(strings.TrimSpace(string(req.Status))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": sub})
}

func (s *Server) GetSubscription(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := s.subscriptionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) ListMemberSubscriptions(c *gin.Context) {
	memberID, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := s.subscriptionSvc.ListByMember(c.Request.Context(), memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ChangeSubscriptionStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status subscriptiondomain.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(string(req.Status)) == "" {
		AbortWithError(c, newValidationError("status", "invalid_status", "status is required"))
		return
	}

	sub, err := s.subscriptionSvc.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

type renewSubscriptionRequest struct {
	PackageID snowflake.ID `json:"package_id"`
	StartDate *time.Time   `json:"start_date"`
	Extend    bool         `json:"extend"`
}

func (s *Server) RenewSubscription(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req renewSubscriptionRequest
	// An empty body renews onto the current package.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	sub, err := s.subscriptionSvc.Renew(c.Request.Context(), id, subscriptiondomain.RenewRequest{
		PackageID: req.PackageID,
		StartDate: req.StartDate,
		Extend:    req.Extend,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

type suspendSubscriptionRequest struct {
	Reason    string     `json:"reason"`
	StartDate *time.Time `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
}

func (s *Server) SuspendSubscription(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req suspendSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.EndDate.IsZero() {
		AbortWithError(c, newValidationError("end_date", "required", "end_date is required"))
		return
	}

	sub, err := s.subscriptionSvc.Suspend(c.Request.Context(), id, subscriptiondomain.SuspendRequest{
		Reason:    strings.TrimSpace(req.Reason),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) UnsuspendSubscription(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := s.subscriptionSvc.Unsuspend(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}
