package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/gymcore/internal/booking/domain"
)

type createBookingRequest struct {
	MemberID        snowflake.ID `json:"member_id"`
	TrainerID       snowflake.ID `json:"trainer_id"`
	SubscriptionID  snowflake.ID `json:"subscription_id"`
	RequestDateTime time.Time    `json:"request_date_time"`
	DurationMinutes int          `json:"duration_minutes"`
	Notes           string       `json:"notes"`
}

func (s *Server) CreateBookingRequest(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.MemberID == 0 {
		req.MemberID = actorMemberID(c)
	}

	booking, err := s.bookingSvc.CreateBookingRequest(c.Request.Context(), bookingdomain.CreateBookingRequest{
		MemberID:        req.MemberID,
		TrainerID:       req.TrainerID,
		SubscriptionID:  req.SubscriptionID,
		RequestDateTime: req.RequestDateTime,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": booking})
}

func (s *Server) GetBookingRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	booking, err := s.bookingSvc.GetBookingRequest(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": booking})
}

func (s *Server) ConfirmBookingRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := s.bookingSvc.Confirm(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) RejectBookingRequest(c *gin.Context) {
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
	booking, err := s.bookingSvc.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": booking})
}

type createScheduleRequest struct {
	MemberID        snowflake.ID `json:"member_id"`
	TrainerID       snowflake.ID `json:"trainer_id"`
	SubscriptionID  snowflake.ID `json:"subscription_id"`
	DateTime        time.Time    `json:"date_time"`
	DurationMinutes int          `json:"duration_minutes"`
	Notes           string       `json:"notes"`
}

func (s *Server) CreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	schedule, err := s.bookingSvc.CreateSchedule(c.Request.Context(), bookingdomain.CreateScheduleRequest{
		MemberID:        req.MemberID,
		TrainerID:       req.TrainerID,
		SubscriptionID:  req.SubscriptionID,
		DateTime:        req.DateTime,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": schedule})
}

func (s *Server) GetSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	schedule, err := s.bookingSvc.GetSchedule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": schedule})
}
