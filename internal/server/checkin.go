package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) CheckIn(c *gin.Context) {
	var req struct {
		MemberID snowflake.ID `json:"member_id"`
		BranchID snowflake.ID `json:"branch_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.MemberID == 0 {
		req.MemberID = actorMemberID(c)
	}
	if req.BranchID == 0 {
		AbortWithError(c, newValidationError("branch_id", "required", "branch_id is required"))
		return
	}

	visit, err := s.checkInSvc.CheckIn(c.Request.Context(), req.MemberID, req.BranchID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": visit})
}

func (s *Server) GetCheckIn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	visit, err := s.checkInSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": visit})
}

func (s *Server) CheckOut(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	visit, err := s.checkInSvc.CheckOut(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": visit})
}
