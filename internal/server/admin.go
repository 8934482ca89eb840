package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gymcore/internal/authorization"
	"github.com/smallbiznis/gymcore/internal/reconciler"
	"go.uber.org/zap"
)

func (s *Server) ListSweeps(c *gin.Context) {
	if s.reconciler == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.reconciler.Sweeps()})
}

// RunSweep runs one reconciler sweep synchronously. Per-item failures are
// reported but do not fail the request.
func (s *Server) RunSweep(c *gin.Context) {
	if s.reconciler == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	name := strings.TrimSpace(c.Param("sweep"))

	err := s.reconciler.RunSweep(c.Request.Context(), name)
	if errors.Is(err, reconciler.ErrUnknownSweep) {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"sweep": name, "status": "completed"}
	if err != nil {
		s.log.Warn("http.reconciler.sweep.partial", zap.String("sweep", name), zap.Error(err))
		resp["status"] = "completed_with_errors"
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// ListMemberNotifications lets a member read their own inbox.
func (s *Server) ListMemberNotifications(c *gin.Context) {
	memberID, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID := actorMemberID(c)
	if actorID == 0 {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if actorID != memberID {
		AbortWithError(c, authorization.ErrForbidden)
		return
	}
	if s.notifications == nil {
		c.JSON(http.StatusOK, gin.H{"data": []any{}})
		return
	}
	limit, err := parseLimit(c.Query("limit"), 100)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	items, err := s.notifications.ListForRecipient(c.Request.Context(), memberID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}
