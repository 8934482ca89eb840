package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/gymcore/internal/observability/context"
)

// HeaderMemberID carries the authenticated member forwarded by the edge
// proxy. Authentication itself happens upstream.
const (
	HeaderMemberID  = "X-Member-ID"
	contextActorKey = "actor"
)

// ActorContext resolves the calling member and stores it for Require.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderMemberID))
		if raw == "" {
			c.Next()
			return
		}
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		actor := "member:" + id.String()
		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "member", id.String()))
		c.Next()
	}
}

// Require rejects the request unless the actor may perform action on object.
func (s *Server) Require(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetString(contextActorKey)
		if actor == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authz.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorMemberID(c *gin.Context) snowflake.ID {
	actor := strings.TrimPrefix(c.GetString(contextActorKey), "member:")
	id, _ := snowflake.ParseString(actor)
	return id
}

