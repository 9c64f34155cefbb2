package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrovate/farmcore/internal/auth"
	"github.com/agrovate/farmcore/internal/session"
	"github.com/agrovate/farmcore/internal/types"
)

// activeSession resolves the caller's live device session, writing the
// NotReady response itself when there is none.
func (s *Server) activeSession(c *gin.Context) (*session.Session, bool) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Not authenticated", nil))
		return nil, false
	}

	sess := s.sessions.Get(principal.ID)
	if sess == nil {
		c.JSON(http.StatusConflict, types.NewErrorResponse("CORE_409", types.UserMessage(types.ErrNotReady), nil))
		return nil, false
	}

	return sess, true
}

// GET /api/v1/telemetry/reading
func (s *Server) getReading(c *gin.Context) {
	sess, ok := s.activeSession(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id": sess.DeviceID(),
		"reading":   sess.Reading(),
	})
}

// GET /api/v1/telemetry/online
func (s *Server) getOnline(c *gin.Context) {
	sess, ok := s.activeSession(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id": sess.DeviceID(),
		"online":    sess.IsOnline(),
	})
}
