package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/auth"
	"github.com/agrovate/farmcore/internal/types"
)

// GET /api/v1/devices
func (s *Server) listDevices(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Not authenticated", nil))
		return
	}

	devices, err := s.registry.Load(c.Request.Context(), principal.ID)
	if err != nil {
		s.logger.Error("Failed to load devices",
			zap.String("user_id", principal.ID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("DEVICE_500", "Failed to load devices", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": devices,
		"active":  s.registry.Active(principal.ID),
	})
}

// GET /api/v1/devices/active
func (s *Server) getActiveDevice(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Not authenticated", nil))
		return
	}

	active := s.registry.Active(principal.ID)
	if active == "" {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("DEVICE_404", "No active device", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{"device_id": active})
}

// POST /api/v1/devices/active
func (s *Server) switchActiveDevice(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Not authenticated", nil))
		return
	}

	var req struct {
		DeviceID string `json:"device_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("DEVICE_400", "Invalid request body", err.Error()))
		return
	}

	if err := s.registry.Switch(c.Request.Context(), principal.ID, req.DeviceID); err != nil {
		s.logger.Error("Device switch failed",
			zap.String("user_id", principal.ID),
			zap.String("device_id", req.DeviceID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("DEVICE_500", "Switch failed", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{"device_id": req.DeviceID})
}

// GET /api/v1/devices/quota
func (s *Server) getDeviceQuota(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Not authenticated", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"can_request_more": s.registry.CanRequestMoreDevices(principal.ID),
	})
}

// GET /api/v1/devices/usage
func (s *Server) getDeviceUsage(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Not authenticated", nil))
		return
	}

	c.JSON(http.StatusOK, s.registry.UsageSummary(principal.ID))
}
