package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/api/websocket"
	"github.com/agrovate/farmcore/internal/auth"
	"github.com/agrovate/farmcore/internal/types"
)

// statusFromError maps the failure taxonomy to HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, types.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, types.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, types.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrUnavailable), errors.Is(err, types.ErrWriteFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// POST /api/v1/control/relay
func (s *Server) sendRelayCommand(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Not authenticated", nil))
		return
	}

	var req struct {
		State string `json:"state" binding:"required,oneof=on off"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("CONTROL_400", "Invalid request body", err.Error()))
		return
	}

	sess := s.sessions.Get(principal.ID)
	if sess == nil {
		msg := types.UserMessage(types.ErrNotReady)
		s.wsHub.Broadcast(websocket.NewNotificationMessage("error", msg))
		c.JSON(http.StatusConflict, types.NewErrorResponse("CORE_409", msg, nil))
		return
	}

	cmd, err := sess.Control().Send(c.Request.Context(), types.RelayState(req.State), principal)
	if err != nil {
		msg := types.UserMessage(err)
		s.logger.Error("Relay command failed",
			zap.String("user_id", principal.ID),
			zap.String("device_id", sess.DeviceID()),
			zap.Error(err))
		s.wsHub.Broadcast(websocket.NewNotificationMessage("error", msg))
		c.JSON(statusFromError(err), types.NewErrorResponse("CONTROL_SEND", msg, err.Error()))
		return
	}

	s.wsHub.Broadcast(websocket.NewNotificationMessage("success", "Pump turned "+req.State+"."))

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Command accepted",
		"command": cmd,
	})
}

// POST /api/v1/control/mode
func (s *Server) setIrrigationMode(c *gin.Context) {
	sess, ok := s.activeSession(c)
	if !ok {
		return
	}

	var req struct {
		Mode string `json:"mode" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("CONTROL_400", "Invalid request body", err.Error()))
		return
	}

	if err := s.irrigation.SetMode(c.Request.Context(), sess.DeviceID(), types.IrrigationMode(req.Mode)); err != nil {
		msg := types.UserMessage(err)
		s.wsHub.Broadcast(websocket.NewNotificationMessage("error", msg))
		c.JSON(statusFromError(err), types.NewErrorResponse("CONTROL_MODE", msg, err.Error()))
		return
	}

	s.wsHub.Broadcast(websocket.NewNotificationMessage("success", "Irrigation mode set to "+req.Mode+"."))
	c.JSON(http.StatusOK, gin.H{"mode": req.Mode})
}

// GET /api/v1/control/mode
func (s *Server) getIrrigationMode(c *gin.Context) {
	sess, ok := s.activeSession(c)
	if !ok {
		return
	}

	mode, err := s.irrigation.GetMode(c.Request.Context(), sess.DeviceID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("CONTROL_500", "Failed to load mode", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{"mode": mode})
}

// PUT /api/v1/control/thresholds
func (s *Server) setThresholds(c *gin.Context) {
	sess, ok := s.activeSession(c)
	if !ok {
		return
	}

	var req struct {
		SoilMoistureLow  *float64 `json:"soil_moisture_low" binding:"required"`
		SoilMoistureHigh *float64 `json:"soil_moisture_high" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("CONTROL_400", "Invalid request body", err.Error()))
		return
	}

	t := types.ThresholdConfig{
		SoilMoistureLow:  *req.SoilMoistureLow,
		SoilMoistureHigh: *req.SoilMoistureHigh,
	}

	if err := s.irrigation.SetThresholds(c.Request.Context(), sess.DeviceID(), t); err != nil {
		msg := types.UserMessage(err)
		s.wsHub.Broadcast(websocket.NewNotificationMessage("error", msg))
		c.JSON(statusFromError(err), types.NewErrorResponse("CONTROL_THRESHOLDS", msg, err.Error()))
		return
	}

	s.wsHub.Broadcast(websocket.NewNotificationMessage("success", "Thresholds saved."))
	c.JSON(http.StatusOK, t)
}

// GET /api/v1/control/thresholds
func (s *Server) getThresholds(c *gin.Context) {
	sess, ok := s.activeSession(c)
	if !ok {
		return
	}

	t, err := s.irrigation.GetThresholds(c.Request.Context(), sess.DeviceID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("CONTROL_500", "Failed to load thresholds", nil))
		return
	}

	c.JSON(http.StatusOK, t)
}

// POST /api/v1/control/schedules
func (s *Server) addSchedule(c *gin.Context) {
	principal, _ := auth.FromContext(c)

	sess, ok := s.activeSession(c)
	if !ok {
		return
	}

	var req struct {
		StartAt     string `json:"start_at" binding:"required"`
		Recurrence  string `json:"recurrence" binding:"required"`
		DurationMin int    `json:"duration_min"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("CONTROL_400", "Invalid request body", err.Error()))
		return
	}

	rule := types.ScheduleRule{
		StartAt:     req.StartAt,
		Recurrence:  req.Recurrence,
		DurationMin: req.DurationMin,
	}

	created, err := s.irrigation.AddSchedule(c.Request.Context(), sess.DeviceID(), rule, principal.ID)
	if err != nil {
		msg := types.UserMessage(err)
		s.wsHub.Broadcast(websocket.NewNotificationMessage("error", msg))
		c.JSON(statusFromError(err), types.NewErrorResponse("CONTROL_SCHEDULE", msg, err.Error()))
		return
	}

	s.wsHub.Broadcast(websocket.NewNotificationMessage("success", "Schedule added."))
	c.JSON(http.StatusCreated, created)
}

// GET /api/v1/control/schedules
func (s *Server) listSchedules(c *gin.Context) {
	sess, ok := s.activeSession(c)
	if !ok {
		return
	}

	rules, err := s.irrigation.ListSchedules(c.Request.Context(), sess.DeviceID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("CONTROL_500", "Failed to load schedules", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{"schedules": rules})
}

// DELETE /api/v1/control/schedules/:id
func (s *Server) removeSchedule(c *gin.Context) {
	sess, ok := s.activeSession(c)
	if !ok {
		return
	}

	if err := s.irrigation.RemoveSchedule(c.Request.Context(), sess.DeviceID(), c.Param("id")); err != nil {
		msg := types.UserMessage(err)
		s.wsHub.Broadcast(websocket.NewNotificationMessage("error", msg))
		c.JSON(statusFromError(err), types.NewErrorResponse("CONTROL_SCHEDULE", msg, err.Error()))
		return
	}

	s.wsHub.Broadcast(websocket.NewNotificationMessage("success", "Schedule removed."))
	c.JSON(http.StatusOK, gin.H{"message": "schedule removed"})
}
