package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/auth"
	"github.com/agrovate/farmcore/internal/types"
)

// POST /api/v1/auth/login
func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("AUTH_400", "Invalid request body", err.Error()))
		return
	}

	accessToken, refreshToken, err := s.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Warn("Login failed",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Invalid credentials", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// POST /api/v1/auth/refresh
func (s *Server) refreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("AUTH_400", "Invalid request body", err.Error()))
		return
	}

	accessToken, refreshToken, err := s.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Invalid refresh token", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// POST /api/v1/auth/logout
func (s *Server) logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("AUTH_400", "Invalid request body", err.Error()))
		return
	}

	if err := s.authService.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("AUTH_500", "Logout failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// GET /api/v1/auth/me
func (s *Server) getCurrentUser(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Not authenticated", nil))
		return
	}

	userID, err := uuid.Parse(principal.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("AUTH_500", "Invalid principal", nil))
		return
	}

	user, err := s.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("AUTH_404", "User not found", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}
