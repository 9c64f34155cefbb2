package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/api/websocket"
	"github.com/agrovate/farmcore/internal/auth"
	"github.com/agrovate/farmcore/internal/config"
	"github.com/agrovate/farmcore/internal/irrigation"
	"github.com/agrovate/farmcore/internal/registry"
	"github.com/agrovate/farmcore/internal/session"
)

type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	authService *auth.Service
	registry    *registry.Registry
	sessions    *session.Manager
	irrigation  *irrigation.Service
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	wsHub *websocket.Hub,
	authService *auth.Service,
	reg *registry.Registry,
	sessions *session.Manager,
	irrigationService *irrigation.Service,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:      gin.Default(),
		logger:      logger,
		wsHub:       wsHub,
		authService: authService,
		registry:    reg,
		sessions:    sessions,
		irrigation:  irrigationService,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Public routes (no auth required)
	s.router.GET("/health", s.healthCheck)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// ==================== AUTH ENDPOINTS (PUBLIC) ====================
		authPublic := v1.Group("/auth")
		{
			authPublic.POST("/login", s.login)
			authPublic.POST("/refresh", s.refreshToken)
		}

		// ==================== AUTH ENDPOINTS (AUTHENTICATED) ====================
		authProtected := v1.Group("/auth")
		authProtected.Use(s.authService.Middleware())
		{
			authProtected.POST("/logout", s.logout)
			authProtected.GET("/me", s.getCurrentUser)
		}

		// ==================== DEVICES ====================
		devices := v1.Group("/devices")
		devices.Use(s.authService.Middleware())
		{
			devices.GET("", s.listDevices)
			devices.GET("/active", s.getActiveDevice)
			devices.POST("/active", s.switchActiveDevice)
			devices.GET("/quota", s.getDeviceQuota)
			devices.GET("/usage", s.getDeviceUsage)
		}

		// ==================== TELEMETRY ====================
		telemetry := v1.Group("/telemetry")
		telemetry.Use(s.authService.Middleware())
		{
			telemetry.GET("/reading", s.getReading)
			telemetry.GET("/online", s.getOnline)
		}

		// ==================== CONTROL ====================
		control := v1.Group("/control")
		control.Use(s.authService.Middleware())
		{
			control.POST("/relay", s.sendRelayCommand)
			control.POST("/mode", s.setIrrigationMode)
			control.GET("/mode", s.getIrrigationMode)
			control.PUT("/thresholds", s.setThresholds)
			control.GET("/thresholds", s.getThresholds)
			control.POST("/schedules", s.addSchedule)
			control.GET("/schedules", s.listSchedules)
			control.DELETE("/schedules/:id", s.removeSchedule)
		}

		// ==================== WEBSOCKET (Auth via first message) ====================
		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
