package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/api/rest"
	"github.com/agrovate/farmcore/internal/api/websocket"
	"github.com/agrovate/farmcore/internal/auth"
	"github.com/agrovate/farmcore/internal/config"
	"github.com/agrovate/farmcore/internal/irrigation"
	"github.com/agrovate/farmcore/internal/registry"
	"github.com/agrovate/farmcore/internal/session"
	"github.com/agrovate/farmcore/internal/storage"
	"github.com/agrovate/farmcore/internal/telemetry"
	"github.com/agrovate/farmcore/internal/transport"
)

func main() {
	// Logger initialisieren
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Config laden
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Config loaded successfully")

	// PostgreSQL verbinden
	db, err := storage.NewPostgresClient(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// MQTT device bus
	bus, err := transport.NewClient(cfg.MQTT, logger)
	if err != nil {
		logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}
	defer bus.Disconnect()

	topics := transport.NewTopics(cfg.MQTT.TopicPrefix)

	// Telemetry alias table (compiled-in default, YAML override optional)
	table := telemetry.DefaultAliasTable()
	if cfg.Devices.AliasTablePath != "" {
		table, err = telemetry.LoadAliasTable(cfg.Devices.AliasTablePath)
		if err != nil {
			logger.Fatal("Failed to load alias table", zap.Error(err))
		}
		logger.Info("Alias table loaded",
			zap.String("path", cfg.Devices.AliasTablePath),
			zap.Int("version", table.Version))
	}

	// Auth + WebSocket hub
	authService := auth.NewService(db, cfg.Auth)
	wsHub := websocket.NewHub(logger, authService)
	go wsHub.Run()

	// Per-user device sessions fed into the hub
	sessions := session.NewManager(bus, topics, table,
		cfg.Liveness.OfflineTimeout, cfg.Liveness.WatchdogInterval,
		websocket.NewSessionEvents(wsHub), logger)

	// Assignment registry drives session activation
	reg := registry.New(db, cfg.Devices.MaxAssigned, cfg.Devices.RefreshInterval, logger)
	reg.OnSwitch(func(userID, deviceID string) {
		if err := sessions.Activate(userID, deviceID); err != nil {
			logger.Error("Failed to activate device session",
				zap.String("user_id", userID),
				zap.String("device_id", deviceID),
				zap.Error(err))
		}
	})
	reg.Start()

	irrigationService := irrigation.NewService(db, bus, topics, logger)

	restServer := rest.NewServer(cfg, logger, wsHub, authService, reg, sessions, irrigationService)
	if err := restServer.Start(); err != nil {
		logger.Fatal("Failed to start REST API", zap.Error(err))
	}

	logger.Info("FarmCore started successfully")

	// Graceful Shutdown auf Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := restServer.Shutdown(ctx); err != nil {
		logger.Error("REST shutdown failed", zap.Error(err))
	}

	reg.Stop()
	sessions.StopAll()

	logger.Info("FarmCore stopped successfully")
}
