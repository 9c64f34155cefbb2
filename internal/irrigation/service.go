package irrigation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/transport"
	"github.com/agrovate/farmcore/internal/types"
)

// Store persists schedules, thresholds and the irrigation mode.
type Store interface {
	InsertSchedule(ctx context.Context, deviceID string, rule types.ScheduleRule) error
	DeleteSchedule(ctx context.Context, deviceID, ruleID string) error
	ListSchedules(ctx context.Context, deviceID string) ([]types.ScheduleRule, error)
	UpsertThresholds(ctx context.Context, deviceID string, t types.ThresholdConfig) error
	GetThresholds(ctx context.Context, deviceID string) (types.ThresholdConfig, error)
	UpsertMode(ctx context.Context, deviceID string, mode types.IrrigationMode) error
	GetMode(ctx context.Context, deviceID string) (types.IrrigationMode, error)
}

// Publisher mirrors stored config to the device's retained topics so the
// firmware can act on it without querying the backend.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Service is the typed CRUD surface over irrigation rules and moisture
// thresholds for one device at a time. Only required-field presence is
// checked here; threshold ordering and schedule sanity are deliberately left
// to callers, the hardware tolerates any bounds.
type Service struct {
	store  Store
	bus    Publisher
	topics transport.Topics
	logger *zap.Logger
}

func NewService(store Store, bus Publisher, topics transport.Topics, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		topics: topics,
		logger: logger,
	}
}

// AddSchedule validates required fields, persists the rule and mirrors the
// full schedule list to the device.
func (s *Service) AddSchedule(ctx context.Context, deviceID string, rule types.ScheduleRule, createdBy string) (types.ScheduleRule, error) {
	if rule.StartAt == "" {
		return types.ScheduleRule{}, fmt.Errorf("%w: start_at is required", types.ErrInvalidPayload)
	}
	if rule.Recurrence == "" {
		return types.ScheduleRule{}, fmt.Errorf("%w: recurrence is required", types.ErrInvalidPayload)
	}

	rule.ID = uuid.NewString()
	rule.CreatedBy = createdBy
	rule.CreatedAt = time.Now()

	if err := s.store.InsertSchedule(ctx, deviceID, rule); err != nil {
		return types.ScheduleRule{}, fmt.Errorf("%w: %v", types.ErrWriteFailed, err)
	}

	s.mirrorSchedules(ctx, deviceID)
	return rule, nil
}

// RemoveSchedule deletes one rule and mirrors the remaining list.
func (s *Service) RemoveSchedule(ctx context.Context, deviceID, ruleID string) error {
	if ruleID == "" {
		return fmt.Errorf("%w: schedule id is required", types.ErrInvalidPayload)
	}

	if err := s.store.DeleteSchedule(ctx, deviceID, ruleID); err != nil {
		return fmt.Errorf("%w: %v", types.ErrWriteFailed, err)
	}

	s.mirrorSchedules(ctx, deviceID)
	return nil
}

func (s *Service) ListSchedules(ctx context.Context, deviceID string) ([]types.ScheduleRule, error) {
	return s.store.ListSchedules(ctx, deviceID)
}

// SetThresholds persists the automatic-mode bounds and mirrors them.
func (s *Service) SetThresholds(ctx context.Context, deviceID string, t types.ThresholdConfig) error {
	if err := s.store.UpsertThresholds(ctx, deviceID, t); err != nil {
		return fmt.Errorf("%w: %v", types.ErrWriteFailed, err)
	}

	if payload, err := json.Marshal(t); err == nil {
		if err := s.bus.Publish(s.topics.Thresholds(deviceID), payload, true); err != nil {
			s.logger.Warn("Threshold mirror failed",
				zap.String("device", deviceID),
				zap.Error(err))
		}
	}

	return nil
}

func (s *Service) GetThresholds(ctx context.Context, deviceID string) (types.ThresholdConfig, error) {
	return s.store.GetThresholds(ctx, deviceID)
}

// SetMode switches a device between manual and automatic irrigation.
func (s *Service) SetMode(ctx context.Context, deviceID string, mode types.IrrigationMode) error {
	if mode != types.ModeManual && mode != types.ModeAuto {
		return fmt.Errorf("%w: unknown mode %q", types.ErrInvalidPayload, mode)
	}

	if err := s.store.UpsertMode(ctx, deviceID, mode); err != nil {
		return fmt.Errorf("%w: %v", types.ErrWriteFailed, err)
	}

	if err := s.bus.Publish(s.topics.Mode(deviceID), []byte(mode), true); err != nil {
		return fmt.Errorf("%w: %v", types.ErrWriteFailed, err)
	}

	return nil
}

func (s *Service) GetMode(ctx context.Context, deviceID string) (types.IrrigationMode, error) {
	return s.store.GetMode(ctx, deviceID)
}

// mirrorSchedules pushes the full schedule list to the device's retained
// topic. Best effort: a failed mirror is logged, the stored rules remain the
// source of truth.
func (s *Service) mirrorSchedules(ctx context.Context, deviceID string) {
	rules, err := s.store.ListSchedules(ctx, deviceID)
	if err != nil {
		s.logger.Warn("Schedule mirror read failed",
			zap.String("device", deviceID),
			zap.Error(err))
		return
	}

	payload, err := json.Marshal(rules)
	if err != nil {
		return
	}

	if err := s.bus.Publish(s.topics.Schedules(deviceID), payload, true); err != nil {
		s.logger.Warn("Schedule mirror failed",
			zap.String("device", deviceID),
			zap.Error(err))
	}
}
