package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/control"
	"github.com/agrovate/farmcore/internal/liveness"
	"github.com/agrovate/farmcore/internal/telemetry"
	"github.com/agrovate/farmcore/internal/transport"
	"github.com/agrovate/farmcore/internal/types"
)

// Session owns everything that belongs to one (user, active device) pair:
// the six bus subscriptions, the liveness detector, the control channel and
// the read models. Constructed on device selection, torn down as a unit on
// device change — a subscription may never outlive its session, stale data
// from the previous device would otherwise keep arriving.
type Session struct {
	userID   string
	deviceID string
	bus      transport.Bus
	topics   transport.Topics
	table    *telemetry.AliasTable
	events   Events
	logger   *zap.Logger

	detector *liveness.Detector
	control  *control.Channel

	mu         sync.RWMutex
	reading    types.CanonicalReading
	mode       types.IrrigationMode
	schedules  []types.ScheduleRule
	thresholds types.ThresholdConfig
	stopped    bool

	subs []transport.Subscription
}

func New(
	userID, deviceID string,
	bus transport.Bus,
	topics transport.Topics,
	table *telemetry.AliasTable,
	offlineTimeout, watchdogInterval time.Duration,
	events Events,
	logger *zap.Logger,
) (*Session, error) {
	channel, err := control.NewChannel(deviceID, topics.RelaySet(deviceID), bus, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create control channel: %w", err)
	}

	s := &Session{
		userID:   userID,
		deviceID: deviceID,
		bus:      bus,
		topics:   topics,
		table:    table,
		events:   events,
		logger:   logger,
		control:  channel,
		reading:  types.ZeroReading(),
		mode:     types.ModeManual,
	}

	s.detector = liveness.NewDetector(offlineTimeout, watchdogInterval, logger)
	s.detector.OnTransition(s.onLiveness)

	return s, nil
}

// Start opens the six device subscriptions and the liveness watchdog.
func (s *Session) Start() error {
	subs := []struct {
		topic   string
		handler transport.Handler
	}{
		{s.topics.Telemetry(s.deviceID), s.handleTelemetry},
		{s.topics.Meta(s.deviceID), s.handleMeta},
		{s.topics.Relay(s.deviceID), s.handleRelay},
		{s.topics.Mode(s.deviceID), s.handleMode},
		{s.topics.Schedules(s.deviceID), s.handleSchedules},
		{s.topics.Thresholds(s.deviceID), s.handleThresholds},
	}

	for _, sub := range subs {
		handle, err := s.bus.Subscribe(sub.topic, sub.handler)
		if err != nil {
			s.teardownSubs()
			return err
		}
		s.subs = append(s.subs, handle)
	}

	// Transport loss means we can no longer tell the device is alive.
	s.bus.OnConnectionLost(func(err error) {
		s.mu.RLock()
		stopped := s.stopped
		s.mu.RUnlock()
		if !stopped {
			s.detector.Fail(fmt.Errorf("%w: %v", types.ErrSubscription, err))
		}
	})

	s.detector.Start()

	s.logger.Info("Device session started",
		zap.String("user_id", s.userID),
		zap.String("device_id", s.deviceID))

	return nil
}

// Stop cancels every subscription before the next session may start.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.teardownSubs()
	s.detector.Stop()

	s.logger.Info("Device session stopped",
		zap.String("user_id", s.userID),
		zap.String("device_id", s.deviceID))
}

func (s *Session) teardownSubs() {
	for _, sub := range s.subs {
		if err := sub.Cancel(); err != nil {
			s.logger.Warn("Failed to cancel subscription",
				zap.String("topic", sub.Topic()),
				zap.Error(err))
		}
	}
	s.subs = nil
}

func (s *Session) DeviceID() string {
	return s.deviceID
}

// Reading returns the current read model. While the device is OFFLINE the
// zeroed reading is returned wholesale, never stale values.
func (s *Session) Reading() types.CanonicalReading {
	if !s.detector.IsOnline() {
		return types.ZeroReading()
	}

	s.mu.RLock()
	r := s.reading
	s.mu.RUnlock()

	r.RelayStatus = s.control.Relay()
	r.DeviceOnline = true
	return r
}

func (s *Session) IsOnline() bool {
	return s.detector.IsOnline()
}

func (s *Session) Control() *control.Channel {
	return s.control
}

func (s *Session) Mode() types.IrrigationMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Session) Schedules() []types.ScheduleRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedules
}

func (s *Session) Thresholds() types.ThresholdConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

// onLiveness runs synchronously on every detector transition. Going OFFLINE
// zeroes the reading in the same step, so consumers never observe offline
// state with stale non-zero values.
func (s *Session) onLiveness(state liveness.State) {
	online := state == liveness.StateOnline

	if !online {
		s.mu.Lock()
		s.reading = types.ZeroReading()
		s.mu.Unlock()
		s.events.ReadingUpdated(s.deviceID, types.ZeroReading())
	}

	s.events.LivenessChanged(s.deviceID, online)
}

func (s *Session) handleTelemetry(_ string, payload []byte) {
	// Readings are not applied while OFFLINE; the meta channel must bring
	// the device back first. Offline wins over a late stale reading.
	if !s.detector.IsOnline() {
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		s.logger.Warn("Malformed telemetry payload",
			zap.String("device_id", s.deviceID),
			zap.Error(err))
		return
	}

	reading, missing := telemetry.NormalizeWith(s.table, raw)
	if reading == nil {
		return
	}
	if len(missing) > 0 {
		s.logger.Debug("Telemetry missing expected fields",
			zap.String("device_id", s.deviceID),
			zap.Strings("fields", missing))
	}

	s.mu.Lock()
	s.reading = *reading
	s.mu.Unlock()

	s.events.ReadingUpdated(s.deviceID, s.Reading())
}

func (s *Session) handleMeta(_ string, payload []byte) {
	lastSeen, ok := parseLastSeen(payload)
	if !ok {
		s.logger.Warn("Malformed meta payload",
			zap.String("device_id", s.deviceID),
			zap.ByteString("payload", payload))
		return
	}

	s.detector.Observe(lastSeen)
}

func (s *Session) handleRelay(_ string, payload []byte) {
	state, ok := parseRelayState(payload)
	if !ok {
		s.logger.Warn("Malformed relay payload",
			zap.String("device_id", s.deviceID),
			zap.ByteString("payload", payload))
		return
	}

	// Device-reported truth overwrites any optimistic value.
	s.control.ApplyRemote(state)
	s.events.RelayStatus(s.deviceID, state)
}

func (s *Session) handleMode(_ string, payload []byte) {
	mode := types.IrrigationMode(strings.TrimSpace(string(payload)))
	if mode != types.ModeManual && mode != types.ModeAuto {
		return
	}

	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()

	s.events.ModeChanged(s.deviceID, mode)
}

func (s *Session) handleSchedules(_ string, payload []byte) {
	var rules []types.ScheduleRule
	if err := json.Unmarshal(payload, &rules); err != nil {
		return
	}

	s.mu.Lock()
	s.schedules = rules
	s.mu.Unlock()
}

func (s *Session) handleThresholds(_ string, payload []byte) {
	var t types.ThresholdConfig
	if err := json.Unmarshal(payload, &t); err != nil {
		return
	}

	s.mu.Lock()
	s.thresholds = t
	s.mu.Unlock()
}

// parseLastSeen accepts {"lastSeen": n} as well as a bare number; some
// firmware revisions publish either.
func parseLastSeen(payload []byte) (float64, bool) {
	var wrapped struct {
		LastSeen *float64 `json:"lastSeen"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil && wrapped.LastSeen != nil {
		return *wrapped.LastSeen, true
	}

	if n, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64); err == nil {
		return n, true
	}

	return 0, false
}

func parseRelayState(payload []byte) (types.RelayState, bool) {
	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil && wrapped.Value != "" {
		return types.RelayState(wrapped.Value), true
	}

	raw := strings.Trim(strings.TrimSpace(string(payload)), `"`)
	if raw == string(types.RelayOn) || raw == string(types.RelayOff) {
		return types.RelayState(raw), true
	}

	return "", false
}
