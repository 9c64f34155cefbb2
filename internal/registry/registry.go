package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/types"
)

// AssignmentStore is the read/persist surface the registry needs. The
// assignment rows themselves are created by an out-of-scope approval
// workflow; this core only reads them.
type AssignmentStore interface {
	ListAssignedDevices(ctx context.Context, userID string) ([]types.DeviceSummary, error)
	GetActiveDevice(ctx context.Context, userID string) (string, error)
	SaveActiveDevice(ctx context.Context, userID, deviceID string) error
}

// SwitchFunc is notified whenever a user's active device changes, including
// transparent fallbacks. The session layer uses it to tear down and rebuild
// device subscriptions.
type SwitchFunc func(userID, deviceID string)

// Registry tracks per-user device assignments, enforces the concurrent
// assignment cap, and owns the persisted active-device selection.
type Registry struct {
	store       AssignmentStore
	maxAssigned int
	interval    time.Duration
	logger      *zap.Logger
	onSwitch    SwitchFunc

	mu      sync.RWMutex
	devices map[string][]types.DeviceSummary
	active  map[string]string

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func New(store AssignmentStore, maxAssigned int, refreshInterval time.Duration, logger *zap.Logger) *Registry {
	if maxAssigned <= 0 {
		maxAssigned = 3
	}
	return &Registry{
		store:       store,
		maxAssigned: maxAssigned,
		interval:    refreshInterval,
		logger:      logger,
		devices:     make(map[string][]types.DeviceSummary),
		active:      make(map[string]string),
		stopChan:    make(chan struct{}),
	}
}

// OnSwitch registers the active-device change listener. Must be set before
// the first Load.
func (r *Registry) OnSwitch(fn SwitchFunc) {
	r.onSwitch = fn
}

// Load refreshes the user's assignment set from the store and applies the
// active-device selection policy: keep the persisted selection if it is
// still assigned, otherwise fall back to the newest-assigned device. The
// fallback is transparent, not a user action.
func (r *Registry) Load(ctx context.Context, userID string) ([]types.DeviceSummary, error) {
	devices, err := r.store.ListAssignedDevices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	active, err := r.store.GetActiveDevice(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active device: %w", err)
	}

	if !contains(devices, active) {
		previous := active
		active = ""
		if len(devices) > 0 {
			// devices is sorted newest-first by the store.
			active = devices[0].DeviceID
			if err := r.store.SaveActiveDevice(ctx, userID, active); err != nil {
				return nil, fmt.Errorf("failed to persist fallback selection: %w", err)
			}
			r.logger.Info("Active device re-selected",
				zap.String("user_id", userID),
				zap.String("previous", previous),
				zap.String("device_id", active))
		}
	}

	r.mu.Lock()
	prevActive := r.active[userID]
	r.devices[userID] = devices
	r.active[userID] = active
	r.mu.Unlock()

	if active != "" && active != prevActive && r.onSwitch != nil {
		r.onSwitch(userID, active)
	}

	return devices, nil
}

// Switch persists a user-chosen active device and updates memory
// immediately. Membership is not re-validated here: the caller saw the
// assignment list it chose from, and a read-before-write check would race
// with concurrent reassignment anyway.
func (r *Registry) Switch(ctx context.Context, userID, deviceID string) error {
	if err := r.store.SaveActiveDevice(ctx, userID, deviceID); err != nil {
		return fmt.Errorf("failed to persist selection: %w", err)
	}

	r.mu.Lock()
	r.active[userID] = deviceID
	r.mu.Unlock()

	r.logger.Info("Active device switched",
		zap.String("user_id", userID),
		zap.String("device_id", deviceID))

	if r.onSwitch != nil {
		r.onSwitch(userID, deviceID)
	}

	return nil
}

// Active returns the user's current active device id, "" when none.
func (r *Registry) Active(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[userID]
}

// Devices returns the cached assignment set from the last Load.
func (r *Registry) Devices(userID string) []types.DeviceSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices[userID]
}

// CanRequestMoreDevices reports whether the user is under the assignment cap.
func (r *Registry) CanRequestMoreDevices(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices[userID]) < r.maxAssigned
}

// UsageSummary projects cap usage for display. Pure projection, nothing
// stored.
func (r *Registry) UsageSummary(userID string) types.DeviceUsageSummary {
	r.mu.RLock()
	current := len(r.devices[userID])
	r.mu.RUnlock()

	available := r.maxAssigned - current
	if available < 0 {
		available = 0
	}

	return types.DeviceUsageSummary{
		Current:    current,
		Max:        r.maxAssigned,
		Available:  available,
		Percentage: float64(current) / float64(r.maxAssigned) * 100,
	}
}

// Start begins the periodic refresh loop. Assignments change through an
// external approval workflow, so the registry polls for users it has seen.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running || r.interval <= 0 {
		return
	}

	r.running = true
	r.wg.Add(1)

	go r.refreshLoop()

	r.logger.Info("Assignment refresh started", zap.Duration("interval", r.interval))
}

func (r *Registry) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Registry) refreshLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.refreshAll()
		}
	}
}

func (r *Registry) refreshAll() {
	r.mu.RLock()
	users := make([]string, 0, len(r.devices))
	for userID := range r.devices {
		users = append(users, userID)
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.interval/2)
	defer cancel()

	for _, userID := range users {
		if _, err := r.Load(ctx, userID); err != nil {
			r.logger.Error("Assignment refresh failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
}

func contains(devices []types.DeviceSummary, deviceID string) bool {
	if deviceID == "" {
		return false
	}
	for _, d := range devices {
		if d.DeviceID == deviceID {
			return true
		}
	}
	return false
}
