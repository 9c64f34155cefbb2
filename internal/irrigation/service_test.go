package irrigation_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/irrigation"
	"github.com/agrovate/farmcore/internal/transport"
	"github.com/agrovate/farmcore/internal/types"
)

type fakeStore struct {
	schedules  map[string][]types.ScheduleRule
	thresholds map[string]types.ThresholdConfig
	modes      map[string]types.IrrigationMode
	insertErr  error
	modeErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schedules:  make(map[string][]types.ScheduleRule),
		thresholds: make(map[string]types.ThresholdConfig),
		modes:      make(map[string]types.IrrigationMode),
	}
}

func (f *fakeStore) InsertSchedule(_ context.Context, deviceID string, rule types.ScheduleRule) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.schedules[deviceID] = append(f.schedules[deviceID], rule)
	return nil
}

func (f *fakeStore) DeleteSchedule(_ context.Context, deviceID, ruleID string) error {
	rules := f.schedules[deviceID]
	for i, r := range rules {
		if r.ID == ruleID {
			f.schedules[deviceID] = append(rules[:i], rules[i+1:]...)
			return nil
		}
	}
	return errors.New("no rows")
}

func (f *fakeStore) ListSchedules(_ context.Context, deviceID string) ([]types.ScheduleRule, error) {
	return f.schedules[deviceID], nil
}

func (f *fakeStore) UpsertThresholds(_ context.Context, deviceID string, t types.ThresholdConfig) error {
	f.thresholds[deviceID] = t
	return nil
}

func (f *fakeStore) GetThresholds(_ context.Context, deviceID string) (types.ThresholdConfig, error) {
	return f.thresholds[deviceID], nil
}

func (f *fakeStore) UpsertMode(_ context.Context, deviceID string, mode types.IrrigationMode) error {
	if f.modeErr != nil {
		return f.modeErr
	}
	f.modes[deviceID] = mode
	return nil
}

func (f *fakeStore) GetMode(_ context.Context, deviceID string) (types.IrrigationMode, error) {
	if mode, ok := f.modes[deviceID]; ok {
		return mode, nil
	}
	return types.ModeManual, nil
}

type fakePublisher struct {
	messages map[string][]byte
	retained map[string]bool
	err      error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		messages: make(map[string][]byte),
		retained: make(map[string]bool),
	}
}

func (f *fakePublisher) Publish(topic string, payload []byte, retained bool) error {
	if f.err != nil {
		return f.err
	}
	f.messages[topic] = payload
	f.retained[topic] = retained
	return nil
}

func newTestService(store *fakeStore, pub *fakePublisher) *irrigation.Service {
	return irrigation.NewService(store, pub, transport.NewTopics("farm"), zap.NewNop())
}

func TestAddSchedule_RequiredFields(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakePublisher())

	_, err := svc.AddSchedule(context.Background(), "dev-1",
		types.ScheduleRule{Recurrence: "daily"}, "u1")
	assert.ErrorIs(t, err, types.ErrInvalidPayload)

	_, err = svc.AddSchedule(context.Background(), "dev-1",
		types.ScheduleRule{StartAt: "06:00"}, "u1")
	assert.ErrorIs(t, err, types.ErrInvalidPayload)
}

func TestAddSchedule_PersistsAndMirrors(t *testing.T) {
	store := newFakeStore()
	pub := newFakePublisher()
	svc := newTestService(store, pub)

	created, err := svc.AddSchedule(context.Background(), "dev-1",
		types.ScheduleRule{StartAt: "06:00", Recurrence: "daily", DurationMin: 15}, "u1")
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.CreatedBy)
	assert.False(t, created.CreatedAt.IsZero())

	require.Len(t, store.schedules["dev-1"], 1)

	mirror, ok := pub.messages["farm/dev-1/schedules"]
	require.True(t, ok, "schedule list mirrored to the device")
	assert.True(t, pub.retained["farm/dev-1/schedules"])

	var mirrored []types.ScheduleRule
	require.NoError(t, json.Unmarshal(mirror, &mirrored))
	require.Len(t, mirrored, 1)
	assert.Equal(t, created.ID, mirrored[0].ID)
}

func TestAddSchedule_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	pub := newFakePublisher()
	svc := newTestService(store, pub)

	_, err := svc.AddSchedule(context.Background(), "dev-1",
		types.ScheduleRule{StartAt: "06:00", Recurrence: "daily"}, "u1")

	assert.ErrorIs(t, err, types.ErrWriteFailed)
	assert.Empty(t, pub.messages, "nothing mirrored on a failed write")
}

func TestRemoveSchedule(t *testing.T) {
	store := newFakeStore()
	pub := newFakePublisher()
	svc := newTestService(store, pub)

	created, err := svc.AddSchedule(context.Background(), "dev-1",
		types.ScheduleRule{StartAt: "06:00", Recurrence: "daily"}, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveSchedule(context.Background(), "dev-1", created.ID))
	assert.Empty(t, store.schedules["dev-1"])

	err = svc.RemoveSchedule(context.Background(), "dev-1", "")
	assert.ErrorIs(t, err, types.ErrInvalidPayload)

	err = svc.RemoveSchedule(context.Background(), "dev-1", "missing")
	assert.ErrorIs(t, err, types.ErrWriteFailed)
}

func TestSetThresholds_PersistsAndMirrors(t *testing.T) {
	store := newFakeStore()
	pub := newFakePublisher()
	svc := newTestService(store, pub)

	cfg := types.ThresholdConfig{SoilMoistureLow: 30, SoilMoistureHigh: 70}
	require.NoError(t, svc.SetThresholds(context.Background(), "dev-1", cfg))

	assert.Equal(t, cfg, store.thresholds["dev-1"])

	var mirrored types.ThresholdConfig
	require.NoError(t, json.Unmarshal(pub.messages["farm/dev-1/thresholds"], &mirrored))
	assert.Equal(t, cfg, mirrored)
	assert.True(t, pub.retained["farm/dev-1/thresholds"])
}

func TestSetThresholds_MirrorFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	pub := newFakePublisher()
	pub.err = errors.New("broker gone")
	svc := newTestService(store, pub)

	cfg := types.ThresholdConfig{SoilMoistureLow: 30, SoilMoistureHigh: 70}
	require.NoError(t, svc.SetThresholds(context.Background(), "dev-1", cfg))
	assert.Equal(t, cfg, store.thresholds["dev-1"])
}

func TestSetMode(t *testing.T) {
	store := newFakeStore()
	pub := newFakePublisher()
	svc := newTestService(store, pub)

	require.NoError(t, svc.SetMode(context.Background(), "dev-1", types.ModeAuto))
	assert.Equal(t, types.ModeAuto, store.modes["dev-1"])
	assert.Equal(t, []byte("auto"), pub.messages["farm/dev-1/mode"])
	assert.True(t, pub.retained["farm/dev-1/mode"])

	err := svc.SetMode(context.Background(), "dev-1", "sprinkle")
	assert.ErrorIs(t, err, types.ErrInvalidPayload)

	mode, err := svc.GetMode(context.Background(), "dev-2")
	require.NoError(t, err)
	assert.Equal(t, types.ModeManual, mode, "manual is the default mode")
}

func TestSetMode_PublishFailure(t *testing.T) {
	store := newFakeStore()
	pub := newFakePublisher()
	pub.err = errors.New("broker gone")
	svc := newTestService(store, pub)

	err := svc.SetMode(context.Background(), "dev-1", types.ModeAuto)
	assert.ErrorIs(t, err, types.ErrWriteFailed)
}
