package control_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/auth"
	"github.com/agrovate/farmcore/internal/control"
	"github.com/agrovate/farmcore/internal/types"
)

type fakePublisher struct {
	topic    string
	payload  []byte
	retained bool
	calls    int
	err      error
}

func (f *fakePublisher) Publish(topic string, payload []byte, retained bool) error {
	f.calls++
	f.topic = topic
	f.payload = payload
	f.retained = retained
	return f.err
}

func testPrincipal() auth.Principal {
	return auth.Principal{
		ID:       "user-1",
		Username: "kpetersen",
		Email:    "k.petersen@example.com",
		Role:     "operator",
	}
}

func TestChannel_SendPublishesValidCommand(t *testing.T) {
	pub := &fakePublisher{}
	ch, err := control.NewChannel("dev-1", "farm/dev-1/relay/set", pub, zap.NewNop())
	require.NoError(t, err)

	before := time.Now().UnixMilli()
	cmd, err := ch.Send(context.Background(), types.RelayOn, testPrincipal())
	require.NoError(t, err)

	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, "farm/dev-1/relay/set", pub.topic)
	assert.False(t, pub.retained)

	var sent types.RelayCommand
	require.NoError(t, json.Unmarshal(pub.payload, &sent))
	assert.Equal(t, types.RelayOn, sent.Value)
	assert.Equal(t, "user-1", sent.RequestedBy)
	assert.Equal(t, "k.petersen@example.com", sent.RequestedByEmail)
	assert.GreaterOrEqual(t, sent.Timestamp, before)

	assert.Equal(t, cmd, sent)
}

func TestChannel_SendWithoutDeviceIsNotReady(t *testing.T) {
	pub := &fakePublisher{}
	ch, err := control.NewChannel("", "farm//relay/set", pub, zap.NewNop())
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), types.RelayOn, testPrincipal())
	assert.ErrorIs(t, err, types.ErrNotReady)
	assert.Zero(t, pub.calls, "no publish without a selected device")
}

func TestChannel_SendWithoutPrincipalIsNotReady(t *testing.T) {
	pub := &fakePublisher{}
	ch, err := control.NewChannel("dev-1", "farm/dev-1/relay/set", pub, zap.NewNop())
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), types.RelayOn, auth.Principal{})
	assert.ErrorIs(t, err, types.ErrNotReady)
	assert.Zero(t, pub.calls)
}

func TestChannel_OptimisticApplySurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: types.ErrUnavailable}
	ch, err := control.NewChannel("dev-1", "farm/dev-1/relay/set", pub, zap.NewNop())
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), types.RelayOn, testPrincipal())
	require.ErrorIs(t, err, types.ErrUnavailable)

	// No rollback on failure; the next device push corrects the read model.
	assert.Equal(t, types.RelayOn, ch.Relay())
}

func TestChannel_ApplyRemoteOverwritesOptimisticState(t *testing.T) {
	pub := &fakePublisher{}
	ch, err := control.NewChannel("dev-1", "farm/dev-1/relay/set", pub, zap.NewNop())
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), types.RelayOn, testPrincipal())
	require.NoError(t, err)
	require.Equal(t, types.RelayOn, ch.Relay())

	// The device rejected the command and reports off. Device truth wins.
	ch.ApplyRemote(types.RelayOff)
	assert.Equal(t, types.RelayOff, ch.Relay())
}

func TestChannel_PublishErrorPassedThrough(t *testing.T) {
	wrapped := errors.New("broker unreachable")
	pub := &fakePublisher{err: wrapped}
	ch, err := control.NewChannel("dev-1", "farm/dev-1/relay/set", pub, zap.NewNop())
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), types.RelayOff, testPrincipal())
	assert.ErrorIs(t, err, wrapped)
}
