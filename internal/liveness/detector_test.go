package liveness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock drives the detector's internal clock without sleeping.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestDetector(timeout time.Duration) (*Detector, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	d := NewDetector(timeout, time.Hour, zap.NewNop())
	d.now = clock.now
	return d, clock
}

func TestDetector_InitialStateOffline(t *testing.T) {
	d, _ := newTestDetector(35 * time.Second)
	assert.Equal(t, StateOffline, d.State())
	assert.False(t, d.IsOnline())
}

func TestDetector_RelativeMarkerGoesOnlineThenTimesOut(t *testing.T) {
	d, clock := newTestDetector(35 * time.Second)

	d.Observe(500)
	require.True(t, d.IsOnline())

	clock.advance(34 * time.Second)
	d.Evaluate()
	assert.True(t, d.IsOnline(), "still inside the timeout window")

	clock.advance(2 * time.Second)
	d.Evaluate()
	assert.False(t, d.IsOnline(), "silence past the timeout")
}

func TestDetector_RepeatedRelativeMarkerDoesNotReanchor(t *testing.T) {
	d, clock := newTestDetector(35 * time.Second)

	d.Observe(500)
	require.True(t, d.IsOnline())

	// The same counter value arriving again is no proof of life.
	clock.advance(20 * time.Second)
	d.Observe(500)

	clock.advance(16 * time.Second)
	d.Evaluate()
	assert.False(t, d.IsOnline())
}

func TestDetector_ChangedRelativeMarkerReanchors(t *testing.T) {
	d, clock := newTestDetector(35 * time.Second)

	d.Observe(500)
	clock.advance(20 * time.Second)
	d.Observe(501)

	clock.advance(16 * time.Second)
	d.Evaluate()
	assert.True(t, d.IsOnline(), "fresh counter value re-anchored the window")
}

func TestDetector_WallClockFreshMarker(t *testing.T) {
	d, clock := newTestDetector(35 * time.Second)

	d.Observe(float64(clock.current.UnixMilli()))
	assert.True(t, d.IsOnline())

	clock.advance(36 * time.Second)
	d.Evaluate()
	assert.False(t, d.IsOnline())
}

func TestDetector_WallClockStaleMarkerStaysOffline(t *testing.T) {
	d, clock := newTestDetector(35 * time.Second)

	stale := clock.current.Add(-70 * time.Second).UnixMilli()
	d.Observe(float64(stale))
	assert.False(t, d.IsOnline())
}

func TestDetector_EpochSecondsNormalized(t *testing.T) {
	d, clock := newTestDetector(35 * time.Second)

	d.Observe(float64(clock.current.Unix()))
	assert.True(t, d.IsOnline())
}

func TestDetector_TransitionCallbackFiresOnChangeOnly(t *testing.T) {
	d, clock := newTestDetector(35 * time.Second)

	var transitions []State
	d.OnTransition(func(s State) { transitions = append(transitions, s) })

	d.Observe(500)
	d.Observe(501)
	d.Evaluate()

	clock.advance(40 * time.Second)
	d.Evaluate()
	d.Evaluate()

	assert.Equal(t, []State{StateOnline, StateOffline}, transitions)
}

func TestDetector_FailForcesOffline(t *testing.T) {
	d, _ := newTestDetector(35 * time.Second)

	d.Observe(500)
	require.True(t, d.IsOnline())

	d.Fail(errors.New("subscription lost"))
	assert.False(t, d.IsOnline())

	// With the observation cleared, re-evaluation stays offline.
	d.Evaluate()
	assert.False(t, d.IsOnline())
}

func TestDetector_CallbackMayReenter(t *testing.T) {
	d, _ := newTestDetector(35 * time.Second)

	var seen State
	d.OnTransition(func(s State) { seen = d.State() })

	d.Observe(500)
	assert.Equal(t, StateOnline, seen)
}
