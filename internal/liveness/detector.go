package liveness

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type State string

const (
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// TransitionFunc is invoked synchronously on every state change. Entering
// StateOffline must zero the associated reading; the detector calls the
// function before returning from the observation that caused the change.
type TransitionFunc func(State)

// Detector decides device reachability from the device's last-seen marker.
// Two branches: wall-clock markers are compared against local now directly;
// relative (boot-counter) markers are anchored to the local instant the
// marker value was first observed. A watchdog re-evaluates periodically so a
// silent device still times out.
type Detector struct {
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu           sync.Mutex
	state        State
	onTransition TransitionFunc

	observed bool
	format   TimestampFormat
	// wall-clock branch
	lastSeenMillis int64
	// relative branch: marker value and the local instant it first appeared
	marker       int64
	markerSeenAt time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func NewDetector(timeout, watchdogInterval time.Duration, logger *zap.Logger) *Detector {
	return &Detector{
		timeout:  timeout,
		interval: watchdogInterval,
		logger:   logger,
		now:      time.Now,
		state:    StateOffline,
		stopChan: make(chan struct{}),
	}
}

// OnTransition registers the state-change callback. Must be set before Start.
func (d *Detector) OnTransition(fn TransitionFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onTransition = fn
}

// Start startet den Watchdog-Loop
func (d *Detector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	d.running = true
	d.wg.Add(1)

	go d.watchdogLoop()

	d.logger.Info("Liveness watchdog started",
		zap.Duration("offline_timeout", d.timeout),
		zap.Duration("interval", d.interval))
}

// Stop stoppt den Watchdog
func (d *Detector) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	close(d.stopChan)
	d.wg.Wait()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

func (d *Detector) watchdogLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.Evaluate()
		}
	}
}

// Observe records a fresh last-seen marker pushed by the device and
// re-evaluates liveness.
func (d *Detector) Observe(lastSeen float64) {
	format, value := ClassifyLastSeen(lastSeen)

	d.mu.Lock()
	d.observed = true
	d.format = format

	switch format {
	case FormatRelative:
		// A changed counter value proves the device wrote recently; anchor
		// the local clock to it. A repeated value proves nothing new.
		if value != d.marker || d.markerSeenAt.IsZero() {
			d.marker = value
			d.markerSeenAt = d.now()
		}
	default:
		d.lastSeenMillis = value
	}
	d.mu.Unlock()

	d.Evaluate()
}

// Evaluate recomputes the state from the stored marker. Called on every
// observation and by the watchdog.
func (d *Detector) Evaluate() {
	d.mu.Lock()

	next := d.state
	if !d.observed {
		next = StateOffline
	} else {
		var silence time.Duration
		switch d.format {
		case FormatRelative:
			silence = d.now().Sub(d.markerSeenAt)
		default:
			silence = time.Duration(d.now().UnixMilli()-d.lastSeenMillis) * time.Millisecond
		}

		if silence > d.timeout {
			next = StateOffline
		} else {
			next = StateOnline
		}
	}

	d.transitionLocked(next, "")
}

// Fail forces OFFLINE after a meta-subscription transport failure. Liveness
// fails closed: no channel means no evidence the device is reachable.
func (d *Detector) Fail(err error) {
	d.mu.Lock()
	d.observed = false
	d.markerSeenAt = time.Time{}
	d.transitionLocked(StateOffline, err.Error())
}

// transitionLocked consumes the held lock and releases it before invoking
// the callback, so the callback may call back into the detector.
func (d *Detector) transitionLocked(next State, reason string) {
	previous := d.state
	d.state = next
	fn := d.onTransition
	d.mu.Unlock()

	if previous == next {
		return
	}

	d.logger.Info("Device liveness changed",
		zap.String("state", string(next)),
		zap.String("previous", string(previous)),
		zap.String("reason", reason))

	if fn != nil {
		fn(next)
	}
}

func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Detector) IsOnline() bool {
	return d.State() == StateOnline
}
