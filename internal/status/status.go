// Package status provides a thread-safe status tracker for the touch-sensor daemon.
// The run loop writes to it; HTTP handlers and heartbeat events read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/touch-sensor/internal/touch"
)

// NetworkInfo contains network state as reported by the host helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	Pins        touch.Pins
}

// Counts is the number of committed transitions into each state.
type Counts struct {
	NoTouch          int
	LeftOnly         int
	RightOnly        int
	BothDisconnected int
	BothConnected    int
}

// Add increments the counter for s. Unknown states are ignored.
func (c *Counts) Add(s touch.State) {
	switch s {
	case touch.NoTouch:
		c.NoTouch++
	case touch.LeftOnly:
		c.LeftOnly++
	case touch.RightOnly:
		c.RightOnly++
	case touch.BothDisconnected:
		c.BothDisconnected++
	case touch.BothConnected:
		c.BothConnected++
	}
}

// Total returns the sum of all counters.
func (c Counts) Total() int {
	return c.NoTouch + c.LeftOnly + c.RightOnly + c.BothDisconnected + c.BothConnected
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Reading       touch.Reading
	Cycles        uint64
	Counts        Counts
	Calibrated    bool
	CalibratedAt  time.Time
	LastChange    time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	snap          Snapshot
	lastHeartbeat time.Time
	now           func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		lastHeartbeat: startTime,
		now:           time.Now,
	}
}

// Update stores the latest sensor reading. Called from the run loop after
// every sensor update.
func (t *Tracker) Update(r touch.Reading) {
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.Cycles++
	t.mu.Unlock()
}

// RecordTransition counts a committed transition into s.
func (t *Tracker) RecordTransition(s touch.State, at time.Time) {
	t.mu.Lock()
	t.snap.Counts.Add(s)
	t.snap.LastChange = at
	t.mu.Unlock()
}

// MarkCalibrated records a completed calibration and the reading taken
// right after it, so the new baselines are visible before the next cycle.
// It does not count as a cycle.
func (t *Tracker) MarkCalibrated(at time.Time, r touch.Reading) {
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.Calibrated = true
	t.snap.CalibratedAt = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// HeartbeatDue reports whether interval has elapsed since the last
// heartbeat and, if so, restarts the interval at now. A zero or negative
// interval disables heartbeats.
func (t *Tracker) HeartbeatDue(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.lastHeartbeat) < interval {
		return false
	}
	t.lastHeartbeat = now
	return true
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
