// Package touch turns raw capacitive readings from two pads and a
// connection-detect line into a debounced touch state.
// The sensor is single-threaded: all hardware access and settle delays run
// to completion on the calling goroutine.
package touch

import (
	"time"

	"github.com/sweeney/touch-sensor/internal/gpio"
)

// State is a discrete touch category.
type State uint8

const (
	NoTouch State = iota
	LeftOnly
	RightOnly
	BothDisconnected
	BothConnected
)

// String returns the diagnostic name of the state.
func (s State) String() string {
	switch s {
	case NoTouch:
		return "NO_TOUCH"
	case LeftOnly:
		return "LEFT_ONLY"
	case RightOnly:
		return "RIGHT_ONLY"
	case BothDisconnected:
		return "BOTH_NO_CON"
	case BothConnected:
		return "BOTH_CON"
	default:
		return "UNKNOWN"
	}
}

// States lists every valid state in enumeration order.
var States = []State{NoTouch, LeftOnly, RightOnly, BothDisconnected, BothConnected}

// Pins is the fixed pin assignment of a sensor.
type Pins struct {
	Left  gpio.Pin // Left touch pad
	Right gpio.Pin // Right touch pad
	Sense gpio.Pin // Connection detect input
	Drive gpio.Pin // Connection detect output
}

// DefaultPins returns the standard wiring.
func DefaultPins() Pins {
	return Pins{
		Left:  gpio.DefaultPinLeft,
		Right: gpio.DefaultPinRight,
		Sense: gpio.DefaultPinSense,
		Drive: gpio.DefaultPinDrive,
	}
}

// Reading is a point-in-time copy of a sensor's values.
type Reading struct {
	LeftRaw       uint16
	RightRaw      uint16
	LeftBaseline  uint16
	RightBaseline uint16
	Connected     bool
	State         State
}

// LeftValue returns the normalized left magnitude, (baseline-raw)/baseline.
func (r Reading) LeftValue() float64 {
	return normalize(r.LeftBaseline, r.LeftRaw)
}

// RightValue returns the normalized right magnitude, (baseline-raw)/baseline.
func (r Reading) RightValue() float64 {
	return normalize(r.RightBaseline, r.RightRaw)
}

// normalize is positive when touched and negative when raw exceeds baseline.
func normalize(baseline, raw uint16) float64 {
	if baseline == 0 {
		return 0
	}
	return float64(int32(baseline)-int32(raw)) / float64(baseline)
}

// Transition is a committed state change to be published.
type Transition struct {
	Timestamp time.Time
	From      State
	To        State
	Reading   Reading
}
