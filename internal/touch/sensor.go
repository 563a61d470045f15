package touch

import (
	"fmt"
	"io"

	"github.com/sweeney/touch-sensor/internal/clock"
	"github.com/sweeney/touch-sensor/internal/gpio"
)

const (
	calibrationRuns = 10
	// calibrationSeed starts each calibration sum. It also replaces a
	// baseline that truncates to zero.
	calibrationSeed = 2
)

// Sensor tracks calibration, raw readings and the debounced touch state of
// two pads and a connection-detect line. Not safe for concurrent use.
type Sensor struct {
	bus *bus

	leftBaseline  uint16
	rightBaseline uint16
	leftRaw       uint16
	rightRaw      uint16
	connected     bool

	state   State
	history history
}

// New arms the touch channels, floats the sense/drive pins and calibrates.
// It blocks for the whole calibration (about half a second).
func New(hw gpio.Hardware, sleep clock.Sleeper, pins Pins) *Sensor {
	s := &Sensor{
		bus:   newBus(hw, sleep, pins),
		state: NoTouch,
	}
	s.run(startupSteps)
	s.Calibrate()
	return s
}

// Calibrate re-measures both baselines as the seeded average of
// calibrationRuns samples. It is never called implicitly by Update.
func (s *Sensor) Calibrate() {
	s.run(calibrationSteps)

	left := uint32(calibrationSeed)
	right := uint32(calibrationSeed)
	for i := 0; i < calibrationRuns; i++ {
		s.bus.sleep.Sleep(calibrationSettle)
		left += uint32(s.bus.hw.ReadTouch(s.bus.pins.Left))
		right += uint32(s.bus.hw.ReadTouch(s.bus.pins.Right))
	}

	s.leftBaseline = baseline(left)
	s.rightBaseline = baseline(right)
}

func baseline(sum uint32) uint16 {
	avg := sum / calibrationRuns
	if avg == 0 {
		avg = calibrationSeed
	}
	return uint16(avg)
}

// Update runs one sampling cycle and reports whether the committed state
// changed.
func (s *Sensor) Update() bool {
	s.run(acquireSteps)
	s.run(connectionSteps)

	previous := s.state
	s.commit(Classify(s.leftRaw, s.rightRaw, s.leftBaseline, s.rightBaseline, s.connected))
	return previous != s.state
}

// commit records a raw classification and adopts it only when the whole
// history agrees.
func (s *Sensor) commit(measured State) {
	s.history.push(measured)
	if s.history.allEqual(measured) {
		s.state = measured
	}
}

// State returns the committed touch state.
func (s *Sensor) State() State {
	return s.state
}

// StateString returns the committed touch state's name.
func (s *Sensor) StateString() string {
	return s.state.String()
}

// LeftValue returns the normalized left magnitude.
func (s *Sensor) LeftValue() float64 {
	return normalize(s.leftBaseline, s.leftRaw)
}

// RightValue returns the normalized right magnitude.
func (s *Sensor) RightValue() float64 {
	return normalize(s.rightBaseline, s.rightRaw)
}

// LeftRaw returns the most recent left reading.
func (s *Sensor) LeftRaw() uint16 {
	return s.leftRaw
}

// RightRaw returns the most recent right reading.
func (s *Sensor) RightRaw() uint16 {
	return s.rightRaw
}

// Baselines returns the calibrated left and right baselines.
func (s *Sensor) Baselines() (left, right uint16) {
	return s.leftBaseline, s.rightBaseline
}

// Connected returns the most recent connection-detect result.
func (s *Sensor) Connected() bool {
	return s.connected
}

// Reading returns a copy of the current values.
func (s *Sensor) Reading() Reading {
	return Reading{
		LeftRaw:       s.leftRaw,
		RightRaw:      s.rightRaw,
		LeftBaseline:  s.leftBaseline,
		RightBaseline: s.rightBaseline,
		Connected:     s.connected,
		State:         s.state,
	}
}

// WriteState writes the full single-line diagnostic dump.
func (s *Sensor) WriteState(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Left: \t%d\t Right: \t%d\t Left Cal: \t%d\t Right Cal: \t%d\t Connected: \t%d\t State: \t%s\n",
		s.leftRaw, s.rightRaw, s.leftBaseline, s.rightBaseline, boolToInt(s.connected), s.state)
	return err
}

// WriteReadings writes just the raw readings.
func (s *Sensor) WriteReadings(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Left: \t%d\t Right: \t%d\n", s.leftRaw, s.rightRaw)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
