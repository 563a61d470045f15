package touch

import (
	"time"

	"github.com/sweeney/touch-sensor/internal/clock"
	"github.com/sweeney/touch-sensor/internal/gpio"
)

// Settle delays. Empirical values for the shared sense/touch circuit.
const (
	calibrationSettle = 50 * time.Millisecond
	acquireSettle     = 1 * time.Millisecond
	pulseSettle       = 2 * time.Millisecond
	releaseSettle     = 1 * time.Millisecond
	rearmSettle       = 10 * time.Millisecond
)

// bus owns every pin reconfiguration. The sense and drive pins share the
// capacitive sensing circuit, so any non-floating mode on either of them
// disarms touch sensing until the pads are re-armed.
type bus struct {
	hw    gpio.Hardware
	sleep clock.Sleeper
	pins  Pins
	modes map[gpio.Pin]gpio.Mode
	armed bool
}

func newBus(hw gpio.Hardware, sleep clock.Sleeper, pins Pins) *bus {
	return &bus{
		hw:    hw,
		sleep: sleep,
		pins:  pins,
		modes: make(map[gpio.Pin]gpio.Mode),
	}
}

// setMode is the only place pin modes change.
func (b *bus) setMode(pin gpio.Pin, mode gpio.Mode) {
	b.hw.SetMode(pin, mode)
	b.modes[pin] = mode
	if mode != gpio.ModeFloating {
		b.armed = false
	}
}

func (b *bus) arm() {
	b.hw.ArmTouch(b.pins.Left)
	b.hw.ArmTouch(b.pins.Right)
	b.armed = true
}

// ready reports whether touch channels can be read: pads armed and the
// sense/drive pair floating.
func (b *bus) ready() bool {
	drive, okDrive := b.modes[b.pins.Drive]
	sense, okSense := b.modes[b.pins.Sense]
	return b.armed &&
		okDrive && drive == gpio.ModeFloating &&
		okSense && sense == gpio.ModeFloating
}

// step is one action of a phase followed by its settle delay.
type step struct {
	do     func(s *Sensor)
	settle time.Duration
}

func (s *Sensor) run(steps []step) {
	for _, st := range steps {
		if st.do != nil {
			st.do(s)
		}
		if st.settle > 0 {
			s.bus.sleep.Sleep(st.settle)
		}
	}
}

// Phase tables. Order and settle values are load-bearing.
var (
	// startupSteps activates touch sensing and floats the sense/drive pair
	// so pull resistors do not load the pads.
	startupSteps = []step{
		{do: (*Sensor).armTouch},
		{do: (*Sensor).floatDriveThenSense},
	}

	// calibrationSteps precede the calibration sample loop.
	calibrationSteps = []step{
		{do: (*Sensor).floatDriveThenSense},
	}

	acquireSteps = []step{
		{do: (*Sensor).floatDriveThenSense, settle: acquireSettle},
		{do: (*Sensor).readTouch},
	}

	connectionSteps = []step{
		{do: (*Sensor).floatSenseThenDrive, settle: pulseSettle},
		{do: (*Sensor).preparePulse, settle: pulseSettle},
		{do: (*Sensor).driveHigh, settle: pulseSettle},
		{do: (*Sensor).readConnected},
		{do: (*Sensor).driveLow, settle: releaseSettle},
		{do: (*Sensor).floatDriveThenSense, settle: releaseSettle},
		{do: (*Sensor).armTouch, settle: releaseSettle},
		{settle: rearmSettle},
	}
)

func (s *Sensor) armTouch() {
	s.bus.arm()
}

func (s *Sensor) floatDriveThenSense() {
	s.bus.setMode(s.bus.pins.Drive, gpio.ModeFloating)
	s.bus.setMode(s.bus.pins.Sense, gpio.ModeFloating)
}

func (s *Sensor) floatSenseThenDrive() {
	s.bus.setMode(s.bus.pins.Sense, gpio.ModeFloating)
	s.bus.setMode(s.bus.pins.Drive, gpio.ModeFloating)
}

func (s *Sensor) preparePulse() {
	s.bus.setMode(s.bus.pins.Drive, gpio.ModeOutput)
	s.bus.setMode(s.bus.pins.Sense, gpio.ModeInputPullDown)
}

func (s *Sensor) driveHigh() {
	s.bus.hw.Write(s.bus.pins.Drive, gpio.High)
}

func (s *Sensor) driveLow() {
	s.bus.hw.Write(s.bus.pins.Drive, gpio.Low)
}

func (s *Sensor) readConnected() {
	s.connected = s.bus.hw.Read(s.bus.pins.Sense) == gpio.High
}

func (s *Sensor) readTouch() {
	s.leftRaw = s.bus.hw.ReadTouch(s.bus.pins.Left)
	s.rightRaw = s.bus.hw.ReadTouch(s.bus.pins.Right)
}
