// Package gpio provides pin-level hardware access for the touch sensor.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Pin is a GPIO line offset (BCM numbering on the Raspberry Pi).
type Pin int

// Mode is the electrical configuration of a pin.
type Mode int

const (
	// ModeFloating is input with no pull resistor. Touch pads and the
	// sense/drive pair must sit in this mode while capacitance is measured.
	ModeFloating Mode = iota
	// ModeOutput drives the line.
	ModeOutput
	// ModeInputPullDown is input with the pull-down bias enabled.
	ModeInputPullDown
)

func (m Mode) String() string {
	switch m {
	case ModeFloating:
		return "floating"
	case ModeOutput:
		return "output"
	case ModeInputPullDown:
		return "pulldown"
	default:
		return "unknown"
	}
}

// Level is a digital logic level.
type Level int

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Hardware is the pin-level interface the touch sensor drives.
// Reads are trusted to return a value: implementations log failures
// and return their last good reading instead of surfacing errors.
type Hardware interface {
	// SetMode reconfigures a pin.
	SetMode(pin Pin, mode Mode)

	// Write drives an output pin.
	Write(pin Pin, level Level)

	// Read samples the logic level of an input pin.
	Read(pin Pin) Level

	// ReadTouch returns the instantaneous capacitive magnitude of a touch
	// channel. A touch lowers the value.
	ReadTouch(pin Pin) uint16

	// ArmTouch re-enables touch sensing on a channel. Required after any
	// pin reconfiguration that may have disturbed the sensing circuit.
	ArmTouch(pin Pin)

	// Close releases hardware resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinLeft  = 4  // Left touch pad
	DefaultPinRight = 15 // Right touch pad
	DefaultPinSense = 27 // Connection detect input
	DefaultPinDrive = 22 // Connection detect output
)

// Ensure both implementations satisfy Hardware.
var (
	_ Hardware = (*RealHardware)(nil)
	_ Hardware = (*FakeHardware)(nil)
)
