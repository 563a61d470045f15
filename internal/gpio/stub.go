//go:build !linux

package gpio

import "errors"

// RealHardware is not available on non-Linux platforms.
type RealHardware struct{}

// NewRealHardware returns an error on non-Linux platforms.
func NewRealHardware(chipName string, pins ...Pin) (*RealHardware, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (h *RealHardware) SetMode(pin Pin, mode Mode) {}

func (h *RealHardware) Write(pin Pin, level Level) {}

func (h *RealHardware) Read(pin Pin) Level { return Low }

func (h *RealHardware) ReadTouch(pin Pin) uint16 { return 0 }

func (h *RealHardware) ArmTouch(pin Pin) {}

// Close is not implemented on non-Linux platforms.
func (h *RealHardware) Close() error {
	return nil
}
