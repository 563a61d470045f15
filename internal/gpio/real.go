//go:build linux

package gpio

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const (
	// touchWindow is how long ReadTouch counts charge/discharge cycles.
	touchWindow = 500 * time.Microsecond
	// maxDischargePolls bounds the wait for a pad to discharge so a stuck
	// line cannot hang the measurement.
	maxDischargePolls = 1000

	consumer = "touch-sensor"
)

// RealHardware drives actual GPIO lines using the Linux GPIO character device.
//
// Touch channels are measured the way RC touch pads are: charge the pad,
// release it and wait for it to discharge through a bleed resistor, counting
// complete cycles within a fixed window. More capacitance (a finger) means
// slower cycles and a lower reading.
type RealHardware struct {
	chip  *gpiocdev.Chip
	pins  []Pin
	lines map[Pin]*gpiocdev.Line

	lastTouch map[Pin]uint16
	lastLevel map[Pin]Level
}

// NewRealHardware requests the given lines on chipName (e.g. "gpiochip0"),
// all as floating inputs.
func NewRealHardware(chipName string, pins ...Pin) (*RealHardware, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	h := &RealHardware{
		chip:      chip,
		lines:     make(map[Pin]*gpiocdev.Line),
		lastTouch: make(map[Pin]uint16),
		lastLevel: make(map[Pin]Level),
	}

	for _, pin := range pins {
		if _, ok := h.lines[pin]; ok {
			continue
		}
		line, err := chip.RequestLine(int(pin), gpiocdev.AsInput, gpiocdev.WithBiasDisabled)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("request pin %d: %w", pin, err)
		}
		h.lines[pin] = line
		h.pins = append(h.pins, pin)
	}

	return h, nil
}

func modeOptions(mode Mode) []gpiocdev.LineConfigOption {
	switch mode {
	case ModeOutput:
		return []gpiocdev.LineConfigOption{gpiocdev.AsOutput(0)}
	case ModeInputPullDown:
		return []gpiocdev.LineConfigOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	default:
		return []gpiocdev.LineConfigOption{gpiocdev.AsInput, gpiocdev.WithBiasDisabled}
	}
}

// SetMode reconfigures the line for pin.
func (h *RealHardware) SetMode(pin Pin, mode Mode) {
	line, ok := h.lines[pin]
	if !ok {
		log.Printf("gpio: set mode on unrequested pin %d", pin)
		return
	}
	if err := line.Reconfigure(modeOptions(mode)...); err != nil {
		log.Printf("gpio: set pin %d %s: %v", pin, mode, err)
	}
}

// Write drives an output line.
func (h *RealHardware) Write(pin Pin, level Level) {
	line, ok := h.lines[pin]
	if !ok {
		log.Printf("gpio: write to unrequested pin %d", pin)
		return
	}
	if err := line.SetValue(int(level)); err != nil {
		log.Printf("gpio: write pin %d %s: %v", pin, level, err)
	}
}

// Read samples an input line. On failure the last good level is returned.
func (h *RealHardware) Read(pin Pin) Level {
	line, ok := h.lines[pin]
	if !ok {
		log.Printf("gpio: read from unrequested pin %d", pin)
		return Low
	}
	v, err := line.Value()
	if err != nil {
		log.Printf("gpio: read pin %d: %v", pin, err)
		return h.lastLevel[pin]
	}
	level := Low
	if v != 0 {
		level = High
	}
	h.lastLevel[pin] = level
	return level
}

// ReadTouch counts charge/discharge cycles on a touch line within touchWindow.
// On failure the last good reading is returned.
func (h *RealHardware) ReadTouch(pin Pin) uint16 {
	line, ok := h.lines[pin]
	if !ok {
		log.Printf("gpio: touch read from unrequested pin %d", pin)
		return 0
	}

	var cycles uint32
	deadline := time.Now().Add(touchWindow)
	for time.Now().Before(deadline) {
		// Charge the pad.
		if err := line.Reconfigure(gpiocdev.AsOutput(1)); err != nil {
			log.Printf("gpio: charge pin %d: %v", pin, err)
			return h.lastTouch[pin]
		}

		// Release it and wait for the bleed resistor to pull it low.
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled); err != nil {
			log.Printf("gpio: release pin %d: %v", pin, err)
			return h.lastTouch[pin]
		}
		low, err := waitLow(line, maxDischargePolls)
		if err != nil {
			log.Printf("gpio: discharge pin %d: %v", pin, err)
			return h.lastTouch[pin]
		}
		if !low {
			log.Printf("gpio: pin %d did not discharge", pin)
			return h.lastTouch[pin]
		}
		cycles++
	}

	if cycles > 0xffff {
		cycles = 0xffff
	}
	h.lastTouch[pin] = uint16(cycles)
	return uint16(cycles)
}

type valuer interface {
	Value() (int, error)
}

// waitLow polls line until it reads low, at most polls times. It reports
// whether the line went low.
func waitLow(line valuer, polls int) (bool, error) {
	for i := 0; i < polls; i++ {
		v, err := line.Value()
		if err != nil {
			return false, err
		}
		if v == 0 {
			return true, nil
		}
	}
	return false, nil
}

// ArmTouch leaves the touch line as a floating input, ready to be charged.
func (h *RealHardware) ArmTouch(pin Pin) {
	h.SetMode(pin, ModeFloating)
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (h *RealHardware) Close() error {
	var errs []error

	for _, pin := range h.pins {
		line := h.lines[pin]
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	h.lines = map[Pin]*gpiocdev.Line{}
	h.pins = nil

	if h.chip != nil {
		if err := h.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		h.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
