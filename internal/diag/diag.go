// Package diag writes periodic single-line sensor dumps to a serial console
// or standard output.
package diag

import (
	"fmt"
	"io"
	"os"

	"go.bug.st/serial"
)

// Stdout selects standard output instead of a serial port.
const Stdout = "-"

// StateWriter is implemented by touch.Sensor.
type StateWriter interface {
	WriteState(w io.Writer) error
	WriteReadings(w io.Writer) error
}

// Format selects what a dump contains.
type Format int

const (
	// FormatState dumps raws, baselines, connection and state.
	FormatState Format = iota
	// FormatReadings dumps only the raw readings.
	FormatReadings
)

// ParseFormat parses "state" or "readings". Empty means FormatState.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "state":
		return FormatState, nil
	case "readings":
		return FormatReadings, nil
	}
	return FormatState, fmt.Errorf("unknown diagnostics format %q", s)
}

func (f Format) String() string {
	if f == FormatReadings {
		return "readings"
	}
	return "state"
}

// Open returns a sink for diagnostics. port is a serial device such as
// /dev/ttyAMA0, or Stdout.
func Open(port string, baud int) (io.WriteCloser, error) {
	if port == Stdout {
		return nopCloser{os.Stdout}, nil
	}

	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	return p, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Writer dumps sensor state every N cycles.
type Writer struct {
	w      io.Writer
	every  int
	format Format
	count  int
}

// NewWriter creates a Writer that dumps on every every-th call to Tick.
// every <= 0 disables output.
func NewWriter(w io.Writer, every int, format Format) *Writer {
	return &Writer{w: w, every: every, format: format}
}

// Tick counts one cycle and writes the state if a dump is due.
// A nil Writer does nothing.
func (d *Writer) Tick(s StateWriter) error {
	if d == nil || d.w == nil || d.every <= 0 {
		return nil
	}
	d.count++
	if d.count < d.every {
		return nil
	}
	d.count = 0
	write := s.WriteState
	if d.format == FormatReadings {
		write = s.WriteReadings
	}
	if err := write(d.w); err != nil {
		return fmt.Errorf("write diagnostics: %w", err)
	}
	return nil
}
