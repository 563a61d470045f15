package gpio

import (
	"fmt"
	"time"
)

// FakeHardware is a test double that returns scripted readings and records
// every call made against it.
type FakeHardware struct {
	// Touch contains scripted ReadTouch values per pin.
	// Each call consumes the next value; once exhausted the last value repeats
	// until more values are queued.
	Touch map[Pin][]uint16

	// Digital contains scripted Read levels per pin, consumed the same way.
	Digital map[Pin][]Level

	// Modes tracks the most recent mode set on each pin.
	Modes map[Pin]Mode

	// Outputs tracks the most recent level written to each pin.
	Outputs map[Pin]Level

	// Ops records every operation in call order, including sleeps,
	// e.g. "mode 27 floating", "write 22 high", "sleep 2ms".
	Ops []string

	// Slept is the total duration passed to Sleep.
	Slept time.Duration

	// Closed tracks if Close was called
	Closed bool

	touchIdx   map[Pin]int
	digitalIdx map[Pin]int
}

// Sample is one polling cycle's worth of scripted input.
type Sample struct {
	Left      uint16
	Right     uint16
	Connected bool
}

// NewFakeHardware creates a FakeHardware with no scripted input.
func NewFakeHardware() *FakeHardware {
	return &FakeHardware{
		Touch:      make(map[Pin][]uint16),
		Digital:    make(map[Pin][]Level),
		Modes:      make(map[Pin]Mode),
		Outputs:    make(map[Pin]Level),
		touchIdx:   make(map[Pin]int),
		digitalIdx: make(map[Pin]int),
	}
}

// QueueTouch appends scripted touch readings for pin.
func (f *FakeHardware) QueueTouch(pin Pin, values ...uint16) {
	f.Touch[pin] = append(f.Touch[pin], values...)
}

// QueueDigital appends scripted digital levels for pin.
func (f *FakeHardware) QueueDigital(pin Pin, levels ...Level) {
	f.Digital[pin] = append(f.Digital[pin], levels...)
}

// QueueSamples appends one left, right and sense reading per sample.
func (f *FakeHardware) QueueSamples(left, right, sense Pin, samples ...Sample) {
	for _, s := range samples {
		f.QueueTouch(left, s.Left)
		f.QueueTouch(right, s.Right)
		level := Low
		if s.Connected {
			level = High
		}
		f.QueueDigital(sense, level)
	}
}

// SetMode records the mode change.
func (f *FakeHardware) SetMode(pin Pin, mode Mode) {
	f.Modes[pin] = mode
	f.record("mode %d %s", pin, mode)
}

// Write records the output level.
func (f *FakeHardware) Write(pin Pin, level Level) {
	f.Outputs[pin] = level
	f.record("write %d %s", pin, level)
}

// Read returns the next scripted level for pin, Low if none are scripted.
func (f *FakeHardware) Read(pin Pin) Level {
	f.record("read %d", pin)
	levels := f.Digital[pin]
	if len(levels) == 0 {
		return Low
	}
	i := f.digitalIdx[pin]
	if i >= len(levels) {
		return levels[len(levels)-1]
	}
	f.digitalIdx[pin]++
	return levels[i]
}

// ReadTouch returns the next scripted touch value for pin, 0 if none are scripted.
func (f *FakeHardware) ReadTouch(pin Pin) uint16 {
	f.record("touch %d", pin)
	values := f.Touch[pin]
	if len(values) == 0 {
		return 0
	}
	i := f.touchIdx[pin]
	if i >= len(values) {
		return values[len(values)-1]
	}
	f.touchIdx[pin]++
	return values[i]
}

// ArmTouch records the re-arm.
func (f *FakeHardware) ArmTouch(pin Pin) {
	f.record("arm %d", pin)
}

// Sleep records the delay without blocking. FakeHardware satisfies
// clock.Sleeper so settle delays interleave with pin operations in Ops.
func (f *FakeHardware) Sleep(d time.Duration) {
	f.Slept += d
	f.record("sleep %v", d)
}

// Close marks the hardware as closed.
func (f *FakeHardware) Close() error {
	f.Closed = true
	return nil
}

// ResetOps clears the recorded operations and sleep total.
func (f *FakeHardware) ResetOps() {
	f.Ops = nil
	f.Slept = 0
}

func (f *FakeHardware) record(format string, args ...interface{}) {
	f.Ops = append(f.Ops, fmt.Sprintf(format, args...))
}
