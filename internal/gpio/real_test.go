//go:build linux

package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLine returns values in order, then repeats the last one.
type scriptedLine struct {
	values []int
	err    error
	polls  int
}

func (l *scriptedLine) Value() (int, error) {
	l.polls++
	if l.err != nil {
		return 0, l.err
	}
	i := l.polls - 1
	if i >= len(l.values) {
		i = len(l.values) - 1
	}
	return l.values[i], nil
}

func TestWaitLowDischarges(t *testing.T) {
	line := &scriptedLine{values: []int{1, 1, 0}}

	low, err := waitLow(line, 10)
	require.NoError(t, err)
	assert.True(t, low)
	assert.Equal(t, 3, line.polls)
}

func TestWaitLowStuckHigh(t *testing.T) {
	line := &scriptedLine{values: []int{1}}

	low, err := waitLow(line, 10)
	require.NoError(t, err)
	assert.False(t, low, "stuck-high line must not count as discharged")
	assert.Equal(t, 10, line.polls)
}

func TestWaitLowError(t *testing.T) {
	line := &scriptedLine{err: errors.New("line gone")}

	low, err := waitLow(line, 10)
	assert.Error(t, err)
	assert.False(t, low)
}
