package diag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingState struct {
	n   int
	err error
}

func (c *countingState) WriteState(w io.Writer) error {
	if c.err != nil {
		return c.err
	}
	c.n++
	_, err := fmt.Fprintf(w, "dump %d\n", c.n)
	return err
}

func (c *countingState) WriteReadings(w io.Writer) error {
	if c.err != nil {
		return c.err
	}
	c.n++
	_, err := fmt.Fprintf(w, "readings %d\n", c.n)
	return err
}

func TestWriterEveryN(t *testing.T) {
	var buf bytes.Buffer
	d := NewWriter(&buf, 3, FormatState)
	s := &countingState{}

	for i := 0; i < 7; i++ {
		require.NoError(t, d.Tick(s))
	}

	assert.Equal(t, "dump 1\ndump 2\n", buf.String())
}

func TestWriterEveryCycle(t *testing.T) {
	var buf bytes.Buffer
	d := NewWriter(&buf, 1, FormatState)
	s := &countingState{}

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Tick(s))
	}

	assert.Equal(t, "dump 1\ndump 2\ndump 3\n", buf.String())
}

func TestWriterReadingsFormat(t *testing.T) {
	var buf bytes.Buffer
	d := NewWriter(&buf, 2, FormatReadings)
	s := &countingState{}

	for i := 0; i < 4; i++ {
		require.NoError(t, d.Tick(s))
	}

	assert.Equal(t, "readings 1\nreadings 2\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":         FormatState,
		"state":    FormatState,
		"readings": FormatReadings,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseFormat("verbose")
	assert.Error(t, err)

	assert.Equal(t, "state", FormatState.String())
	assert.Equal(t, "readings", FormatReadings.String())
}

func TestWriterDisabled(t *testing.T) {
	for _, every := range []int{0, -1} {
		var buf bytes.Buffer
		d := NewWriter(&buf, every, FormatState)
		s := &countingState{}

		for i := 0; i < 5; i++ {
			require.NoError(t, d.Tick(s))
		}
		assert.Empty(t, buf.String(), "every=%d", every)
		assert.Zero(t, s.n, "every=%d", every)
	}
}

func TestWriterNil(t *testing.T) {
	var d *Writer
	assert.NoError(t, d.Tick(&countingState{}))
}

func TestWriterError(t *testing.T) {
	d := NewWriter(io.Discard, 1, FormatState)
	err := d.Tick(&countingState{err: errors.New("port gone")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "port gone")
}

func TestOpenStdout(t *testing.T) {
	w, err := Open(Stdout, 115200)
	require.NoError(t, err)

	nc, ok := w.(nopCloser)
	require.True(t, ok)
	assert.Equal(t, os.Stdout, nc.Writer)
	assert.NoError(t, w.Close())
}

func TestOpenMissingPort(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "ttyNONE"), 115200)
	assert.Error(t, err)
}
