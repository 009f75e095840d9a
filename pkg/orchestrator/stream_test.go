package orchestrator

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLineStreamReadsUntilEOF(t *testing.T) {
	s := NewLineStream(strings.NewReader("one\ntwo\nthree"), nil)
	defer s.Close()

	for _, want := range []string{"one", "two", "three"} {
		line, ok := s.Next(time.Second)
		assert.True(t, ok)
		assert.Equal(t, want, line)
	}

	_, ok := s.Next(time.Second)
	assert.False(t, ok)
}

func TestLineStreamTimesOut(t *testing.T) {
	pr, pw := io.Pipe()
	s := NewLineStream(pr, func() { _ = pr.Close() })
	defer s.Close()

	go func() {
		_, _ = io.WriteString(pw, "Ready\n")
	}()

	line, ok := s.Next(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "Ready", line)

	start := time.Now()
	_, ok = s.Next(50 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLineStreamClose(t *testing.T) {
	pr, _ := io.Pipe()
	closed := 0
	s := NewLineStream(pr, func() {
		closed++
		_ = pr.Close()
	})

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.Equal(t, 1, closed)

	_, ok := s.Next(time.Second)
	assert.False(t, ok)
}
