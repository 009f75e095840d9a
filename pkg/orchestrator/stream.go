package orchestrator

import (
	"bufio"
	"io"
	"sync"
	"time"
)

// LineStream turns a reader into a LineReader. A background goroutine scans
// lines; Next hands them out with a per-call deadline.
type LineStream struct {
	lines  chan string
	done   chan struct{}
	once   sync.Once
	closer func()
}

// NewLineStream starts scanning r. closer, if not nil, runs once on Close and
// must unblock any pending read on r.
func NewLineStream(r io.Reader, closer func()) *LineStream {
	s := &LineStream{
		lines:  make(chan string),
		done:   make(chan struct{}),
		closer: closer,
	}
	go s.pump(r)
	return s
}

func (s *LineStream) pump(r io.Reader) {
	defer close(s.lines)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case s.lines <- scanner.Text():
		case <-s.done:
			return
		}
	}
}

// Next implements LineReader
func (s *LineStream) Next(timeout time.Duration) (string, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line, ok := <-s.lines:
		return line, ok
	case <-timer.C:
		return "", false
	case <-s.done:
		return "", false
	}
}

// Close implements LineReader
func (s *LineStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.closer != nil {
			s.closer()
		}
	})
	return nil
}
