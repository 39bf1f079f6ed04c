package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/x/ansi"
)

// Spinner is a single-line progress indicator drawn in place. It is used
// while a table is being buffered, so it must leave no trace once stopped.
type Spinner struct {
	w       io.Writer
	frames  spinner.Spinner
	styles  *Styles
	message string

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a stopped spinner that writes to w.
func NewSpinner(w io.Writer, s *Styles, message string) *Spinner {
	return &Spinner{
		w:       w,
		frames:  spinner.Dot,
		styles:  s,
		message: message,
	}
}

// Start begins animating. Calling Start on a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run(s.stop, s.stopped)
}

// Stop halts the animation and erases the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.stopped
	s.stop = nil
	fmt.Fprint(s.w, "\r"+ansi.EraseEntireLine)
}

// Running reports whether the spinner is animating.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *Spinner) run(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	interval := s.frames.FPS
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame := s.frames.Frames[i%len(s.frames.Frames)]
		fmt.Fprintf(s.w, "\r%s %s", s.styles.Spinner.Render(frame), s.styles.Muted.Render(s.message))
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
