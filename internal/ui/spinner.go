package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner animates a single status line while the relay is dialled or a
// peer is awaited.
type Spinner struct {
	out      io.Writer
	message  string
	frames   spinner.Spinner
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// Spin starts a spinner with message on out and returns its stop function.
// Stop clears the line and returns only once no further frame can be drawn,
// so output printed right after it starts on a clean line.
func Spin(out io.Writer, message string) func() {
	s := &Spinner{
		out:     out,
		message: message,
		frames:  spinner.Points,
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go s.run()
	return s.Stop
}

func (s *Spinner) run() {
	defer close(s.exited)

	ticker := time.NewTicker(s.frames.FPS)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame := SpinnerStyle.Render(s.frames.Frames[i%len(s.frames.Frames)])
		fmt.Fprintf(s.out, "\r%s %s", frame, s.message)

		select {
		case <-s.done:
			fmt.Fprint(s.out, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the animation. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.exited
}
