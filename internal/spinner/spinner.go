// Package spinner renders a terminal activity indicator for long-running
// commands.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const frameInterval = 80 * time.Millisecond

// Start displays an animated spinner with the given message on w. The
// returned update function swaps the message in place so progress counts can
// tick up; stop halts the animation and clears the line. Both are safe to
// call from any goroutine.
func Start(w io.Writer, message string) (update func(string), stop func()) {
	var mu sync.Mutex
	current := message
	width := len(message)

	done := make(chan struct{})
	cleared := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		i := 0
		for {
			select {
			case <-done:
				mu.Lock()
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", width+2)) //nolint:errcheck
				mu.Unlock()
				close(cleared)
				return
			case <-time.After(frameInterval):
				mu.Lock()
				// Pad to the widest message seen so a shorter message
				// overwrites the remnants of a longer one.
				pad := strings.Repeat(" ", width-len(current))
				fmt.Fprintf(w, "\r%s %s%s", frames[i%len(frames)], current, pad) //nolint:errcheck
				mu.Unlock()
				i++
			}
		}
	}()

	update = func(message string) {
		mu.Lock()
		current = message
		if len(message) > width {
			width = len(message)
		}
		mu.Unlock()
	}
	stop = func() {
		stopOnce.Do(func() {
			close(done)
		})
		<-cleared
	}
	return update, stop
}
