package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// Spinner shows the in-flight transaction's progress line. It only animates
// when colorize is set, so piped output stays clean.
type Spinner struct {
	frames   []string
	current  int
	prefix   string
	suffix   string
	mu       sync.Mutex
	writer   io.Writer
	active   bool
	colorize bool
	done     chan struct{}
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, prefix string) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		prefix:   prefix,
		writer:   w,
		colorize: isTerminal(w),
		done:     make(chan struct{}),
	}
}

// SetSuffix replaces the progress text. Without a terminal each new text is
// printed on its own line.
func (s *Spinner) SetSuffix(suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if suffix == s.suffix {
		return
	}
	s.suffix = suffix
	if !s.colorize && suffix != "" {
		fmt.Fprintf(s.writer, "%s %s\n", s.prefix, suffix)
	}
}

// Start starts the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active || !s.colorize {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				if !s.active {
					s.mu.Unlock()
					return
				}
				s.render()
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop stops the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.active = false
	close(s.done)
	fmt.Fprint(s.writer, "\r"+strings.Repeat(" ", 80)+"\r")
}

// Success stops the spinner and prints message.
func (s *Spinner) Success(message string) {
	s.Stop()
	fmt.Fprintln(s.writer, mark("✓", ColorGreen, s.colorize)+" "+message)
}

// Error stops the spinner and prints message.
func (s *Spinner) Error(message string) {
	s.Stop()
	fmt.Fprintln(s.writer, mark("✗", ColorRed, s.colorize)+" "+message)
}

// Warning stops the spinner and prints message.
func (s *Spinner) Warning(message string) {
	s.Stop()
	fmt.Fprintln(s.writer, mark("⚠", ColorYellow, s.colorize)+" "+message)
}

func (s *Spinner) render() {
	frame := s.frames[s.current]
	if s.colorize {
		frame = ColorCyan + frame + ColorReset
	}
	output := fmt.Sprintf("\r%s %s", frame, s.prefix)
	if s.suffix != "" {
		output += " " + s.suffix
	}
	fmt.Fprint(s.writer, output)
}

func mark(symbol, color string, colorize bool) string {
	if colorize {
		return color + symbol + ColorReset
	}
	return symbol
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
