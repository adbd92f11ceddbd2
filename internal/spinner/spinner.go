// Package spinner draws the progress indicator shown while a check runs.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Frames defines the available spinner styles.
var Frames = map[string][]string{
	"braille": {"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"},
	"dots":    {"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	"line":    {"-", "\\", "|", "/"},
	"arc":     {"◜", "◠", "◝", "◞", "◡", "◟"},
}

// DefaultStyle is the 8-frame braille spinner.
const DefaultStyle = "braille"

// DefaultInterval is the delay between frames.
const DefaultInterval = 80 * time.Millisecond

// ParseFrames parses a spinner definition into frames. Space-separated input
// yields one frame per word; otherwise each rune is a frame. A known style
// name returns that style.
func ParseFrames(chars string) []string {
	chars = strings.TrimSpace(chars)
	if chars == "" {
		return nil
	}
	if frames, ok := Frames[chars]; ok {
		return frames
	}
	if strings.Contains(chars, " ") {
		return strings.Fields(chars)
	}
	var frames []string
	for _, r := range chars {
		frames = append(frames, string(r))
	}
	return frames
}

// Indicator is a progress indicator that can be started and stopped.
type Indicator interface {
	Start()
	Stop()
}

// Nop is an Indicator that draws nothing.
type Nop struct{}

func (Nop) Start() {}
func (Nop) Stop()  {}

// timer is the part of *time.Timer the spinner needs.
type timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Config configures a Spinner.
type Config struct {
	Frames   []string               // defaults to the braille style
	Interval time.Duration          // defaults to DefaultInterval
	Message  string                 // text after the frame
	Color    lipgloss.TerminalColor // frame color, nil for none
	Writer   io.Writer
	After    AfterFunc // scheduler, defaults to time.AfterFunc
}

// Spinner redraws one frame per tick. Each tick schedules the next; Stop
// cancels the pending tick, and a tick already in flight for an earlier
// Start neither draws nor reschedules.
type Spinner struct {
	frames   []string
	interval time.Duration
	style    lipgloss.Style
	writer   io.Writer
	after    AfterFunc

	mu       sync.Mutex
	message  string
	running  bool
	gen      uint64
	pending  timer
	frameIdx int
}

// New creates a stopped spinner.
func New(cfg Config) *Spinner {
	frames := cfg.Frames
	if len(frames) == 0 {
		frames = Frames[DefaultStyle]
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	after := cfg.After
	if after == nil {
		after = realAfterFunc
	}
	style := lipgloss.NewStyle()
	if cfg.Color != nil {
		style = style.Foreground(cfg.Color)
	}
	return &Spinner{
		frames:   frames,
		interval: interval,
		style:    style,
		writer:   cfg.Writer,
		after:    after,
		message:  cfg.Message,
	}
}

// Start draws the first frame and begins the tick chain. It is a no-op when
// already running.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.gen++
	s.frameIdx = 0
	gen := s.gen
	s.mu.Unlock()

	s.tick(gen)
}

// Stop cancels the pending tick and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.gen++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.clearLine()
}

// Running reports whether the tick chain is active.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetMessage changes the text shown next to the frame.
func (s *Spinner) SetMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

func (s *Spinner) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || gen != s.gen {
		return
	}
	s.render()
	s.frameIdx = (s.frameIdx + 1) % len(s.frames)
	s.pending = s.after(s.interval, func() { s.tick(gen) })
}

// render must be called with mu held.
func (s *Spinner) render() {
	if s.writer == nil {
		return
	}
	frame := s.style.Render(s.frames[s.frameIdx])
	fmt.Fprintf(s.writer, "\r\033[K%s %s", frame, s.message)
}

func (s *Spinner) clearLine() {
	if s.writer == nil {
		return
	}
	fmt.Fprint(s.writer, "\r\033[K")
}
