package present

import (
	"fmt"
	"io"
	"sync"
)

// Notifier writes one-line status messages, typically to stderr.
type Notifier struct {
	mu    sync.Mutex
	w     io.Writer
	theme Theme
}

// NewNotifier writes to w using theme.
func NewNotifier(w io.Writer, theme Theme) *Notifier {
	return &Notifier{w: w, theme: theme}
}

func (n *Notifier) Info(msg string) {
	n.write(n.theme.Success.Render(n.theme.Icons.Pass) + " " + msg)
}

func (n *Notifier) Warn(msg string) {
	n.write(n.theme.Warning.Render(n.theme.Icons.Warn) + " " + msg)
}

func (n *Notifier) Error(msg string) {
	n.write(n.theme.Error.Render(n.theme.Icons.Fail) + " " + n.theme.Error.Render(msg))
}

func (n *Notifier) write(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, line)
}
