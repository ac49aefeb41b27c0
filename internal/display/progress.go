package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressPrinter renders encode progress. On a TTY it redraws a single
// status line in place; otherwise it prints one line per 10% step so logs
// and pipes stay readable.
type ProgressPrinter struct {
	mu       sync.Mutex
	w        io.Writer
	tty      bool
	lastLen  int
	lastStep int
	active   bool
}

// NewProgressPrinter returns a printer writing to w.
func NewProgressPrinter(w io.Writer, tty bool) *ProgressPrinter {
	return &ProgressPrinter{w: w, tty: tty, lastStep: -1}
}

// Update shows percent complete and the remaining-time estimate
// (negative eta means unknown).
func (p *ProgressPrinter) Update(percent float64, eta time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := "  " + FormatProgress(percent, eta)
	if p.tty {
		p.redraw(line)
		return
	}
	step := int(percent / 10)
	if step <= p.lastStep {
		return
	}
	p.lastStep = step
	fmt.Fprintln(p.w, line)
}

// Activity shows a raw status line when no percentage can be computed.
// Non-TTY output ignores activity.
func (p *ProgressPrinter) Activity(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tty {
		return
	}
	p.redraw("  " + strings.TrimSpace(text))
}

// Done terminates an in-place status line and resets state for the next file.
func (p *ProgressPrinter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.active {
		fmt.Fprintln(p.w)
	}
	p.active = false
	p.lastLen = 0
	p.lastStep = -1
}

func (p *ProgressPrinter) redraw(line string) {
	pad := ""
	if n := p.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprint(p.w, "\r"+line+pad)
	p.lastLen = len(line)
	p.active = true
}
