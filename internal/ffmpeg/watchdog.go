package ffmpeg

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// watchdog cancels an encode whose progress stream stops advancing. Both
// out_time_ms and total_size count as progress; the clock starts when the
// process is launched, so a child that never reports anything is caught too.
type watchdog struct {
	mu      sync.Mutex
	timeout time.Duration
	now     func() time.Time

	lastOut  int64
	lastSize int64
	lastBeat time.Time
}

func newWatchdog(timeout time.Duration, now func() time.Time) *watchdog {
	return &watchdog{timeout: timeout, now: now, lastBeat: now()}
}

// observe records one line of the -progress stream.
func (w *watchdog) observe(line string) {
	key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch key {
	case "out_time_ms":
		if n > w.lastOut {
			w.lastOut = n
			w.lastBeat = w.now()
		}
	case "total_size":
		if n > w.lastSize {
			w.lastSize = n
			w.lastBeat = w.now()
		}
	}
}

// stalled reports whether no progress was seen for longer than the timeout.
func (w *watchdog) stalled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now().Sub(w.lastBeat) > w.timeout
}

// run polls every interval until ctx ends or stop is closed, calling
// cancel with ErrStalled on the first stall.
func (w *watchdog) run(ctx context.Context, stop <-chan struct{}, interval time.Duration, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if w.stalled() {
				cancel(ErrStalled)
				return
			}
		}
	}
}
