package ffmpeg

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/StephanOrgiazzi/convertav1/internal/runner"
)

// Starter launches a program and streams its output.
type Starter interface {
	Start(ctx context.Context, name string, args ...string) (*runner.Process, error)
}

// EventKind distinguishes Task events.
type EventKind int

const (
	// EventProgress carries a throttled percentage update (duration known).
	EventProgress EventKind = iota
	// EventActivity carries a raw progress line, at most once per second,
	// when the duration is unknown and no percentage can be computed.
	EventActivity
	// EventLog carries one line of ffmpeg's stderr.
	EventLog
)

// Event is one update from a running Task.
type Event struct {
	Kind     EventKind
	Progress Progress
	Line     string
}

// Options tune a Task.
type Options struct {
	// TotalSec is the input duration; <= 0 disables percentages.
	TotalSec float64
	// StallTimeout kills the encode when progress stops for this long;
	// 0 disables the watchdog.
	StallTimeout time.Duration
	// PollInterval is how often the watchdog checks; default 1s.
	PollInterval time.Duration
}

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	ExitCode int
	// Output is stderr plus any stdout lines that are not progress
	// key=value pairs.
	Output string
	// Err is set when ffmpeg could not be started, was cancelled, or was
	// stopped by the watchdog (ErrStalled).
	Err error
}

// OK reports a clean zero exit.
func (r ExecResult) OK() bool { return r.Err == nil && r.ExitCode == 0 }

// Task is a running ffmpeg encode.
type Task struct {
	events chan Event
	done   chan struct{}
	result ExecResult
}

// Start launches bin with args and returns immediately. Consume Events
// until it closes, then call Wait; or call Wait directly, which discards
// remaining events.
func Start(ctx context.Context, st Starter, bin string, args []string, opts Options) *Task {
	t := &Task{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go t.run(ctx, st, bin, args, opts)
	return t
}

// Events delivers progress, activity and log events. Closed when ffmpeg's
// output streams end.
func (t *Task) Events() <-chan Event { return t.events }

// Wait blocks until ffmpeg exits and returns its result.
func (t *Task) Wait() ExecResult {
	for range t.events {
	}
	<-t.done
	return t.result
}

func (t *Task) run(parent context.Context, st Starter, bin string, args []string, opts Options) {
	defer close(t.done)
	defer close(t.events)

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	start := time.Now()
	proc, err := st.Start(ctx, bin, args...)
	if err != nil {
		t.result = ExecResult{ExitCode: -1, Err: err}
		return
	}

	var wd *watchdog
	stop := make(chan struct{})
	var wg sync.WaitGroup
	if opts.StallTimeout > 0 {
		interval := opts.PollInterval
		if interval <= 0 {
			interval = time.Second
		}
		wd = newWatchdog(opts.StallTimeout, time.Now)
		wg.Add(1)
		go func() {
			defer wg.Done()
			wd.run(ctx, stop, interval, cancel)
		}()
	}

	tracker := NewTracker(opts.TotalSec, start)
	activity := rate.Sometimes{Interval: time.Second}

	for line := range proc.Lines() {
		if line.Stream == runner.Stderr {
			t.events <- Event{Kind: EventLog, Line: line.Text}
			continue
		}
		if wd != nil {
			wd.observe(line.Text)
		}
		if sec, ok := ParseOutTime(line.Text); ok {
			if p, ok := tracker.Update(sec, time.Now()); ok {
				t.events <- Event{Kind: EventProgress, Progress: p}
			}
			continue
		}
		if opts.TotalSec <= 0 && strings.HasPrefix(line.Text, "out_time=") {
			text := line.Text
			activity.Do(func() {
				t.events <- Event{Kind: EventActivity, Line: text}
			})
		}
	}
	close(stop)
	wg.Wait()

	res, err := proc.Wait()
	t.result = ExecResult{
		ExitCode: res.ExitCode,
		Output:   diagnosticOutput(res),
		Err:      err,
	}
}

// diagnosticOutput joins stderr with whatever stdout carried besides the
// -progress key=value stream.
func diagnosticOutput(res runner.Result) string {
	var extra []string
	for _, l := range strings.Split(res.Stdout, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || isProgressLine(l) {
			continue
		}
		extra = append(extra, l)
	}
	out := strings.TrimRight(res.Stderr, "\n")
	if len(extra) > 0 {
		if out != "" {
			out += "\n"
		}
		out += strings.Join(extra, "\n")
	}
	return out
}

func isProgressLine(l string) bool {
	key, _, ok := strings.Cut(l, "=")
	if !ok || key == "" {
		return false
	}
	for _, r := range key {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// Tail returns the last n non-blank lines of output, split on '\n' and '\r'.
func Tail(output string, n int) []string {
	fields := strings.FieldsFunc(output, func(r rune) bool { return r == '\n' || r == '\r' })
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if s := strings.TrimSpace(f); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
