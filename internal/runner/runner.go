// Package runner launches external programs with explicit argument lists,
// capturing both output streams concurrently.
//
// Run waits for completion and returns everything the child wrote. Start
// hands back a live Process whose Lines channel delivers output as it is
// produced, split on both '\n' and '\r' so carriage-return status updates
// arrive as separate lines.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stream identifies which pipe a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of child output.
type Line struct {
	Stream Stream
	Text   string
}

// Result is the captured outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Combined returns stdout followed by stderr.
func (r Result) Combined() string {
	switch {
	case r.Stdout == "":
		return r.Stderr
	case r.Stderr == "":
		return r.Stdout
	case strings.HasSuffix(r.Stdout, "\n"):
		return r.Stdout + r.Stderr
	default:
		return r.Stdout + "\n" + r.Stderr
	}
}

const (
	lineBuffer  = 64
	maxLineSize = 1 << 20
	waitDelay   = 5 * time.Second
)

// Runner starts child processes. The zero value is ready to use.
type Runner struct {
	// Env entries are appended to the parent environment for every child.
	Env []string
}

// New returns a Runner.
func New() *Runner { return &Runner{} }

// Run executes name with args and waits for it to exit. A non-zero exit
// status is reported through Result.ExitCode, not as an error; err is
// non-nil only when the program could not be started, its output could
// not be read, or ctx was cancelled.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	p, err := r.Start(ctx, name, args...)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	return p.Wait()
}

// Start launches name with args and returns immediately. The caller should
// consume Lines (or simply call Wait, which drains it).
func (r *Runner) Start(ctx context.Context, name string, args ...string) (*Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for %s: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe for %s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	p := &Process{
		ctx:   ctx,
		cmd:   cmd,
		lines: make(chan Line, lineBuffer),
		done:  make(chan struct{}),
	}
	go p.supervise(stdout, stderr)
	return p, nil
}

// Process is a running child started by [Runner.Start].
type Process struct {
	ctx   context.Context
	cmd   *exec.Cmd
	lines chan Line
	done  chan struct{}

	stdout bytes.Buffer
	stderr bytes.Buffer
	result Result
	err    error
}

// Lines delivers output lines from both streams in arrival order per
// stream. It is closed once both pipes reach EOF.
func (p *Process) Lines() <-chan Line { return p.lines }

// Pid returns the child's process ID.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Wait drains any unread lines, waits for the child to exit and returns
// its result. Safe to call more than once.
func (p *Process) Wait() (Result, error) {
	for range p.lines {
	}
	<-p.done
	return p.result, p.err
}

func (p *Process) supervise(stdout, stderr io.Reader) {
	defer close(p.done)

	// Both pipes must be read to EOF before cmd.Wait closes them.
	var g errgroup.Group
	g.Go(func() error { return p.drain(stdout, Stdout, &p.stdout) })
	g.Go(func() error { return p.drain(stderr, Stderr, &p.stderr) })
	readErr := g.Wait()
	close(p.lines)

	waitErr := p.cmd.Wait()
	p.result = Result{
		ExitCode: exitCode(p.cmd, waitErr),
		Stdout:   p.stdout.String(),
		Stderr:   p.stderr.String(),
	}

	switch {
	case waitErr != nil && p.ctx.Err() != nil:
		p.err = context.Cause(p.ctx)
	case waitErr != nil && !isExitError(waitErr):
		p.err = fmt.Errorf("wait %s: %w", p.cmd.Path, waitErr)
	case readErr != nil:
		p.err = fmt.Errorf("read output of %s: %w", p.cmd.Path, readErr)
	}
}

// drain copies r into buf while emitting each line on p.lines.
func (p *Process) drain(r io.Reader, stream Stream, buf *bytes.Buffer) error {
	sc := bufio.NewScanner(io.TeeReader(r, buf))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	sc.Split(scanLines)
	for sc.Scan() {
		text := sc.Text()
		if text == "" {
			continue
		}
		p.lines <- Line{Stream: stream, Text: text}
	}
	if err := sc.Err(); err != nil {
		// Keep the pipe flowing so the child never blocks on a full buffer.
		_, _ = io.Copy(buf, r)
		return err
	}
	return nil
}

// scanLines is bufio.ScanLines that also breaks on a bare '\r'.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
