package encoder

import (
	"context"
	"fmt"

	"github.com/StephanOrgiazzi/convertav1/internal/runner"
)

// Runner executes a program to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (runner.Result, error)
}

// Selector queries ffmpeg for its compiled-in encoders.
type Selector struct {
	run    Runner
	ffmpeg string
}

// NewSelector returns a Selector using the given ffmpeg binary.
func NewSelector(run Runner, ffmpeg string) *Selector {
	return &Selector{run: run, ffmpeg: ffmpeg}
}

// Encoders returns the raw `ffmpeg -encoders` listing.
func (s *Selector) Encoders(ctx context.Context) (string, error) {
	res, err := s.run.Run(ctx, s.ffmpeg, "-hide_banner", "-encoders")
	if err != nil {
		return "", fmt.Errorf("list encoders: %w", err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("list encoders: ffmpeg exited %d", res.ExitCode)
	}
	return res.Stdout, nil
}

// Choose lists encoders once and applies [Select]. In auto mode a listed
// hardware encoder must also pass a test encode, since static ffmpeg builds
// list them whether or not the device exists. A forced encoder is taken as
// given.
func (s *Selector) Choose(ctx context.Context, prefer string) (Choice, error) {
	text, err := s.Encoders(ctx)
	if err != nil {
		return Choice{}, err
	}
	return selectFrom(text, prefer, func(p Profile) bool {
		return p.Kind != Hardware || s.Probe(ctx, p.Name)
	})
}

// Probe runs a tenth-of-a-second test encode with name and reports whether
// it succeeded. A listed hardware encoder can still fail here when no
// suitable device or driver is present.
func (s *Selector) Probe(ctx context.Context, name string) bool {
	res, err := s.run.Run(ctx, s.ffmpeg, testEncodeArgs(name)...)
	return err == nil && res.ExitCode == 0
}

func testEncodeArgs(name string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1",
		"-c:v", name, "-pix_fmt", "yuv420p",
		"-f", "null", "-",
	}
}
