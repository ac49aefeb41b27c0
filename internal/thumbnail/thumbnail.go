// Package thumbnail produces the cover image embedded into converted files:
// the source's own attached picture when it has one, otherwise a frame
// grabbed one second into the video.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/StephanOrgiazzi/convertav1/internal/runner"
)

// ErrUnavailable means neither extraction nor generation produced a
// non-empty image. The conversion cannot continue without one.
var ErrUnavailable = errors.New("no thumbnail could be produced")

// Source records where a thumbnail came from.
type Source int

const (
	Extracted Source = iota // copied from the input's attached picture
	Generated               // grabbed from the video at SeekSeconds
)

func (s Source) String() string {
	if s == Generated {
		return "generated"
	}
	return "extracted"
}

// SeekSeconds is where a frame is grabbed when no cover exists.
const SeekSeconds = "1"

// Runner executes a program to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (runner.Result, error)
}

// Resolver obtains thumbnails with ffmpeg.
type Resolver struct {
	run    Runner
	ffmpeg string
}

// NewResolver returns a Resolver using the given ffmpeg binary.
func NewResolver(run Runner, ffmpeg string) *Resolver {
	return &Resolver{run: run, ffmpeg: ffmpeg}
}

// TempPath returns a fresh, collision-free thumbnail path inside dir.
func TempPath(dir string) string {
	return filepath.Join(dir, "convertav1-"+uuid.NewString()+".jpg")
}

// Resolve writes a thumbnail for input to dest. attachedSpec is the stream
// specifier of the input's cover picture ("" when it has none). An
// extraction that fails or yields an empty file falls back to generation;
// the returned error wraps ErrUnavailable when both fail.
func (r *Resolver) Resolve(ctx context.Context, input, attachedSpec, dest string) (Source, error) {
	if attachedSpec != "" {
		if err := r.extract(ctx, input, attachedSpec, dest); err == nil {
			return Extracted, nil
		} else if ctx.Err() != nil {
			return Extracted, ctx.Err()
		}
	}
	if err := r.generate(ctx, input, dest); err != nil {
		if ctx.Err() != nil {
			return Generated, ctx.Err()
		}
		return Generated, fmt.Errorf("%w: %s: %v", ErrUnavailable, filepath.Base(input), err)
	}
	return Generated, nil
}

func (r *Resolver) extract(ctx context.Context, input, spec, dest string) error {
	return r.runAndVerify(ctx, dest,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-map", spec,
		"-c", "copy",
		"-frames:v", "1",
		"-f", "image2",
		dest,
	)
}

func (r *Resolver) generate(ctx context.Context, input, dest string) error {
	return r.runAndVerify(ctx, dest,
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", SeekSeconds,
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		dest,
	)
}

func (r *Resolver) runAndVerify(ctx context.Context, dest string, args ...string) error {
	res, err := r.run.Run(ctx, r.ffmpeg, args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("ffmpeg exited %d: %s", res.ExitCode, lastLine(res.Stderr))
	}
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("thumbnail not written: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("thumbnail is empty")
	}
	return nil
}

// Normalize downscales the image at path in place so neither edge exceeds
// maxEdge, preserving aspect ratio and EXIF orientation. It reports whether
// the file was rewritten. maxEdge <= 0 disables it.
func Normalize(path string, maxEdge int) (bool, error) {
	if maxEdge <= 0 {
		return false, nil
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return false, fmt.Errorf("decode thumbnail: %w", err)
	}
	if fits(img.Bounds(), maxEdge) {
		return false, nil
	}
	resized := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	if err := imaging.Save(resized, path, imaging.JPEGQuality(90)); err != nil {
		return false, fmt.Errorf("encode thumbnail: %w", err)
	}
	return true, nil
}

func fits(b image.Rectangle, maxEdge int) bool {
	return b.Dx() <= maxEdge && b.Dy() <= maxEdge
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
