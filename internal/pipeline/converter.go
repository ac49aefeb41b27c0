package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/StephanOrgiazzi/convertav1/internal/check"
	"github.com/StephanOrgiazzi/convertav1/internal/config"
	"github.com/StephanOrgiazzi/convertav1/internal/display"
	"github.com/StephanOrgiazzi/convertav1/internal/encoder"
	"github.com/StephanOrgiazzi/convertav1/internal/ffmpeg"
	"github.com/StephanOrgiazzi/convertav1/internal/history"
	"github.com/StephanOrgiazzi/convertav1/internal/logging"
	"github.com/StephanOrgiazzi/convertav1/internal/metrics"
	"github.com/StephanOrgiazzi/convertav1/internal/naming"
	"github.com/StephanOrgiazzi/convertav1/internal/planner"
	"github.com/StephanOrgiazzi/convertav1/internal/probe"
	"github.com/StephanOrgiazzi/convertav1/internal/term"
	"github.com/StephanOrgiazzi/convertav1/internal/thumbnail"
)

// tailLines is how much ffmpeg output a failure report keeps.
const tailLines = 20

// Executor runs programs to completion and streams long-running ones.
// *runner.Runner satisfies it.
type Executor interface {
	probe.Runner
	ffmpeg.Starter
}

// Outcome describes one finished (or failed) conversion.
type Outcome struct {
	Input            string
	Output           string
	Encoder          string
	InputBytes       int64
	OutputBytes      int64 // 0 when unknown
	Plan             planner.BitratePlan
	Audio            probe.AudioEstimate
	Thumbnail        thumbnail.Source
	Attempts         int
	ThumbnailDropped bool
	Elapsed          time.Duration
}

// Converter converts inputs with one encoder chosen up front.
type Converter struct {
	cfg      *config.Config
	log      *logging.Logger
	exec     Executor
	prober   *probe.Prober
	thumbs   *thumbnail.Resolver
	planner  planner.Planner
	encoder  encoder.Choice
	names    *naming.CollisionResolver
	progress *display.ProgressPrinter
	metrics  *metrics.Recorder
	history  *history.Store
}

// Option customises a Converter.
type Option func(*Converter)

// WithProgress replaces the default stdout progress printer.
func WithProgress(p *display.ProgressPrinter) Option {
	return func(c *Converter) { c.progress = p }
}

// WithMetrics records every conversion in m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Converter) { c.metrics = m }
}

// WithHistory records every conversion in s.
func WithHistory(s *history.Store) Option {
	return func(c *Converter) { c.history = s }
}

// WithEncoder skips encoder detection and uses choice.
func WithEncoder(choice encoder.Choice) Option {
	return func(c *Converter) { c.encoder = choice }
}

// NewConverter lists ffmpeg's encoders once and picks the one every
// conversion of this run will use.
func NewConverter(ctx context.Context, cfg *config.Config, log *logging.Logger, exec Executor, opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:     cfg,
		log:     log,
		exec:    exec,
		prober:  probe.New(exec, cfg.FFprobePath, cfg.DefaultAudioKbps),
		thumbs:  thumbnail.NewResolver(exec, cfg.FFmpegPath),
		planner: planner.FromConfig(cfg),
		names:   naming.NewCollisionResolver(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.progress == nil {
		c.progress = display.NewProgressPrinter(os.Stdout, term.IsTerminal(os.Stdout))
	}
	if c.encoder.Name == "" {
		choice, err := encoder.NewSelector(exec, cfg.FFmpegPath).Choose(ctx, cfg.Encoder)
		if err != nil {
			return nil, err
		}
		c.encoder = choice
	}

	switch c.encoder.Kind {
	case encoder.Fallback:
		log.Warn("No AV1 encoder available, falling back to %s", c.encoder)
	default:
		log.Info("Encoder: %s", c.encoder)
	}
	return c, nil
}

// Encoder returns the encoder chosen for this run.
func (c *Converter) Encoder() encoder.Choice { return c.encoder }

// Convert converts input to <input-dir>/<stem>_av1.<container>.
func (c *Converter) Convert(ctx context.Context, input string) (Outcome, error) {
	started := time.Now()
	out := Outcome{Input: input, Encoder: c.encoder.Name}

	info, err := os.Stat(input)
	if err != nil || info.IsDir() {
		err = fmt.Errorf("%w: %s", ErrInputNotFound, input)
		c.record(ctx, started, &out, err)
		return out, err
	}
	out.InputBytes = info.Size()

	output := c.names.Resolve(input, naming.OutputPath(input, string(c.cfg.OutputContainer)))
	job := NewJob(input, output, thumbnail.TempPath(c.cfg.EffectiveTempDir()))
	defer job.Cleanup()
	out.Output = job.Output

	err = c.convert(ctx, job, &out)
	out.Elapsed = time.Since(started)
	c.record(ctx, started, &out, err)
	return out, err
}

func (c *Converter) convert(ctx context.Context, job *Job, out *Outcome) error {
	verbose := c.cfg.Verbose

	// --- Probe ---
	pr, err := c.prober.Probe(ctx, job.Input)
	if err != nil {
		return err
	}
	if pr.DurationKnown() {
		c.log.Info("Duration: %s | Size: %s", display.FormatDuration(pr.DurationSec), display.FormatBytes(out.InputBytes))
	} else {
		c.log.Warn("Duration unknown: encoding in quality mode without progress percentage")
	}
	if pr.HDR {
		c.log.Warn("HDR source: output is 8-bit yuv420p without tone mapping")
	}
	if pr.Interlaced {
		c.log.Warn("Interlaced source: encoded as-is without deinterlacing")
	}

	// --- Thumbnail ---
	src, err := c.thumbs.Resolve(ctx, job.Input, pr.AttachedPic, job.Thumbnail)
	if err != nil {
		return err
	}
	out.Thumbnail = src
	c.log.Debug(verbose, "Thumbnail %s -> %s", src, job.Thumbnail)
	if resized, err := thumbnail.Normalize(job.Thumbnail, c.cfg.ThumbnailMaxEdge); err != nil {
		c.log.Debug(verbose, "Thumbnail kept as-is: %v", err)
	} else if resized {
		c.log.Debug(verbose, "Thumbnail downscaled to %dpx", c.cfg.ThumbnailMaxEdge)
	}

	// --- Plan ---
	audio := c.prober.EstimateAudio(ctx, job.Input, pr.Text)
	out.Audio = audio
	plan := c.planner.Plan(out.InputBytes, pr.DurationSec, audio.TotalKbps)
	out.Plan = plan
	choice := c.encoder.WithBitrate(plan)
	c.logPlan(plan, audio)
	c.log.Debug(verbose, "Encoder options: %s", choice.OptionString())
	c.preflight(ctx, job, plan, pr.DurationSec)

	// --- Encode ---
	c.log.Info("Converting: %s", filepath.Base(job.Input))
	c.log.Info("  -> %s", job.Output)
	encStart := time.Now()
	if err := c.encode(ctx, job, choice, pr.DurationSec, out); err != nil {
		return err
	}

	// --- Report ---
	if fi, err := os.Stat(job.Output); err == nil {
		out.OutputBytes = fi.Size()
	}
	c.log.Success("Converted in %s: %s", display.FormatETA(time.Since(encStart)), job.Output)
	if out.OutputBytes > 0 {
		c.log.Info("  Size: %s -> %s (%s of original)",
			display.FormatBytes(out.InputBytes),
			display.FormatBytes(out.OutputBytes),
			display.FormatRatio(out.InputBytes, out.OutputBytes))
	}
	return nil
}

// encode runs ffmpeg, retrying once without the thumbnail when the first
// failure looks like a muxing problem.
func (c *Converter) encode(ctx context.Context, job *Job, choice encoder.Choice, durationSec float64, out *Outcome) error {
	req := ffmpeg.Request{
		Input:     job.Input,
		Output:    job.Output,
		Thumbnail: job.Thumbnail,
		Encoder:   choice,
		Container: c.cfg.OutputContainer,
		Verbose:   c.cfg.Verbose,
	}
	rs := ffmpeg.NewRetryState(true)

	for {
		args := ffmpeg.Build(req, rs)
		c.log.Debug(c.cfg.Verbose, "%s", ffmpeg.CommandLine(c.cfg.FFmpegPath, args))

		res := c.runEncode(ctx, args, durationSec)
		if res.OK() {
			out.Attempts = rs.Attempts() + 1
			out.ThumbnailDropped = !rs.IncludeThumbnail
			return nil
		}
		removePartial(job.Output)

		if res.Err != nil {
			out.Attempts = rs.Attempts() + 1
			if errors.Is(res.Err, ffmpeg.ErrStalled) {
				return fmt.Errorf("%w: no progress for %s", ffmpeg.ErrStalled, c.cfg.StallTimeout)
			}
			return fmt.Errorf("run ffmpeg: %w", res.Err)
		}

		if rs.Advance(res.Output) == ffmpeg.RetryDropThumbnail {
			c.log.Warn("Muxing failed with the thumbnail attached, retrying without it")
			if c.metrics != nil {
				c.metrics.Retry()
			}
			continue
		}

		out.Attempts = rs.Attempts()
		return &ffmpeg.EncodeError{
			Attempts: rs.Attempts(),
			ExitCode: res.ExitCode,
			Reason:   ffmpeg.Classify(res.Output),
			Tail:     ffmpeg.Tail(res.Output, tailLines),
		}
	}
}

func (c *Converter) runEncode(ctx context.Context, args []string, durationSec float64) ffmpeg.ExecResult {
	task := ffmpeg.Start(ctx, c.exec, c.cfg.FFmpegPath, args, ffmpeg.Options{
		TotalSec:     durationSec,
		StallTimeout: c.cfg.StallTimeout,
	})
	for ev := range task.Events() {
		switch ev.Kind {
		case ffmpeg.EventProgress:
			c.progress.Update(ev.Progress.Percent, ev.Progress.ETA)
		case ffmpeg.EventActivity:
			c.progress.Activity(ev.Line)
		case ffmpeg.EventLog:
			c.log.Debug(c.cfg.Verbose, "ffmpeg: %s", ev.Line)
		}
	}
	c.progress.Done()
	return task.Wait()
}

func (c *Converter) logPlan(plan planner.BitratePlan, audio probe.AudioEstimate) {
	source := "reported"
	if !audio.Structured {
		source = "estimated"
	}
	if !plan.Known() {
		c.log.Info("Bitrate: quality mode (source bitrate unknown)")
		return
	}
	c.log.Info("Bitrate: %s total -> %s target | audio %s (%d stream(s), %s) | video %s",
		display.FormatBitrateLabel(int64(plan.OriginalTotalKbps)),
		display.FormatBitrateLabel(int64(plan.TargetTotalKbps)),
		display.FormatBitrateLabel(int64(plan.AudioKbps)), audio.Streams, source,
		display.FormatBitrateLabel(int64(plan.TargetVideoKbps)))
}

// preflight warns when the output filesystem looks too small for the
// predicted output. It never fails the job.
func (c *Converter) preflight(ctx context.Context, job *Job, plan planner.BitratePlan, durationSec float64) {
	want := planner.EstimateOutputBytes(plan, durationSec)
	if want <= 0 {
		return
	}
	free, err := check.FreeBytes(ctx, filepath.Dir(job.Output))
	if err != nil {
		c.log.Debug(c.cfg.Verbose, "Free space unknown: %v", err)
		return
	}
	if uint64(want) > free {
		c.log.Warn("Low disk space: ~%s needed, %s free", display.FormatBytes(want), display.FormatBytes(int64(free)))
	}
}

// record feeds metrics and history. Failures here are only logged.
func (c *Converter) record(ctx context.Context, started time.Time, out *Outcome, err error) {
	if c.metrics != nil {
		if err == nil {
			c.metrics.Success(out.Encoder, out.Elapsed.Seconds(), out.InputBytes, out.OutputBytes)
		} else {
			c.metrics.Failure(FailureReason(err))
		}
	}
	if c.history == nil {
		return
	}
	e := history.Entry{
		StartedAt:   started,
		Input:       out.Input,
		Output:      out.Output,
		Encoder:     out.Encoder,
		Status:      history.StatusOK,
		InputBytes:  out.InputBytes,
		OutputBytes: out.OutputBytes,
		TargetKbps:  out.Plan.TargetVideoKbps,
		Attempts:    out.Attempts,
		Seconds:     out.Elapsed.Seconds(),
	}
	if !out.Plan.Known() {
		e.TargetKbps = 0
	}
	if err != nil {
		e.Status = history.StatusFailed
		e.Reason = FailureReason(err)
	}
	if _, herr := c.history.Record(context.WithoutCancel(ctx), e); herr != nil {
		c.log.Warn("History not updated: %v", herr)
	}
}

// FailureReason maps a conversion error to a short label.
func FailureReason(err error) string {
	var encErr *ffmpeg.EncodeError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputNotFound):
		return "input_missing"
	case errors.Is(err, thumbnail.ErrUnavailable):
		return "thumbnail"
	case errors.Is(err, ffmpeg.ErrStalled):
		return "stalled"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &encErr):
		return string(encErr.Reason)
	default:
		return "other"
	}
}
