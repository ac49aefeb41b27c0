// Package check provides the `check` diagnostics command and the
// dependency validation run before any conversion.
package check

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/StephanOrgiazzi/convertav1/internal/config"
	"github.com/StephanOrgiazzi/convertav1/internal/encoder"
)

// Sentinel errors returned by CheckDeps.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg not found")
	ErrFFprobeNotFound = errors.New("ffprobe not found")
)

// Logger is the subset of the logging API used here.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// CheckDeps verifies that the configured ffmpeg and ffprobe resolve to
// executables (on PATH, or as given).
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, cfg.FFmpegPath)
	}
	if _, err := exec.LookPath(cfg.FFprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, cfg.FFprobePath)
	}
	return nil
}

// FreeBytes returns the free space of the filesystem holding dir.
func FreeBytes(ctx context.Context, dir string) (uint64, error) {
	u, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return 0, err
	}
	return u.Free, nil
}

// RunCheck prints tool versions, the AV1 encoders ffmpeg offers (with a
// short test encode for each), the encoder a conversion would use, and host
// resources. It is informational and reports whether a conversion could run.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger, run encoder.Runner) bool {
	log.Info("=== System Check ===")

	ok := true
	if !checkTool(ctx, log, run, "ffmpeg", cfg.FFmpegPath) {
		ok = false
	}
	if !checkTool(ctx, log, run, "ffprobe", cfg.FFprobePath) {
		ok = false
	}
	if ok {
		if !checkEncoders(ctx, cfg, log, run) {
			ok = false
		}
	}
	checkHost(ctx, cfg, log)
	return ok
}

func checkTool(ctx context.Context, log Logger, run encoder.Runner, label, bin string) bool {
	if _, err := exec.LookPath(bin); err != nil {
		log.Error("%s not found (%s)", label, bin)
		return false
	}
	res, err := run.Run(ctx, bin, "-version")
	if err != nil || res.ExitCode != 0 {
		log.Warn("%s found but -version failed", label)
		return true
	}
	first, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	log.Success("%s: %s", label, first)
	return true
}

func checkEncoders(ctx context.Context, cfg *config.Config, log Logger, run encoder.Runner) bool {
	sel := encoder.NewSelector(run, cfg.FFmpegPath)
	text, err := sel.Encoders(ctx)
	if err != nil {
		log.Error("Could not list encoders: %v", err)
		return false
	}

	log.Info("AV1 encoders:")
	lines := encoder.ListAV1(text)
	if len(lines) == 0 {
		log.Warn("  none")
	}
	for _, l := range lines {
		log.Info("  %s", l)
	}

	for _, p := range encoder.Profiles {
		if !strings.Contains(strings.ToLower(text), p.Name) {
			continue
		}
		if sel.Probe(ctx, p.Name) {
			log.Success("%s test encode works (%s)", p.Name, p.Kind)
		} else {
			log.Warn("%s is listed but a test encode failed", p.Name)
		}
	}

	choice, err := sel.Choose(ctx, cfg.Encoder)
	if err != nil {
		log.Error("%v", err)
		return false
	}
	log.Success("Conversions will use %s", choice)
	return true
}

func checkHost(ctx context.Context, cfg *config.Config, log Logger) {
	log.Info("Host: %s/%s", runtime.GOOS, runtime.GOARCH)
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		cores, _ := cpu.CountsWithContext(ctx, true)
		log.Info("  CPU: %s (%d threads)", strings.TrimSpace(infos[0].ModelName), cores)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		log.Info("  Memory: %s total, %s available", humanize.IBytes(vm.Total), humanize.IBytes(vm.Available))
	}
	tmp := cfg.EffectiveTempDir()
	if free, err := FreeBytes(ctx, tmp); err == nil {
		log.Info("  Temp dir: %s (%s free)", tmp, humanize.IBytes(free))
	} else {
		log.Warn("  Temp dir: %s (%v)", tmp, err)
	}
}
