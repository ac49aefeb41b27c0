package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/StephanOrgiazzi/convertav1/internal/display"
	"github.com/StephanOrgiazzi/convertav1/internal/ffmpeg"
	"github.com/StephanOrgiazzi/convertav1/internal/logging"
	"github.com/StephanOrgiazzi/convertav1/internal/thumbnail"
)

// Run is the batch entry point. It expands inputs, converts each file
// sequentially and returns aggregate stats. A cancelled ctx stops the batch
// after the current file.
func Run(ctx context.Context, conv *Converter, log *logging.Logger, inputs []string) RunStats {
	var stats RunStats

	files, err := Expand(inputs)
	if err != nil {
		log.Error("File discovery failed: %v", err)
		stats.Failed++
	}
	stats.Total = len(files)
	if stats.Total == 0 {
		log.Warn("No media files found")
		return stats
	}
	batch := stats.Total > 1

	for i, path := range files {
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}
		stats.Current = i + 1
		if batch {
			log.Info("[%d/%d] %s", stats.Current, stats.Total, filepath.Base(path))
		}

		out, err := conv.Convert(ctx, path)
		if out.ThumbnailDropped {
			stats.Retried++
		}
		if err != nil {
			ReportError(log, err)
			stats.Failed++
			fmt.Println()
			continue
		}
		stats.Converted++
		stats.TotalInputBytes += out.InputBytes
		stats.TotalOutputBytes += out.OutputBytes
		if batch {
			fmt.Println()
		}
	}

	if batch {
		logSummary(log, &stats)
	}
	return stats
}

// ReportError logs a conversion failure, including the tail of ffmpeg's
// output for encode failures.
func ReportError(log *logging.Logger, err error) {
	var encErr *ffmpeg.EncodeError
	switch {
	case errors.As(err, &encErr):
		log.Error("Encode failed (%s) after %d attempt(s), ffmpeg exit code %d",
			encErr.Reason, encErr.Attempts, encErr.ExitCode)
		if len(encErr.Tail) > 0 {
			log.Error("Last ffmpeg output:")
			for _, l := range encErr.Tail {
				log.Error("  %s", l)
			}
		}
	case errors.Is(err, ErrInputNotFound):
		log.Error("%v", err)
	case errors.Is(err, thumbnail.ErrUnavailable):
		log.Error("Thumbnail failed: %v", err)
	case errors.Is(err, context.Canceled):
		log.Warn("Cancelled")
	default:
		log.Error("Conversion failed: %v", err)
	}
}

func logSummary(log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %d converted, %d failed", stats.Converted, stats.Failed)
	if stats.Retried > 0 {
		log.Info("  Retried without thumbnail: %d", stats.Retried)
	}
	if stats.Converted == 0 {
		return
	}

	saved := stats.SpaceSaved()
	if saved >= 0 {
		log.Success("  Total space saved: %s (input %s -> output %s, %s)",
			display.FormatBytes(saved),
			display.FormatBytes(stats.TotalInputBytes),
			display.FormatBytes(stats.TotalOutputBytes),
			display.FormatRatio(stats.TotalInputBytes, stats.TotalOutputBytes))
	} else {
		log.Warn("  Total space saved: -%s (overall output is larger)",
			display.FormatBytes(-saved))
	}
}
