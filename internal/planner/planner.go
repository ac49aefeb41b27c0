package planner

import (
	"math"

	"github.com/StephanOrgiazzi/convertav1/internal/config"
)

const (
	// DefaultTargetRatio aims for half the original size.
	DefaultTargetRatio = 0.5
	// DefaultMinVideoKbps is the lowest video bitrate ever targeted.
	DefaultMinVideoKbps = 300
)

// Planner computes bitrate plans. The zero value is not useful; use
// [New], [FromConfig] or the package-level [Plan].
type Planner struct {
	TargetRatio  float64
	MinVideoKbps int
}

// New returns a Planner, substituting defaults for non-positive values.
func New(targetRatio float64, minVideoKbps int) Planner {
	if targetRatio <= 0 {
		targetRatio = DefaultTargetRatio
	}
	if minVideoKbps <= 0 {
		minVideoKbps = DefaultMinVideoKbps
	}
	return Planner{TargetRatio: targetRatio, MinVideoKbps: minVideoKbps}
}

// FromConfig returns a Planner using cfg's ratio and floor.
func FromConfig(cfg *config.Config) Planner {
	return New(cfg.TargetRatio, cfg.MinVideoKbps)
}

// Plan computes the default plan: half the original size, 300 kbit/s floor.
func Plan(sizeBytes int64, durationSec float64, audioKbps int) BitratePlan {
	return New(DefaultTargetRatio, DefaultMinVideoKbps).Plan(sizeBytes, durationSec, audioKbps)
}

// Plan computes bitrate targets for an input of sizeBytes lasting
// durationSec whose audio (copied as-is) totals audioKbps.
//
// A non-positive duration yields a plan with all targets zero; callers
// fall back to quality-only encoding.
func (p Planner) Plan(sizeBytes int64, durationSec float64, audioKbps int) BitratePlan {
	if audioKbps < 0 {
		audioKbps = 0
	}
	plan := BitratePlan{AudioKbps: audioKbps}
	if durationSec <= 0 {
		return plan
	}
	if sizeBytes < 0 {
		sizeBytes = 0
	}

	// Keep the intermediate unrounded so the target is derived from the
	// exact average rather than the rounded original.
	totalKbps := float64(sizeBytes) * 8 / durationSec / 1024
	plan.OriginalTotalKbps = int(math.Round(totalKbps))
	plan.TargetTotalKbps = int(math.Round(totalKbps * p.TargetRatio))
	plan.TargetVideoKbps = max(p.MinVideoKbps, plan.TargetTotalKbps-audioKbps)
	return plan
}

// EstimateOutputBytes predicts the output size if the encoder hits the
// plan's video target exactly. Returns 0 for unknown plans.
func EstimateOutputBytes(plan BitratePlan, durationSec float64) int64 {
	if !plan.Known() || durationSec <= 0 {
		return 0
	}
	kbps := float64(plan.TargetVideoKbps + plan.AudioKbps)
	return int64(kbps * 1024 / 8 * durationSec)
}
