package planner

import "math"

// BitratePlan holds the bitrate targets for a single input, in kbit/s
// (1 kbit = 1024 bits). A plan with TargetVideoKbps == 0 means the duration
// was unknown; the encoder then runs in quality-only mode. A known duration
// always yields a video target of at least the floor, even when the total
// rounds to zero for a tiny input.
type BitratePlan struct {
	OriginalTotalKbps int
	AudioKbps         int
	TargetTotalKbps   int
	TargetVideoKbps   int
}

// Known reports whether the plan carries usable bitrate targets.
func (p BitratePlan) Known() bool { return p.TargetVideoKbps > 0 }

// MaxRateKbps is the peak video rate allowed around the target.
func (p BitratePlan) MaxRateKbps() int {
	return int(math.Round(float64(p.TargetVideoKbps) * 1.5))
}

// BufSizeKbps is the rate-control buffer size.
func (p BitratePlan) BufSizeKbps() int { return p.TargetVideoKbps * 3 }
