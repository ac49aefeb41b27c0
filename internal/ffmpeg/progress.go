package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

const outTimeKey = "out_time_ms="

// minStep is the smallest percent advance worth reporting.
const minStep = 0.5

// ParseOutTime reads an "out_time_ms=<int>" progress line and returns the
// encoded output position in seconds. Despite its name ffmpeg reports this
// key in microseconds. Lines with other keys, "N/A" or garbage return false.
func ParseOutTime(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, outTimeKey) {
		return 0, false
	}
	us, err := strconv.ParseInt(strings.TrimPrefix(line, outTimeKey), 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(us) / 1e6, true
}

// Percent returns 100*elapsed/total clamped to [0, 100]. A non-positive
// total yields 0.
func Percent(elapsed, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := 100 * elapsed / total
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Progress is one displayed status update.
type Progress struct {
	Percent    float64
	OutSeconds float64
	Wall       time.Duration // since the encode started
	// ETA is the estimated time remaining; negative when not yet known.
	ETA time.Duration
}

// Tracker converts out_time samples into throttled Progress updates for an
// input of known duration.
type Tracker struct {
	total    float64
	start    time.Time
	last     float64
	reported bool
}

// NewTracker returns a Tracker for an input lasting totalSec, started at start.
func NewTracker(totalSec float64, start time.Time) *Tracker {
	return &Tracker{total: totalSec, start: start}
}

// Update records a new output position. It returns an update when the
// percentage has advanced by at least half a point since the last report,
// or has just reached 100. The duration must be known.
func (t *Tracker) Update(outSec float64, now time.Time) (Progress, bool) {
	if t.total <= 0 {
		return Progress{}, false
	}
	pct := Percent(outSec, t.total)
	reachedEnd := pct >= 100 && (!t.reported || t.last < 100)
	if !reachedEnd && pct-t.last < minStep {
		return Progress{}, false
	}
	t.last = pct
	t.reported = true

	wall := now.Sub(t.start)
	return Progress{
		Percent:    pct,
		OutSeconds: outSec,
		Wall:       wall,
		ETA:        eta(wall, pct),
	}, true
}

// eta is wall * (remaining / done); unknown until some progress exists.
func eta(wall time.Duration, pct float64) time.Duration {
	if pct <= 0 {
		return -1
	}
	return time.Duration(float64(wall) * (100 - pct) / pct)
}
