// Package encoder chooses the video encoder for a run and renders its
// option flags, either in quality-only mode or with explicit bitrate caps
// taken from a planner.BitratePlan.
package encoder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/StephanOrgiazzi/convertav1/internal/planner"
)

// ErrNoEncoder means no usable encoder was found.
var ErrNoEncoder = errors.New("no usable video encoder")

// Kind classifies an encoder.
type Kind int

const (
	Hardware Kind = iota // GPU AV1
	Software             // CPU AV1
	Fallback             // non-AV1 last resort
)

func (k Kind) String() string {
	switch k {
	case Hardware:
		return "hardware AV1"
	case Software:
		return "software AV1"
	default:
		return "fallback"
	}
}

// Profile describes how to drive one encoder. Option flags are written
// without stream specifiers ("-crf", not "-crf:v:0"); the command builder
// scopes them to the primary video stream.
type Profile struct {
	Name string
	Kind Kind
	// Quality holds the rate-control flags used when no bitrate is known.
	Quality []string
	// Tuning holds speed/quality tuning flags kept in both modes.
	Tuning []string
	// BitrateMode is prepended to the bitrate flags in bitrate mode.
	BitrateMode []string
}

// Profiles lists candidates in selection order: hardware AV1, then
// software AV1, then the fallback codec.
var Profiles = []Profile{
	{
		Name:    "av1_nvenc",
		Kind:    Hardware,
		Quality: []string{"-cq", "30", "-b", "0"},
		Tuning:  []string{"-rc", "vbr", "-preset", "p5", "-tune", "hq", "-multipass", "fullres", "-spatial-aq", "1", "-temporal-aq", "1", "-aq-strength", "8"},
	},
	{
		Name:    "av1_qsv",
		Kind:    Hardware,
		Quality: []string{"-global_quality", "30"},
		Tuning:  []string{"-preset", "slower", "-look_ahead_depth", "40"},
	},
	{
		Name:        "av1_amf",
		Kind:        Hardware,
		Quality:     []string{"-rc", "cqp", "-qp_i", "30", "-qp_p", "30"},
		Tuning:      []string{"-quality", "quality"},
		BitrateMode: []string{"-rc", "vbr_peak"},
	},
	{
		Name:    "libsvtav1",
		Kind:    Software,
		Quality: []string{"-crf", "30"},
		Tuning:  []string{"-preset", "6", "-svtav1-params", "tune=0"},
	},
	{
		Name:    "libx264",
		Kind:    Fallback,
		Quality: []string{"-crf", "23"},
		Tuning:  []string{"-preset", "medium"},
	},
}

// Lookup returns the profile for name.
func Lookup(name string) (Profile, bool) {
	for _, p := range Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Choice is the encoder selected for a run plus its rendered options.
// It is immutable; WithBitrate returns a copy.
type Choice struct {
	Name    string
	Kind    Kind
	Options []string
	profile Profile
	plan    planner.BitratePlan
}

// BitrateMode reports whether Options carry explicit bitrate caps.
func (c Choice) BitrateMode() bool { return c.plan.Known() }

// OptionString renders Options for display.
func (c Choice) OptionString() string { return strings.Join(c.Options, " ") }

func (c Choice) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Kind)
}

func newChoice(p Profile) Choice {
	opts := make([]string, 0, len(p.Quality)+len(p.Tuning))
	opts = append(opts, p.Tuning...)
	opts = append(opts, p.Quality...)
	return Choice{Name: p.Name, Kind: p.Kind, Options: opts, profile: p}
}

// WithBitrate returns a copy of c whose options target plan's video
// bitrate (max-rate 1.5x, buffer 3x) instead of the quality setting.
// Unknown plans return c unchanged.
func (c Choice) WithBitrate(plan planner.BitratePlan) Choice {
	if !plan.Known() {
		return c
	}
	p := c.profile
	opts := make([]string, 0, len(p.Tuning)+len(p.BitrateMode)+6)
	opts = append(opts, p.Tuning...)
	opts = append(opts, p.BitrateMode...)
	opts = append(opts,
		"-b", kbps(plan.TargetVideoKbps),
		"-maxrate", kbps(plan.MaxRateKbps()),
		"-bufsize", kbps(plan.BufSizeKbps()),
	)
	out := c
	out.Options = opts
	out.plan = plan
	return out
}

func kbps(v int) string { return strconv.Itoa(v) + "k" }

// Select picks an encoder from ffmpeg's `-encoders` listing. prefer is
// "auto" (or empty) for the built-in order, or an encoder name to force.
// Matching is a case-insensitive substring search.
func Select(encodersText, prefer string) (Choice, error) {
	return selectFrom(encodersText, prefer, nil)
}

// selectFrom is Select with an extra filter applied in auto mode; a nil
// usable accepts every listed profile.
func selectFrom(encodersText, prefer string, usable func(Profile) bool) (Choice, error) {
	lower := strings.ToLower(encodersText)
	listed := func(name string) bool { return strings.Contains(lower, strings.ToLower(name)) }

	if prefer != "" && prefer != "auto" {
		if !listed(prefer) {
			return Choice{}, fmt.Errorf("%w: %s is not listed by ffmpeg -encoders", ErrNoEncoder, prefer)
		}
		if p, ok := Lookup(prefer); ok {
			return newChoice(p), nil
		}
		// Unknown to us but present: run it with ffmpeg's defaults.
		return newChoice(Profile{Name: prefer, Kind: Software}), nil
	}

	for _, p := range Profiles {
		if listed(p.Name) && (usable == nil || usable(p)) {
			return newChoice(p), nil
		}
	}
	return Choice{}, fmt.Errorf("%w: neither %s nor %s is available", ErrNoEncoder, "libsvtav1", "libx264")
}

// ListAV1 returns the trimmed lines of encodersText that mention AV1.
func ListAV1(encodersText string) []string {
	var out []string
	for _, line := range strings.Split(encodersText, "\n") {
		if strings.Contains(strings.ToLower(line), "av1") {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}
