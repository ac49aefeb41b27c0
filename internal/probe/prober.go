package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/StephanOrgiazzi/convertav1/internal/runner"
)

// Runner executes a program to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (runner.Result, error)
}

// DefaultAudioKbps is assumed for audio streams that report no bitrate.
const DefaultAudioKbps = 192

// Prober runs ffprobe against inputs.
type Prober struct {
	run              Runner
	ffprobe          string
	parser           TextParser
	defaultAudioKbps int
}

// New returns a Prober using the given ffprobe binary. defaultAudioKbps
// values <= 0 select [DefaultAudioKbps].
func New(run Runner, ffprobe string, defaultAudioKbps int) *Prober {
	if defaultAudioKbps <= 0 {
		defaultAudioKbps = DefaultAudioKbps
	}
	return &Prober{
		run:              run,
		ffprobe:          ffprobe,
		parser:           DefaultParser{},
		defaultAudioKbps: defaultAudioKbps,
	}
}

// WithParser replaces the text parser.
func (p *Prober) WithParser(tp TextParser) *Prober {
	p.parser = tp
	return p
}

// Probe runs ffprobe's text inspection of path. ffprobe's exit status is
// not checked: whatever text it produced is parsed. The error is non-nil
// only when ffprobe could not be run at all.
func (p *Prober) Probe(ctx context.Context, path string) (*Result, error) {
	res, err := p.run.Run(ctx, p.ffprobe, "-hide_banner", "-i", path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %q: %w", path, err)
	}
	text := res.Combined()

	r := &Result{
		Text:        text,
		DurationSec: p.parser.Duration(text),
		HDR:         DetectHDR(text),
		Interlaced:  DetectInterlaced(text),
	}
	if spec, ok := p.parser.AttachedPicture(text); ok {
		r.AttachedPic = spec
	}
	return r, nil
}

// EstimateAudio returns the total audio bitrate of path. It prefers a
// structured per-stream query; if that cannot be run or parsed, it counts
// audio markers in text and assumes the default bitrate for each.
func (p *Prober) EstimateAudio(ctx context.Context, path, text string) AudioEstimate {
	if est, err := p.queryAudio(ctx, path); err == nil {
		return est
	}
	n := p.parser.AudioMarkers(text)
	return AudioEstimate{TotalKbps: n * p.defaultAudioKbps, Streams: n}
}

func (p *Prober) queryAudio(ctx context.Context, path string) (AudioEstimate, error) {
	res, err := p.run.Run(ctx, p.ffprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index,bit_rate",
		"-of", "json",
		path,
	)
	if err != nil {
		return AudioEstimate{}, err
	}
	if res.ExitCode != 0 {
		return AudioEstimate{}, fmt.Errorf("ffprobe audio query exited %d", res.ExitCode)
	}
	streams, err := ParseAudioJSON([]byte(res.Stdout))
	if err != nil {
		return AudioEstimate{}, err
	}

	est := AudioEstimate{Streams: len(streams), Structured: true}
	for _, s := range streams {
		if s.BitRate > 0 {
			est.TotalKbps += int(math.Round(float64(s.BitRate) / 1000))
		} else {
			est.TotalKbps += p.defaultAudioKbps
		}
	}
	return est, nil
}

// AudioStream is one entry of the structured audio query.
type AudioStream struct {
	Index   int
	BitRate int64 // bits/s; 0 when not reported
}

// ParseAudioJSON converts the structured audio query output into streams.
// Exported for testing without a real ffprobe binary.
func ParseAudioJSON(data []byte) ([]AudioStream, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	out := make([]AudioStream, 0, len(raw.Streams))
	for i := range raw.Streams {
		out = append(out, convertAudio(&raw.Streams[i]))
	}
	return out, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	Index   int    `json:"index"`
	BitRate string `json:"bit_rate"`
}

func convertAudio(s *ffprobeStream) AudioStream {
	return AudioStream{
		Index:   s.Index,
		BitRate: parseInt64(s.BitRate),
	}
}

// parseInt64 reads ffprobe's string-encoded numbers; "N/A" and blanks are 0.
func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
