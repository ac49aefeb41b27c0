package probe

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StephanOrgiazzi/convertav1/internal/runner"
)

// sampleText is ffprobe -hide_banner output for an MP4 with an HDR10 main
// stream, two audio tracks and embedded cover art.
const sampleText = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'holiday.mp4':
  Metadata:
    major_brand     : isom
    encoder         : Lavf60.3.100
  Duration: 01:02:03.45, start: 0.000000, bitrate: 6873 kb/s
  Stream #0:0[0x1](und): Video: hevc (Main 10) (hvc1 / 0x31637668), yuv420p10le(tv, bt2020nc/bt2020/smpte2084), 3840x2160, 6400 kb/s, 23.98 fps, 23.98 tbr, 24k tbn (default)
    Metadata:
      handler_name    : VideoHandler
  Stream #0:1[0x2](eng): Audio: aac (LC) (mp4a / 0x6134706D), 48000 Hz, stereo, fltp, 128 kb/s (default)
  Stream #0:2[0x3](jpn): Audio: aac (LC) (mp4a / 0x6134706D), 48000 Hz, stereo, fltp, 96 kb/s
  Stream #0:3[0x0]: Video: mjpeg (Baseline), yuvj420p(pc, bt470bg/unknown/unknown), 600x600 [SAR 1:1 DAR 1:1], 90k tbr, 90k tbn (attached pic)
`

const sampleInterlacedText = `Input #0, mpegts, from 'broadcast.ts':
  Duration: 00:00:42.00, start: 1.400000, bitrate: 4200 kb/s
  Stream #0:0[0x100]: Video: mpeg2video (Main), yuv420p(tv, bt709, top first), 720x480 [SAR 8:9 DAR 4:3], 29.97 fps, 29.97 tbr, 90k tbn
  Stream #0:1[0x101](eng): Audio: ac3, 48000 Hz, 5.1(side), fltp, 384 kb/s
`

// fakeRunner answers ffprobe invocations without a real binary.
type fakeRunner struct {
	text      string
	audioJSON string
	audioExit int
	audioErr  error
	startErr  error
	calls     [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (runner.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.startErr != nil {
		return runner.Result{ExitCode: -1}, f.startErr
	}
	if slices.Contains(args, "-show_entries") {
		if f.audioErr != nil {
			return runner.Result{ExitCode: -1}, f.audioErr
		}
		return runner.Result{ExitCode: f.audioExit, Stdout: f.audioJSON}, nil
	}
	// ffprobe -i without an output exits 0 and writes to stderr.
	return runner.Result{Stderr: f.text}, nil
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"english", "  Duration: 01:02:03.45, start: 0.000000", 3723.45},
		{"french", "  Durée : 00:00:10.50, début : 0", 10.5},
		{"german", "  Dauer: 00:01:00.00", 60},
		{"lowercase", "duration: 00:00:07.25", 7.25},
		{"no fraction", "Duration: 00:00:30", 30},
		{"comma fraction", "Duración: 00:00:01,5", 1.5},
		{"not available", "Duration: N/A, start: 0.000000, bitrate: N/A", 0},
		{"absent", "Input #0, image2, from 'x.jpg':", 0},
		{"first wins", "Duration: 00:00:02.00\nDuration: 00:00:09.00", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.text))
		})
	}
}

func TestFindAttachedPicture(t *testing.T) {
	spec, ok := FindAttachedPicture(sampleText)
	require.True(t, ok)
	assert.Equal(t, "0:3", spec)

	_, ok = FindAttachedPicture(sampleInterlacedText)
	assert.False(t, ok)

	spec, ok = FindAttachedPicture("Stream #0:2: Video: png, rgb24, 500x500 (ATTACHED PIC)")
	require.True(t, ok)
	assert.Equal(t, "0:2", spec)
}

func TestCountAudioMarkers(t *testing.T) {
	assert.Equal(t, 2, CountAudioMarkers(sampleText))
	assert.Equal(t, 1, CountAudioMarkers(sampleInterlacedText))
	assert.Equal(t, 0, CountAudioMarkers(""))
}

func TestDetectHDR(t *testing.T) {
	assert.True(t, DetectHDR(sampleText))
	assert.False(t, DetectHDR(sampleInterlacedText))
	assert.True(t, DetectHDR("Stream #0:0: Video: hevc, yuv420p10le(tv, bt2020nc/bt2020/arib-std-b67), 1920x1080"))
	assert.False(t, DetectHDR(""))
}

func TestDetectInterlaced(t *testing.T) {
	assert.True(t, DetectInterlaced(sampleInterlacedText))
	assert.False(t, DetectInterlaced(sampleText))
	assert.True(t, DetectInterlaced("Stream #0:0: Video: h264, yuv420p(tv, bt709, bottom coded first (swapped)), 1920x1080"))
}

func TestProbe(t *testing.T) {
	fr := &fakeRunner{text: sampleText}
	p := New(fr, "ffprobe", 0)

	r, err := p.Probe(context.Background(), "holiday.mp4")
	require.NoError(t, err)

	assert.Equal(t, 3723.45, r.DurationSec)
	assert.True(t, r.DurationKnown())
	assert.True(t, r.HasAttachedPic())
	assert.Equal(t, "0:3", r.AttachedPic)
	assert.True(t, r.HDR)
	assert.False(t, r.Interlaced)
	assert.Equal(t, []string{"ffprobe", "-hide_banner", "-i", "holiday.mp4"}, fr.calls[0])
}

func TestProbe_StartFailure(t *testing.T) {
	p := New(&fakeRunner{startErr: errors.New("exec: not found")}, "ffprobe", 0)
	_, err := p.Probe(context.Background(), "x.mp4")
	assert.Error(t, err)
}

type fixedParser struct{ DefaultParser }

func (fixedParser) Duration(string) float64 { return 99 }

func TestProbe_CustomParser(t *testing.T) {
	p := New(&fakeRunner{text: sampleText}, "ffprobe", 0).WithParser(fixedParser{})
	r, err := p.Probe(context.Background(), "x.mp4")
	require.NoError(t, err)
	assert.Equal(t, 99.0, r.DurationSec)
	assert.Equal(t, "0:3", r.AttachedPic)
}

func TestEstimateAudio(t *testing.T) {
	tests := []struct {
		name string
		fr   *fakeRunner
		want AudioEstimate
	}{
		{
			name: "structured with bitrates",
			fr:   &fakeRunner{audioJSON: `{"programs":[],"streams":[{"index":1,"bit_rate":"128000"},{"index":2,"bit_rate":"96000"}]}`},
			want: AudioEstimate{TotalKbps: 224, Streams: 2, Structured: true},
		},
		{
			name: "missing bitrate uses default",
			fr:   &fakeRunner{audioJSON: `{"streams":[{"index":1,"bit_rate":"128000"},{"index":2},{"index":3,"bit_rate":"N/A"}]}`},
			want: AudioEstimate{TotalKbps: 128 + 192 + 192, Streams: 3, Structured: true},
		},
		{
			name: "single stream without bitrate",
			fr:   &fakeRunner{audioJSON: `{"streams":[{"index":1}]}`},
			want: AudioEstimate{TotalKbps: 192, Streams: 1, Structured: true},
		},
		{
			name: "structured with no audio",
			fr:   &fakeRunner{audioJSON: `{"streams":[]}`},
			want: AudioEstimate{TotalKbps: 0, Streams: 0, Structured: true},
		},
		{
			name: "malformed json falls back to markers",
			fr:   &fakeRunner{audioJSON: `not json`},
			want: AudioEstimate{TotalKbps: 2 * 192, Streams: 2},
		},
		{
			name: "non-zero exit falls back",
			fr:   &fakeRunner{audioExit: 1, audioJSON: `{"streams":[]}`},
			want: AudioEstimate{TotalKbps: 2 * 192, Streams: 2},
		},
		{
			name: "query cannot start falls back",
			fr:   &fakeRunner{audioErr: errors.New("boom")},
			want: AudioEstimate{TotalKbps: 2 * 192, Streams: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.fr, "ffprobe", 0)
			got := p.EstimateAudio(context.Background(), "holiday.mp4", sampleText)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateAudio_ConfiguredDefault(t *testing.T) {
	p := New(&fakeRunner{audioJSON: `{"streams":[{"index":1}]}`}, "ffprobe", 256)
	got := p.EstimateAudio(context.Background(), "x.mp4", "")
	assert.Equal(t, 256, got.TotalKbps)
}

func TestParseAudioJSON_Invalid(t *testing.T) {
	_, err := ParseAudioJSON([]byte("{"))
	assert.Error(t, err)
}
