package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"typical file 700 MiB", 734003200, "700 MiB"},
		{"4.7 GiB", 5046586572, "4.7 GiB"},
		{"negative", -1024, "-1.0 KiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}

func TestFormatBytesWithSign(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"positive", 1024 * 1024, "+ 1.0 MiB"},
		{"negative", -1024 * 1024, "- 1.0 MiB"},
		{"zero", 0, "0 B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytesWithSign(tt.bytes))
		})
	}
}

func TestFormatBitrateLabel(t *testing.T) {
	tests := []struct {
		name string
		kbps int64
		want string
	}{
		{"sub-megabit", 800, "800 kbps"},
		{"exactly 1 Mbps", 1000, "1.0 Mbps"},
		{"typical video", 5000, "5.0 Mbps"},
		{"high bitrate", 25000, "25.0 Mbps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBitrateLabel(tt.kbps))
		})
	}
}

func TestFormatRatio(t *testing.T) {
	assert.Equal(t, "50.0%", FormatRatio(200, 100))
	assert.Equal(t, "n/a", FormatRatio(0, 100))
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-1, "--"},
		{0, "0s"},
		{12 * time.Second, "12s"},
		{4*time.Minute + 5*time.Second, "4m05s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
		{1500 * time.Millisecond, "2s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatETA(tt.in), "FormatETA(%s)", tt.in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1:02:03", FormatDuration(3723.45))
	assert.Equal(t, "unknown", FormatDuration(0))
}

func TestFormatProgress(t *testing.T) {
	got := FormatProgress(50, 90*time.Second)
	assert.Equal(t, "[############............]  50.0% | ETA 1m30s", got)

	assert.Contains(t, FormatProgress(140, 0), "100.0%")
	assert.Contains(t, FormatProgress(-3, -1), "  0.0% | ETA --")
}

func TestProgressPrinter_NonTTYSteps(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressPrinter(&buf, false)

	for _, pct := range []float64{0.5, 3, 9.9, 10, 15, 20.5, 100} {
		p.Update(pct, time.Minute)
	}
	p.Activity("ignored")
	p.Done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4) // 0%, 10%, 20%, 100% steps
	assert.Contains(t, lines[3], "100.0%")
}

func TestProgressPrinter_TTYRedraws(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressPrinter(&buf, true)

	p.Update(10, time.Minute)
	p.Activity("frame=120")
	p.Done()

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\r"))
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "frame=120")
}
