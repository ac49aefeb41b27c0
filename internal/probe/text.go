package probe

import (
	"regexp"
	"strconv"
	"strings"
)

// TextParser extracts facts from ffprobe's human-readable output. The
// default implementation is regex based; callers may substitute another.
type TextParser interface {
	Duration(text string) float64
	AttachedPicture(text string) (spec string, ok bool)
	AudioMarkers(text string) int
}

// DefaultParser implements TextParser with the package-level functions.
type DefaultParser struct{}

func (DefaultParser) Duration(text string) float64               { return ParseDuration(text) }
func (DefaultParser) AttachedPicture(text string) (string, bool) { return FindAttachedPicture(text) }
func (DefaultParser) AudioMarkers(text string) int               { return CountAudioMarkers(text) }

// reDuration matches "Duration: HH:MM:SS.cc" with the label in any of the
// languages ffprobe builds are commonly localized to.
var reDuration = regexp.MustCompile(
	`(?i)(?:duration|durée|dauer|duración|durata|duração|duur|czas trwania|длительность)\s*:\s*(\d+):(\d{2}):(\d{2})(?:[.,](\d+))?`)

// reStreamSpec captures the input and stream index from "Stream #0:2".
var reStreamSpec = regexp.MustCompile(`#(\d+):(\d+)`)

const (
	attachedPicMarker = "attached pic"
	audioMarker       = "Audio:"
)

// ParseDuration returns the first duration in text, in seconds, or 0 when
// none is present (including "Duration: N/A").
func ParseDuration(text string) float64 {
	m := reDuration.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	hh, _ := strconv.ParseInt(m[1], 10, 64)
	mm, _ := strconv.ParseInt(m[2], 10, 64)
	ss, _ := strconv.ParseInt(m[3], 10, 64)
	whole := hh*3600 + mm*60 + ss

	frac := m[4]
	if len(frac) > 9 {
		frac = frac[:9]
	}
	if frac == "" {
		return float64(whole)
	}
	// Scale to an integer and divide once so "3723.45" is exact.
	scale := int64(1)
	for range frac {
		scale *= 10
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	return float64(whole*scale+f) / float64(scale)
}

// FindAttachedPicture returns the stream specifier ("0:2") of the first
// stream line annotated as an attached picture.
func FindAttachedPicture(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), attachedPicMarker) {
			continue
		}
		if m := reStreamSpec.FindStringSubmatch(line); m != nil {
			return m[1] + ":" + m[2], true
		}
	}
	return "", false
}

// CountAudioMarkers counts "Audio:" stream markers in text.
func CountAudioMarkers(text string) int {
	return strings.Count(text, audioMarker)
}
