package probe

import (
	"regexp"
	"strings"
)

// reHDRColor matches a PQ or HLG transfer, or bt2020 primaries in the
// "space/primaries/transfer" triple ffprobe prints after the pixel format.
var reHDRColor = regexp.MustCompile(`(?i)smpte2084|arib-std-b67|/bt2020/`)

// DetectHDR reports whether the primary video stream described in text
// carries HDR color metadata. Encoding to an 8-bit pixel format drops it.
func DetectHDR(text string) bool {
	line := primaryVideoLine(text)
	return line != "" && reHDRColor.MatchString(line)
}

// primaryVideoLine returns the first "Video:" stream line that is not an
// attached picture.
func primaryVideoLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "Video:") {
			continue
		}
		if strings.Contains(strings.ToLower(line), attachedPicMarker) {
			continue
		}
		return line
	}
	return ""
}
