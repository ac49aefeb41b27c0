package probe

import "regexp"

// reFieldOrder matches the field-order note ffprobe appends for
// interlaced streams, e.g. "top first" or "bottom coded first (swapped)".
var reFieldOrder = regexp.MustCompile(`(?i)\b(?:top|bottom)(?: coded)? first\b`)

// DetectInterlaced reports whether the primary video stream described in
// text is interlaced.
func DetectInterlaced(text string) bool {
	line := primaryVideoLine(text)
	return line != "" && reFieldOrder.MatchString(line)
}
