// Package probe inspects input media with ffprobe.
//
// The primary probe is ffprobe's human-readable diagnostic text, from which
// [TextParser] extracts the duration and the attached cover picture. Audio
// bitrate comes from a separate structured (JSON) query, falling back to
// counting audio stream markers in the text when that query fails.
//
// Files:
//   - text.go: TextParser and the regex-based default implementation
//   - prober.go: Prober (runs ffprobe) and the JSON wire types
//   - types.go: Result and AudioEstimate
//   - hdr.go, interlace.go: source characteristics worth a warning
package probe
