package probe

// Result is what the text probe learned about an input.
type Result struct {
	// Text is ffprobe's raw diagnostic output.
	Text string
	// DurationSec is 0 when the duration is unknown.
	DurationSec float64
	// AttachedPic is the stream specifier ("0:2") of the embedded cover
	// picture, or "" when there is none.
	AttachedPic string
	HDR         bool
	Interlaced  bool
}

// DurationKnown reports whether a positive duration was found.
func (r *Result) DurationKnown() bool { return r.DurationSec > 0 }

// HasAttachedPic reports whether the input carries a cover picture.
func (r *Result) HasAttachedPic() bool { return r.AttachedPic != "" }

// AudioEstimate is the combined audio bitrate of an input.
type AudioEstimate struct {
	TotalKbps int
	Streams   int
	// Structured is false when the estimate came from the text fallback.
	Structured bool
}
