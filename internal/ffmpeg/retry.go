package ffmpeg

// RetryAction identifies which fix was applied (or none).
type RetryAction int

const (
	RetryNone          RetryAction = iota
	RetryDropThumbnail             // Re-run without the cover-art mapping.
)

func (a RetryAction) String() string {
	if a == RetryDropThumbnail {
		return "drop thumbnail"
	}
	return "none"
}

const maxAttempts = 2

// RetryState tracks the fallback applied across ffmpeg attempts for a
// single file. There is exactly one fallback: dropping the thumbnail after
// a muxing failure.
type RetryState struct {
	Attempt          int
	MaxAttempts      int
	IncludeThumbnail bool
}

// NewRetryState returns the state for a first attempt.
func NewRetryState(includeThumbnail bool) *RetryState {
	return &RetryState{
		MaxAttempts:      maxAttempts,
		IncludeThumbnail: includeThumbnail,
	}
}

// Advance inspects output from a failed ffmpeg run and returns the fix to
// apply before the next attempt, or RetryNone when the failure is final.
func (s *RetryState) Advance(output string) RetryAction {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts {
		return RetryNone
	}
	if s.IncludeThumbnail && MatchMuxFailure(output) {
		s.IncludeThumbnail = false
		return RetryDropThumbnail
	}
	return RetryNone
}

// Attempts returns how many attempts have completed.
func (s *RetryState) Attempts() int { return s.Attempt }
