package ffmpeg

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEncodeFailed is wrapped by every *EncodeError.
	ErrEncodeFailed = errors.New("encode failed")
	// ErrStalled means the watchdog killed an encode that stopped making
	// progress.
	ErrStalled = errors.New("encode stalled")
)

// EncodeError reports a conversion that failed after all attempts.
type EncodeError struct {
	Attempts int
	ExitCode int
	Reason   Failure
	Tail     []string // last lines of ffmpeg output
}

func (e *EncodeError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited %d after %d attempt(s) (%s)", e.ExitCode, e.Attempts, e.Reason)
	if len(e.Tail) > 0 {
		msg += ": " + e.Tail[len(e.Tail)-1]
	}
	return msg
}

func (e *EncodeError) Unwrap() error { return ErrEncodeFailed }

// Failure classifies ffmpeg failure output.
type Failure string

const (
	FailureMux      Failure = "mux"
	FailureSubtitle Failure = "subtitle"
	FailureEncoder  Failure = "encoder"
	FailureInput    Failure = "input"
	FailureUnknown  Failure = "unknown"
)

// Pre-compiled regexes for classifying ffmpeg output. reMuxFailure decides
// whether a retry without the thumbnail is worthwhile; the rest only label
// failures for logs and metrics.
var (
	reMuxFailure = regexp.MustCompile(
		`(?i)Could not write header|` +
			`Error initializing output stream|` +
			`Error while opening output|` +
			`attached.pic|` +
			`Could not find tag for codec|` +
			`codec not currently supported in container|` +
			`muxing|muxer`)

	reSubtitleIssue = regexp.MustCompile(
		`(?i)Subtitle codec .* is not supported|` +
			`Could not find tag for codec .* in stream .*subtitle|` +
			`Could not find tag for codec (subrip|ass|ssa|hdmv_pgs_subtitle|dvd_subtitle|webvtt)|` +
			`Subtitle encoding currently only possible from text to text or bitmap to bitmap`)

	reEncoderIssue = regexp.MustCompile(
		`(?i)Error while opening encoder|Unknown encoder|` +
			`No capable devices found|Cannot load (libcuda|nvcuda|libnvidia-encode)|` +
			`OpenEncodeSessionEx failed|Error creating a MFX session|` +
			`Failed to initialise VAAPI|Generic error in an external library`)

	reInputIssue = regexp.MustCompile(
		`(?i)Invalid data found when processing input|moov atom not found|` +
			`No such file or directory|Permission denied`)
)

// MatchMuxFailure reports whether output looks like a muxing or
// header-write failure.
func MatchMuxFailure(output string) bool {
	return reMuxFailure.MatchString(output)
}

// MatchSubtitleIssue reports whether output contains a subtitle muxing error.
func MatchSubtitleIssue(output string) bool {
	return reSubtitleIssue.MatchString(output)
}

// Classify labels failure output, most specific category first.
func Classify(output string) Failure {
	switch {
	case strings.TrimSpace(output) == "":
		return FailureUnknown
	case reSubtitleIssue.MatchString(output):
		return FailureSubtitle
	case reEncoderIssue.MatchString(output):
		return FailureEncoder
	case reInputIssue.MatchString(output):
		return FailureInput
	case reMuxFailure.MatchString(output):
		return FailureMux
	default:
		return FailureUnknown
	}
}
