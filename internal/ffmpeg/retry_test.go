package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryState_DropsThumbnailOnceOnMuxFailure(t *testing.T) {
	rs := NewRetryState(true)

	assert.Equal(t, RetryDropThumbnail, rs.Advance("Could not write header for output file"))
	assert.False(t, rs.IncludeThumbnail)
	assert.Equal(t, 1, rs.Attempts())

	// The second failure is final, whatever it says.
	assert.Equal(t, RetryNone, rs.Advance("Could not write header for output file"))
	assert.Equal(t, 2, rs.Attempts())
}

func TestRetryState_NoRetryWithoutMuxFailure(t *testing.T) {
	rs := NewRetryState(true)
	assert.Equal(t, RetryNone, rs.Advance("Conversion failed!"))
	assert.True(t, rs.IncludeThumbnail)
}

func TestRetryState_NoRetryWithoutThumbnail(t *testing.T) {
	rs := NewRetryState(false)
	assert.Equal(t, RetryNone, rs.Advance("Could not write header for output file"))
}

func TestRetryAction_String(t *testing.T) {
	assert.Equal(t, "drop thumbnail", RetryDropThumbnail.String())
	assert.Equal(t, "none", RetryNone.String())
}
