package ffmpeg

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StephanOrgiazzi/convertav1/internal/config"
	"github.com/StephanOrgiazzi/convertav1/internal/encoder"
	"github.com/StephanOrgiazzi/convertav1/internal/planner"
)

func svtChoice(t *testing.T) encoder.Choice {
	t.Helper()
	c, err := encoder.Select(" V....D libsvtav1  SVT-AV1\n", "auto")
	require.NoError(t, err)
	return c
}

// indexOf returns the position of the flag/value pair, or -1.
func indexOf(args []string, flag, value string) int {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return i
		}
	}
	return -1
}

func TestBuild_MP4WithThumbnail(t *testing.T) {
	req := Request{
		Input:     "/in/movie.mkv",
		Output:    "/in/movie_av1.mp4",
		Thumbnail: "/tmp/thumb.jpg",
		Encoder:   svtChoice(t),
		Container: config.ContainerMP4,
	}
	got := Build(req, NewRetryState(true))

	want := []string{
		"-hide_banner", "-nostdin", "-y", "-loglevel", "error",
		"-i", "/in/movie.mkv",
		"-i", "/tmp/thumb.jpg",
		"-map", "0:V:0", "-map", "0:a?", "-map", "0:s?", "-map", "1:v:0",
		"-c:v:0", "libsvtav1",
		"-preset:v:0", "6", "-svtav1-params:v:0", "tune=0", "-crf:v:0", "30",
		"-pix_fmt:v:0", "yuv420p",
		"-c:a", "copy", "-c:s", "copy",
		"-c:v:1", "mjpeg", "-disposition:v:1", "attached_pic",
		"-map_metadata", "0", "-map_chapters", "0", "-max_muxing_queue_size", "4096",
		"-movflags", "+faststart",
		"-progress", "pipe:1", "-nostats",
		"/in/movie_av1.mp4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ThumbnailDroppedAfterRetry(t *testing.T) {
	req := Request{
		Input:     "in.mp4",
		Output:    "out.mp4",
		Thumbnail: "thumb.jpg",
		Encoder:   svtChoice(t),
		Container: config.ContainerMP4,
	}
	rs := NewRetryState(true)
	require.Equal(t, RetryDropThumbnail, rs.Advance("Could not write header for output file #0"))

	got := Build(req, rs)
	assert.NotContains(t, got, "thumb.jpg")
	assert.NotContains(t, got, "1:v:0")
	assert.NotContains(t, got, "attached_pic")
	assert.Equal(t, 1, countFlag(got, "-i"))
	// Everything else is unchanged.
	assert.Contains(t, got, "0:V:0")
	assert.Contains(t, got, "+faststart")
}

func TestBuild_MKVAttachesThumbnail(t *testing.T) {
	req := Request{
		Input:     "in.mp4",
		Output:    "out.mkv",
		Thumbnail: "thumb.jpg",
		Encoder:   svtChoice(t),
		Container: config.ContainerMKV,
	}
	got := Build(req, NewRetryState(true))

	assert.Equal(t, 1, countFlag(got, "-i"))
	assert.GreaterOrEqual(t, indexOf(got, "-attach", "thumb.jpg"), 0)
	assert.GreaterOrEqual(t, indexOf(got, "-metadata:s:t", "mimetype=image/jpeg"), 0)
	assert.NotContains(t, got, "-movflags")
	assert.NotContains(t, got, "attached_pic")
}

func TestBuild_BitrateModeAndVerbose(t *testing.T) {
	plan := planner.Plan(100*1024*1024, 120, 192)
	req := Request{
		Input:     "in.mp4",
		Output:    "out.mp4",
		Encoder:   svtChoice(t).WithBitrate(plan),
		Container: config.ContainerMP4,
		Verbose:   true,
	}
	got := Build(req, NewRetryState(false))

	assert.GreaterOrEqual(t, indexOf(got, "-loglevel", "info"), 0)
	assert.GreaterOrEqual(t, indexOf(got, "-b:v:0", "3221k"), 0)
	assert.GreaterOrEqual(t, indexOf(got, "-maxrate:v:0", "4832k"), 0)
	assert.GreaterOrEqual(t, indexOf(got, "-bufsize:v:0", "9663k"), 0)
	assert.Equal(t, -1, indexOf(got, "-crf:v:0", "30"))
	assert.Equal(t, "out.mp4", got[len(got)-1])
}

func TestBuild_OptionsNeverTouchOtherStreams(t *testing.T) {
	req := Request{
		Input:     "in.mp4",
		Output:    "out.mp4",
		Thumbnail: "t.jpg",
		Encoder:   svtChoice(t),
		Container: config.ContainerMOV,
	}
	got := Build(req, NewRetryState(true))
	for _, a := range got {
		if slices.Contains([]string{"-crf", "-preset", "-b", "-maxrate", "-bufsize"}, a) {
			t.Errorf("unscoped encoder flag %q in %v", a, got)
		}
	}
}

func TestCommandLine_QuotesSpaces(t *testing.T) {
	got := CommandLine("ffmpeg", []string{"-i", "my movie.mp4", "-y"})
	assert.Equal(t, `ffmpeg -i "my movie.mp4" -y`, got)
}

func countFlag(args []string, flag string) int {
	n := 0
	for _, a := range args {
		if a == flag {
			n++
		}
	}
	return n
}
