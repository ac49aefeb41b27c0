package ffmpeg

import (
	"strings"

	"github.com/StephanOrgiazzi/convertav1/internal/config"
	"github.com/StephanOrgiazzi/convertav1/internal/encoder"
)

// Request describes one encode of an input to an output.
type Request struct {
	Input     string
	Output    string
	Thumbnail string // cover image to embed; "" for none
	Encoder   encoder.Choice
	Container config.Container
	Verbose   bool
}

const (
	pixelFormat  = "yuv420p"
	muxQueueSize = "4096"
	coverName    = "cover.jpg"
)

// Build constructs the ffmpeg argument list (without the program name)
// for req. The thumbnail is embedded only while rs still includes it.
//
// The primary video stream is selected with "0:V:0" (capital V), which
// skips attached pictures, so a source's own cover is never re-encoded as
// the main video.
func Build(req Request, rs *RetryState) []string {
	args := make([]string, 0, 64)
	thumb := req.Thumbnail != "" && rs.IncludeThumbnail
	mkv := req.Container == config.ContainerMKV

	// --- Preamble ---
	args = append(args, "-hide_banner", "-nostdin", "-y")
	if req.Verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}

	// --- Inputs ---
	args = append(args, "-i", req.Input)
	if thumb && !mkv {
		args = append(args, "-i", req.Thumbnail)
	}

	// --- Stream maps ---
	args = append(args,
		"-map", "0:V:0",
		"-map", "0:a?",
		"-map", "0:s?",
	)
	if thumb && !mkv {
		args = append(args, "-map", "1:v:0")
	}

	// --- Primary video ---
	args = append(args, "-c:v:0", req.Encoder.Name)
	args = append(args, scopeToPrimaryVideo(req.Encoder.Options)...)
	args = append(args, "-pix_fmt:v:0", pixelFormat)

	// --- Audio and subtitles pass through ---
	args = append(args, "-c:a", "copy", "-c:s", "copy")

	// --- Cover art ---
	if thumb {
		if mkv {
			args = append(args,
				"-attach", req.Thumbnail,
				"-metadata:s:t", "mimetype=image/jpeg",
				"-metadata:s:t", "filename="+coverName,
			)
		} else {
			args = append(args,
				"-c:v:1", "mjpeg",
				"-disposition:v:1", "attached_pic",
			)
		}
	}

	// --- Metadata and muxing ---
	args = append(args,
		"-map_metadata", "0",
		"-map_chapters", "0",
		"-max_muxing_queue_size", muxQueueSize,
	)
	if !mkv {
		args = append(args, "-movflags", "+faststart")
	}

	// --- Progress on stdout ---
	args = append(args, "-progress", "pipe:1", "-nostats")

	return append(args, req.Output)
}

// scopeToPrimaryVideo appends the ":v:0" stream specifier to every option
// flag, so "-crf 30" becomes "-crf:v:0 30". opts alternates flag, value.
func scopeToPrimaryVideo(opts []string) []string {
	out := make([]string, 0, len(opts))
	for i, o := range opts {
		if i%2 == 0 && strings.HasPrefix(o, "-") {
			o += ":v:0"
		}
		out = append(out, o)
	}
	return out
}

// CommandLine renders args for logging, quoting arguments with spaces.
func CommandLine(bin string, args []string) string {
	var b strings.Builder
	b.WriteString(bin)
	for _, a := range args {
		b.WriteByte(' ')
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			b.WriteString(`"` + strings.ReplaceAll(a, `"`, `\"`) + `"`)
		} else {
			b.WriteString(a)
		}
	}
	return b.String()
}
