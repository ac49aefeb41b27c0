// Package config holds runtime configuration: defaults, layered loading
// (config file, environment, flags) and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// --- Enum types for validated string fields ---

// Container is the output container format.
type Container string

const (
	ContainerMP4 Container = "mp4" // MP4 (default, fast start + cover art).
	ContainerMOV Container = "mov" // QuickTime; same muxer family as MP4.
	ContainerMKV Container = "mkv" // Matroska; thumbnail carried as an attachment.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// EncoderAuto lets the selector pick the best available encoder.
const EncoderAuto = "auto"

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then overlaid by [Load] before being passed (by pointer) to packages that
// need it.
type Config struct {
	// Inputs are the positional arguments; empty means prompt on stdin.
	Inputs []string `mapstructure:"-" yaml:"-"`

	// External tools. Bare names are resolved on PATH.
	FFmpegPath  string `mapstructure:"ffmpeg" yaml:"ffmpeg"`
	FFprobePath string `mapstructure:"ffprobe" yaml:"ffprobe"`

	// Encoder selection and bitrate targeting.
	Encoder          string  `mapstructure:"encoder" yaml:"encoder"`                       // Default: "auto".
	TargetRatio      float64 `mapstructure:"target_ratio" yaml:"target_ratio"`             // Default: 0.5 (half the original size).
	MinVideoKbps     int     `mapstructure:"min_video_kbps" yaml:"min_video_kbps"`         // Default: 300.
	DefaultAudioKbps int     `mapstructure:"default_audio_kbps" yaml:"default_audio_kbps"` // Default: 192, per stream without a reported bitrate.

	// Output.
	OutputContainer  Container     `mapstructure:"container" yaml:"container"`                   // Default: "mp4".
	TempDir          string        `mapstructure:"temp_dir" yaml:"temp_dir"`                     // Default: os.TempDir().
	ThumbnailMaxEdge int           `mapstructure:"thumbnail_max_edge" yaml:"thumbnail_max_edge"` // Default: 1280; 0 disables resizing.
	StallTimeout     time.Duration `mapstructure:"stall_timeout" yaml:"stall_timeout"`           // Default: 0 (watchdog off).

	// Display and logging.
	Verbose   bool      `mapstructure:"verbose" yaml:"verbose"`
	ColorMode ColorMode `mapstructure:"color" yaml:"color"` // Default: "auto".
	LogFile   string    `mapstructure:"log_file" yaml:"log_file"`

	// Run artifacts.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"` // Prometheus textfile; empty disables.
	HistoryDB   string `mapstructure:"history_db" yaml:"history_db"`     // SQLite path; empty uses the default.
	NoHistory   bool   `mapstructure:"no_history" yaml:"no_history"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// DefaultConfig returns a Config with all defaults. Used as the base before
// [Load] applies file, environment and flag overrides.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Encoder:          EncoderAuto,
		TargetRatio:      0.5,
		MinVideoKbps:     300,
		DefaultAudioKbps: 192,
		OutputContainer:  ContainerMP4,
		ThumbnailMaxEdge: 1280,
		ColorMode:        ColorAuto,
	}
}

// Validate checks enum fields and numeric ranges.
func (c *Config) Validate() error {
	switch c.OutputContainer {
	case ContainerMP4, ContainerMOV, ContainerMKV:
		// valid
	default:
		return fmt.Errorf("invalid container %q (use 'mp4', 'mov' or 'mkv')", c.OutputContainer)
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	if strings.TrimSpace(c.Encoder) == "" {
		return errors.New("encoder must not be empty (use 'auto' or an ffmpeg encoder name)")
	}
	if c.TargetRatio <= 0 || c.TargetRatio > 1 {
		return fmt.Errorf("target ratio must be in (0, 1], got %g", c.TargetRatio)
	}
	if c.MinVideoKbps <= 0 {
		return fmt.Errorf("minimum video bitrate must be positive, got %d", c.MinVideoKbps)
	}
	if c.DefaultAudioKbps <= 0 {
		return fmt.Errorf("default audio bitrate must be positive, got %d", c.DefaultAudioKbps)
	}
	if c.ThumbnailMaxEdge < 0 {
		return fmt.Errorf("thumbnail max edge must not be negative, got %d", c.ThumbnailMaxEdge)
	}
	if c.StallTimeout < 0 {
		return fmt.Errorf("stall timeout must not be negative, got %s", c.StallTimeout)
	}
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return errors.New("ffmpeg and ffprobe paths must not be empty")
	}
	return nil
}

// EffectiveTempDir returns TempDir, or the system temp directory (which
// honours TMPDIR) when unset.
func (c *Config) EffectiveTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return os.TempDir()
}

// EffectiveHistoryDB returns the history database path, falling back to
// <user cache dir>/convertav1/history.db. Empty when history is disabled
// or no cache directory can be determined.
func (c *Config) EffectiveHistoryDB() string {
	if c.NoHistory {
		return ""
	}
	if c.HistoryDB != "" {
		return c.HistoryDB
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "convertav1", "history.db")
}

// TrimQuotes strips surrounding whitespace and one pair of matching single
// or double quotes, as left behind by drag-and-drop into a terminal.
func TrimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}
