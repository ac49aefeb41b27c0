package config

// This file implements flag registration and layered loading.
// Precedence, lowest to highest: DefaultConfig, config file,
// CONVERTAV1_* environment variables, command-line flags.
// Negated flags (e.g. --no-color) are applied after Unmarshal so they win.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended (with an underscore) to every environment override,
// e.g. CONVERTAV1_TARGET_RATIO=0.4.
const EnvPrefix = "CONVERTAV1"

// flagKeys maps each registered flag to its configuration key.
var flagKeys = map[string]string{
	"ffmpeg":             "ffmpeg",
	"ffprobe":            "ffprobe",
	"encoder":            "encoder",
	"target-ratio":       "target_ratio",
	"min-video-kbps":     "min_video_kbps",
	"default-audio-kbps": "default_audio_kbps",
	"container":          "container",
	"temp-dir":           "temp_dir",
	"thumbnail-max-edge": "thumbnail_max_edge",
	"stall-timeout":      "stall_timeout",
	"verbose":            "verbose",
	"color":              "color",
	"log":                "log_file",
	"metrics-file":       "metrics_file",
	"history-db":         "history_db",
	"no-history":         "no_history",
}

// RegisterFlags defines every configuration flag on fs, grouped into
// tools, encoding, output, display and run artifacts.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	// Tools
	fs.String("config", "", "Read settings from this YAML file")
	fs.String("ffmpeg", d.FFmpegPath, "ffmpeg binary")
	fs.String("ffprobe", d.FFprobePath, "ffprobe binary")

	// Encoding
	fs.StringP("encoder", "e", d.Encoder, "Video encoder: auto or an ffmpeg encoder name")
	fs.Float64("target-ratio", d.TargetRatio, "Target output size as a fraction of the input")
	fs.Int("min-video-kbps", d.MinVideoKbps, "Lowest video bitrate the planner will target")
	fs.Int("default-audio-kbps", d.DefaultAudioKbps, "Assumed bitrate for audio streams that report none")

	// Output
	fs.String("container", string(d.OutputContainer), "Output container: mp4 | mov | mkv")
	fs.String("temp-dir", d.TempDir, "Directory for temporary thumbnails (default: system temp)")
	fs.Int("thumbnail-max-edge", d.ThumbnailMaxEdge, "Downscale thumbnails larger than this (0 disables)")
	fs.Duration("stall-timeout", d.StallTimeout, "Abort an encode that makes no progress for this long (default 0: never)")

	// Display
	fs.BoolP("verbose", "v", d.Verbose, "Verbose output")
	fs.String("color", string(d.ColorMode), "Color output: auto | always | never")
	fs.Bool("no-color", false, "Same as --color=never")
	fs.StringP("log", "l", d.LogFile, "Append logs to file")

	// Run artifacts
	fs.String("metrics-file", d.MetricsFile, "Write Prometheus metrics to this textfile after the run")
	fs.String("history-db", d.HistoryDB, "Conversion history database (default: user cache dir)")
	fs.Bool("no-history", d.NoHistory, "Do not record conversions")
}

// Load resolves the effective configuration. fs must have been populated
// by [RegisterFlags] and parsed. A missing default config file is not an
// error; a missing file named by --config is.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	d := DefaultConfig()
	setDefaults(v, &d)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	explicit := ""
	if f := fs.Lookup("config"); f != nil {
		explicit = f.Value.String()
	}
	if err := readConfigFile(v, explicit); err != nil {
		return nil, err
	}

	cfg := d
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.OutputContainer = Container(strings.ToLower(string(cfg.OutputContainer)))
	cfg.ColorMode = ColorMode(strings.ToLower(string(cfg.ColorMode)))

	if noColor, err := fs.GetBool("no-color"); err == nil && noColor {
		cfg.ColorMode = ColorNever
	}
	cfg.Inputs = normalizeInputs(fs.Args())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv and Unmarshal see it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("ffmpeg", d.FFmpegPath)
	v.SetDefault("ffprobe", d.FFprobePath)
	v.SetDefault("encoder", d.Encoder)
	v.SetDefault("target_ratio", d.TargetRatio)
	v.SetDefault("min_video_kbps", d.MinVideoKbps)
	v.SetDefault("default_audio_kbps", d.DefaultAudioKbps)
	v.SetDefault("container", string(d.OutputContainer))
	v.SetDefault("temp_dir", d.TempDir)
	v.SetDefault("thumbnail_max_edge", d.ThumbnailMaxEdge)
	v.SetDefault("stall_timeout", d.StallTimeout)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("color", string(d.ColorMode))
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("metrics_file", d.MetricsFile)
	v.SetDefault("history_db", d.HistoryDB)
	v.SetDefault("no_history", d.NoHistory)
}

func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	dir := DefaultConfigDir()
	if dir == "" {
		return nil
	}
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config in %s: %w", dir, err)
	}
	return nil
}

// DefaultConfigDir returns <user config dir>/convertav1, or "" if the
// platform has no user config directory.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "convertav1")
}

// DefaultConfigPath is where `config --write` saves when no path is given.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteFile atomically writes cfg as YAML to path, creating parent
// directories as needed.
func WriteFile(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func normalizeInputs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if p := TrimQuotes(a); p != "" {
			out = append(out, p)
		}
	}
	return out
}
