// Package logging provides the leveled console logger used across the tool.
// Console output is human-formatted through zerolog's ConsoleWriter; the
// optional file sink receives one JSON object per line.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/StephanOrgiazzi/convertav1/internal/config"
	"github.com/StephanOrgiazzi/convertav1/internal/term"
)

const timeFormat = "2006-01-02 15:04:05"

// levelSuccess is written as the level field for Success lines.
const levelSuccess = "success"

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	mu      sync.Mutex
	out     zerolog.Logger // stdout: info, success, warn, debug
	errOut  zerolog.Logger // stderr: error
	file    *os.File
	fileLog zerolog.Logger
}

// NewLogger initializes colors from cfg and optionally opens cfg.LogFile.
// Call Close when done if LogFile was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	var file *os.File
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		file = f
	}

	l := New(os.Stdout, os.Stderr, file)
	l.file = file
	return l, nil
}

// New builds a Logger writing to the given sinks. sink may be nil.
func New(stdout, stderr, sink io.Writer) *Logger {
	l := &Logger{
		out:    zerolog.New(consoleWriter(stdout)).With().Timestamp().Logger(),
		errOut: zerolog.New(consoleWriter(stderr)).With().Timestamp().Logger(),
	}
	if sink != nil {
		l.fileLog = zerolog.New(sink).With().Timestamp().Logger()
	} else {
		l.fileLog = zerolog.Nop()
	}
	return l
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:         w,
		NoColor:     !term.Enabled(),
		TimeFormat:  timeFormat,
		FormatLevel: formatLevel,
	}
}

// formatLevel renders "[LEVEL]" in the level's color.
func formatLevel(i interface{}) string {
	lvl, _ := i.(string)
	var label, color string
	switch lvl {
	case zerolog.LevelInfoValue:
		label, color = "INFO", term.Blue
	case levelSuccess:
		label, color = "SUCCESS", term.Green
	case zerolog.LevelWarnValue:
		label, color = "WARN", term.Yellow
	case zerolog.LevelErrorValue:
		label, color = "ERROR", term.Red
	case zerolog.LevelDebugValue:
		label, color = "DEBUG", term.Cyan
	default:
		label = strings.ToUpper(lvl)
	}
	return color + "[" + label + "]" + term.NC
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.fileLog = zerolog.Nop()
		return err
	}
	return nil
}

func (l *Logger) emit(level string, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch level {
	case zerolog.LevelErrorValue:
		l.errOut.Error().Msg(text)
	case zerolog.LevelWarnValue:
		l.out.Warn().Msg(text)
	case zerolog.LevelDebugValue:
		l.out.Debug().Msg(text)
	case levelSuccess:
		l.out.Log().Str(zerolog.LevelFieldName, levelSuccess).Msg(text)
	default:
		l.out.Info().Msg(text)
	}
	l.fileLog.Log().Str(zerolog.LevelFieldName, level).Msg(text)
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(zerolog.LevelInfoValue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.emit(levelSuccess, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit(zerolog.LevelWarnValue, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red) to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(zerolog.LevelErrorValue, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only when verbose; no-op otherwise.
func (l *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	l.emit(zerolog.LevelDebugValue, fmt.Sprintf(format, args...))
}
