// Package logging builds the gateway's zerolog loggers and the structured
// events shared by the venue client, the plugin host and the CLI.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days

	// Out overrides the console destination. Defaults to stderr so command
	// output on stdout stays machine readable.
	Out io.Writer
}

var levelLabels = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
}

// NewLoggerWithConfig creates a logger writing to the console, a rotated
// file, both or neither.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, consoleWriter(cfg.Out))
	}
	if cfg.File && cfg.FilePath != "" {
		if w, err := rotatingFile(cfg); err == nil {
			writers = append(writers, w)
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		return zerolog.Nop()
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "kisgw").
		Logger()
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	if out == nil {
		out = os.Stderr
	}
	return zerolog.ConsoleWriter{
		Out:          out,
		TimeFormat:   time.RFC3339,
		PartsExclude: []string{zerolog.CallerFieldName},
		FormatLevel: func(i interface{}) string {
			ll, _ := i.(string)
			if label, ok := levelLabels[ll]; ok {
				return label
			}
			return strings.ToUpper(ll)
		},
	}
}

func rotatingFile(cfg LogConfig) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0700); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}, nil
}

// ParseLevel maps a config level name to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// LogOrder records a change in an order's lifecycle.
func LogOrder(logger zerolog.Logger, orderID, symbol, action, status string) {
	logger.Info().
		Str("event", "order").
		Str("order_id", orderID).
		Str("symbol", symbol).
		Str("action", action).
		Str("status", status).
		Msg("Order update")
}

// LogAPICall records one venue round trip at debug level. trID is empty
// for the token and hashkey endpoints. A zero status means no response
// arrived.
func LogAPICall(logger zerolog.Logger, method, endpoint, trID string, status int, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "api_call").
		Str("method", method).
		Str("endpoint", endpoint).
		Dur("duration", duration)
	if trID != "" {
		event = event.Str("tr_id", trID)
	}
	if status != 0 {
		event = event.Int("status", status)
	}

	if err != nil {
		event.Err(err).Msg("Venue call failed")
		return
	}
	event.Msg("Venue call completed")
}
