// Package debug provides the protocol trace log enabled by the
// WAYLAND_DEBUG environment variable.
package debug

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.Nop()

func init() {
	if !enabled(os.Getenv("WAYLAND_DEBUG")) {
		return
	}

	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.StampMicro,
	}).With().Timestamp().Logger()
}

func enabled(v string) bool {
	if v == "client" {
		return true
	}
	level, err := strconv.ParseInt(v, 10, 0)
	return (err == nil) && (level > 0)
}

// Enabled reports whether trace output is being written anywhere.
func Enabled() bool {
	return logger.GetLevel() != zerolog.Disabled
}

// SetLogger replaces the trace logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// Logger returns the trace logger.
func Logger() *zerolog.Logger {
	return &logger
}

func Printf(str string, args ...any) {
	logger.Debug().Msgf(str, args...)
}
