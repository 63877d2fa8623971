package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLogLevel overrides the level passed to Init when set.
const EnvLogLevel = "CAPTIONCRAFT_LOG_LEVEL"

// Init initializes the global logger. The level is one of debug, info, warn,
// error (default: info); CAPTIONCRAFT_LOG_LEVEL wins over the argument.
func Init(level string) {
	if env := os.Getenv(EnvLogLevel); env != "" {
		level = env
	}
	zerolog.SetGlobalLevel(ParseLevel(level))

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
