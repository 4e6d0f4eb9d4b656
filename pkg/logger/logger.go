package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DebugEnabled reports whether debug output was requested on the command line.
var DebugEnabled bool

// Setup installs a console logger on stderr. debug forces the debug level;
// otherwise level is parsed ("error", "warn", "info", "debug", "trace") and
// falls back to info.
func Setup(level string, debug bool) {
	SetOutput(os.Stderr)

	DebugEnabled = debug
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// SetOutput replaces the global logger's writer.
func SetOutput(w io.Writer) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
	}).With().Timestamp().Logger()
}

// StandardLogger switches to JSON lines, used by the server.
func StandardLogger(w io.Writer) {
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
