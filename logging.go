package reconcile

import (
	"os"

	"github.com/rs/zerolog"
)

// log is the package-level logger. cmd/reconcile reconfigures it once at
// process start (a console writer on stderr); the core falls back to a
// console writer so `go test` output stays readable.
var log zerolog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// SetLogger lets the CLI (or a test) install a differently-configured
// logger for the whole package.
func SetLogger(l zerolog.Logger) { log = l }

// Log exposes the package-level logger to cmd/reconcile.
func Log() *zerolog.Logger { return &log }
