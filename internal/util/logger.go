package util

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ConfigureLogger sets the global zerolog level and output
func ConfigureLogger(level zerolog.Level, prettyPrintConsole bool, caller bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(level)

	logger := log.Logger
	if prettyPrintConsole {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	if caller {
		logger = logger.With().Caller().Logger()
	}

	log.Logger = logger
}
