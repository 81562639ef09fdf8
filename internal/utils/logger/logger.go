// Package logger provides a global logger for the application
package logger

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// Options carries the command line overrides for the log level.
type Options struct {
	Debug bool
	Trace bool
	Info  bool
}

func initLogger(opts Options) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()

	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if environment == "" {
		environment = "prod"
	}

	var logLevel zerolog.Level
	switch environment {
	case "dev", "test":
		logLevel = zerolog.DebugLevel
		log.Info().Str("environment", environment).Msg("Development/Test environment detected - enabling debug level and above")
	case "prod":
		logLevel = zerolog.InfoLevel
	default:
		logLevel = zerolog.InfoLevel
		log.Warn().Str("environment", environment).Msg("Unknown environment - defaulting to production log level (info and above)")
	}

	if opts.Debug {
		logLevel = zerolog.DebugLevel
		log.Info().Msg("Debug flag detected - overriding environment log level")
	} else if opts.Trace {
		logLevel = zerolog.TraceLevel
		log.Info().Msg("Trace flag detected - overriding environment log level")
	} else if opts.Info {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	switch logLevel {
	case zerolog.DebugLevel:
		log.Debug().Str("environment", environment).Msg("Debug logging enabled")
	case zerolog.TraceLevel:
		log.Trace().Str("environment", environment).Msg("Trace logging enabled")
	}
}

// Init initializes the logger with the configuration from the environment
// and the command line flags handed over by the CLI.
// It sets up the global logger to use zerolog with console output.
// Example usage:
//
//	logger.Init(logger.Options{Debug: debug}) <- inside the root command's PersistentPreRun
//
// Then, `climsips scan --debug ...`
func Init(opts Options) {
	initLogger(opts)
}
