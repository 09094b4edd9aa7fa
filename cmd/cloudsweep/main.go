package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cloudsweep-io/cloudsweep/internal/config"
)

// Exit codes: 0 success, 1 runtime failure, 2 invalid configuration.
const (
	exitOK      = 0
	exitError   = 1
	exitBadArgs = 2
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("CLOUDSWEEP_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if config.IsValidation(err) {
			os.Exit(exitBadArgs)
		}
		os.Exit(exitError)
	}
	os.Exit(exitOK)
}
