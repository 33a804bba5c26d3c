package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Logger returns the logger of the command line, building it on first use:
// a development logger at debug level if verbose, a production logger at
// info level otherwise
func (rcc *rootCmdConfig) Logger() *zap.Logger {
	if rcc.logger != nil {
		return rcc.logger
	}
	var err error
	if rcc.verbose {
		rcc.logger, err = zap.NewDevelopment()
	} else {
		rcc.logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		rcc.logger = zap.NewNop()
	}
	return rcc.logger
}

// Sync flushes the logger, if built
func (rcc *rootCmdConfig) Sync() {
	if rcc.logger != nil {
		rcc.logger.Sync()
	}
}

// fail prints err on stderr and exits with the given code
func (rcc *rootCmdConfig) fail(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	rcc.Sync()
	os.Exit(code)
}
