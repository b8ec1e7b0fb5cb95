package main

import (
	"fmt"
	"os"

	"github.com/tphakala/dirmigrate/cmd"
	"github.com/tphakala/dirmigrate/internal/conf"
	"github.com/tphakala/dirmigrate/internal/logging"
)

func main() {
	// Load configuration before anything else, the config file is created
	// with defaults on first run.
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize the logging system
	logging.Init()

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal("command failed", "error", err)
	}
}
