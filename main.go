package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hbomb79/Mediagate/internal"
	"github.com/hbomb79/Mediagate/pkg/logger"
)

var log = logger.Get("Bootstrap")

// main is the entry point to the program. The configuration is loaded from
// the environment (and optionally a YAML file provided with -config), after
// which the service runs until an interrupt or termination signal arrives.
func main() {
	configPath := flag.String("config", "", "path to an optional YAML configuration file")
	flag.Parse()

	config := internal.MediagateConfig{}
	var err error
	if *configPath != "" {
		err = config.LoadFromFile(*configPath)
	} else {
		err = config.LoadFromEnv()
	}
	if err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mediagate, err := internal.New(config)
	if err != nil {
		log.Emit(logger.FATAL, "Failed to initialise Mediagate: %v\n", err)
		os.Exit(1)
	}

	if err := mediagate.Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Mediagate stopped unexpectedly: %v\n", err)
		os.Exit(1)
	}
}
