// -----------------------------------------------------------------------
// Essentia - perfume retrieval chatbot server.
// Startup order: config, logger, banner, app wiring, corpus load,
// HTTP server. Corpus or storage failure at startup is fatal.
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scentlab/essentia/internal/app"
	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/server"
)

var (
	configFile  = flag.String("config", "", "Configuration file path")
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Essentia version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover the config file when not specified
	path := *configFile
	if path == "" {
		if _, err := os.Stat("essentia.toml"); err == nil {
			path = "essentia.toml"
		}
	}

	config, err := common.LoadFromFiles(path)
	if err != nil {
		arborFatal(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	common.ApplyFlagOverrides(config, *serverPort, *serverHost)

	logger := common.InitLogger(config)
	common.PrintBanner()

	logger.Info().
		Str("config", path).
		Str("host", config.Server.Host).
		Int("port", config.Server.Port).
		Msg("Configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Load the dataset and build or load the vector index before
	// accepting traffic.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Minute)
	if err := application.LoadCorpus(startupCtx); err != nil {
		cancelStartup()
		logger.Fatal().Err(err).Msg("Failed to load corpus")
	}
	cancelStartup()

	srv := server.New(application)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}

// arborFatal reports a startup error before the logger exists
func arborFatal(message string) {
	fmt.Fprintln(os.Stderr, message)
	os.Exit(1)
}
