// Package main implements the seismetry-serve binary: the interactive
// HTTP service for exploring the event-volume correlation.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/seismetry/seismetry/internal/app"
	"github.com/seismetry/seismetry/internal/config"
)

func main() {
	var (
		configFile string
		dataDir    string
		addr       string
		minMag     float64
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&addr, "addr", "", "HTTP listen address")
	flag.Float64Var(&minMag, "min-magnitude", -1, "Default magnitude threshold")
	flag.Parse()

	config.LoadDotEnv()

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}
	config.LoadFromEnv(cfg)

	cfg.Mode = config.ModeServe
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if minMag >= 0 {
		cfg.Analysis.MinMagnitude = minMag
	}

	log.Printf("Starting seismetry-serve...")
	log.Printf("HTTP address: %s", cfg.Server.Addr)

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Printf("Received signal: %v", sig)

	if err := application.Stop(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}
