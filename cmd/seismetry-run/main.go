// Package main implements the seismetry-run binary: the batch analysis
// pipeline from three input CSVs to published artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/seismetry/seismetry/internal/app"
	"github.com/seismetry/seismetry/internal/config"
	"github.com/seismetry/seismetry/internal/watch"
)

func main() {
	var (
		configFile  string
		dataDir     string
		events      string
		wells       string
		volumes     string
		minMag      float64
		watchInputs bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&events, "events", "", "Path to the microseismic catalogue CSV")
	flag.StringVar(&wells, "wells", "", "Path to the well locations CSV")
	flag.StringVar(&volumes, "volumes", "", "Path to the well volumes CSV")
	flag.Float64Var(&minMag, "min-magnitude", -1, "Magnitude threshold; events at or below it are dropped")
	flag.BoolVar(&watchInputs, "watch", false, "Keep running, re-analyzing when input files change")
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

	cfg.Mode = config.ModeRun
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if events != "" {
		cfg.Inputs.Events = events
	}
	if wells != "" {
		cfg.Inputs.Wells = wells
	}
	if volumes != "" {
		cfg.Inputs.Volumes = volumes
	}
	if minMag >= 0 {
		cfg.Analysis.MinMagnitude = minMag
		cfg.Analysis.ApplyMagnitudeFilter = true
	}
	if watchInputs {
		cfg.Watch.Enabled = true
	}

	log.Printf("Starting seismetry-run...")

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
	defer application.Stop(context.Background())

	if !cfg.Watch.Enabled {
		outcome, err := application.RunOnce(ctx)
		if err != nil {
			application.Stop(context.Background())
			log.Fatalf("Run failed: %v", err)
		}
		if outcome.Skipped {
			fmt.Printf("Inputs unchanged since run %s, nothing to do\n", outcome.RunID)
		} else {
			fmt.Printf("Run %s complete, artifacts under %s\n", outcome.RunID, outcome.ArtifactPrefix)
		}
		return
	}

	watcher := watch.NewWatcher(application.Runner(), cfg.Watch.Interval)
	if err := watcher.Start(ctx); err != nil {
		log.Fatalf("Failed to start watcher: %v", err)
	}
	log.Printf("Watching inputs every %v", cfg.Watch.Interval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Printf("Received signal: %v", sig)

	if err := watcher.Stop(); err != nil {
		log.Printf("Watcher stop error: %v", err)
	}
}
