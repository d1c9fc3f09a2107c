// Package main implements the unified seismetry binary. It runs the
// batch analysis once, keeps it alive under a file watcher, or serves
// the interactive HTTP service, based on the --mode flag.
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

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		mode        string
		addr        string
		events      string
		wells       string
		volumes     string
		minMag      float64
		watchInputs bool
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&mode, "mode", "", "Mode: run, serve")
	flag.StringVar(&addr, "addr", "", "HTTP listen address (serve mode)")
	flag.StringVar(&events, "events", "", "Path to the microseismic catalogue CSV")
	flag.StringVar(&wells, "wells", "", "Path to the well locations CSV")
	flag.StringVar(&volumes, "volumes", "", "Path to the well volumes CSV")
	flag.Float64Var(&minMag, "min-magnitude", -1, "Magnitude threshold; events at or below it are dropped (run mode)")
	flag.BoolVar(&watchInputs, "watch", false, "Keep running, re-analyzing when input files change (run mode)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Seismetry - microseismic event and well volume correlation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: seismetry [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  seismetry --mode run --events microseismic.csv --wells well_locations.csv --volumes well_volumes.csv\n")
		fmt.Fprintf(os.Stderr, "  seismetry --mode run --min-magnitude 1.2 --watch\n")
		fmt.Fprintf(os.Stderr, "  seismetry --mode serve --addr :8080\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  SEISMETRY_MODE            Mode (run, serve)\n")
		fmt.Fprintf(os.Stderr, "  SEISMETRY_DATA_DIR        Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  SEISMETRY_INPUT_*         Input CSV paths\n")
		fmt.Fprintf(os.Stderr, "  SEISMETRY_MIN_MAGNITUDE   Magnitude threshold\n")
		fmt.Fprintf(os.Stderr, "  SEISMETRY_STORAGE_TYPE    Storage type (local, s3)\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("seismetry version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, dataDir, mode, addr, events, wells, volumes, minMag, watchInputs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	printBanner(cfg)

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	switch cfg.Mode {
	case config.ModeRun:
		runBatch(ctx, application, cfg)
	case config.ModeServe:
		waitForSignal()
	}

	if err := application.Stop(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}

// runBatch executes the batch analysis, optionally under the watcher.
func runBatch(ctx context.Context, application *app.App, cfg *config.Config) {
	if !cfg.Watch.Enabled {
		outcome, err := application.RunOnce(ctx)
		if err != nil {
			application.Stop(context.Background())
			log.Fatalf("Run failed: %v", err)
		}
		if outcome.Skipped {
			log.Printf("Inputs unchanged since run %s, nothing to do", outcome.RunID)
		} else {
			log.Printf("Run %s complete, artifacts under %s", outcome.RunID, outcome.ArtifactPrefix)
		}
		return
	}

	watcher := watch.NewWatcher(application.Runner(), cfg.Watch.Interval)
	if err := watcher.Start(ctx); err != nil {
		application.Stop(context.Background())
		log.Fatalf("Failed to start watcher: %v", err)
	}
	log.Printf("Watching inputs every %v", cfg.Watch.Interval)

	waitForSignal()

	if err := watcher.Stop(); err != nil {
		log.Printf("Watcher stop error: %v", err)
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Printf("Received signal: %v", sig)
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile, dataDir, mode, addr, events, wells, volumes string, minMag float64, watchInputs bool) (*config.Config, error) {
	var cfg *config.Config
	var err error

	config.LoadDotEnv()

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	// Command line flags take highest priority
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if mode != "" {
		cfg.Mode = config.Mode(mode)
	}
	if addr != "" {
		cfg.Server.Addr = addr
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

	return cfg, nil
}

// printBanner prints the startup banner with configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("╔═══════════════════════════════════════════════════════════╗")
	log.Printf("║                      SEISMETRY                            ║")
	log.Printf("║   Microseismic Event and Well Volume Correlation          ║")
	log.Printf("╚═══════════════════════════════════════════════════════════╝")
	log.Printf("")
	log.Printf("Configuration:")
	log.Printf("  Mode:     %s", cfg.Mode)
	log.Printf("  Data Dir: %s", cfg.DataDir)
	log.Printf("  Storage:  %s", cfg.Storage.Type)
	log.Printf("")

	switch cfg.Mode {
	case config.ModeRun:
		log.Printf("Batch Analysis:")
		log.Printf("  Events:  %s", cfg.Inputs.Events)
		log.Printf("  Wells:   %s", cfg.Inputs.Wells)
		log.Printf("  Volumes: %s", cfg.Inputs.Volumes)
		if cfg.Analysis.ApplyMagnitudeFilter {
			log.Printf("  Magnitude threshold: %g", cfg.Analysis.MinMagnitude)
		}
		if cfg.Watch.Enabled {
			log.Printf("  Watch interval: %v", cfg.Watch.Interval)
		}
	case config.ModeServe:
		log.Printf("Interactive Service:")
		log.Printf("  HTTP: %s", cfg.Server.Addr)
		log.Printf("  Default threshold: %g", cfg.Analysis.MinMagnitude)
	}

	log.Printf("")
}
