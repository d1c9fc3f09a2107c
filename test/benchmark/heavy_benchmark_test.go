package benchmark

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/seismetry/seismetry/internal/app"
	"github.com/seismetry/seismetry/internal/config"
	"github.com/seismetry/seismetry/internal/observability"
	"github.com/seismetry/seismetry/internal/storage"
	"github.com/seismetry/seismetry/internal/store"
)

// BenchmarkEndToEndRun measures a complete batch run: fetch, parse,
// pipeline, SQLite materialization, and artifact publishing. Idempotency
// is disabled so every iteration does the full job.
func BenchmarkEndToEndRun(b *testing.B) {
	dir, err := os.MkdirTemp("", "seismetry-bench-run-*")
	if err != nil {
		b.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Inputs.Events = filepath.Join(dir, "microseismic.csv")
	cfg.Inputs.Wells = filepath.Join(dir, "well_locations.csv")
	cfg.Inputs.Volumes = filepath.Join(dir, "well_volumes.csv")
	cfg.Analysis.ApplyMagnitudeFilter = true
	cfg.Analysis.Idempotent = false
	cfg.Report.Charts = false
	cfg.Resolve()
	if err := cfg.EnsureDirectories(); err != nil {
		b.Fatal(err)
	}

	inputs := map[string]string{
		cfg.Inputs.Events:  generateEventsCSV(5000, 24),
		cfg.Inputs.Wells:   generateWellsCSV(20),
		cfg.Inputs.Volumes: generateVolumesCSV(20, 24),
	}
	for path, body := range inputs {
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			b.Fatal(err)
		}
	}

	st, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		b.Fatal(err)
	}
	catalog, err := store.NewCatalog(cfg.CatalogPath())
	if err != nil {
		b.Fatal(err)
	}
	defer catalog.Close()

	runner := app.NewRunner(cfg, st, catalog, observability.NewRunStats(), nil)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		outcome, err := runner.RunOnce(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if outcome.Skipped {
			b.Fatal("idempotency should be disabled")
		}
	}
}
