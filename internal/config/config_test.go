package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ModeRun, cfg.Mode)
	assert.Equal(t, "microseismic.csv", cfg.Inputs.Events)
	assert.Equal(t, "well_locations.csv", cfg.Inputs.Wells)
	assert.Equal(t, "well_volumes.csv", cfg.Inputs.Volumes)
	assert.Equal(t, 1.0, cfg.Analysis.MinMagnitude)
	assert.False(t, cfg.Analysis.ApplyMagnitudeFilter)
	assert.Equal(t, "PGKYP", cfg.Analysis.FacilityPrefix)
	assert.True(t, cfg.Analysis.Idempotent)
	assert.Equal(t, "local", cfg.Storage.Type)

	cfg.Resolve()
	require.NoError(t, cfg.Validate())
}

func TestResolveFillsDerivedPaths(t *testing.T) {
	cfg := &Config{Mode: ModeRun}
	cfg.Resolve()

	assert.Equal(t, "./data/seismetry", cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "storage"), cfg.Storage.Path)
	assert.Equal(t, filepath.Join(cfg.DataDir, "runs.db"), cfg.CatalogPath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "work"), cfg.WorkDir())
	assert.Equal(t, 4, cfg.Report.ChartWorkers)
	assert.Equal(t, 30*time.Second, cfg.Watch.Interval)
	assert.Equal(t, int64(64*1024*1024), cfg.Server.MaxUploadBytes)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default is valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Mode = "batch" },
			wantErr: "invalid mode",
		},
		{
			name:    "missing data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "data_dir is required",
		},
		{
			name:    "invalid storage type",
			mutate:  func(c *Config) { c.Storage.Type = "gcs" },
			wantErr: "invalid storage type",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Storage.Type = "s3" },
			wantErr: "s3.bucket is required",
		},
		{
			name:    "threshold below range",
			mutate:  func(c *Config) { c.Analysis.MinMagnitude = -0.5 },
			wantErr: "min_magnitude",
		},
		{
			name:    "threshold above range",
			mutate:  func(c *Config) { c.Analysis.MinMagnitude = 3.5 },
			wantErr: "min_magnitude",
		},
		{
			name:    "missing facility prefix",
			mutate:  func(c *Config) { c.Analysis.FacilityPrefix = "" },
			wantErr: "facility_prefix",
		},
		{
			name:    "too many chart workers",
			mutate:  func(c *Config) { c.Report.ChartWorkers = 32 },
			wantErr: "chart_workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Resolve()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seismetry.yaml")

	content := `
mode: serve
data_dir: /var/lib/seismetry
inputs:
  events: catalogue.csv
analysis:
  min_magnitude: 1.5
  apply_magnitude_filter: true
server:
  addr: ":9090"
storage:
  type: s3
  s3:
    bucket: seismetry-artifacts
    region: eu-west-1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ModeServe, cfg.Mode)
	assert.Equal(t, "/var/lib/seismetry", cfg.DataDir)
	assert.Equal(t, "catalogue.csv", cfg.Inputs.Events)
	// Unset keys keep their defaults.
	assert.Equal(t, "well_locations.csv", cfg.Inputs.Wells)
	assert.Equal(t, 1.5, cfg.Analysis.MinMagnitude)
	assert.True(t, cfg.Analysis.ApplyMagnitudeFilter)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "seismetry-artifacts", cfg.Storage.S3.Bucket)
}

func TestLoadFromFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seismetry.json")

	content := `{"mode":"run","analysis":{"min_magnitude":2.0,"facility_prefix":"ACME"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ModeRun, cfg.Mode)
	assert.Equal(t, 2.0, cfg.Analysis.MinMagnitude)
	assert.Equal(t, "ACME", cfg.Analysis.FacilityPrefix)
}

func TestLoadFromFileUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seismetry.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"run\""), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file format")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SEISMETRY_MODE", "serve")
	t.Setenv("SEISMETRY_DATA_DIR", "/tmp/seismetry")
	t.Setenv("SEISMETRY_INPUT_EVENTS", "events.csv")
	t.Setenv("SEISMETRY_MIN_MAGNITUDE", "1.2")
	t.Setenv("SEISMETRY_FACILITY_PREFIX", "ACME")
	t.Setenv("SEISMETRY_SERVER_ADDR", ":7070")
	t.Setenv("SEISMETRY_WATCH_INTERVAL", "2m")
	t.Setenv("SEISMETRY_CHARTS", "false")
	t.Setenv("SEISMETRY_STORAGE_TYPE", "s3")
	t.Setenv("SEISMETRY_S3_BUCKET", "bkt")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	assert.Equal(t, ModeServe, cfg.Mode)
	assert.Equal(t, "/tmp/seismetry", cfg.DataDir)
	assert.Equal(t, "events.csv", cfg.Inputs.Events)
	assert.Equal(t, 1.2, cfg.Analysis.MinMagnitude)
	assert.True(t, cfg.Analysis.ApplyMagnitudeFilter)
	assert.Equal(t, "ACME", cfg.Analysis.FacilityPrefix)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Watch.Interval)
	assert.False(t, cfg.Report.Charts)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "bkt", cfg.Storage.S3.Bucket)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Resolve()

	require.NoError(t, cfg.EnsureDirectories())

	for _, p := range []string{cfg.DataDir, cfg.WorkDir(), cfg.Storage.Path} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
