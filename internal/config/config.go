// Package config provides unified configuration for the Seismetry tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Mode selects how the process runs.
type Mode string

const (
	// ModeRun executes the batch pipeline once (or in watch mode) and exits.
	ModeRun Mode = "run"

	// ModeServe starts the interactive HTTP service.
	ModeServe Mode = "serve"
)

// Config holds the unified configuration for both modes.
type Config struct {
	// Mode specifies how to run: run, serve
	Mode Mode `json:"mode" yaml:"mode"`

	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Inputs locates the three input datasets
	Inputs InputsConfig `json:"inputs" yaml:"inputs"`

	// Analysis holds pipeline parameters
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`

	// Report controls artifact generation
	Report ReportConfig `json:"report" yaml:"report"`

	// Server holds HTTP server configuration (serve mode)
	Server ServerConfig `json:"server" yaml:"server"`

	// Watch holds input polling configuration (run mode)
	Watch WatchConfig `json:"watch" yaml:"watch"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// InputsConfig locates the three input CSVs. Paths are local files; when
// FromStorage is set they are object keys resolved through the storage
// layer instead.
type InputsConfig struct {
	// Events is the path or object key of the microseismic catalogue
	Events string `json:"events" yaml:"events"`

	// Wells is the path or object key of the well-location table
	Wells string `json:"wells" yaml:"wells"`

	// Volumes is the path or object key of the monthly volume table
	Volumes string `json:"volumes" yaml:"volumes"`

	// FromStorage treats the three entries as object-storage keys
	FromStorage bool `json:"from_storage" yaml:"from_storage"`
}

// AnalysisConfig holds pipeline parameters.
type AnalysisConfig struct {
	// MinMagnitude drops events at or below this moment magnitude.
	// Only applied when ApplyMagnitudeFilter is true; the interactive
	// service always filters (default 1.0), the batch runner only when
	// asked.
	MinMagnitude float64 `json:"min_magnitude" yaml:"min_magnitude"`

	// ApplyMagnitudeFilter enables the magnitude threshold in run mode
	ApplyMagnitudeFilter bool `json:"apply_magnitude_filter" yaml:"apply_magnitude_filter"`

	// FacilityPrefix is the literal stripped from well names to derive
	// the short well id used as the join key
	FacilityPrefix string `json:"facility_prefix" yaml:"facility_prefix"`

	// Idempotent skips recomputation when a prior run with identical
	// input fingerprints and threshold exists in the runs catalog
	Idempotent bool `json:"idempotent" yaml:"idempotent"`
}

// ReportConfig controls which artifacts a run produces.
type ReportConfig struct {
	// Charts enables HTML chart rendering
	Charts bool `json:"charts" yaml:"charts"`

	// ChartWorkers bounds concurrent chart renders (1–16, default 4)
	ChartWorkers int `json:"chart_workers" yaml:"chart_workers"`

	// Exports enables the intermediate-table CSV exports alongside
	// wells_final.csv
	Exports bool `json:"exports" yaml:"exports"`

	// ArchiveInputs stores snappy-compressed copies of the raw inputs
	// with each run
	ArchiveInputs bool `json:"archive_inputs" yaml:"archive_inputs"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Addr is the HTTP listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// MaxUploadBytes caps the size of an uploaded dataset
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// WatchConfig holds input polling configuration for run mode.
type WatchConfig struct {
	// Enabled keeps the batch runner alive, re-running when any input
	// file's fingerprint changes
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Interval is the fingerprint polling period
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		Mode:    ModeRun,
		DataDir: "./data/seismetry",
		Inputs: InputsConfig{
			Events:  "microseismic.csv",
			Wells:   "well_locations.csv",
			Volumes: "well_volumes.csv",
		},
		Analysis: AnalysisConfig{
			MinMagnitude:   1.0,
			FacilityPrefix: "PGKYP",
			Idempotent:     true,
		},
		Report: ReportConfig{
			Charts:        true,
			ChartWorkers:  4,
			Exports:       true,
			ArchiveInputs: true,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxUploadBytes: 64 * 1024 * 1024,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Interval: 30 * time.Second,
		},
		Storage: StorageConfig{
			Type: "local",
			Path: "",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/seismetry"
	}

	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}

	if c.Report.ChartWorkers <= 0 {
		c.Report.ChartWorkers = 4
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = 30 * time.Second
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 64 * 1024 * 1024
	}
}

// CatalogPath returns the path to the runs catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "runs.db")
}

// WorkDir returns the scratch directory for per-run files before they are
// published to storage.
func (c *Config) WorkDir() string {
	return filepath.Join(c.DataDir, "work")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeRun, ModeServe:
		// Valid modes
	default:
		return fmt.Errorf("invalid mode: %s (must be run or serve)", c.Mode)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	if c.Analysis.MinMagnitude < 0 || c.Analysis.MinMagnitude > 3 {
		return fmt.Errorf("analysis.min_magnitude must be between 0 and 3, got %g", c.Analysis.MinMagnitude)
	}

	if c.Analysis.FacilityPrefix == "" {
		return fmt.Errorf("analysis.facility_prefix is required")
	}

	if c.Report.ChartWorkers < 1 || c.Report.ChartWorkers > 16 {
		return fmt.Errorf("report.chart_workers must be between 1 and 16, got %d", c.Report.ChartWorkers)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads a .env file from the working directory if present.
// Missing files are not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the SEISMETRY_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SEISMETRY_MODE"); v != "" {
		cfg.Mode = Mode(v)
	}
	if v := os.Getenv("SEISMETRY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Inputs
	if v := os.Getenv("SEISMETRY_INPUT_EVENTS"); v != "" {
		cfg.Inputs.Events = v
	}
	if v := os.Getenv("SEISMETRY_INPUT_WELLS"); v != "" {
		cfg.Inputs.Wells = v
	}
	if v := os.Getenv("SEISMETRY_INPUT_VOLUMES"); v != "" {
		cfg.Inputs.Volumes = v
	}

	// Analysis
	if v := os.Getenv("SEISMETRY_MIN_MAGNITUDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.MinMagnitude = f
			cfg.Analysis.ApplyMagnitudeFilter = true
		}
	}
	if v := os.Getenv("SEISMETRY_FACILITY_PREFIX"); v != "" {
		cfg.Analysis.FacilityPrefix = v
	}
	if v := os.Getenv("SEISMETRY_IDEMPOTENT"); v != "" {
		cfg.Analysis.Idempotent = v == "true" || v == "1"
	}

	// Server
	if v := os.Getenv("SEISMETRY_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	// Watch
	if v := os.Getenv("SEISMETRY_WATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.Interval = d
		}
	}

	// Report
	if v := os.Getenv("SEISMETRY_CHARTS"); v != "" {
		cfg.Report.Charts = v == "true" || v == "1"
	}

	// Storage
	if v := os.Getenv("SEISMETRY_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("SEISMETRY_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SEISMETRY_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("SEISMETRY_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("SEISMETRY_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.WorkDir(),
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
