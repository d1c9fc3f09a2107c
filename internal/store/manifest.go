package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/seismetry/seismetry/internal/dataset"
	"github.com/seismetry/seismetry/internal/pipeline"
	"github.com/seismetry/seismetry/pkg/types"
)

// RunManifest is the JSON sidecar published with every run's artifacts.
// It records everything needed to audit or reproduce the run: input
// fingerprints, parameters, per-dataset stats, drop diagnostics, and the
// artifact paths.
type RunManifest struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`

	Parameters ManifestParameters `json:"parameters"`

	Inputs map[types.DatasetKind]ManifestInput `json:"inputs"`

	Stats ManifestStats `json:"stats"`

	// Artifacts maps artifact names (wells_final.csv, results.sqlite,
	// chart pages, ...) to their object-storage keys.
	Artifacts map[string]string `json:"artifacts"`
}

// ManifestParameters are the pipeline parameters the run used.
type ManifestParameters struct {
	MinMagnitude         float64 `json:"min_magnitude"`
	ApplyMagnitudeFilter bool    `json:"apply_magnitude_filter"`
	FacilityPrefix       string  `json:"facility_prefix"`
}

// ManifestInput describes one input dataset as consumed by the run.
type ManifestInput struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	Rows        int64  `json:"rows"`

	// ArchiveKey is the object key of the snappy-compressed raw input,
	// empty when input archiving is disabled.
	ArchiveKey string `json:"archive_key,omitempty"`
}

// ManifestStats bundles dataset summaries with run diagnostics.
type ManifestStats struct {
	Datasets    []dataset.Stats      `json:"datasets"`
	Diagnostics pipeline.Diagnostics `json:"diagnostics"`
}

// NewRunManifest creates a manifest skeleton for a run.
func NewRunManifest(runID string, params ManifestParameters) *RunManifest {
	return &RunManifest{
		RunID:      runID,
		CreatedAt:  time.Now().UTC(),
		Parameters: params,
		Inputs:     make(map[types.DatasetKind]ManifestInput),
		Artifacts:  make(map[string]string),
	}
}

// Encode renders the manifest as indented JSON.
func (m *RunManifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("store: failed to encode run manifest: %w", err)
	}
	return data, nil
}

// DecodeRunManifest parses a manifest from JSON bytes.
func DecodeRunManifest(data []byte) (*RunManifest, error) {
	var m RunManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("store: failed to decode run manifest: %w", err)
	}
	return &m, nil
}

// LatestPointer is the small JSON object at latest.json pointing to the
// newest run. It is advanced with a conditional put so two concurrent
// publishers cannot silently overwrite each other.
type LatestPointer struct {
	RunID          string    `json:"run_id"`
	ArtifactPrefix string    `json:"artifact_prefix"`
	CreatedAt      time.Time `json:"created_at"`
}

// Encode renders the pointer as JSON.
func (p *LatestPointer) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("store: failed to encode latest pointer: %w", err)
	}
	return data, nil
}
