package app

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/seismetry/seismetry/internal/config"
	"github.com/seismetry/seismetry/internal/dataset"
	"github.com/seismetry/seismetry/internal/observability"
	"github.com/seismetry/seismetry/internal/pipeline"
	"github.com/seismetry/seismetry/internal/report"
	"github.com/seismetry/seismetry/internal/storage"
	"github.com/seismetry/seismetry/internal/store"
	"github.com/seismetry/seismetry/pkg/types"
)

// Runner executes the batch analysis: read the three inputs, run the
// pipeline, materialize the results database, and publish artifacts.
type Runner struct {
	cfg          *config.Config
	storage      storage.ObjectStorage
	catalog      store.Catalog
	materializer *store.Materializer
	renderer     *report.Renderer
	publisher    *report.Publisher
	stats        *observability.RunStats
	notifier     *Notifier
}

// NewRunner wires a runner from shared resources.
func NewRunner(cfg *config.Config, st storage.ObjectStorage, catalog store.Catalog,
	stats *observability.RunStats, notifier *Notifier) *Runner {
	return &Runner{
		cfg:          cfg,
		storage:      st,
		catalog:      catalog,
		materializer: store.NewMaterializer(),
		renderer:     report.NewRenderer(cfg.Report.ChartWorkers),
		publisher:    report.NewPublisher(st, cfg.Report.ArchiveInputs, cfg.Report.Exports),
		stats:        stats,
		notifier:     notifier,
	}
}

// RunOutcome reports what one invocation did.
type RunOutcome struct {
	// RunID identifies the run; for a skipped invocation it is the
	// matching prior run's ID.
	RunID string `json:"run_id"`

	// Skipped is set when an identical prior run satisfied the
	// idempotency check and no work was done.
	Skipped bool `json:"skipped"`

	ArtifactPrefix string `json:"artifact_prefix"`

	Result   *pipeline.Result  `json:"-"`
	Manifest *store.RunManifest `json:"-"`
}

// RunOnce reads the configured inputs and performs a full analysis run.
func (r *Runner) RunOnce(ctx context.Context) (*RunOutcome, error) {
	raw, err := r.ReadInputs(ctx)
	if err != nil {
		r.stats.RecordError(err)
		return nil, err
	}

	opts := pipeline.Options{
		MinMagnitude:         r.cfg.Analysis.MinMagnitude,
		ApplyMagnitudeFilter: r.cfg.Analysis.ApplyMagnitudeFilter,
	}
	outcome, err := r.Run(ctx, raw, opts)
	if err != nil {
		r.stats.RecordError(err)
		return nil, err
	}
	return outcome, nil
}

// ReadInputs loads the raw bytes of all three datasets, either from
// local files or from object storage.
func (r *Runner) ReadInputs(ctx context.Context) (map[types.DatasetKind][]byte, error) {
	keys := map[types.DatasetKind]string{
		types.DatasetEvents:  r.cfg.Inputs.Events,
		types.DatasetWells:   r.cfg.Inputs.Wells,
		types.DatasetVolumes: r.cfg.Inputs.Volumes,
	}

	if r.cfg.Inputs.FromStorage {
		fetcher := storage.NewInputFetcher(r.storage, len(keys))
		return fetcher.FetchAll(ctx, keys)
	}

	raw := make(map[types.DatasetKind][]byte, len(keys))
	for kind, path := range keys {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("app: failed to read %s input %s: %w", kind, path, err)
		}
		raw[kind] = data
	}
	return raw, nil
}

// Run performs one analysis over already-read raw inputs: idempotency
// check, parse, pipeline, materialize, publish, register.
func (r *Runner) Run(ctx context.Context, raw map[types.DatasetKind][]byte, opts pipeline.Options) (*RunOutcome, error) {
	fps := map[types.DatasetKind]string{}
	for kind, data := range raw {
		fps[kind] = store.Fingerprint(data)
	}

	if r.cfg.Analysis.Idempotent {
		prior, err := r.catalog.FindByInputs(ctx,
			fps[types.DatasetEvents], fps[types.DatasetWells], fps[types.DatasetVolumes],
			opts.MinMagnitude, opts.ApplyMagnitudeFilter)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			log.Printf("app: inputs unchanged since run %s, skipping", prior.RunID)
			return &RunOutcome{
				RunID:          prior.RunID,
				Skipped:        true,
				ArtifactPrefix: prior.ArtifactPrefix,
			}, nil
		}
	}

	in, datasetStats, err := r.parseInputs(raw)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Run(ctx, in, opts)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	manifest := store.NewRunManifest(runID, store.ManifestParameters{
		MinMagnitude:         opts.MinMagnitude,
		ApplyMagnitudeFilter: opts.ApplyMagnitudeFilter,
		FacilityPrefix:       r.cfg.Analysis.FacilityPrefix,
	})
	rowsByKind := make(map[types.DatasetKind]int64, len(datasetStats))
	for _, ds := range datasetStats {
		rowsByKind[ds.Kind] = ds.Rows
	}
	for kind := range raw {
		manifest.Inputs[kind] = store.ManifestInput{
			Name:        kind.FileName(),
			Fingerprint: fps[kind],
			Rows:        rowsByKind[kind],
		}
	}
	manifest.Stats = store.ManifestStats{
		Datasets:    datasetStats,
		Diagnostics: res.Diagnostics,
	}

	dbPath := filepath.Join(r.cfg.WorkDir(), runID+".sqlite")
	info, err := r.materializer.Materialize(ctx, dbPath, runID, res)
	if err != nil {
		return nil, err
	}
	defer os.Remove(dbPath)
	log.Printf("app: materialized %d rows (%d bytes) for run %s", info.RowCount, info.SizeBytes, runID)

	var chartPages map[string][]byte
	if r.cfg.Report.Charts {
		chartPages, err = r.renderer.RenderAll(ctx, res)
		if err != nil {
			return nil, err
		}
	}

	prefix, err := r.publisher.Publish(ctx, res, raw, dbPath, chartPages, manifest)
	if err != nil {
		return nil, err
	}

	if err := r.catalog.RegisterRun(ctx, &store.RunRecord{
		RunID:              runID,
		EventsFingerprint:  fps[types.DatasetEvents],
		WellsFingerprint:   fps[types.DatasetWells],
		VolumesFingerprint: fps[types.DatasetVolumes],
		MinMagnitude:       opts.MinMagnitude,
		FilterApplied:      opts.ApplyMagnitudeFilter,
		EventRows:          res.Diagnostics.EventRows,
		WellRows:           res.Diagnostics.WellRows,
		VolumeRows:         res.Diagnostics.VolumeRows,
		SummaryRows:        int64(len(res.Summaries)),
		MergedMonths:       int64(res.Diagnostics.MergedMonths),
		ArtifactPrefix:     prefix,
		CreatedAt:          time.Now(),
	}); err != nil {
		return nil, err
	}

	r.stats.RecordRun(runID, res.Diagnostics)
	if r.notifier != nil {
		r.notifier.Publish(Event{Type: EventRunCompleted, RunID: runID})
	}

	return &RunOutcome{
		RunID:          runID,
		ArtifactPrefix: prefix,
		Result:         res,
		Manifest:       manifest,
	}, nil
}

// parseInputs parses and normalizes the three raw CSVs.
func (r *Runner) parseInputs(raw map[types.DatasetKind][]byte) (pipeline.Inputs, []dataset.Stats, error) {
	var in pipeline.Inputs

	events, err := dataset.LoadEvents(bytes.NewReader(raw[types.DatasetEvents]))
	if err != nil {
		return in, nil, err
	}
	wells, err := dataset.LoadWells(bytes.NewReader(raw[types.DatasetWells]), r.cfg.Analysis.FacilityPrefix)
	if err != nil {
		return in, nil, err
	}
	volumes, err := dataset.LoadVolumes(bytes.NewReader(raw[types.DatasetVolumes]))
	if err != nil {
		return in, nil, err
	}

	r.stats.RecordLoad(types.DatasetEvents, int64(len(events)))
	r.stats.RecordLoad(types.DatasetWells, int64(len(wells)))
	r.stats.RecordLoad(types.DatasetVolumes, int64(len(volumes)))

	in = pipeline.Inputs{Events: events, Wells: wells, Volumes: volumes}
	stats := []dataset.Stats{
		dataset.CollectEventStats(events),
		dataset.CollectWellStats(wells),
		dataset.CollectVolumeStats(volumes),
	}
	return in, stats, nil
}

// InputFingerprints fingerprints the configured local input files, used
// by the watch daemon to detect changes without re-running.
func (r *Runner) InputFingerprints() (map[types.DatasetKind]string, error) {
	paths := map[types.DatasetKind]string{
		types.DatasetEvents:  r.cfg.Inputs.Events,
		types.DatasetWells:   r.cfg.Inputs.Wells,
		types.DatasetVolumes: r.cfg.Inputs.Volumes,
	}
	fps := make(map[types.DatasetKind]string, len(paths))
	for kind, path := range paths {
		fp, err := store.FingerprintFile(path)
		if err != nil {
			return nil, err
		}
		fps[kind] = fp
	}
	return fps, nil
}
