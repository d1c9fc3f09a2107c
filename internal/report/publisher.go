package report

import (
	"context"
	"crypto/md5"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"sync"

	"github.com/golang/snappy"

	"github.com/seismetry/seismetry/internal/errors"
	"github.com/seismetry/seismetry/internal/pipeline"
	"github.com/seismetry/seismetry/internal/storage"
	"github.com/seismetry/seismetry/internal/store"
	"github.com/seismetry/seismetry/pkg/types"
)

// Artifact names under the per-run prefix.
const (
	ArtifactWellsFinal     = "wells_final.csv"
	ArtifactMonthlyCounts  = "monthly_event_counts.csv"
	ArtifactFieldwide      = "fieldwide_volumes.csv"
	ArtifactMergedMonthly  = "merged_monthly.csv"
	ArtifactMatrix         = "correlation_matrix.csv"
	ArtifactResultsDB      = "results.sqlite"
	ArtifactManifest       = "run_manifest.json"
	LatestPointerKey       = "latest.json"
	runPrefixRoot          = "runs"
	inputArchiveExtension  = ".sz"
	conditionalPutAttempts = 3
)

// Publisher writes a run's artifacts to object storage under
// runs/<run_id>/ and advances the latest-run pointer.
type Publisher struct {
	storage       storage.ObjectStorage
	archiveInputs bool
	exports       bool

	mu         sync.Mutex
	latestETag string
}

// NewPublisher creates a publisher. When archiveInputs is set, the raw
// input CSVs are stored snappy-compressed alongside the artifacts; when
// exports is set, the intermediate tables are published next to
// wells_final.csv.
func NewPublisher(st storage.ObjectStorage, archiveInputs, exports bool) *Publisher {
	return &Publisher{storage: st, archiveInputs: archiveInputs, exports: exports}
}

// RunPrefix returns the object-key prefix for a run's artifacts.
func RunPrefix(runID string) string {
	return path.Join(runPrefixRoot, runID)
}

// Publish uploads the CSV exports, chart pages, results database, and
// manifest for a run, then advances latest.json. The manifest is
// mutated: artifact keys and input archive keys are filled in before it
// is encoded and uploaded. Returns the run's artifact prefix.
func (p *Publisher) Publish(ctx context.Context, res *pipeline.Result, raw map[types.DatasetKind][]byte,
	resultsPath string, chartPages map[string][]byte, manifest *store.RunManifest) (string, error) {

	prefix := RunPrefix(manifest.RunID)

	exports := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ArtifactWellsFinal, func(w io.Writer) error { return WriteWellsFinal(w, res.Summaries) }},
	}
	if p.exports {
		exports = append(exports, []struct {
			name  string
			write func(io.Writer) error
		}{
			{ArtifactMonthlyCounts, func(w io.Writer) error { return WriteMonthlyCounts(w, res.Counts) }},
			{ArtifactFieldwide, func(w io.Writer) error { return WriteFieldwideVolumes(w, res.Fieldwide) }},
			{ArtifactMergedMonthly, func(w io.Writer) error { return WriteMergedMonthly(w, res.Merged) }},
			{ArtifactMatrix, func(w io.Writer) error { return WriteCorrelationMatrix(w, res.Matrix) }},
		}...)
	}
	for _, e := range exports {
		data, err := renderCSV(e.write)
		if err != nil {
			return "", err
		}
		key := path.Join(prefix, e.name)
		if err := p.storage.PutBytes(ctx, key, data); err != nil {
			return "", errors.NewReportError(errors.CodeExportFailed,
				fmt.Sprintf("failed to publish %s", e.name), err)
		}
		manifest.Artifacts[e.name] = key
	}

	for name, data := range chartPages {
		key := path.Join(prefix, "charts", name)
		if err := p.storage.PutBytes(ctx, key, data); err != nil {
			return "", errors.NewReportError(errors.CodeRenderFailed,
				fmt.Sprintf("failed to publish chart %s", name), err)
		}
		manifest.Artifacts["charts/"+name] = key
	}

	if resultsPath != "" {
		key := path.Join(prefix, ArtifactResultsDB)
		if _, err := p.storage.UploadMultipart(ctx, resultsPath, key); err != nil {
			return "", errors.NewReportError(errors.CodeExportFailed,
				"failed to publish results database", err)
		}
		manifest.Artifacts[ArtifactResultsDB] = key
	}

	if p.archiveInputs {
		if err := p.archiveRawInputs(ctx, prefix, raw, manifest); err != nil {
			return "", err
		}
	}

	manifestKey := path.Join(prefix, ArtifactManifest)
	manifest.Artifacts[ArtifactManifest] = manifestKey
	encoded, err := manifest.Encode()
	if err != nil {
		return "", errors.NewReportError(errors.CodeExportFailed, "failed to encode run manifest", err)
	}
	if err := p.storage.PutBytes(ctx, manifestKey, encoded); err != nil {
		return "", errors.NewReportError(errors.CodeExportFailed, "failed to publish run manifest", err)
	}

	if err := p.advanceLatest(ctx, manifest); err != nil {
		return "", err
	}

	log.Printf("report: published %d artifacts under %s", len(manifest.Artifacts), prefix)
	return prefix, nil
}

// archiveRawInputs stores each raw input CSV snappy-compressed and
// records the archive keys in the manifest.
func (p *Publisher) archiveRawInputs(ctx context.Context, prefix string, raw map[types.DatasetKind][]byte, manifest *store.RunManifest) error {
	for _, kind := range types.AllDatasets {
		data, ok := raw[kind]
		if !ok {
			continue
		}
		key := path.Join(prefix, "inputs", kind.FileName()+inputArchiveExtension)
		if err := p.storage.PutBytes(ctx, key, snappy.Encode(nil, data)); err != nil {
			return errors.NewReportError(errors.CodeExportFailed,
				fmt.Sprintf("failed to archive %s input", kind), err)
		}
		in := manifest.Inputs[kind]
		in.ArchiveKey = key
		manifest.Inputs[kind] = in
	}
	return nil
}

// ReadArchivedInput fetches and decompresses one archived input.
func (p *Publisher) ReadArchivedInput(ctx context.Context, key string) ([]byte, error) {
	compressed, err := p.storage.GetBytes(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.NewReportError(errors.CodeExportFailed,
			fmt.Sprintf("failed to decompress archived input %s", key), err)
	}
	return data, nil
}

// advanceLatest rewrites latest.json through a compare-etag put so two
// publishers cannot silently clobber each other. On a lost race the
// pointer is re-read and the put retried: the last completed run wins.
func (p *Publisher) advanceLatest(ctx context.Context, manifest *store.RunManifest) error {
	pointer := &store.LatestPointer{
		RunID:          manifest.RunID,
		ArtifactPrefix: RunPrefix(manifest.RunID),
		CreatedAt:      manifest.CreatedAt,
	}
	data, err := pointer.Encode()
	if err != nil {
		return errors.NewReportError(errors.CodeExportFailed, "failed to encode latest pointer", err)
	}

	tmp, err := os.CreateTemp("", "seismetry-latest-*.json")
	if err != nil {
		return errors.NewReportError(errors.CodeExportFailed, "failed to stage latest pointer", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewReportError(errors.CodeExportFailed, "failed to stage latest pointer", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewReportError(errors.CodeExportFailed, "failed to stage latest pointer", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for attempt := 0; attempt < conditionalPutAttempts; attempt++ {
		err = p.storage.ConditionalPut(ctx, tmp.Name(), LatestPointerKey, p.latestETag)
		if err == nil {
			// Both backends etag a whole-object put with the content MD5
			p.latestETag = fmt.Sprintf("%x", md5.Sum(data))
			return nil
		}
		if !stderrors.Is(err, storage.ErrPreconditionFailed) {
			return errors.NewReportError(errors.CodeExportFailed, "failed to advance latest pointer", err)
		}

		current, getErr := p.storage.GetBytes(ctx, LatestPointerKey)
		if getErr != nil {
			return errors.NewReportError(errors.CodeExportFailed,
				"failed to re-read latest pointer after lost race", getErr)
		}
		p.latestETag = fmt.Sprintf("%x", md5.Sum(current))
		log.Printf("report: lost latest pointer race, retrying (attempt %d)", attempt+1)
	}
	return errors.NewReportError(errors.CodeExportFailed, "failed to advance latest pointer", err)
}

// LatestPointer reads the current latest-run pointer, or nil when no run
// has been published yet.
func (p *Publisher) LatestPointer(ctx context.Context) (*store.LatestPointer, error) {
	data, err := p.storage.GetBytes(ctx, LatestPointerKey)
	if stderrors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pointer store.LatestPointer
	if err := json.Unmarshal(data, &pointer); err != nil {
		return nil, errors.NewReportError(errors.CodeExportFailed, "failed to decode latest pointer", err)
	}
	return &pointer, nil
}
