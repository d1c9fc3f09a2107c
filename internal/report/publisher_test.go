package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismetry/seismetry/internal/storage"
	"github.com/seismetry/seismetry/internal/store"
	"github.com/seismetry/seismetry/pkg/types"
)

func newTestStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()
	st, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)
	return st
}

func testManifest(runID string) *store.RunManifest {
	m := store.NewRunManifest(runID, store.ManifestParameters{
		MinMagnitude:         1.0,
		ApplyMagnitudeFilter: true,
		FacilityPrefix:       "PGKYP",
	})
	for _, kind := range types.AllDatasets {
		m.Inputs[kind] = store.ManifestInput{
			Name:        kind.FileName(),
			Fingerprint: store.Fingerprint([]byte(string(kind))),
			Rows:        10,
		}
	}
	return m
}

func testRawInputs() map[types.DatasetKind][]byte {
	return map[types.DatasetKind][]byte{
		types.DatasetEvents:  []byte("Date,Easting,Northing,Depth,Magnitude\n"),
		types.DatasetWells:   []byte("Name,Type,x,y,z\n"),
		types.DatasetVolumes: []byte("HOLE_NAME,START_DATE,OIL,WATER,STEAM_INJECTION,WATER_INJECTION\n"),
	}
}

func TestPublish(t *testing.T) {
	res := fixtureResult(t)
	st := newTestStorage(t)
	ctx := context.Background()

	resultsPath := filepath.Join(t.TempDir(), "results.sqlite")
	require.NoError(t, os.WriteFile(resultsPath, []byte("sqlite payload"), 0644))

	charts := map[string][]byte{
		ChartIndex:              []byte("<html>index</html>"),
		ChartCorrelationHeatmap: []byte("<html>heatmap</html>"),
	}

	manifest := testManifest("run-1")
	p := NewPublisher(st, true, true)

	prefix, err := p.Publish(ctx, res, testRawInputs(), resultsPath, charts, manifest)
	require.NoError(t, err)
	assert.Equal(t, "runs/run-1", prefix)

	for _, name := range []string{
		ArtifactWellsFinal, ArtifactMonthlyCounts, ArtifactFieldwide,
		ArtifactMergedMonthly, ArtifactMatrix, ArtifactResultsDB, ArtifactManifest,
	} {
		exists, err := st.Exists(ctx, "runs/run-1/"+name)
		require.NoError(t, err)
		assert.True(t, exists, "missing artifact %s", name)
		assert.Equal(t, "runs/run-1/"+name, manifest.Artifacts[name])
	}
	for name := range charts {
		exists, err := st.Exists(ctx, "runs/run-1/charts/"+name)
		require.NoError(t, err)
		assert.True(t, exists, "missing chart %s", name)
	}

	// The stored manifest carries the archive keys.
	data, err := st.GetBytes(ctx, "runs/run-1/"+ArtifactManifest)
	require.NoError(t, err)
	stored, err := store.DecodeRunManifest(data)
	require.NoError(t, err)
	for _, kind := range types.AllDatasets {
		assert.Equal(t, "runs/run-1/inputs/"+kind.FileName()+".sz", stored.Inputs[kind].ArchiveKey)
	}

	pointer, err := p.LatestPointer(ctx)
	require.NoError(t, err)
	require.NotNil(t, pointer)
	assert.Equal(t, "run-1", pointer.RunID)
	assert.Equal(t, "runs/run-1", pointer.ArtifactPrefix)
}

func TestPublishWithoutExports(t *testing.T) {
	res := fixtureResult(t)
	st := newTestStorage(t)
	ctx := context.Background()

	p := NewPublisher(st, false, false)
	_, err := p.Publish(ctx, res, nil, "", nil, testManifest("run-1"))
	require.NoError(t, err)

	exists, err := st.Exists(ctx, "runs/run-1/"+ArtifactWellsFinal)
	require.NoError(t, err)
	assert.True(t, exists)

	for _, name := range []string{ArtifactMonthlyCounts, ArtifactFieldwide, ArtifactMergedMonthly, ArtifactMatrix, ArtifactResultsDB} {
		exists, err := st.Exists(ctx, "runs/run-1/"+name)
		require.NoError(t, err)
		assert.False(t, exists, "unexpected artifact %s", name)
	}

	objects, err := st.ListObjects(ctx, "runs/run-1/inputs")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestPublishAdvancesLatestAcrossRuns(t *testing.T) {
	res := fixtureResult(t)
	st := newTestStorage(t)
	ctx := context.Background()

	p := NewPublisher(st, false, false)

	_, err := p.Publish(ctx, res, nil, "", nil, testManifest("run-1"))
	require.NoError(t, err)
	_, err = p.Publish(ctx, res, nil, "", nil, testManifest("run-2"))
	require.NoError(t, err)

	pointer, err := p.LatestPointer(ctx)
	require.NoError(t, err)
	require.NotNil(t, pointer)
	assert.Equal(t, "run-2", pointer.RunID)
}

func TestPublishRecoversFromLostPointerRace(t *testing.T) {
	res := fixtureResult(t)
	st := newTestStorage(t)
	ctx := context.Background()

	// Two publishers share the bucket. The second holds a stale etag, so
	// its conditional put loses and must re-read then retry.
	first := NewPublisher(st, false, false)
	second := NewPublisher(st, false, false)

	_, err := first.Publish(ctx, res, nil, "", nil, testManifest("run-1"))
	require.NoError(t, err)

	second.latestETag = "stale"
	_, err = second.Publish(ctx, res, nil, "", nil, testManifest("run-2"))
	require.NoError(t, err)

	pointer, err := second.LatestPointer(ctx)
	require.NoError(t, err)
	require.NotNil(t, pointer)
	assert.Equal(t, "run-2", pointer.RunID)
}

func TestLatestPointerEmptyBucket(t *testing.T) {
	st := newTestStorage(t)

	pointer, err := NewPublisher(st, false, false).LatestPointer(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pointer)
}

func TestReadArchivedInputRoundTrip(t *testing.T) {
	res := fixtureResult(t)
	st := newTestStorage(t)
	ctx := context.Background()

	raw := testRawInputs()
	manifest := testManifest("run-1")
	p := NewPublisher(st, true, false)

	_, err := p.Publish(ctx, res, raw, "", nil, manifest)
	require.NoError(t, err)

	for _, kind := range types.AllDatasets {
		got, err := p.ReadArchivedInput(ctx, manifest.Inputs[kind].ArchiveKey)
		require.NoError(t, err)
		assert.Equal(t, raw[kind], got)
	}
}
