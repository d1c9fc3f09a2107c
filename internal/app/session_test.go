package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismetry/seismetry/internal/config"
	"github.com/seismetry/seismetry/internal/errors"
	"github.com/seismetry/seismetry/internal/observability"
	"github.com/seismetry/seismetry/internal/report"
	"github.com/seismetry/seismetry/pkg/types"
)

const (
	eventsCSV = `Date,Easting[m],Northing[m],Depth_SS[m],Moment Magnitude
2019-01-03,1200,3400,850,1.2
2019-01-17,1190,3395,820,0.4
2019-02-08,1150,3390,910,1.9
2019-02-09,1180,3420,790,1.4
2019-03-21,1230,3410,880,2.3
2019-04-02,1210,3380,930,1.1
`

	wellsCSV = `Name,Type,x,y,z
PGKYP01,producer,100,200,-50
PGKYP02,injector,140,260,-55
`

	volumesCSV = `HOLE_NAME,START_DATE,OIL,WATER,STEAM_INJECTION,WATER_INJECTION
PGKYP-01,2019-01-01,120,40,0,0
PGKYP-01,2019-02-01,90,40,0,0
PGKYP-01,2019-03-01,150,40,0,0
PGKYP-01,2019-04-01,80,40,0,0
PGKYP-02,2019-01-01,0,0,30,10
PGKYP-02,2019-02-01,0,0,60,10
PGKYP-02,2019-03-01,0,0,20,10
PGKYP-02,2019-04-01,0,0,70,10
`
)

func newTestSession(t *testing.T, charts bool) *Session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Report.Charts = charts
	cfg.Resolve()
	return NewSession(cfg, observability.NewRunStats(), NewNotifier(16))
}

func loadAllDatasets(t *testing.T, s *Session) bool {
	t.Helper()
	ctx := context.Background()

	_, ran, err := s.SetDataset(ctx, types.DatasetEvents, []byte(eventsCSV))
	require.NoError(t, err)
	require.False(t, ran)

	_, ran, err = s.SetDataset(ctx, types.DatasetWells, []byte(wellsCSV))
	require.NoError(t, err)
	require.False(t, ran)

	_, ran, err = s.SetDataset(ctx, types.DatasetVolumes, []byte(volumesCSV))
	require.NoError(t, err)
	return ran
}

func TestSessionInitialStatus(t *testing.T) {
	s := newTestSession(t, false)

	status := s.Status()
	assert.Equal(t, 1.0, status.Threshold)
	assert.ElementsMatch(t, types.AllDatasets, status.Missing)
	assert.Empty(t, status.Datasets)
	assert.False(t, status.HasResult)
	assert.Nil(t, s.Result())
}

func TestSessionRejectsUnknownDataset(t *testing.T) {
	s := newTestSession(t, false)

	_, _, err := s.SetDataset(context.Background(), types.DatasetKind("faults"), []byte("x"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingDataset, errors.GetCode(err))
}

func TestSessionRunsWhenAllDatasetsPresent(t *testing.T) {
	s := newTestSession(t, false)

	ran := loadAllDatasets(t, s)
	assert.True(t, ran)

	status := s.Status()
	assert.Empty(t, status.Missing)
	assert.True(t, status.HasResult)
	assert.NotEmpty(t, status.LastRunID)
	require.NotNil(t, status.UpdatedAt)
	assert.Equal(t, int64(6), status.Datasets[types.DatasetEvents])
	assert.Equal(t, int64(2), status.Datasets[types.DatasetWells])
	assert.Equal(t, int64(8), status.Datasets[types.DatasetVolumes])

	res := s.Result()
	require.NotNil(t, res)
	// The 0.4-magnitude event falls at or below the default threshold.
	assert.Len(t, res.FilteredEvents, 5)
	assert.Len(t, res.Summaries, 2)
}

func TestSessionParseFailureKeepsPreviousDataset(t *testing.T) {
	s := newTestSession(t, false)
	ctx := context.Background()

	rows, _, err := s.SetDataset(ctx, types.DatasetEvents, []byte(eventsCSV))
	require.NoError(t, err)
	assert.Equal(t, int64(6), rows)

	_, _, err = s.SetDataset(ctx, types.DatasetEvents, []byte("Date,Easting[m]\n2019-01-03,1\n"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingColumn, errors.GetCode(err))

	status := s.Status()
	assert.Equal(t, int64(6), status.Datasets[types.DatasetEvents])
	assert.NotContains(t, status.Missing, types.DatasetEvents)
}

func TestSessionThresholdValidation(t *testing.T) {
	s := newTestSession(t, false)
	ctx := context.Background()

	for _, bad := range []float64{-0.1, 3.1, 100} {
		_, err := s.SetThreshold(ctx, bad)
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidThreshold, errors.GetCode(err))
	}

	// A valid threshold before all datasets are present updates state
	// without running.
	ran, err := s.SetThreshold(ctx, 2.0)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 2.0, s.Threshold())
}

func TestSessionThresholdChangeReruns(t *testing.T) {
	s := newTestSession(t, false)
	ctx := context.Background()

	require.True(t, loadAllDatasets(t, s))
	firstRunID := s.Status().LastRunID

	ran, err := s.SetThreshold(ctx, 2.0)
	require.NoError(t, err)
	assert.True(t, ran)

	status := s.Status()
	assert.NotEqual(t, firstRunID, status.LastRunID)

	res := s.Result()
	require.NotNil(t, res)
	// Only the 2.3-magnitude event survives the higher threshold.
	assert.Len(t, res.FilteredEvents, 1)
}

func TestSessionDatasetReplacementReruns(t *testing.T) {
	s := newTestSession(t, false)
	ctx := context.Background()

	require.True(t, loadAllDatasets(t, s))
	firstRunID := s.Status().LastRunID

	_, ran, err := s.SetDataset(ctx, types.DatasetWells, []byte(wellsCSV))
	require.NoError(t, err)
	assert.True(t, ran)
	assert.NotEqual(t, firstRunID, s.Status().LastRunID)
}

func TestSessionPublishesEvents(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Report.Charts = false
	cfg.Resolve()
	notifier := NewNotifier(32)
	s := NewSession(cfg, observability.NewRunStats(), notifier)

	sub := notifier.Subscribe("test", nil)
	defer notifier.Unsubscribe(sub.ID)

	require.True(t, loadAllDatasets(t, s))

	var seen []EventType
	timeout := time.After(time.Second)
	for len(seen) < 4 {
		select {
		case ev := <-sub.Ch:
			seen = append(seen, ev.Type)
		case <-timeout:
			t.Fatalf("expected 4 events, got %v", seen)
		}
	}
	assert.Equal(t, []EventType{
		EventDatasetLoaded, EventDatasetLoaded, EventDatasetLoaded, EventRunCompleted,
	}, seen)
}

func TestSessionRendersCharts(t *testing.T) {
	s := newTestSession(t, true)

	require.True(t, loadAllDatasets(t, s))

	for _, name := range []string{report.ChartIndex, report.ChartCorrelationHeatmap} {
		data, ok := s.Chart(name)
		require.True(t, ok, "missing chart %s", name)
		assert.NotEmpty(t, data)
	}

	_, ok := s.Chart("nope.html")
	assert.False(t, ok)
}

func TestSessionChartsDisabled(t *testing.T) {
	s := newTestSession(t, false)

	require.True(t, loadAllDatasets(t, s))

	_, ok := s.Chart(report.ChartIndex)
	assert.False(t, ok)
}
