package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAll(t *testing.T) {
	res := fixtureResult(t)

	pages, err := NewRenderer(2).RenderAll(context.Background(), res)
	require.NoError(t, err)

	names := []string{
		ChartMagnitudeTimeline,
		ChartWellCorrelations,
		ChartFieldMap3D,
		ChartFieldwideVolumes,
		ChartCorrelationHeatmap,
		ChartIndex,
	}
	require.Len(t, pages, len(names))
	for _, name := range names {
		data, ok := pages[name]
		require.True(t, ok, "missing page %s", name)
		assert.NotEmpty(t, data, "empty page %s", name)
		assert.Contains(t, string(data), "<html", "page %s is not an HTML document", name)
		assert.Contains(t, string(data), "echarts", "page %s does not embed a chart", name)
	}
}

func TestRenderAllEmptyResult(t *testing.T) {
	res := fixtureResult(t)
	res.FilteredEvents = nil
	res.PerWell = nil
	res.Summaries = nil

	pages, err := NewRenderer(0).RenderAll(context.Background(), res)
	require.NoError(t, err)
	assert.NotEmpty(t, pages[ChartMagnitudeTimeline])
	assert.NotEmpty(t, pages[ChartIndex])
}

func TestRenderAllCancelled(t *testing.T) {
	res := fixtureResult(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer(1).RenderAll(ctx, res)
	assert.Error(t, err)
}

func TestNewRendererDefaultsWorkers(t *testing.T) {
	assert.Equal(t, 4, NewRenderer(0).workers)
	assert.Equal(t, 4, NewRenderer(-3).workers)
	assert.Equal(t, 8, NewRenderer(8).workers)
}
