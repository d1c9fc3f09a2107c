package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"golang.org/x/sync/errgroup"

	"github.com/seismetry/seismetry/internal/errors"
	"github.com/seismetry/seismetry/internal/pipeline"
)

// Chart page names, also used as artifact keys.
const (
	ChartMagnitudeTimeline  = "magnitude_timeline.html"
	ChartWellCorrelations   = "well_correlations.html"
	ChartFieldMap3D         = "field_map_3d.html"
	ChartFieldwideVolumes   = "fieldwide_volumes.html"
	ChartCorrelationHeatmap = "correlation_heatmap.html"
	ChartIndex              = "index.html"
)

// chartPage is a chart that can both render standalone and join the
// combined index page.
type chartPage interface {
	components.Charter
	Render(w io.Writer) error
}

// Renderer renders the chart pages for a run. Pages are independent, so
// rendering fans out over a bounded pool; any single failure fails the
// whole set.
type Renderer struct {
	workers int
}

// NewRenderer creates a renderer with the given pool size.
func NewRenderer(workers int) *Renderer {
	if workers <= 0 {
		workers = 4
	}
	return &Renderer{workers: workers}
}

// RenderAll renders every chart page plus the combined index page and
// returns them keyed by page name.
func (r *Renderer) RenderAll(ctx context.Context, res *pipeline.Result) (map[string][]byte, error) {
	pages := []struct {
		name  string
		build func(*pipeline.Result) chartPage
	}{
		{ChartMagnitudeTimeline, buildMagnitudeTimeline},
		{ChartWellCorrelations, buildWellCorrelations},
		{ChartFieldMap3D, buildFieldMap3D},
		{ChartFieldwideVolumes, buildFieldwideVolumes},
		{ChartCorrelationHeatmap, buildCorrelationHeatmap},
	}

	start := time.Now()
	rendered := make([][]byte, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := renderPage(page.build(res))
			if err != nil {
				return errors.NewReportError(errors.CodeRenderFailed,
					fmt.Sprintf("failed to render %s", page.name), err)
			}
			rendered[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(pages)+1)
	for i, page := range pages {
		out[page.name] = rendered[i]
	}

	index, err := renderIndex(res)
	if err != nil {
		return nil, err
	}
	out[ChartIndex] = index

	log.Printf("report: rendered %d chart pages in %v", len(out), time.Since(start))
	return out, nil
}

func renderPage(c chartPage) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderIndex builds one page embedding every chart for browsing.
func renderIndex(res *pipeline.Result) ([]byte, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = "Seismetry"
	page.AddCharts(
		buildMagnitudeTimeline(res),
		buildWellCorrelations(res),
		buildFieldMap3D(res),
		buildFieldwideVolumes(res),
		buildCorrelationHeatmap(res),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, errors.NewReportError(errors.CodeRenderFailed, "failed to render index page", err)
	}
	return buf.Bytes(), nil
}

// buildMagnitudeTimeline plots event magnitude over time, colored by
// depth through the visual map (depth is the last value dimension).
func buildMagnitudeTimeline(res *pipeline.Result) chartPage {
	scatter := charts.NewScatter()

	minDepth, maxDepth := math.Inf(1), math.Inf(-1)
	data := make([]opts.ScatterData, 0, len(res.FilteredEvents))
	for _, ev := range res.FilteredEvents {
		if ev.Depth < minDepth {
			minDepth = ev.Depth
		}
		if ev.Depth > maxDepth {
			maxDepth = ev.Depth
		}
		data = append(data, opts.ScatterData{
			Value:      []interface{}{ev.Date.Format("2006-01-02 15:04:05"), ev.Magnitude, ev.Depth},
			SymbolSize: 6,
		})
	}
	if len(data) == 0 {
		minDepth, maxDepth = 0, 0
	}

	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Event magnitude over time"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time", Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Moment magnitude"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(minDepth),
			Max:        float32(maxDepth),
			Text:       []string{"Deep", "Shallow"},
			InRange:    &opts.VisualMapInRange{Color: []string{"#50a3ba", "#eac736", "#d94e5d"}},
		}),
	)
	scatter.AddSeries("events", data)
	return scatter
}

// buildWellCorrelations plots the per-well event correlation as bars,
// nulled coefficients shown as gaps.
func buildWellCorrelations(res *pipeline.Result) chartPage {
	bar := charts.NewBar()

	wellIDs := make([]string, 0, len(res.PerWell))
	data := make([]opts.BarData, 0, len(res.PerWell))
	for _, pw := range res.PerWell {
		wellIDs = append(wellIDs, pw.WellID)
		if math.IsNaN(pw.Coefficient) {
			data = append(data, opts.BarData{Value: "-"})
		} else {
			data = append(data, opts.BarData{Value: pw.Coefficient})
		}
	}

	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Correlation of well volume with event count"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Well"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Pearson r", Min: -1, Max: 1}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(wellIDs).AddSeries("correlation", data)
	return bar
}

// buildFieldMap3D places events and wellheads in one 3-D scene.
func buildFieldMap3D(res *pipeline.Result) chartPage {
	scatter := charts.NewScatter3D()

	events := make([]opts.Chart3DData, 0, len(res.FilteredEvents))
	for _, ev := range res.FilteredEvents {
		events = append(events, opts.Chart3DData{
			Value: []interface{}{ev.Easting, ev.Northing, -ev.Depth, ev.Magnitude},
		})
	}
	wells := make([]opts.Chart3DData, 0, len(res.Summaries))
	for _, s := range res.Summaries {
		wells = append(wells, opts.Chart3DData{
			Name:  s.WellID,
			Value: []interface{}{s.X, s.Y, s.Z},
		})
	}

	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Events and wells"}),
		charts.WithGrid3DOpts(opts.Grid3D{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	scatter.AddSeries("events", events)
	scatter.AddSeries("wells", wells)
	return scatter
}

// buildFieldwideVolumes plots the four measured fluids per month.
func buildFieldwideVolumes(res *pipeline.Result) chartPage {
	line := charts.NewLine()

	months := make([]string, 0, len(res.Fieldwide))
	series := map[string][]opts.LineData{
		"OIL":             nil,
		"WATER":           nil,
		"STEAM_INJECTION": nil,
		"WATER_INJECTION": nil,
	}
	for _, f := range res.Fieldwide {
		months = append(months, f.Month.String())
		series["OIL"] = append(series["OIL"], opts.LineData{Value: f.Oil})
		series["WATER"] = append(series["WATER"], opts.LineData{Value: f.Water})
		series["STEAM_INJECTION"] = append(series["STEAM_INJECTION"], opts.LineData{Value: f.SteamInjection})
		series["WATER_INJECTION"] = append(series["WATER_INJECTION"], opts.LineData{Value: f.WaterInjection})
	}

	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Field-wide monthly volumes"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Month"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Volume"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(months)
	for _, name := range []string{"OIL", "WATER", "STEAM_INJECTION", "WATER_INJECTION"} {
		line.AddSeries(name, series[name])
	}
	return line
}

// buildCorrelationHeatmap renders the full nulled matrix. Null cells are
// omitted so they stay blank.
func buildCorrelationHeatmap(res *pipeline.Result) chartPage {
	heatmap := charts.NewHeatMap()

	cols := res.Matrix.Columns
	var data []opts.HeatMapData
	for i := range cols {
		for j := range cols {
			v := res.Matrix.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}

	heatmap.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Correlation matrix"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: cols, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: cols, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: []string{"#313695", "#ffffff", "#a50026"}},
		}),
	)
	heatmap.AddSeries("correlation", data)
	return heatmap
}
