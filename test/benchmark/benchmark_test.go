// Package benchmark provides performance benchmarks for Seismetry.
package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/seismetry/seismetry/internal/aggregate"
	"github.com/seismetry/seismetry/internal/correlate"
	"github.com/seismetry/seismetry/internal/dataset"
	"github.com/seismetry/seismetry/internal/pipeline"
	"github.com/seismetry/seismetry/internal/store"
)

// BenchmarkParseEvents measures CSV parse throughput on the event
// catalog, the largest of the three inputs.
func BenchmarkParseEvents(b *testing.B) {
	csv := generateEventsCSV(10000, 24)

	b.ResetTimer()
	b.ReportAllocs()

	totalRows := 0
	for i := 0; i < b.N; i++ {
		events, err := dataset.ParseEvents(strings.NewReader(csv))
		if err != nil {
			b.Fatal(err)
		}
		totalRows += len(events)
	}

	b.ReportMetric(float64(totalRows)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkPipelineRun measures a full analysis pass over a synthetic
// field: 10k events, 20 wells, 24 months.
func BenchmarkPipelineRun(b *testing.B) {
	events, err := dataset.LoadEvents(strings.NewReader(generateEventsCSV(10000, 24)))
	if err != nil {
		b.Fatal(err)
	}
	wells, err := dataset.LoadWells(strings.NewReader(generateWellsCSV(20)), "PGKYP")
	if err != nil {
		b.Fatal(err)
	}
	volumes, err := dataset.LoadVolumes(strings.NewReader(generateVolumesCSV(20, 24)))
	if err != nil {
		b.Fatal(err)
	}

	in := pipeline.Inputs{Events: events, Wells: wells, Volumes: volumes}
	opts := pipeline.Options{MinMagnitude: 1.0, ApplyMagnitudeFilter: true}
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		res, err := pipeline.Run(ctx, in, opts)
		if err != nil {
			b.Fatal(err)
		}
		if len(res.Summaries) == 0 {
			b.Fatal("expected well summaries")
		}
	}
}

// BenchmarkCorrelationMatrix measures the Pearson matrix over a wide
// merged table: 60 wells plus the event column, 48 aligned months.
func BenchmarkCorrelationMatrix(b *testing.B) {
	events, err := dataset.LoadEvents(strings.NewReader(generateEventsCSV(5000, 48)))
	if err != nil {
		b.Fatal(err)
	}
	volumes, err := dataset.LoadVolumes(strings.NewReader(generateVolumesCSV(60, 48)))
	if err != nil {
		b.Fatal(err)
	}

	counts := aggregate.CountEventsByMonth(events)
	pivot := aggregate.PivotTotalsByWell(volumes)
	merged, _ := aggregate.MergeMonthly(pivot, counts)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		m, err := correlate.Compute(merged)
		if err != nil {
			b.Fatal(err)
		}
		correlate.NullPerfect(m)
	}

	cols := len(merged.Columns())
	b.ReportMetric(float64(cols*cols), "cells/op")
}

// BenchmarkFingerprint measures input fingerprinting throughput.
func BenchmarkFingerprint(b *testing.B) {
	data := []byte(generateEventsCSV(20000, 24))

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		store.Fingerprint(data)
	}
}

// BenchmarkArtifactPublish measures object-storage artifact writes.
// With SEISMETRY_STORAGE_TYPE=s3 this exercises the real backend.
func BenchmarkArtifactPublish(b *testing.B) {
	st, cleanup := getBenchmarkStorage(b, "publish")
	defer cleanup()

	data := []byte(generateEventsCSV(5000, 24))
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("runs/bench/%d/wells_final.csv", i)
		if err := st.PutBytes(ctx, key, data); err != nil {
			b.Fatal(err)
		}
	}
}
