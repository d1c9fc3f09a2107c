package types

import (
	"errors"
	"testing"
	"time"
)

func TestMonthOf(t *testing.T) {
	tests := []struct {
		in   time.Time
		want MonthKey
	}{
		{time.Date(2020, 1, 31, 23, 59, 59, 0, time.UTC), "2020-01"},
		{time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), "2020-02"},
		{time.Date(1999, 12, 15, 12, 0, 0, 0, time.UTC), "1999-12"},
	}
	for _, tt := range tests {
		if got := MonthOf(tt.in); got != tt.want {
			t.Errorf("MonthOf(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMonthKey(t *testing.T) {
	m, err := ParseMonthKey("2020-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != "2020-07" {
		t.Errorf("got %q, want 2020-07", m)
	}

	for _, bad := range []string{"", "2020", "2020-13", "July 2020", "2020-07-01"} {
		if _, err := ParseMonthKey(bad); !errors.Is(err, ErrInvalidMonthKey) {
			t.Errorf("ParseMonthKey(%q) should fail with ErrInvalidMonthKey, got %v", bad, err)
		}
	}
}

func TestMonthKeyBefore(t *testing.T) {
	if !MonthKey("2019-12").Before("2020-01") {
		t.Error("2019-12 should precede 2020-01")
	}
	if MonthKey("2020-02").Before("2020-01") {
		t.Error("2020-02 should not precede 2020-01")
	}
}

func TestMonthKeyTime(t *testing.T) {
	tm, err := MonthKey("2020-03").Time()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	if !tm.Equal(want) {
		t.Errorf("got %v, want %v", tm, want)
	}

	if _, err := MonthKey("garbage").Time(); err == nil {
		t.Error("expected error for malformed month key")
	}
}

func TestVolumeRecordDeriveBalances(t *testing.T) {
	r := VolumeRecord{Oil: 100, Water: 50, SteamInjection: 20, WaterInjection: 10}
	r.DeriveBalances()
	if r.Injected != 30 || r.Produced != 150 || r.Total != 120 {
		t.Errorf("got injected=%v produced=%v total=%v", r.Injected, r.Produced, r.Total)
	}
}

func TestVolumeSumsAdd(t *testing.T) {
	var s VolumeSums
	r := VolumeRecord{Oil: 1, Water: 2, SteamInjection: 3, WaterInjection: 4}
	r.DeriveBalances()
	s.Add(r)
	s.Add(r)
	if s.Oil != 2 || s.Water != 4 || s.SteamInjection != 6 || s.WaterInjection != 8 {
		t.Errorf("measured sums wrong: %+v", s)
	}
	if s.Produced != 6 || s.Injected != 14 || s.Total != -8 {
		t.Errorf("derived sums wrong: %+v", s)
	}
}

func TestDatasetKind(t *testing.T) {
	for _, k := range AllDatasets {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
		if k.FileName() == "" {
			t.Errorf("%q should have a file name", k)
		}
	}
	if DatasetKind("boreholes").Valid() {
		t.Error("unknown kind should be invalid")
	}
	if DatasetKind("boreholes").FileName() != "" {
		t.Error("unknown kind should have no file name")
	}
}
