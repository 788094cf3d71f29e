package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"careassist/pkg/domain"
)

func record(t *testing.T, a *App, patientID string, ts time.Time, bag, leftover, drain float64) domain.Entry {
	t.Helper()
	entry, err := a.RecordExchange(patientID, ExchangeInput{
		Timestamp:         &ts,
		DialysateStrength: domain.Strength15,
		BagVolumeMl:       bag,
		LeftoverMl:        leftover,
		DrainVolumeMl:     drain,
	})
	if err != nil {
		t.Fatalf("record exchange: %v", err)
	}
	return entry
}

func TestRecordExchangeDerivesVolumes(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	patient := seedPatient(t, a)

	ts := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	entry := record(t, a, patient.ID, ts, 2000, 200, 2300)
	if entry.FillVolumeMl != 1800 {
		t.Fatalf("fill = %v, want 1800", entry.FillVolumeMl)
	}
	if entry.UFMl != 500 {
		t.Fatalf("uf = %v, want 500", entry.UFMl)
	}
	if entry.ID == "" {
		t.Fatal("expected a stored ID")
	}

	// Overhydrated exchange: drain below fill yields negative UF.
	entry = record(t, a, patient.ID, ts, 2000, 0, 1800)
	if entry.UFMl != -200 {
		t.Fatalf("uf = %v, want -200", entry.UFMl)
	}
}

func TestRecordExchangeValidation(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	patient := seedPatient(t, a)

	cases := []struct {
		name  string
		in    ExchangeInput
		field string
	}{
		{"unknown strength", ExchangeInput{DialysateStrength: "3%", BagVolumeMl: 2000, DrainVolumeMl: 2100}, "dialysateStrength"},
		{"zero bag", ExchangeInput{DialysateStrength: domain.Strength15, BagVolumeMl: 0, DrainVolumeMl: 2100}, "bagVolumeMl"},
		{"negative leftover", ExchangeInput{DialysateStrength: domain.Strength15, BagVolumeMl: 2000, LeftoverMl: -1, DrainVolumeMl: 2100}, "leftoverMl"},
		{"leftover above bag", ExchangeInput{DialysateStrength: domain.Strength15, BagVolumeMl: 2000, LeftoverMl: 2500, DrainVolumeMl: 2100}, "leftoverMl"},
		{"negative drain", ExchangeInput{DialysateStrength: domain.Strength15, BagVolumeMl: 2000, DrainVolumeMl: -5}, "drainVolumeMl"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.RecordExchange(patient.ID, tc.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}

	bad := -1.5
	if _, err := a.RecordExchange(patient.ID, ExchangeInput{
		DialysateStrength: domain.Strength15,
		BagVolumeMl:       2000,
		DrainVolumeMl:     2100,
		WeightKg:          &bad,
	}); err == nil {
		t.Fatal("expected weight validation error")
	}
}

func TestTodaySummaryCivilDayBounds(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	patient := seedPatient(t, a)

	// Test clock is fixed at 2026-03-10 14:30 UTC.
	record(t, a, patient.ID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 2000, 0, 2400)  // midnight, in
	record(t, a, patient.ID, time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC), 2000, 0, 2100) // last second, in
	record(t, a, patient.ID, time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC), 2000, 0, 5000)  // previous day, out

	sum, err := a.TodaySummary(patient.ID)
	if err != nil {
		t.Fatalf("today summary: %v", err)
	}
	if sum.Date != "2026-03-10" {
		t.Fatalf("date = %q", sum.Date)
	}
	if sum.Count != 2 || sum.TotalUFMl != 500 {
		t.Fatalf("count = %d total = %v, want 2 / 500", sum.Count, sum.TotalUFMl)
	}
	if len(sum.Entries) != 2 || !sum.Entries[0].Timestamp.Before(sum.Entries[1].Timestamp) {
		t.Fatalf("entries not ascending: %+v", sum.Entries)
	}
}

func TestTodaySummaryEmptyDay(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	patient := seedPatient(t, a)

	sum, err := a.TodaySummary(patient.ID)
	if err != nil {
		t.Fatalf("today summary: %v", err)
	}
	if sum.Count != 0 || sum.TotalUFMl != 0 {
		t.Fatalf("empty day = %+v, want zero total with zero count", sum)
	}
}

func TestWindowAverage(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	patient := seedPatient(t, a)

	record(t, a, patient.ID, time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), 2000, 0, 2400)  // +400
	record(t, a, patient.ID, time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC), 2000, 0, 2200)  // +200
	record(t, a, patient.ID, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), 2000, 0, 9000)  // outside window

	avg, err := a.WindowAverage(patient.ID, 7)
	if err != nil {
		t.Fatalf("window average: %v", err)
	}
	if avg.Count != 2 || avg.AverageUFMl != 300 {
		t.Fatalf("avg = %+v, want count 2 average 300", avg)
	}
}

func TestTrendAscending(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	patient := seedPatient(t, a)

	record(t, a, patient.ID, time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC), 2000, 0, 2300)
	record(t, a, patient.ID, time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC), 2000, 0, 2100)

	trend, err := a.Trend(patient.ID, domain.WindowLast7Days)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if trend.Count != 2 {
		t.Fatalf("count = %d, want 2", trend.Count)
	}
	if !trend.Points[0].Timestamp.Before(trend.Points[1].Timestamp) {
		t.Fatalf("points not ascending: %+v", trend.Points)
	}

	if _, err := a.Trend(patient.ID, "lastYear"); err == nil {
		t.Fatal("expected validation error for unknown window")
	}
}

func TestDashboard(t *testing.T) {
	a, _ := newTestApp(t, &fakeCompleter{})
	patient := seedPatient(t, a)

	record(t, a, patient.ID, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), 2000, 0, 2500)

	dash, err := a.Dashboard(context.Background(), patient.ID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Today.Count != 1 || dash.Today.TotalUFMl != 500 {
		t.Fatalf("today = %+v", dash.Today)
	}
	if dash.WeeklyAverage.Count != 1 || dash.WeeklyAverage.AverageUFMl != 500 {
		t.Fatalf("weekly average = %+v", dash.WeeklyAverage)
	}
	if dash.Trend.Count != 1 {
		t.Fatalf("trend = %+v", dash.Trend)
	}
}
