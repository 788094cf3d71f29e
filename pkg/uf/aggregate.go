package uf

import (
	"sort"
	"time"

	"careassist/pkg/domain"
)

// Point is one raw trend observation. The series carries one point per
// entry; no bucketing or resampling is applied.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	UFMl      float64   `json:"ufMl"`
}

// DailyTotal sums UF over every entry whose timestamp falls inside the
// civil day of `day` in location `loc`, bounds inclusive on both ends
// ([00:00:00, 23:59:59]). It returns the sum together with the number of
// entries counted, so callers can tell "no data" apart from a zero net UF.
// Entries with an unknown UF are skipped entirely.
func DailyTotal(entries []domain.Entry, day time.Time, loc *time.Location) (totalMl float64, count int) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d, 23, 59, 59, 0, loc)
	for _, e := range entries {
		if !Known(e.UFMl) {
			continue
		}
		ts := e.Timestamp.In(loc)
		if ts.Before(start) || ts.After(end) {
			continue
		}
		totalMl += e.UFMl
		count++
	}
	return totalMl, count
}

// RollingAverage computes the arithmetic mean of UF across entries with
// timestamp >= now - days. An empty window yields 0 with count 0; the zero
// average alone cannot be told apart from a true zero, so callers must
// consult count for a no-data state.
func RollingAverage(entries []domain.Entry, now time.Time, days int) (avgMl float64, count int) {
	cutoff := now.AddDate(0, 0, -days)
	var total float64
	for _, e := range entries {
		if !Known(e.UFMl) {
			continue
		}
		if e.Timestamp.Before(cutoff) {
			continue
		}
		total += e.UFMl
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return total / float64(count), count
}

// TrendSeries returns one point per in-window entry, ordered by ascending
// timestamp. The slice is empty, not nil, when no entries fall inside the
// window.
func TrendSeries(entries []domain.Entry, now time.Time, window domain.TrendWindow) []Point {
	cutoff := now.AddDate(0, 0, -window.Days())
	points := make([]Point, 0, len(entries))
	for _, e := range entries {
		if !Known(e.UFMl) {
			continue
		}
		if e.Timestamp.Before(cutoff) {
			continue
		}
		points = append(points, Point{Timestamp: e.Timestamp, UFMl: e.UFMl})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}
