package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"careassist/pkg/domain"
	"careassist/pkg/store"
	"careassist/pkg/uf"
)

// ExchangeInput carries the raw fields of one PD exchange submission.
// Fill volume and UF are derived here, never supplied by the client.
type ExchangeInput struct {
	Timestamp         *time.Time
	DialysateStrength domain.DialysateStrength
	BagVolumeMl       float64
	LeftoverMl        float64
	DrainVolumeMl     float64
	WeightKg          *float64
	Notes             string
	Symptoms          map[string]bool
	ImageURL          string
}

// RecordExchange validates the submission, derives fill volume and UF, and
// persists the entry. Store failures block the action and surface to the
// caller.
func (a *App) RecordExchange(patientID string, in ExchangeInput) (domain.Entry, error) {
	if err := validateExchange(in); err != nil {
		return domain.Entry{}, err
	}
	ts := a.now()
	if in.Timestamp != nil {
		ts = *in.Timestamp
	}
	fill, ufMl := uf.Derive(in.BagVolumeMl, in.LeftoverMl, in.DrainVolumeMl)
	entry := domain.Entry{
		PatientID:         patientID,
		Timestamp:         ts,
		DialysateStrength: in.DialysateStrength,
		BagVolumeMl:       in.BagVolumeMl,
		LeftoverMl:        in.LeftoverMl,
		DrainVolumeMl:     in.DrainVolumeMl,
		FillVolumeMl:      fill,
		UFMl:              ufMl,
		WeightKg:          in.WeightKg,
		Notes:             strings.TrimSpace(in.Notes),
		Symptoms:          in.Symptoms,
		ImageURL:          strings.TrimSpace(in.ImageURL),
		CreatedAt:         a.now().UTC(),
	}
	stored, err := a.store.InsertEntry(entry)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("save exchange: %w", err)
	}
	return stored, nil
}

func validateExchange(in ExchangeInput) error {
	if !in.DialysateStrength.Valid() {
		return invalidField("dialysateStrength", "must be one of 1.5%, 2.5%, 4.25%")
	}
	if math.IsNaN(in.BagVolumeMl) || in.BagVolumeMl <= 0 {
		return invalidField("bagVolumeMl", "must be a positive volume")
	}
	if math.IsNaN(in.LeftoverMl) || in.LeftoverMl < 0 {
		return invalidField("leftoverMl", "must be zero or more")
	}
	if in.LeftoverMl > in.BagVolumeMl {
		return invalidField("leftoverMl", "cannot exceed the bag volume")
	}
	if math.IsNaN(in.DrainVolumeMl) || in.DrainVolumeMl < 0 {
		return invalidField("drainVolumeMl", "must be zero or more")
	}
	if in.WeightKg != nil && (math.IsNaN(*in.WeightKg) || *in.WeightKg <= 0) {
		return invalidField("weightKg", "must be a positive weight")
	}
	return nil
}

// UploadDrainImage stores a drain-appearance image under a generated key
// and returns its resolvable URL.
func (a *App) UploadDrainImage(ctx context.Context, patientID, filename, contentType string, r io.Reader, size int64) (string, error) {
	if a.images == nil {
		return "", fmt.Errorf("image storage not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", invalidField("image", "only image uploads are accepted")
	}
	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("%s/%s%s", patientID, uuid.NewString(), ext)
	url, err := a.images.Put(ctx, key, r, size, contentType)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

// DaySummary is the dashboard's view of one civil day.
type DaySummary struct {
	Date      string         `json:"date"`
	TotalUFMl float64        `json:"totalUfMl"`
	Count     int            `json:"count"`
	Entries   []domain.Entry `json:"entries"`
}

// TodaySummary sums UF over the current civil day and lists its exchanges
// in chronological order. A day with no entries yields total 0 with count
// 0, which callers must render as "no sessions yet", not as a measured
// zero.
func (a *App) TodaySummary(patientID string) (DaySummary, error) {
	now := a.now().In(a.location)
	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, a.location)
	to := time.Date(y, m, d, 23, 59, 59, 0, a.location)
	entries, err := a.store.ListEntries(patientID, store.EntryQuery{From: &from, To: &to})
	if err != nil {
		return DaySummary{}, fmt.Errorf("list today's exchanges: %w", err)
	}
	total, count := uf.DailyTotal(entries, now, a.location)
	return DaySummary{
		Date:      from.Format("2006-01-02"),
		TotalUFMl: total,
		Count:     count,
		Entries:   entries,
	}, nil
}

// Average is a rolling mean over a trailing window of days.
type Average struct {
	Days        int     `json:"days"`
	AverageUFMl float64 `json:"averageUfMl"`
	Count       int     `json:"count"`
}

// WindowAverage computes the mean UF over the trailing N days. The zero
// average of an empty window is distinguishable only through Count.
func (a *App) WindowAverage(patientID string, days int) (Average, error) {
	if days <= 0 {
		days = 7
	}
	now := a.now()
	from := now.AddDate(0, 0, -days)
	entries, err := a.store.ListEntries(patientID, store.EntryQuery{From: &from})
	if err != nil {
		return Average{}, fmt.Errorf("list window exchanges: %w", err)
	}
	avg, count := uf.RollingAverage(entries, now, days)
	return Average{Days: days, AverageUFMl: avg, Count: count}, nil
}

// TrendResult is the raw per-entry series for a trend window.
type TrendResult struct {
	Window domain.TrendWindow `json:"window"`
	Points []uf.Point         `json:"points"`
	Count  int                `json:"count"`
}

// Trend returns one point per entry in the window, ascending by time. An
// empty Points slice with Count 0 is the "no data" state.
func (a *App) Trend(patientID string, window domain.TrendWindow) (TrendResult, error) {
	if !window.Valid() {
		return TrendResult{}, invalidField("window", "must be last7Days or last30Days")
	}
	now := a.now()
	from := now.AddDate(0, 0, -window.Days())
	entries, err := a.store.ListEntries(patientID, store.EntryQuery{From: &from})
	if err != nil {
		return TrendResult{}, fmt.Errorf("list trend exchanges: %w", err)
	}
	points := uf.TrendSeries(entries, now, window)
	return TrendResult{Window: window, Points: points, Count: len(points)}, nil
}

// DashboardSummary bundles the dashboard's three aggregates.
type DashboardSummary struct {
	Today         DaySummary  `json:"today"`
	WeeklyAverage Average     `json:"weeklyAverage"`
	Trend         TrendResult `json:"trend"`
}

// Dashboard runs the three read-only aggregation queries concurrently;
// they share no mutable state.
func (a *App) Dashboard(ctx context.Context, patientID string) (DashboardSummary, error) {
	var out DashboardSummary
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Today, err = a.TodaySummary(patientID)
		return err
	})
	g.Go(func() error {
		var err error
		out.WeeklyAverage, err = a.WindowAverage(patientID, 7)
		return err
	})
	g.Go(func() error {
		var err error
		out.Trend, err = a.Trend(patientID, domain.WindowLast7Days)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, err
	}
	return out, nil
}
