package reporting

import (
	"context"
	"time"

	"github.com/gamaccess/gamaccess/internal/model"
)

// staticCountries are the geo rows the static source splits traffic
// across, as fractions of the daily totals.
var staticCountries = []struct {
	country string
	share   float64
}{
	{"US", 0.4},
	{"PK", 0.3},
	{"DE", 0.2},
	{"BR", 0.1},
}

// StaticSource produces deterministic synthetic report data. It backs
// local development and tests; numbers depend only on the query dates,
// so repeated calls with the same range agree.
type StaticSource struct{}

// NewStatic returns a StaticSource.
func NewStatic() *StaticSource {
	return &StaticSource{}
}

// dayVolume derives stable per-day traffic from the calendar date.
func dayVolume(day time.Time) (impressions, clicks int64, revenue float64) {
	seed := int64(day.YearDay())
	impressions = 40_000 + seed*137
	clicks = impressions / 80
	revenue = float64(impressions) * 0.003
	return impressions, clicks, revenue
}

// Summary aggregates the per-day volumes across the range.
func (s *StaticSource) Summary(ctx context.Context, q Query) (model.SummaryMetrics, error) {
	var impressions, clicks int64
	var revenue float64

	for day := q.Start; !day.After(q.End); day = day.AddDate(0, 0, 1) {
		i, c, r := dayVolume(day)
		impressions += i
		clicks += c
		revenue += r
	}

	return model.NewSummaryMetrics(impressions, clicks, revenue), nil
}

// Locations splits the range totals across a fixed set of countries.
func (s *StaticSource) Locations(ctx context.Context, q Query) ([]model.LocationRow, error) {
	summary, err := s.Summary(ctx, q)
	if err != nil {
		return nil, err
	}

	rows := make([]model.LocationRow, 0, len(staticCountries))
	for _, c := range staticCountries {
		rows = append(rows, model.NewLocationRow(
			c.country,
			nil,
			int64(float64(summary.Impressions)*c.share),
			int64(float64(summary.Clicks)*c.share),
			summary.Revenue*c.share,
		))
	}
	return rows, nil
}

// Timeseries returns one point per day in the range.
func (s *StaticSource) Timeseries(ctx context.Context, q Query) ([]model.TimeseriesPoint, error) {
	var points []model.TimeseriesPoint
	for day := q.Start; !day.After(q.End); day = day.AddDate(0, 0, 1) {
		i, c, r := dayVolume(day)
		points = append(points, model.NewTimeseriesPoint(day, i, c, r))
	}
	return points, nil
}
