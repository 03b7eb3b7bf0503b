package reporting

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/gamaccess/gamaccess/internal/gam"
	"github.com/gamaccess/gamaccess/internal/model"
)

// RunnerFactory yields a report runner scoped to a network code.
type RunnerFactory func(networkCode string) gam.ReportService

// GAMSource fetches report data from the GAM ReportService.
type GAMSource struct {
	runnerFor      RunnerFactory
	defaultNetwork string
}

// NewGAM builds a GAMSource. Queries without a network code run against
// defaultNetwork.
func NewGAM(factory RunnerFactory, defaultNetwork string) *GAMSource {
	return &GAMSource{runnerFor: factory, defaultNetwork: defaultNetwork}
}

func (s *GAMSource) runner(q Query) (gam.ReportService, error) {
	code := q.NetworkCode
	if code == "" {
		code = s.defaultNetwork
	}
	if code == "" {
		return nil, fmt.Errorf("reporting: no network code in query and no default configured")
	}
	return s.runnerFor(code), nil
}

func (s *GAMSource) run(ctx context.Context, q Query, dimensions []string) ([]gam.ReportRow, error) {
	runner, err := s.runner(q)
	if err != nil {
		return nil, err
	}
	return runner.RunReport(ctx, gam.ReportQuery{
		Dimensions: dimensions,
		Columns:    []string{gam.ColumnImpressions, gam.ColumnClicks, gam.ColumnRevenue},
		StartDate:  q.Start,
		EndDate:    q.End,
	})
}

// Summary runs a daily report and aggregates it into range totals.
func (s *GAMSource) Summary(ctx context.Context, q Query) (model.SummaryMetrics, error) {
	rows, err := s.run(ctx, q, []string{gam.DimensionDate})
	if err != nil {
		return model.SummaryMetrics{}, err
	}

	var impressions, clicks int64
	var revenue float64
	for _, row := range rows {
		i, c, r := rowMetrics(row)
		impressions += i
		clicks += c
		revenue += r
	}
	return model.NewSummaryMetrics(impressions, clicks, revenue), nil
}

// Locations runs a country-level report, one row per country, ordered
// by impressions descending.
func (s *GAMSource) Locations(ctx context.Context, q Query) ([]model.LocationRow, error) {
	rows, err := s.run(ctx, q, []string{gam.DimensionCountryName})
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*model.LocationRow)
	for _, row := range rows {
		country := row[gam.DimensionCountryName]
		if country == "" {
			continue
		}
		i, c, r := rowMetrics(row)

		agg, ok := totals[country]
		if !ok {
			agg = &model.LocationRow{Country: country}
			totals[country] = agg
		}
		agg.Impressions += i
		agg.Clicks += c
		agg.Revenue += r
	}

	out := make([]model.LocationRow, 0, len(totals))
	for _, agg := range totals {
		out = append(out, model.NewLocationRow(agg.Country, nil, agg.Impressions, agg.Clicks, agg.Revenue))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Impressions != out[j].Impressions {
			return out[i].Impressions > out[j].Impressions
		}
		return out[i].Country < out[j].Country
	})
	return out, nil
}

// Timeseries runs a daily report and returns one point per reported
// day, in date order. Days the report omits are absent, not zero-filled.
func (s *GAMSource) Timeseries(ctx context.Context, q Query) ([]model.TimeseriesPoint, error) {
	rows, err := s.run(ctx, q, []string{gam.DimensionDate})
	if err != nil {
		return nil, err
	}

	var points []model.TimeseriesPoint
	for _, row := range rows {
		date := row[gam.DimensionDate]
		if date == "" {
			continue
		}
		i, c, r := rowMetrics(row)
		points = append(points, model.TimeseriesPoint{
			Date:        date,
			Impressions: i,
			Clicks:      c,
			CTR:         model.CTR(i, c),
			Revenue:     model.Round2(r),
			ECPM:        model.ECPM(i, r),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// rowMetrics reads the three metric columns out of a report row.
// Malformed values count as zero; GAM emits clean numbers in CSV_DUMP.
func rowMetrics(row gam.ReportRow) (impressions, clicks int64, revenue float64) {
	impressions, _ = strconv.ParseInt(row[gam.ColumnImpressions], 10, 64)
	clicks, _ = strconv.ParseInt(row[gam.ColumnClicks], 10, 64)
	revenue, _ = strconv.ParseFloat(row[gam.ColumnRevenue], 64)
	return impressions, clicks, revenue
}
