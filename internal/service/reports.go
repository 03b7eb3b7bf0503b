package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamaccess/gamaccess/internal/metrics"
	"github.com/gamaccess/gamaccess/internal/model"
	"github.com/gamaccess/gamaccess/internal/reporting"
)

// ReportRequest is one report invocation: a symbolic range, optional
// explicit bounds for the custom selector, and an optional network
// scope.
type ReportRequest struct {
	Range       model.RangeSelector
	StartDate   *time.Time
	EndDate     *time.Time
	NetworkCode string
}

// ResolvedRange is the concrete inclusive date pair a request resolved to.
type ResolvedRange struct {
	Start time.Time
	End   time.Time
}

// Reports resolves date ranges and serves report data from the
// configured source.
type Reports struct {
	source  reporting.Source
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewReports creates a Reports service. now is injectable for tests;
// nil means time.Now.
func NewReports(source reporting.Source, logger *slog.Logger, recorder metrics.Recorder, now func() time.Time) *Reports {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if now == nil {
		now = time.Now
	}
	return &Reports{
		source:  source,
		logger:  logger.With("component", "service.reports"),
		metrics: recorder,
		now:     now,
	}
}

// ResolveRange translates a symbolic selector into concrete inclusive
// bounds. Pure: depends only on the injected clock and the inputs.
// Custom ranges require both bounds and start <= end; anything else is
// ErrInvalidRange.
func (r *Reports) ResolveRange(sel model.RangeSelector, start, end *time.Time) (ResolvedRange, error) {
	today := dateOnly(r.now())

	switch sel {
	case model.RangeToday:
		return ResolvedRange{Start: today, End: today}, nil
	case model.RangeYesterday:
		y := today.AddDate(0, 0, -1)
		return ResolvedRange{Start: y, End: y}, nil
	case model.RangeLast7Days:
		return ResolvedRange{Start: today.AddDate(0, 0, -6), End: today}, nil
	case model.RangeLast30Days:
		return ResolvedRange{Start: today.AddDate(0, 0, -29), End: today}, nil
	case model.RangeCustom:
		if start == nil || end == nil {
			return ResolvedRange{}, fmt.Errorf("%w: custom range requires start_date and end_date", ErrInvalidRange)
		}
		s, e := dateOnly(*start), dateOnly(*end)
		if s.After(e) {
			return ResolvedRange{}, fmt.Errorf("%w: start_date is after end_date", ErrInvalidRange)
		}
		return ResolvedRange{Start: s, End: e}, nil
	default:
		return ResolvedRange{}, fmt.Errorf("%w: unknown selector %q", ErrInvalidRange, sel)
	}
}

// Summary resolves the range and fetches aggregate metrics.
func (r *Reports) Summary(ctx context.Context, req ReportRequest) (ResolvedRange, model.SummaryMetrics, error) {
	rng, err := r.ResolveRange(req.Range, req.StartDate, req.EndDate)
	if err != nil {
		return ResolvedRange{}, model.SummaryMetrics{}, err
	}

	metrics, err := r.source.Summary(ctx, r.query(rng, req))
	if err != nil {
		return ResolvedRange{}, model.SummaryMetrics{}, fmt.Errorf("fetch summary: %w", err)
	}
	r.metrics.IncReportServed("summary")
	return rng, metrics, nil
}

// Locations resolves the range and fetches the per-geo breakdown.
func (r *Reports) Locations(ctx context.Context, req ReportRequest) (ResolvedRange, []model.LocationRow, error) {
	rng, err := r.ResolveRange(req.Range, req.StartDate, req.EndDate)
	if err != nil {
		return ResolvedRange{}, nil, err
	}

	rows, err := r.source.Locations(ctx, r.query(rng, req))
	if err != nil {
		return ResolvedRange{}, nil, fmt.Errorf("fetch locations: %w", err)
	}
	r.metrics.IncReportServed("locations")
	return rng, rows, nil
}

// Timeseries resolves the range and fetches the per-day series.
func (r *Reports) Timeseries(ctx context.Context, req ReportRequest) (ResolvedRange, []model.TimeseriesPoint, error) {
	rng, err := r.ResolveRange(req.Range, req.StartDate, req.EndDate)
	if err != nil {
		return ResolvedRange{}, nil, err
	}

	points, err := r.source.Timeseries(ctx, r.query(rng, req))
	if err != nil {
		return ResolvedRange{}, nil, fmt.Errorf("fetch timeseries: %w", err)
	}
	r.metrics.IncReportServed("timeseries")
	return rng, points, nil
}

func (r *Reports) query(rng ResolvedRange, req ReportRequest) reporting.Query {
	return reporting.Query{
		Start:       rng.Start,
		End:         rng.End,
		NetworkCode: req.NetworkCode,
	}
}

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
