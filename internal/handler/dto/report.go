package dto

import (
	"github.com/gamaccess/gamaccess/internal/model"
	"github.com/gamaccess/gamaccess/internal/service"
)

// ReportMeta echoes the resolved query back to the caller.
type ReportMeta struct {
	Range       string `json:"range"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	NetworkCode string `json:"network_code,omitempty"`
}

// SummaryResponse is the body for GET /api/v1/reports/summary.
type SummaryResponse struct {
	ReportMeta
	Totals model.SummaryMetrics `json:"totals"`
}

// LocationsResponse is the body for GET /api/v1/reports/locations.
type LocationsResponse struct {
	ReportMeta
	Locations []model.LocationRow `json:"locations"`
}

// TimeseriesResponse is the body for GET /api/v1/reports/timeseries.
type TimeseriesResponse struct {
	ReportMeta
	Points []model.TimeseriesPoint `json:"points"`
}

// ToReportMeta builds the echo block from the resolved range.
func ToReportMeta(sel model.RangeSelector, rng service.ResolvedRange, networkCode string) ReportMeta {
	return ReportMeta{
		Range:       string(sel),
		StartDate:   rng.Start.Format(model.DateFormat),
		EndDate:     rng.End.Format(model.DateFormat),
		NetworkCode: networkCode,
	}
}
