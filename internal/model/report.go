package model

import (
	"math"
	"time"
)

// RangeSelector is a symbolic report date range.
type RangeSelector string

const (
	RangeToday      RangeSelector = "today"
	RangeYesterday  RangeSelector = "yesterday"
	RangeLast7Days  RangeSelector = "last_7_days"
	RangeLast30Days RangeSelector = "last_30_days"
	RangeCustom     RangeSelector = "custom"
)

// IsValid checks if the selector is a known value.
func (r RangeSelector) IsValid() bool {
	switch r {
	case RangeToday, RangeYesterday, RangeLast7Days, RangeLast30Days, RangeCustom:
		return true
	}
	return false
}

// DateFormat is the wire format for report dates.
const DateFormat = "2006-01-02"

// SummaryMetrics holds aggregate performance numbers for a date range.
type SummaryMetrics struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`     // percent
	Revenue     float64 `json:"revenue"` // default currency
	ECPM        float64 `json:"ecpm"`    // revenue per 1000 impressions
}

// LocationRow is one per-geo row of a location breakdown report.
type LocationRow struct {
	Country     string  `json:"country"`
	Region      *string `json:"region,omitempty"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	Revenue     float64 `json:"revenue"`
	ECPM        float64 `json:"ecpm"`
}

// TimeseriesPoint is one per-day row of a timeseries report.
type TimeseriesPoint struct {
	Date        string  `json:"date"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	Revenue     float64 `json:"revenue"`
	ECPM        float64 `json:"ecpm"`
}

// CTR computes the click-through rate as a percentage, rounded to three
// decimal places. Zero impressions yields 0 rather than a division fault.
func CTR(impressions, clicks int64) float64 {
	if impressions == 0 {
		return 0
	}
	return Round3(float64(clicks) / float64(impressions) * 100)
}

// ECPM computes effective revenue per thousand impressions, rounded to
// three decimal places. Zero impressions yields 0.
func ECPM(impressions int64, revenue float64) float64 {
	if impressions == 0 {
		return 0
	}
	return Round3(revenue / float64(impressions) * 1000)
}

// Round2 rounds to two decimal places. Used for revenue.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds to three decimal places. Used for rates.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// NewSummaryMetrics builds SummaryMetrics with derived fields populated.
func NewSummaryMetrics(impressions, clicks int64, revenue float64) SummaryMetrics {
	return SummaryMetrics{
		Impressions: impressions,
		Clicks:      clicks,
		CTR:         CTR(impressions, clicks),
		Revenue:     Round2(revenue),
		ECPM:        ECPM(impressions, revenue),
	}
}

// NewLocationRow builds a LocationRow with derived fields populated.
func NewLocationRow(country string, region *string, impressions, clicks int64, revenue float64) LocationRow {
	return LocationRow{
		Country:     country,
		Region:      region,
		Impressions: impressions,
		Clicks:      clicks,
		CTR:         CTR(impressions, clicks),
		Revenue:     Round2(revenue),
		ECPM:        ECPM(impressions, revenue),
	}
}

// NewTimeseriesPoint builds a TimeseriesPoint with derived fields populated.
func NewTimeseriesPoint(day time.Time, impressions, clicks int64, revenue float64) TimeseriesPoint {
	return TimeseriesPoint{
		Date:        day.Format(DateFormat),
		Impressions: impressions,
		Clicks:      clicks,
		CTR:         CTR(impressions, clicks),
		Revenue:     Round2(revenue),
		ECPM:        ECPM(impressions, revenue),
	}
}
