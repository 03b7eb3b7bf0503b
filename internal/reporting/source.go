// Package reporting provides the pluggable data source behind the
// report endpoints. The HTTP layer and service code depend only on
// Source; swapping the GAM-backed implementation for the deterministic
// one is a config change.
package reporting

import (
	"context"
	"time"

	"github.com/gamaccess/gamaccess/internal/model"
)

// Query identifies one report request: an inclusive date range and an
// optional network scope.
type Query struct {
	Start       time.Time
	End         time.Time
	NetworkCode string
}

// Days returns the number of inclusive days in the query range.
func (q Query) Days() int {
	return int(q.End.Sub(q.Start).Hours()/24) + 1
}

// Source produces the three report shapes for a query.
type Source interface {
	Summary(ctx context.Context, q Query) (model.SummaryMetrics, error)
	Locations(ctx context.Context, q Query) ([]model.LocationRow, error)
	Timeseries(ctx context.Context, q Query) ([]model.TimeseriesPoint, error)
}
