package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gamaccess/gamaccess/internal/handler/dto"
	"github.com/gamaccess/gamaccess/internal/middleware"
	"github.com/gamaccess/gamaccess/internal/model"
	"github.com/gamaccess/gamaccess/internal/service"
)

// ReportHandler serves the three report endpoints.
type ReportHandler struct {
	logger  *slog.Logger
	reports *service.Reports
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(logger *slog.Logger, reports *service.Reports) *ReportHandler {
	return &ReportHandler{
		logger:  logger,
		reports: reports,
	}
}

// Summary handles GET /api/v1/reports/summary.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r, model.RangeToday)
	if !ok {
		return
	}

	rng, totals, err := h.reports.Summary(r.Context(), req)
	if err != nil {
		h.writeReportError(w, r, "summary", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryResponse{
		ReportMeta: dto.ToReportMeta(req.Range, rng, req.NetworkCode),
		Totals:     totals,
	})
}

// Locations handles GET /api/v1/reports/locations.
func (h *ReportHandler) Locations(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r, model.RangeToday)
	if !ok {
		return
	}

	rng, rows, err := h.reports.Locations(r.Context(), req)
	if err != nil {
		h.writeReportError(w, r, "locations", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LocationsResponse{
		ReportMeta: dto.ToReportMeta(req.Range, rng, req.NetworkCode),
		Locations:  rows,
	})
}

// Timeseries handles GET /api/v1/reports/timeseries. The default
// range is last_7_days rather than today.
func (h *ReportHandler) Timeseries(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r, model.RangeLast7Days)
	if !ok {
		return
	}

	rng, points, err := h.reports.Timeseries(r.Context(), req)
	if err != nil {
		h.writeReportError(w, r, "timeseries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TimeseriesResponse{
		ReportMeta: dto.ToReportMeta(req.Range, rng, req.NetworkCode),
		Points:     points,
	})
}

// parseRequest reads range, start_date, end_date, and network_code
// query parameters. On failure it writes the error response and
// returns ok=false.
func (h *ReportHandler) parseRequest(w http.ResponseWriter, r *http.Request, defaultRange model.RangeSelector) (service.ReportRequest, bool) {
	q := r.URL.Query()

	sel := defaultRange
	if raw := q.Get("range"); raw != "" {
		sel = model.RangeSelector(raw)
		if !sel.IsValid() {
			writeError(w, http.StatusBadRequest, "INVALID_RANGE", "Unknown range selector: "+raw)
			return service.ReportRequest{}, false
		}
	}

	req := service.ReportRequest{Range: sel}

	var ok bool
	if req.StartDate, ok = parseDateParam(w, q.Get("start_date"), "start_date"); !ok {
		return service.ReportRequest{}, false
	}
	if req.EndDate, ok = parseDateParam(w, q.Get("end_date"), "end_date"); !ok {
		return service.ReportRequest{}, false
	}

	if code := q.Get("network_code"); code != "" {
		if err := middleware.ValidateNetworkCode(code); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_NETWORK", err.Error())
			return service.ReportRequest{}, false
		}
		req.NetworkCode = code
	}

	return req, true
}

func parseDateParam(w http.ResponseWriter, raw, name string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(model.DateFormat, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", "Invalid "+name+": expected YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

func (h *ReportHandler) writeReportError(w http.ResponseWriter, r *http.Request, kind string, err error) {
	if errors.Is(err, service.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", err.Error())
		return
	}

	h.logger.Error("report fetch failed",
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusBadGateway, "REMOTE_FAULT", "Failed to fetch report data")
}
