package gam

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const reportServiceName = "ReportService"

// Report dimensions and columns used by the reporting sources.
const (
	DimensionDate        = "DATE"
	DimensionCountryName = "COUNTRY_NAME"

	ColumnImpressions = "AD_EXCHANGE_LINE_ITEM_LEVEL_IMPRESSIONS"
	ColumnClicks      = "AD_EXCHANGE_LINE_ITEM_LEVEL_CLICKS"
	ColumnRevenue     = "AD_EXCHANGE_LINE_ITEM_LEVEL_REVENUE"
)

// Report job statuses returned by getReportJobStatus.
const (
	reportStatusCompleted  = "COMPLETED"
	reportStatusInProgress = "IN_PROGRESS"
	reportStatusFailed     = "FAILED"
)

// statusPollDelays spaces out report job status polls. The last delay
// repeats until the deadline. A small jitter is applied to each.
var statusPollDelays = []time.Duration{
	time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

const pollJitterFactor = 0.2

// ReportQuery describes one report job: which dimensions and columns to
// fetch over an inclusive, fixed date range.
type ReportQuery struct {
	Dimensions []string
	Columns    []string
	StartDate  time.Time
	EndDate    time.Time
}

// ReportRow is one CSV row of a finished report, keyed by the bare
// dimension/column name (the "Dimension."/"Column." header prefixes are
// stripped).
type ReportRow map[string]string

// ReportService runs a GAM report job to completion and returns its
// rows. Scoped to a single network.
type ReportService interface {
	RunReport(ctx context.Context, q ReportQuery) ([]ReportRow, error)
}

type reportService struct {
	client *Client
}

// --- wire types ---

type runReportJobRequest struct {
	XMLName   xml.Name       `xml:"ns1:runReportJob"`
	ReportJob reportJobParam `xml:"ns1:reportJob"`
}

type reportJobParam struct {
	ReportQuery reportQueryXML `xml:"ns1:reportQuery"`
}

type reportQueryXML struct {
	Dimensions    []string `xml:"ns1:dimensions"`
	Columns       []string `xml:"ns1:columns"`
	StartDate     soapDate `xml:"ns1:startDate"`
	EndDate       soapDate `xml:"ns1:endDate"`
	DateRangeType string   `xml:"ns1:dateRangeType"`
}

type runReportJobResponse struct {
	XMLName xml.Name `xml:"runReportJobResponse"`
	Job     struct {
		ID int64 `xml:"id"`
	} `xml:"rval"`
}

type getReportJobStatusRequest struct {
	XMLName xml.Name `xml:"ns1:getReportJobStatus"`
	JobID   int64    `xml:"ns1:reportJobId"`
}

type getReportJobStatusResponse struct {
	XMLName xml.Name `xml:"getReportJobStatusResponse"`
	Status  string   `xml:"rval"`
}

type getReportDownloadURLRequest struct {
	XMLName xml.Name          `xml:"ns1:getReportDownloadUrlWithOptions"`
	JobID   int64             `xml:"ns1:reportJobId"`
	Options downloadOptionXML `xml:"ns1:reportDownloadOptions"`
}

type downloadOptionXML struct {
	ExportFormat       string `xml:"ns1:exportFormat"`
	UseGzipCompression bool   `xml:"ns1:useGzipCompression"`
}

type getReportDownloadURLResponse struct {
	XMLName xml.Name `xml:"getReportDownloadUrlWithOptionsResponse"`
	URL     string   `xml:"rval"`
}

// RunReport starts a report job, polls it to completion and downloads
// the result as parsed CSV rows. Blocks until the job finishes, fails,
// or ctx is done.
func (s *reportService) RunReport(ctx context.Context, q ReportQuery) ([]ReportRow, error) {
	req := runReportJobRequest{
		ReportJob: reportJobParam{
			ReportQuery: reportQueryXML{
				Dimensions:    q.Dimensions,
				Columns:       q.Columns,
				StartDate:     toSoapDate(q.StartDate),
				EndDate:       toSoapDate(q.EndDate),
				DateRangeType: "CUSTOM_DATE",
			},
		},
	}

	var runResp runReportJobResponse
	if err := s.client.call(ctx, reportServiceName, "runReportJob", req, &runResp); err != nil {
		return nil, err
	}
	jobID := runResp.Job.ID

	if err := s.awaitCompletion(ctx, jobID); err != nil {
		return nil, err
	}

	var urlResp getReportDownloadURLResponse
	urlReq := getReportDownloadURLRequest{
		JobID: jobID,
		Options: downloadOptionXML{
			ExportFormat:       "CSV_DUMP",
			UseGzipCompression: false,
		},
	}
	if err := s.client.call(ctx, reportServiceName, "getReportDownloadUrlWithOptions", urlReq, &urlResp); err != nil {
		return nil, err
	}

	return s.download(ctx, urlResp.URL)
}

// awaitCompletion polls the job status until COMPLETED or FAILED.
func (s *reportService) awaitCompletion(ctx context.Context, jobID int64) error {
	for attempt := 0; ; attempt++ {
		var statusResp getReportJobStatusResponse
		req := getReportJobStatusRequest{JobID: jobID}
		if err := s.client.call(ctx, reportServiceName, "getReportJobStatus", req, &statusResp); err != nil {
			return err
		}

		switch statusResp.Status {
		case reportStatusCompleted:
			return nil
		case reportStatusFailed:
			return &Fault{Code: "ReportError", Message: fmt.Sprintf("report job %d failed", jobID)}
		case reportStatusInProgress, "":
			// keep polling
		default:
			return &Fault{Code: "ReportError", Message: fmt.Sprintf("report job %d: unexpected status %q", jobID, statusResp.Status)}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollDelay(attempt)):
		}
	}
}

// pollDelay returns the wait before the next status poll, with jitter.
func pollDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(statusPollDelays) {
		attempt = len(statusPollDelays) - 1
	}
	base := statusPollDelays[attempt]
	jitter := (rand.Float64()*2 - 1) * pollJitterFactor * float64(base)
	return time.Duration(float64(base) + jitter)
}

// download fetches the finished report CSV and parses it into rows.
func (s *reportService) download(ctx context.Context, url string) ([]ReportRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("gam: build download request: %w", err)
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gam: download report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gam: download report: http status %d", resp.StatusCode)
	}

	return ParseReportCSV(resp.Body)
}

// ParseReportCSV parses a CSV_DUMP report body. The header row names
// fields as "Dimension.X" or "Column.Y"; keys are stripped to X / Y.
func ParseReportCSV(r io.Reader) ([]ReportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gam: read report header: %w", err)
	}

	keys := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		h = strings.TrimPrefix(h, "Dimension.")
		h = strings.TrimPrefix(h, "Column.")
		keys[i] = h
	}

	var rows []ReportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gam: read report row: %w", err)
		}

		row := make(ReportRow, len(record))
		for i, v := range record {
			if i < len(keys) {
				row[keys[i]] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
