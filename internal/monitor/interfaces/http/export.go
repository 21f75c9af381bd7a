package monitorhttp

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"cyclewatch/internal/monitor/application"
	"cyclewatch/internal/observability/metrics"
)

// ExportHandler serves cycle history exports in CSV, XLSX, and PDF form.
type ExportHandler struct {
	cycles SummaryLister
	format string
}

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// NewExportHandler constructs an export handler for one format.
func NewExportHandler(cycles SummaryLister, format string) *ExportHandler {
	return &ExportHandler{cycles: cycles, format: format}
}

// ServeHTTP handles GET /api/v1/exports/cycles.{csv,xlsx} and report.pdf.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.cycles == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	entity := r.URL.Query().Get("entity")
	if entity == "" {
		http.Error(w, "entity is required", http.StatusBadRequest)
		return
	}
	now := time.Now().UTC()
	from, err := parseTimeQuery(r, "from", now.Add(-7*24*time.Hour))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to", now)
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	summaries, err := h.cycles.ListSummaries(r.Context(), entity, from, to)
	if err != nil {
		metrics.IncExport(h.format, metrics.ResultError)
		http.Error(w, "query cycles error", http.StatusInternalServerError)
		return
	}

	var content []byte
	var contentType, filename string
	switch h.format {
	case FormatXLSX:
		content, err = buildCyclesXLSX(summaries)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "cycles.xlsx"
	case FormatPDF:
		content, err = buildCyclesPDF(entity, from, to, summaries)
		contentType = "application/pdf"
		filename = "report.pdf"
	default:
		content, err = buildCyclesCSV(summaries)
		contentType = "text/csv"
		filename = "cycles.csv"
	}
	if err != nil {
		metrics.IncExport(h.format, metrics.ResultError)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	metrics.IncExport(h.format, metrics.ResultSuccess)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(content)
}

func buildCyclesCSV(summaries []application.CycleSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{
		"entity", "phase", "duration_minutes", "ended_at",
		"mean_active_minutes", "median_active_minutes",
		"mean_inactive_minutes", "median_inactive_minutes",
		"alert_state", "alert_kind",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		row := []string{
			summary.Entity,
			string(summary.Phase),
			formatMinutes(summary.DurationMinutes),
			summary.EndedAt.Format(time.RFC3339),
			formatMinutes(summary.Baseline.MeanActive),
			formatMinutes(summary.Baseline.MedianActive),
			formatMinutes(summary.Baseline.MeanInactive),
			formatMinutes(summary.Baseline.MedianInactive),
			summary.AlertState,
			string(summary.AlertKind),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildCyclesXLSX(summaries []application.CycleSummary) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "cycles"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Entity", "Phase", "Duration (min)", "Ended At",
		"Mean Active", "Median Active", "Mean Inactive", "Median Inactive",
		"Alert State", "Alert Kind",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}
	for rowIdx, summary := range summaries {
		values := []any{
			summary.Entity,
			string(summary.Phase),
			summary.DurationMinutes,
			summary.EndedAt.Format(time.RFC3339),
			summary.Baseline.MeanActive,
			summary.Baseline.MedianActive,
			summary.Baseline.MeanInactive,
			summary.Baseline.MedianInactive,
			summary.AlertState,
			string(summary.AlertKind),
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildCyclesPDF(entity string, from, to time.Time, summaries []application.CycleSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Device Cycle Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Entity: %s", entity))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s - %s", from.Format("2006-01-02 15:04"), to.Format("2006-01-02 15:04")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Cycles: %d", len(summaries)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(38, 6, "Ended At", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Phase", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Duration (m)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Median Act.", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Median Inact.", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Alert", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, summary := range summaries {
		alert := summary.AlertState
		if summary.AlertKind != "" && summary.AlertKind != "none" {
			alert = alert + " " + string(summary.AlertKind)
		}
		pdf.CellFormat(38, 6, summary.EndedAt.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, string(summary.Phase), "1", 0, "C", false, 0, "")
		pdf.CellFormat(28, 6, fmt.Sprintf("%.1f", summary.DurationMinutes), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, fmt.Sprintf("%.1f", summary.Baseline.MedianActive), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, fmt.Sprintf("%.1f", summary.Baseline.MedianInactive), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, alert, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatMinutes(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
