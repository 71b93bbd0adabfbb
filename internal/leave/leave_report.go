package leave

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

var reportColumns = []struct {
	title string
	width float64
}{
	{"Start", 28},
	{"End", 28},
	{"Days", 16},
	{"Status", 26},
	{"Submitted", 36},
	{"Reason", 56},
}

// buildLeaveReportPDF renders an employee's balance and request history on A4.
func buildLeaveReportPDF(h HistoryResponse, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Leave report "+h.Name, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Leave Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Employee: %s <%s>", h.Name, h.Email)))
	pdf.Ln(6)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Department: %s", h.Department)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Current balance: %d days", h.LeaveBalance))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Generated: %s", generatedAt.UTC().Format(time.RFC1123)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range reportColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	if len(h.Requests) == 0 {
		pdf.CellFormat(0, 7, "No leave requests", "1", 1, "C", false, 0, "")
	}
	for _, r := range h.Requests {
		submitted := r.CreatedAt
		if len(submitted) >= len(dateLayout) {
			submitted = submitted[:len(dateLayout)]
		}
		row := []string{r.StartDate, r.EndDate, fmt.Sprintf("%d", r.TotalDays), r.Status, submitted, tr(truncate(r.Reason, 32))}
		for i, col := range reportColumns {
			pdf.CellFormat(col.width, 6, row[i], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render leave report: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
