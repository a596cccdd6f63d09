package healthcheck

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	reportSheet  = "Report"
	resultsSheet = "Results"
)

// ExportReport renders a campaign report and its result summaries as an
// XLSX workbook with one sheet each.
func ExportReport(rep *Report, results []*ResultSummary) (*bytes.Buffer, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), reportSheet); err != nil {
		return nil, fmt.Errorf("name report sheet: %w", err)
	}
	metrics := [][]any{
		{"Metric", "Value"},
		{"Campaign ID", rep.CampaignID},
		{"Campaign name", rep.CampaignName},
		{"Total employees", rep.TotalEmployees},
		{"Checked", rep.CheckedCount},
		{"Pending", rep.PendingCount},
		{"Type_1", rep.Type1Count},
		{"Type_2", rep.Type2Count},
		{"Type_3", rep.Type3Count},
		{"Type_4", rep.Type4Count},
		{"Completion rate", rep.CompletionRate},
	}
	for i, row := range metrics {
		if err := setRow(xl, reportSheet, i+1, row); err != nil {
			return nil, err
		}
	}

	if _, err := xl.NewSheet(resultsSheet); err != nil {
		return nil, fmt.Errorf("create results sheet: %w", err)
	}
	header := []any{"employee_id", "employee_name", "check_date", "health_status", "restrictions", "doctor_conclusion"}
	if err := setRow(xl, resultsSheet, 1, header); err != nil {
		return nil, err
	}
	for i, r := range results {
		row := []any{
			r.EmployeeID,
			r.EmployeeName,
			r.CheckDate.UTC().Format(time.DateOnly),
			string(r.HealthStatus),
			strings.Join(r.Restrictions, "; "),
			r.DoctorConclusion,
		}
		if err := setRow(xl, resultsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func setRow(xl *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := xl.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// ExportFilename is the attachment name for a campaign's report export.
func ExportFilename(campaignID string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "\"", "_", " ", "_").Replace(campaignID)
	return fmt.Sprintf("health_check_report_%s.xlsx", safe)
}
