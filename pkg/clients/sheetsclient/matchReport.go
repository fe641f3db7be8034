package sheetsclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/sheets/v4"
)

// MatchReportRow is one active match in the report
type MatchReportRow struct {
	MatchID            string
	RequesterName      string
	VolunteerName      string
	StartDate          time.Time
	CompatibilityScore int
	InitiatedBy        string
}

// StatusCount is the number of requests in one status
type StatusCount struct {
	Status string
	Count  int
}

// MatchReport is the roster of active matches plus request counts per status
type MatchReport struct {
	GeneratedAt  time.Time
	Rows         []MatchReportRow
	StatusCounts []StatusCount
}

// PublishMatchReport replaces the contents of tab with the report, creating the tab if needed
func (c *Client) PublishMatchReport(ctx context.Context, spreadsheetID, tab string, report *MatchReport) error {
	exists, err := c.hasSheet(ctx, spreadsheetID, tab)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := c.CreateSheet(ctx, spreadsheetID, tab); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	} else {
		_, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, tab, &sheets.ClearValuesRequest{}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to clear tab: %w", err)
		}
	}

	valueRange := &sheets.ValueRange{Values: ReportValues(report)}
	_, err = c.service.Spreadsheets.Values.Update(spreadsheetID, fmt.Sprintf("%s!A1", tab), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write match report: %w", err)
	}

	return nil
}

// ReportValues lays the report out as sheet rows: a generated-at line, the match table,
// a blank row, then the status counts
func ReportValues(report *MatchReport) [][]interface{} {
	values := [][]interface{}{
		{"Generated", report.GeneratedAt.Format(time.RFC3339)},
		{},
		{"Match ID", "Requester", "Volunteer", "Start date", "Compatibility", "Initiated by"},
	}

	for _, row := range report.Rows {
		values = append(values, []interface{}{
			row.MatchID,
			row.RequesterName,
			row.VolunteerName,
			row.StartDate.Format("2006-01-02"),
			row.CompatibilityScore,
			row.InitiatedBy,
		})
	}

	values = append(values, []interface{}{}, []interface{}{"Request status", "Count"})
	for _, sc := range report.StatusCounts {
		values = append(values, []interface{}{sc.Status, sc.Count})
	}

	return values
}
