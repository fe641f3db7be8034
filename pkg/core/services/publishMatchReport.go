package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/clients/sheetsclient"
	"github.com/jakechorley/support-match/pkg/core/matching"
	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

// ReportPublisher writes a match report to a spreadsheet tab
type ReportPublisher interface {
	PublishMatchReport(ctx context.Context, spreadsheetID, tab string, report *sheetsclient.MatchReport) error
}

// BuildMatchReport collects the active matches, oldest first, and the number of requests in each status
func BuildMatchReport(ctx context.Context, store db.Database, logger *zap.Logger, now time.Time) (*sheetsclient.MatchReport, error) {
	matches, err := store.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	requests, err := store.ListRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	requesters, err := store.ListRequesters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requesters: %w", err)
	}
	volunteers, err := store.ListVolunteers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list volunteers: %w", err)
	}

	requesterByID := make(map[string]*model.RequesterProfile, len(requesters))
	for i := range requesters {
		requesterByID[requesters[i].ID] = &requesters[i]
	}
	volunteerByID := make(map[string]*model.VolunteerProfile, len(volunteers))
	for i := range volunteers {
		volunteerByID[volunteers[i].ID] = &volunteers[i]
	}
	requestByID := make(map[string]*model.Request, len(requests))
	for i := range requests {
		requestByID[requests[i].ID] = &requests[i]
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].StartDate.Before(matches[j].StartDate)
	})

	report := &sheetsclient.MatchReport{GeneratedAt: now}
	for _, match := range matches {
		requester := requesterByID[match.RequesterID]
		volunteer := volunteerByID[match.VolunteerID]
		if requester == nil || volunteer == nil {
			logger.Warn("Skipping match with missing profile",
				zap.String("match_id", match.ID),
				zap.Bool("requester_found", requester != nil),
				zap.Bool("volunteer_found", volunteer != nil))
			continue
		}

		row := sheetsclient.MatchReportRow{
			MatchID:            match.ID,
			RequesterName:      requester.FullName,
			VolunteerName:      volunteer.FullName,
			StartDate:          match.StartDate,
			CompatibilityScore: matching.Score(requester, volunteer),
		}
		if request := requestByID[match.RequestID]; request != nil {
			row.InitiatedBy = string(request.InitiatedBy)
		}
		report.Rows = append(report.Rows, row)
	}

	counts := make(map[model.RequestStatus]int)
	for _, request := range requests {
		counts[request.Status]++
	}
	for _, status := range []model.RequestStatus{
		model.StatusWaitingForFirstApproval,
		model.StatusWaitingForAdminApproval,
		model.StatusMatched,
	} {
		report.StatusCounts = append(report.StatusCounts, sheetsclient.StatusCount{
			Status: string(status),
			Count:  counts[status],
		})
	}

	logger.Debug("Built match report",
		zap.Int("matches", len(report.Rows)),
		zap.Int("requests", len(requests)))
	return report, nil
}

// PublishMatchReport builds the match report and writes it to the configured tab
func PublishMatchReport(
	ctx context.Context,
	store db.Database,
	publisher ReportPublisher,
	logger *zap.Logger,
	spreadsheetID, tab string,
) (*sheetsclient.MatchReport, error) {
	report, err := BuildMatchReport(ctx, store, logger, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	logger.Debug("Publishing match report",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("tab", tab))

	if err := publisher.PublishMatchReport(ctx, spreadsheetID, tab, report); err != nil {
		return nil, fmt.Errorf("failed to publish match report: %w", err)
	}

	logger.Info("Match report published",
		zap.String("tab", tab),
		zap.Int("matches", len(report.Rows)))
	return report, nil
}
