package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/matchflow"
	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

// RequestFilter narrows ListRequests. Empty fields match everything.
type RequestFilter struct {
	Status      model.RequestStatus
	RequesterID string
	VolunteerID string
}

// RequestSummary is a request with the names of both parties
type RequestSummary struct {
	model.Request
	RequesterName string `json:"requesterName"`
	VolunteerName string `json:"volunteerName,omitempty"`
}

// MatchSummary is a match with the names of both parties
type MatchSummary struct {
	model.Match
	RequesterName string `json:"requesterName"`
	VolunteerName string `json:"volunteerName"`
}

// names resolves profile IDs to display names
type names struct {
	requesters map[string]string
	volunteers map[string]string
}

func loadNames(ctx context.Context, store db.Database) (*names, error) {
	requesters, err := store.ListRequesters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load requesters: %w", err)
	}
	volunteers, err := store.ListVolunteers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load volunteers: %w", err)
	}

	n := &names{
		requesters: make(map[string]string, len(requesters)),
		volunteers: make(map[string]string, len(volunteers)),
	}
	for _, r := range requesters {
		n.requesters[r.ID] = r.FullName
	}
	for _, v := range volunteers {
		n.volunteers[v.ID] = v.FullName
	}
	return n, nil
}

// ListRequests returns the requests passing filter, most recently updated first
func ListRequests(ctx context.Context, store db.Database, logger *zap.Logger, filter RequestFilter) ([]RequestSummary, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown request status %q", model.ErrInvalid, filter.Status)
	}

	requests, err := store.ListRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}
	n, err := loadNames(ctx, store)
	if err != nil {
		return nil, err
	}

	result := make([]RequestSummary, 0, len(requests))
	for _, r := range requests {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.RequesterID != "" && r.RequesterID != filter.RequesterID {
			continue
		}
		if filter.VolunteerID != "" && r.VolunteerID != filter.VolunteerID {
			continue
		}
		result = append(result, RequestSummary{
			Request:       r,
			RequesterName: n.requesters[r.RequesterID],
			VolunteerName: n.volunteers[r.VolunteerID],
		})
	}
	sortByUpdated(result)

	logger.Debug("Listed requests",
		zap.String("status", string(filter.Status)),
		zap.Int("total", len(requests)),
		zap.Int("matching", len(result)))
	return result, nil
}

// ListMatches returns the active matches, optionally for one volunteer, newest first
func ListMatches(ctx context.Context, store db.Database, logger *zap.Logger, volunteerID string) ([]MatchSummary, error) {
	matches, err := store.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	n, err := loadNames(ctx, store)
	if err != nil {
		return nil, err
	}

	result := make([]MatchSummary, 0, len(matches))
	for _, m := range matches {
		if volunteerID != "" && m.VolunteerID != volunteerID {
			continue
		}
		result = append(result, MatchSummary{
			Match:         m,
			RequesterName: n.requesters[m.RequesterID],
			VolunteerName: n.volunteers[m.VolunteerID],
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartDate.After(result[j].StartDate)
	})

	logger.Debug("Listed matches", zap.Int("count", len(result)))
	return result, nil
}

// ListVolunteers returns volunteers in the given approval state, or all of them when
// approval is empty, oldest registration first
func ListVolunteers(ctx context.Context, store db.Database, logger *zap.Logger, approval model.Approval) ([]model.VolunteerProfile, error) {
	if approval != "" && !approval.IsValid() {
		return nil, fmt.Errorf("%w: unknown approval state %q", model.ErrInvalid, approval)
	}

	volunteers, err := store.ListVolunteers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load volunteers: %w", err)
	}

	result := make([]model.VolunteerProfile, 0, len(volunteers))
	for _, v := range volunteers {
		if approval == "" || v.Approved == approval {
			result = append(result, v)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	logger.Debug("Listed volunteers",
		zap.String("approval", string(approval)),
		zap.Int("count", len(result)))
	return result, nil
}

// ListPool returns the open requests a pool volunteer may accept: no volunteer attached,
// still awaiting a first approval and not already declined by them.
// Personal volunteers and volunteers who cannot take requests get a precondition error.
func ListPool(ctx context.Context, store db.Database, logger *zap.Logger, volunteerID string) ([]RequestSummary, error) {
	volunteer, err := store.GetVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load volunteer: %w", err)
	}
	if volunteer.Personal {
		return nil, &matchflow.PreconditionError{Reason: fmt.Sprintf("volunteer %s does not take requests from the pool", volunteer.ID)}
	}
	if !volunteer.IsSelectable() {
		return nil, &matchflow.PreconditionError{Reason: fmt.Sprintf("volunteer %s is not available to take requests", volunteer.ID)}
	}

	open, err := ListRequests(ctx, store, logger, RequestFilter{Status: model.StatusWaitingForFirstApproval})
	if err != nil {
		return nil, err
	}

	result := make([]RequestSummary, 0, len(open))
	for _, r := range open {
		if r.VolunteerID == "" && !r.HasDeclined(volunteer.ID) {
			result = append(result, r)
		}
	}

	logger.Debug("Listed pool",
		zap.String("volunteer_id", volunteer.ID),
		zap.Int("count", len(result)))
	return result, nil
}

func sortByUpdated(requests []RequestSummary) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].UpdatedAt.After(requests[j].UpdatedAt)
	})
}
