package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/matchflow"
	"github.com/jakechorley/support-match/pkg/core/matching"
	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

// RankedEntry is a ranked volunteer with its recommendation flag
type RankedEntry struct {
	matching.RankedVolunteer
	Recommended bool `json:"recommended"`
}

// RankResult is the volunteer list shown to one requester
type RankResult struct {
	Requester  *model.RequesterProfile `json:"requester"`
	Request    *model.Request          `json:"request,omitempty"`
	Volunteers []RankedEntry           `json:"volunteers"`
}

// RankVolunteersFor ranks the volunteers the requester may choose from.
// Volunteers that declined the requester's open request are left out, and a
// personal requester only sees volunteers who take direct requests.
func RankVolunteersFor(ctx context.Context, store db.Database, logger *zap.Logger, requesterID string, threshold int) (*RankResult, error) {
	return rankVolunteers(ctx, store, logger, requesterID, threshold, true)
}

// RankVolunteersForAdmin ranks the volunteers an admin may assign to the requester.
// Pool volunteers are included even for a personal requester.
func RankVolunteersForAdmin(ctx context.Context, store db.Database, logger *zap.Logger, requesterID string, threshold int) (*RankResult, error) {
	return rankVolunteers(ctx, store, logger, requesterID, threshold, false)
}

func rankVolunteers(ctx context.Context, store db.Database, logger *zap.Logger, requesterID string, threshold int, selfSelect bool) (*RankResult, error) {
	logger.Debug("Ranking volunteers",
		zap.String("requester_id", requesterID),
		zap.Bool("self_select", selfSelect))

	requester, err := store.GetRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}

	requests, err := store.ListRequestsByRequester(ctx, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}
	request := matchflow.LatestOpenRequest(requests)

	volunteers, err := store.ListVolunteers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load volunteers: %w", err)
	}

	eligible := matching.Eligible(volunteers, request, selfSelect && requester.Personal)
	logger.Debug("Filtered eligible volunteers",
		zap.Int("total", len(volunteers)),
		zap.Int("eligible", len(eligible)))

	ranked := matching.Rank(eligible, requester)
	entries := make([]RankedEntry, len(ranked))
	for i, r := range ranked {
		entries[i] = RankedEntry{
			RankedVolunteer: r,
			Recommended:     matching.IsRecommended(r.CompatibilityScore, threshold),
		}
	}

	return &RankResult{
		Requester:  requester,
		Request:    request,
		Volunteers: entries,
	}, nil
}
