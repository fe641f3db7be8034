package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/core/suggest"
	"github.com/jakechorley/support-match/pkg/db"
)

// Completer sends a prompt to a chat-completion model and returns the reply text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SuggestResult carries the model's picks alongside the score ranking.
// When OK is false the caller should fall back to Ranked.
type SuggestResult struct {
	Requester   *model.RequesterProfile `json:"requester"`
	Suggestions []suggest.Suggestion    `json:"suggestions"`
	Ranked      []RankedEntry           `json:"ranked"`
	Raw         string                  `json:"raw,omitempty"`
	OK          bool                    `json:"ok"`
}

// SuggestVolunteers asks the model to pick the best volunteers for a requester.
// Volunteers are ranked as an admin sees them and sent in ranking order, at most maxVolunteers of them.
// An unparseable reply is not an error.
func SuggestVolunteers(
	ctx context.Context,
	store db.Database,
	ai Completer,
	maxVolunteers int,
	threshold int,
	logger *zap.Logger,
	requesterID string,
) (*SuggestResult, error) {
	ranked, err := RankVolunteersForAdmin(ctx, store, logger, requesterID, threshold)
	if err != nil {
		return nil, err
	}

	result := &SuggestResult{
		Requester: ranked.Requester,
		Ranked:    ranked.Volunteers,
	}
	if len(ranked.Volunteers) == 0 {
		logger.Info("No eligible volunteers to suggest", zap.String("requester_id", requesterID))
		return result, nil
	}

	candidates := make([]model.VolunteerProfile, len(ranked.Volunteers))
	for i, entry := range ranked.Volunteers {
		candidates[i] = entry.Volunteer
	}

	prompt, sent := suggest.BuildPrompt(ranked.Requester, candidates, maxVolunteers)
	logger.Debug("Sending suggestion prompt",
		zap.String("requester_id", requesterID),
		zap.Int("volunteers", len(sent)))

	reply, err := ai.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestions: %w", err)
	}
	result.Raw = reply

	result.Suggestions, result.OK = suggest.Parse(reply, sent)
	if !result.OK {
		logger.Warn("Could not parse model reply, falling back to ranking",
			zap.String("requester_id", requesterID))
		return result, nil
	}

	logger.Info("Suggestions ready",
		zap.String("requester_id", requesterID),
		zap.Int("count", len(result.Suggestions)))
	return result, nil
}
