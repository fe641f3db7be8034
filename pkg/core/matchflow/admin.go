package matchflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

// ReviewVolunteer is an admin approving or declining a registered volunteer
type ReviewVolunteer struct {
	VolunteerID string         `validate:"required"`
	Decision    model.Approval `validate:"required,oneof=true declined"`
}

func (c ReviewVolunteer) Name() string { return "reviewVolunteer" }

func (c ReviewVolunteer) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	volunteer, err := r.GetVolunteer(ctx, c.VolunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load volunteer: %w", err)
	}
	if volunteer.Approved == c.Decision {
		return nil, rejectTransition("volunteer %s is already %s", volunteer.ID, volunteer.Approved)
	}
	if c.Decision == model.ApprovalDeclined && len(volunteer.ActiveMatchIDs) > 0 {
		return nil, reject("volunteer %s has %d active matches; cancel them first", volunteer.ID, len(volunteer.ActiveMatchIDs))
	}

	b := newBuilder()
	b.volunteer(volunteer).Approved = c.Decision

	return &Outcome{Batch: b.build()}, nil
}

// DeleteVolunteer removes a volunteer and voids everything that references them:
// their matches are cancelled and requests proposed to them return to the pool.
type DeleteVolunteer struct {
	VolunteerID string `validate:"required"`
}

func (c DeleteVolunteer) Name() string { return "deleteVolunteer" }

func (c DeleteVolunteer) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	volunteer, err := r.GetVolunteer(ctx, c.VolunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load volunteer: %w", err)
	}

	matches, err := r.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	requests, err := r.ListRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}

	now := env.Now()
	b := newBuilder()
	outcome := &Outcome{}

	requestsByID := make(map[string]*model.Request, len(requests))
	for i := range requests {
		requestsByID[requests[i].ID] = &requests[i]
	}

	for i := range matches {
		match := &matches[i]
		if match.VolunteerID != volunteer.ID {
			continue
		}
		requester, err := optional(ctx, r.GetRequester, match.RequesterID)
		if err != nil {
			return nil, err
		}
		unmatchWrites(b, match, requestsByID[match.RequestID], requester, volunteer, now)
		outcome.Notices = append(outcome.Notices, Notice{
			Kind:        NoticeMatchCancelled,
			RequestID:   match.RequestID,
			RequesterID: match.RequesterID,
			MatchID:     match.ID,
		})
	}

	for i := range requests {
		req := requestsByID[requests[i].ID]
		if req.Status.IsOpen() && req.VolunteerID == volunteer.ID {
			reopen(b.request(req), now)
		}
	}

	b.deleteVolunteer(volunteer)
	outcome.Batch = b.build()
	return outcome, nil
}

// DeleteRequester removes a requester, cancels their match and deletes their requests
type DeleteRequester struct {
	RequesterID string `validate:"required"`
}

func (c DeleteRequester) Name() string { return "deleteRequester" }

func (c DeleteRequester) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	requester, err := r.GetRequester(ctx, c.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}

	matches, err := r.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	requests, err := r.ListRequestsByRequester(ctx, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}

	now := env.Now()
	b := newBuilder()
	outcome := &Outcome{}

	for i := range matches {
		match := &matches[i]
		if match.RequesterID != requester.ID {
			continue
		}
		volunteer, err := optional(ctx, r.GetVolunteer, match.VolunteerID)
		if err != nil {
			return nil, err
		}
		unmatchWrites(b, match, nil, requester, volunteer, now)
		outcome.Notices = append(outcome.Notices, Notice{
			Kind:        NoticeMatchCancelled,
			RequestID:   match.RequestID,
			VolunteerID: match.VolunteerID,
			MatchID:     match.ID,
		})
	}

	for i := range requests {
		b.deleteRequest(&requests[i])
	}
	b.deleteRequester(requester)

	outcome.Batch = b.build()
	return outcome, nil
}

// optional loads a document that may legitimately be missing
func optional[T any](ctx context.Context, get func(context.Context, string) (*T, error), id string) (*T, error) {
	if id == "" {
		return nil, nil
	}
	doc, err := get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", id, err)
	}
	return doc, nil
}
