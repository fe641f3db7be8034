package matchflow

import (
	"context"
	"fmt"

	"github.com/jakechorley/support-match/pkg/core/model"
)

// CreateRequest opens a new support request for a requester
type CreateRequest struct {
	RequesterID string `validate:"required"`
}

func (c CreateRequest) Name() string { return "createRequest" }

func (c CreateRequest) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	requester, err := r.GetRequester(ctx, c.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}
	if requester.ActiveMatchID != "" {
		return nil, reject("requester %s already has an active match", requester.ID)
	}

	existing, err := r.ListRequestsByRequester(ctx, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}
	if open := LatestOpenRequest(existing); open != nil {
		return nil, reject("requester %s already has an open request %s", requester.ID, open.ID)
	}

	now := env.Now()
	b := newBuilder()
	// Written unchanged so a concurrent create for the same requester conflicts
	b.requester(requester)
	request := b.request(&model.Request{
		ID:          env.NewID(),
		RequesterID: requester.ID,
		Status:      model.StatusWaitingForFirstApproval,
		CreatedAt:   now,
		UpdatedAt:   now,
	})

	return &Outcome{Batch: b.build(), RequestID: request.ID}, nil
}

// SelectVolunteer is a requester choosing a volunteer from the ranked list.
// A pool-only volunteer (personal=false) needs no acceptance and the request goes straight
// to admin approval; a personal volunteer must first accept the request.
type SelectVolunteer struct {
	RequestID   string `validate:"required"`
	VolunteerID string `validate:"required"`
}

func (c SelectVolunteer) Name() string { return "selectVolunteer" }

func (c SelectVolunteer) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	request, err := r.GetRequest(ctx, c.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if request.Status != model.StatusWaitingForFirstApproval {
		return nil, rejectTransition("request %s is %s and cannot take a new volunteer", request.ID, request.Status)
	}

	requester, err := loadReferenced(ctx, r.GetRequester, "requester", request.RequesterID)
	if err != nil {
		return nil, err
	}
	if requester.ActiveMatchID != "" {
		return nil, reject("requester %s already has an active match", requester.ID)
	}

	// Re-read the volunteer: the list the requester chose from may be stale
	volunteer, err := loadReferenced(ctx, r.GetVolunteer, "volunteer", c.VolunteerID)
	if err != nil {
		return nil, err
	}
	if !volunteer.IsSelectable() {
		return nil, reject("volunteer %s is no longer available", volunteer.ID)
	}
	if request.HasDeclined(volunteer.ID) {
		return nil, reject("volunteer %s has already declined this request", volunteer.ID)
	}

	b := newBuilder()
	req := b.request(request)
	req.VolunteerID = volunteer.ID
	req.InitiatedBy = model.InitiatedByRequester
	req.UpdatedAt = env.Now()

	outcome := &Outcome{RequestID: req.ID}
	if volunteer.Personal {
		req.Status = model.StatusWaitingForFirstApproval
	} else {
		req.Status = model.StatusWaitingForAdminApproval
		outcome.Notices = append(outcome.Notices, Notice{
			Kind:        NoticeAwaitingAdmin,
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			VolunteerID: volunteer.ID,
		})
	}

	outcome.Batch = b.build()
	return outcome, nil
}

// AcceptRequest is a volunteer taking a request addressed to them, or picking one from the pool
type AcceptRequest struct {
	RequestID   string `validate:"required"`
	VolunteerID string `validate:"required"`
}

func (c AcceptRequest) Name() string { return "acceptRequest" }

func (c AcceptRequest) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	request, err := r.GetRequest(ctx, c.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if request.Status != model.StatusWaitingForFirstApproval {
		return nil, rejectTransition("request %s is %s and cannot be accepted", request.ID, request.Status)
	}

	volunteer, err := loadReferenced(ctx, r.GetVolunteer, "volunteer", c.VolunteerID)
	if err != nil {
		return nil, err
	}
	if !volunteer.IsSelectable() {
		return nil, reject("volunteer %s is not available to take requests", volunteer.ID)
	}
	if request.HasDeclined(volunteer.ID) {
		return nil, reject("volunteer %s has already declined this request", volunteer.ID)
	}

	initiator := request.InitiatedBy
	switch {
	case request.VolunteerID == volunteer.ID:
	case request.VolunteerID == "":
		if volunteer.Personal {
			return nil, reject("volunteer %s does not take requests from the pool", volunteer.ID)
		}
		initiator = model.InitiatedByVolunteer
	default:
		return nil, reject("request %s is addressed to another volunteer", request.ID)
	}

	b := newBuilder()
	req := b.request(request)
	req.VolunteerID = volunteer.ID
	req.InitiatedBy = initiator
	req.Status = model.StatusWaitingForAdminApproval
	req.UpdatedAt = env.Now()

	return &Outcome{
		Batch:     b.build(),
		RequestID: req.ID,
		Notices: []Notice{{
			Kind:        NoticeAwaitingAdmin,
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			VolunteerID: volunteer.ID,
		}},
	}, nil
}

// DeclineRequest is a volunteer passing on a request, or withdrawing before admin approval.
// The volunteer is remembered so the request is never shown to them again.
type DeclineRequest struct {
	RequestID   string `validate:"required"`
	VolunteerID string `validate:"required"`
}

func (c DeclineRequest) Name() string { return "declineRequest" }

func (c DeclineRequest) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	request, err := r.GetRequest(ctx, c.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if !request.Status.IsOpen() {
		return nil, rejectTransition("request %s is %s and cannot be declined", request.ID, request.Status)
	}
	if request.VolunteerID != "" && request.VolunteerID != c.VolunteerID {
		return nil, reject("request %s is addressed to another volunteer", request.ID)
	}

	addressed := request.VolunteerID == c.VolunteerID
	if !addressed {
		if _, err := loadReferenced(ctx, r.GetVolunteer, "volunteer", c.VolunteerID); err != nil {
			return nil, err
		}
	}

	b := newBuilder()
	req := b.request(request)
	addDeclined(req, c.VolunteerID)
	reopen(req, env.Now())

	outcome := &Outcome{Batch: b.build(), RequestID: req.ID}
	if addressed {
		outcome.Notices = append(outcome.Notices, Notice{
			Kind:        NoticeRequestDeclined,
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			VolunteerID: c.VolunteerID,
		})
	}
	return outcome, nil
}

// ApproveRequest is an admin confirming a proposed pairing
type ApproveRequest struct {
	RequestID string `validate:"required"`
}

func (c ApproveRequest) Name() string { return "approveRequest" }

func (c ApproveRequest) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	request, err := r.GetRequest(ctx, c.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if request.Status != model.StatusWaitingForAdminApproval {
		return nil, rejectTransition("request %s is %s, not awaiting admin approval", request.ID, request.Status)
	}

	requester, err := loadReferenced(ctx, r.GetRequester, "requester", request.RequesterID)
	if err != nil {
		return nil, err
	}
	if requester.ActiveMatchID != "" {
		return nil, reject("requester %s already has an active match", requester.ID)
	}

	volunteer, err := loadReferenced(ctx, r.GetVolunteer, "volunteer", request.VolunteerID)
	if err != nil {
		return nil, err
	}
	if volunteer.Approved != model.ApprovalApproved {
		return nil, reject("volunteer %s is not approved", volunteer.ID)
	}

	b := newBuilder()
	match := matchWrites(b, request, requester, volunteer, env)

	return &Outcome{
		Batch:     b.build(),
		RequestID: request.ID,
		MatchID:   match.ID,
		Notices: []Notice{{
			Kind:        NoticeMatchConfirmed,
			RequestID:   request.ID,
			RequesterID: requester.ID,
			VolunteerID: volunteer.ID,
			MatchID:     match.ID,
		}},
	}, nil
}

// AdminDeclineRequest is an admin rejecting a proposed pairing
type AdminDeclineRequest struct {
	RequestID string `validate:"required"`
}

func (c AdminDeclineRequest) Name() string { return "adminDeclineRequest" }

func (c AdminDeclineRequest) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	request, err := r.GetRequest(ctx, c.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if request.Status != model.StatusWaitingForAdminApproval {
		return nil, rejectTransition("request %s is %s, not awaiting admin approval", request.ID, request.Status)
	}

	volunteerID := request.VolunteerID

	b := newBuilder()
	req := b.request(request)
	addDeclined(req, volunteerID)
	reopen(req, env.Now())

	return &Outcome{
		Batch:     b.build(),
		RequestID: req.ID,
		Notices: []Notice{{
			Kind:        NoticeRequestDeclined,
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			VolunteerID: volunteerID,
		}},
	}, nil
}

// ManualMatch is an admin pairing a requester and volunteer directly.
// The requester's open request is reused when there is one, otherwise a request is created.
type ManualMatch struct {
	RequesterID string `validate:"required"`
	VolunteerID string `validate:"required"`
}

func (c ManualMatch) Name() string { return "manualMatch" }

func (c ManualMatch) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	requester, err := r.GetRequester(ctx, c.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}
	if requester.ActiveMatchID != "" {
		return nil, reject("requester %s already has an active match", requester.ID)
	}

	volunteer, err := loadReferenced(ctx, r.GetVolunteer, "volunteer", c.VolunteerID)
	if err != nil {
		return nil, err
	}
	if volunteer.Approved != model.ApprovalApproved {
		return nil, reject("volunteer %s is not approved", volunteer.ID)
	}

	existing, err := r.ListRequestsByRequester(ctx, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requests: %w", err)
	}

	request := LatestOpenRequest(existing)
	if request == nil {
		now := env.Now()
		request = &model.Request{
			ID:          env.NewID(),
			RequesterID: requester.ID,
			Status:      model.StatusWaitingForFirstApproval,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	b := newBuilder()
	b.request(request).InitiatedBy = model.InitiatedByAdmin
	match := matchWrites(b, request, requester, volunteer, env)

	return &Outcome{
		Batch:     b.build(),
		RequestID: request.ID,
		MatchID:   match.ID,
		Notices: []Notice{{
			Kind:        NoticeMatchConfirmed,
			RequestID:   request.ID,
			RequesterID: requester.ID,
			VolunteerID: volunteer.ID,
			MatchID:     match.ID,
		}},
	}, nil
}

// CancelMatch ends an active match and returns the request to the open pool
type CancelMatch struct {
	MatchID string `validate:"required"`
}

func (c CancelMatch) Name() string { return "cancelMatch" }

func (c CancelMatch) Plan(ctx context.Context, r Reader, env Env) (*Outcome, error) {
	if err := checkCommand(c); err != nil {
		return nil, err
	}

	match, err := r.GetMatch(ctx, c.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}

	request, err := optional(ctx, r.GetRequest, match.RequestID)
	if err != nil {
		return nil, err
	}
	requester, err := optional(ctx, r.GetRequester, match.RequesterID)
	if err != nil {
		return nil, err
	}
	volunteer, err := optional(ctx, r.GetVolunteer, match.VolunteerID)
	if err != nil {
		return nil, err
	}

	b := newBuilder()
	unmatchWrites(b, match, request, requester, volunteer, env.Now())

	return &Outcome{
		Batch:     b.build(),
		RequestID: match.RequestID,
		MatchID:   match.ID,
		Notices: []Notice{{
			Kind:        NoticeMatchCancelled,
			RequestID:   match.RequestID,
			RequesterID: match.RequesterID,
			VolunteerID: match.VolunteerID,
			MatchID:     match.ID,
		}},
	}, nil
}

// LatestOpenRequest returns the most recently updated request still looking for a match
func LatestOpenRequest(requests []model.Request) *model.Request {
	var latest *model.Request
	for i := range requests {
		req := &requests[i]
		if !req.Status.IsOpen() {
			continue
		}
		if latest == nil || req.UpdatedAt.After(latest.UpdatedAt) {
			latest = req
		}
	}
	return latest
}
