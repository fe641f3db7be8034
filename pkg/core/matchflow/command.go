package matchflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

var validate = validator.New()

// Reader is the read side of the store a transition plans against
type Reader interface {
	GetRequester(ctx context.Context, id string) (*model.RequesterProfile, error)
	GetVolunteer(ctx context.Context, id string) (*model.VolunteerProfile, error)
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	GetMatch(ctx context.Context, id string) (*model.Match, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.Request, error)
	ListMatches(ctx context.Context) ([]model.Match, error)
}

// Env supplies the clock and ID generator used while planning
type Env struct {
	Now   func() time.Time
	NewID func() string
}

// Command is one request/match lifecycle transition.
// Plan reads the documents it needs and returns the single batch that performs the transition.
type Command interface {
	Name() string
	Plan(ctx context.Context, r Reader, env Env) (*Outcome, error)
}

// NoticeKind identifies a notification produced by a transition
type NoticeKind string

const (
	NoticeAwaitingAdmin   NoticeKind = "awaiting_admin_approval"
	NoticeMatchConfirmed  NoticeKind = "match_confirmed"
	NoticeRequestDeclined NoticeKind = "request_declined"
	NoticeMatchCancelled  NoticeKind = "match_cancelled"
)

// Notice tells interested parties about a committed transition
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	RequestID   string     `json:"requestId,omitempty"`
	RequesterID string     `json:"requesterId,omitempty"`
	VolunteerID string     `json:"volunteerId,omitempty"`
	MatchID     string     `json:"matchId,omitempty"`
}

// Outcome is the result of planning a command
type Outcome struct {
	Batch     *db.Batch
	RequestID string
	MatchID   string
	Notices   []Notice
}

func checkCommand(cmd Command) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%s: %w: %v", cmd.Name(), ErrInvalidCommand, err)
	}
	return nil
}

// loadReferenced fetches a document the command refers to indirectly;
// a missing document becomes a precondition failure rather than a not-found error
func loadReferenced[T any](ctx context.Context, get func(context.Context, string) (*T, error), kind, id string) (*T, error) {
	doc, err := get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, reject("%s %s no longer exists", kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", kind, id, err)
	}
	return doc, nil
}

// builder accumulates the documents touched by a transition, each written at most once
type builder struct {
	requesters map[string]*model.RequesterProfile
	volunteers map[string]*model.VolunteerProfile
	requests   map[string]*model.Request
	matches    map[string]*model.Match

	requesterOrder, volunteerOrder, requestOrder, matchOrder []string

	deleteRequesters, deleteVolunteers, deleteRequests, deleteMatches []db.Ref

	// volunteer assigned to each request when it entered the batch
	assigned map[string]string
}

func newBuilder() *builder {
	return &builder{
		requesters: make(map[string]*model.RequesterProfile),
		volunteers: make(map[string]*model.VolunteerProfile),
		requests:   make(map[string]*model.Request),
		matches:    make(map[string]*model.Match),
		assigned:   make(map[string]string),
	}
}

func (b *builder) requester(r *model.RequesterProfile) *model.RequesterProfile {
	if existing, ok := b.requesters[r.ID]; ok {
		return existing
	}
	b.requesters[r.ID] = r
	b.requesterOrder = append(b.requesterOrder, r.ID)
	return r
}

func (b *builder) volunteer(v *model.VolunteerProfile) *model.VolunteerProfile {
	if existing, ok := b.volunteers[v.ID]; ok {
		return existing
	}
	b.volunteers[v.ID] = v
	b.volunteerOrder = append(b.volunteerOrder, v.ID)
	return v
}

func (b *builder) request(r *model.Request) *model.Request {
	if existing, ok := b.requests[r.ID]; ok {
		return existing
	}
	b.requests[r.ID] = r
	b.requestOrder = append(b.requestOrder, r.ID)
	b.assigned[r.ID] = r.VolunteerID
	return r
}

func (b *builder) match(m *model.Match) *model.Match {
	if existing, ok := b.matches[m.ID]; ok {
		return existing
	}
	b.matches[m.ID] = m
	b.matchOrder = append(b.matchOrder, m.ID)
	return m
}

func (b *builder) deleteRequester(r *model.RequesterProfile) {
	b.deleteRequesters = append(b.deleteRequesters, db.Ref{ID: r.ID, Version: r.Version, RequesterID: r.ID})
}

func (b *builder) deleteVolunteer(v *model.VolunteerProfile) {
	b.deleteVolunteers = append(b.deleteVolunteers, db.Ref{ID: v.ID, Version: v.Version, VolunteerID: v.ID})
}

func (b *builder) deleteRequest(r *model.Request) {
	b.deleteRequests = append(b.deleteRequests, db.Ref{ID: r.ID, Version: r.Version, RequesterID: r.RequesterID, VolunteerID: r.VolunteerID})
}

func (b *builder) deleteMatch(m *model.Match) {
	b.deleteMatches = append(b.deleteMatches, db.Ref{ID: m.ID, Version: m.Version, RequesterID: m.RequesterID, VolunteerID: m.VolunteerID})
}

// build produces the batch. A document that is deleted is never also written.
func (b *builder) build() *db.Batch {
	batch := &db.Batch{
		DeleteRequesters: b.deleteRequesters,
		DeleteVolunteers: b.deleteVolunteers,
		DeleteRequests:   b.deleteRequests,
		DeleteMatches:    b.deleteMatches,
	}

	for _, id := range b.requesterOrder {
		if !deleted(b.deleteRequesters, id) {
			batch.Requesters = append(batch.Requesters, *b.requesters[id])
		}
	}
	for _, id := range b.volunteerOrder {
		if !deleted(b.deleteVolunteers, id) {
			batch.Volunteers = append(batch.Volunteers, *b.volunteers[id])
		}
	}
	for _, id := range b.requestOrder {
		if deleted(b.deleteRequests, id) {
			continue
		}
		r := b.requests[id]
		batch.Requests = append(batch.Requests, *r)
		if prev := b.assigned[id]; prev != "" && prev != r.VolunteerID {
			if batch.PreviousVolunteers == nil {
				batch.PreviousVolunteers = make(map[string]string)
			}
			batch.PreviousVolunteers[id] = prev
		}
	}
	for _, id := range b.matchOrder {
		if !deleted(b.deleteMatches, id) {
			batch.Matches = append(batch.Matches, *b.matches[id])
		}
	}

	return batch
}

func deleted(refs []db.Ref, id string) bool {
	return slices.ContainsFunc(refs, func(r db.Ref) bool { return r.ID == id })
}

// addDeclined appends volunteerID to the request's declined set unless already present
func addDeclined(r *model.Request, volunteerID string) {
	if volunteerID == "" || r.HasDeclined(volunteerID) {
		return
	}
	r.DeclinedVolunteers = append(r.DeclinedVolunteers, volunteerID)
}

// reopen returns a request to the open pool
func reopen(r *model.Request, now time.Time) {
	r.Status = model.StatusWaitingForFirstApproval
	r.VolunteerID = ""
	r.InitiatedBy = model.InitiatedByNone
	r.MatchID = ""
	r.UpdatedAt = now
}

// matchWrites performs the four cross-referencing writes that create a match:
// the match itself, the matched request, the volunteer's match list and the requester's active match.
func matchWrites(b *builder, request *model.Request, requester *model.RequesterProfile, volunteer *model.VolunteerProfile, env Env) *model.Match {
	now := env.Now()
	match := b.match(&model.Match{
		ID:          env.NewID(),
		RequesterID: requester.ID,
		VolunteerID: volunteer.ID,
		RequestID:   request.ID,
		Status:      model.MatchStatusActive,
		StartDate:   now,
	})

	req := b.request(request)
	req.Status = model.StatusMatched
	req.VolunteerID = volunteer.ID
	req.MatchID = match.ID
	req.UpdatedAt = now

	vol := b.volunteer(volunteer)
	if !vol.HasMatch(match.ID) {
		vol.ActiveMatchIDs = append(vol.ActiveMatchIDs, match.ID)
	}

	b.requester(requester).ActiveMatchID = match.ID

	return match
}

// unmatchWrites reverses matchWrites for an existing match. Missing counterpart documents are skipped.
func unmatchWrites(b *builder, match *model.Match, request *model.Request, requester *model.RequesterProfile, volunteer *model.VolunteerProfile, now time.Time) {
	b.deleteMatch(match)

	if request != nil {
		if current, ok := b.requests[request.ID]; ok {
			request = current
		}
		if request.MatchID == match.ID {
			reopen(b.request(request), now)
		}
	}

	if requester != nil {
		if current, ok := b.requesters[requester.ID]; ok {
			requester = current
		}
		if requester.ActiveMatchID == match.ID {
			b.requester(requester).ActiveMatchID = ""
		}
	}

	if volunteer != nil {
		if current, ok := b.volunteers[volunteer.ID]; ok {
			volunteer = current
		}
		if volunteer.HasMatch(match.ID) {
			vol := b.volunteer(volunteer)
			vol.ActiveMatchIDs = slices.DeleteFunc(vol.ActiveMatchIDs, func(id string) bool { return id == match.ID })
		}
	}
}
