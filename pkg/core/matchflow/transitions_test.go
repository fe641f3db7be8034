package matchflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

var fixedNow = time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

func testEnv() Env {
	n := 0
	return Env{
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

// seed builds a store with one requester and the given volunteers
func seed(t *testing.T, volunteers ...model.VolunteerProfile) *db.MemoryDB {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemoryDB()
	require.NoError(t, store.InsertRequester(ctx, &model.RequesterProfile{ID: "req-1", FullName: "Dana"}))
	for i := range volunteers {
		require.NoError(t, store.InsertVolunteer(ctx, &volunteers[i]))
	}
	return store
}

func approvedVolunteer(id string, personal bool) model.VolunteerProfile {
	return model.VolunteerProfile{
		ID:          id,
		FullName:    "Volunteer " + id,
		Approved:    model.ApprovalApproved,
		IsAvailable: true,
		Personal:    personal,
	}
}

// run plans cmd against store and applies the resulting batch
func run(t *testing.T, store *db.MemoryDB, env Env, cmd Command) *Outcome {
	t.Helper()
	ctx := context.Background()
	outcome, err := cmd.Plan(ctx, store, env)
	require.NoError(t, err)
	require.NoError(t, store.ApplyBatch(ctx, outcome.Batch))
	return outcome
}

func getRequest(t *testing.T, store *db.MemoryDB, id string) *model.Request {
	t.Helper()
	req, err := store.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return req
}

func TestCreateRequest(t *testing.T) {
	store := seed(t)
	env := testEnv()

	outcome := run(t, store, env, CreateRequest{RequesterID: "req-1"})

	req := getRequest(t, store, outcome.RequestID)
	assert.Equal(t, model.StatusWaitingForFirstApproval, req.Status)
	assert.Equal(t, "req-1", req.RequesterID)
	assert.Empty(t, req.VolunteerID)
	assert.Equal(t, fixedNow, req.CreatedAt)
	assert.Empty(t, outcome.Notices)
}

func TestCreateRequest_RejectsSecondOpenRequest(t *testing.T) {
	store := seed(t)
	env := testEnv()
	run(t, store, env, CreateRequest{RequesterID: "req-1"})

	_, err := CreateRequest{RequesterID: "req-1"}.Plan(context.Background(), store, env)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
}

func TestCreateRequest_ConcurrentCreatesConflict(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	env := testEnv()

	first, err := CreateRequest{RequesterID: "req-1"}.Plan(ctx, store, env)
	require.NoError(t, err)
	second, err := CreateRequest{RequesterID: "req-1"}.Plan(ctx, store, env)
	require.NoError(t, err)

	require.NoError(t, store.ApplyBatch(ctx, first.Batch))
	assert.ErrorIs(t, store.ApplyBatch(ctx, second.Batch), db.ErrConflict)

	requests, err := store.ListRequestsByRequester(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, first.RequestID, requests[0].ID)
}

func TestCreateRequest_MissingRequester(t *testing.T) {
	store := db.NewMemoryDB()

	_, err := CreateRequest{RequesterID: "ghost"}.Plan(context.Background(), store, testEnv())
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCommand_Validation(t *testing.T) {
	store := db.NewMemoryDB()

	_, err := SelectVolunteer{RequestID: "r"}.Plan(context.Background(), store, testEnv())
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = ReviewVolunteer{VolunteerID: "v", Decision: model.ApprovalPending}.Plan(context.Background(), store, testEnv())
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestSelectVolunteer_PoolVolunteerGoesToAdmin(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", false))
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})

	outcome := run(t, store, env, SelectVolunteer{RequestID: created.RequestID, VolunteerID: "vol-1"})

	req := getRequest(t, store, created.RequestID)
	assert.Equal(t, model.StatusWaitingForAdminApproval, req.Status)
	assert.Equal(t, "vol-1", req.VolunteerID)
	assert.Equal(t, model.InitiatedByRequester, req.InitiatedBy)
	require.Len(t, outcome.Notices, 1)
	assert.Equal(t, NoticeAwaitingAdmin, outcome.Notices[0].Kind)
}

func TestSelectVolunteer_PersonalVolunteerMustAccept(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", true))
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})

	outcome := run(t, store, env, SelectVolunteer{RequestID: created.RequestID, VolunteerID: "vol-1"})

	req := getRequest(t, store, created.RequestID)
	assert.Equal(t, model.StatusWaitingForFirstApproval, req.Status)
	assert.Equal(t, "vol-1", req.VolunteerID)
	assert.Empty(t, outcome.Notices)

	run(t, store, env, AcceptRequest{RequestID: created.RequestID, VolunteerID: "vol-1"})
	req = getRequest(t, store, created.RequestID)
	assert.Equal(t, model.StatusWaitingForAdminApproval, req.Status)
	assert.Equal(t, model.InitiatedByRequester, req.InitiatedBy)
}

func TestSelectVolunteer_RejectsUnavailableVolunteer(t *testing.T) {
	unavailable := approvedVolunteer("vol-1", false)
	unavailable.IsAvailable = false
	pending := approvedVolunteer("vol-2", false)
	pending.Approved = model.ApprovalPending
	store := seed(t, unavailable, pending)
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})

	for _, id := range []string{"vol-1", "vol-2"} {
		_, err := SelectVolunteer{RequestID: created.RequestID, VolunteerID: id}.Plan(context.Background(), store, env)
		require.Error(t, err, id)
		assert.True(t, IsPrecondition(err), id)
	}

	_, err := SelectVolunteer{RequestID: created.RequestID, VolunteerID: "ghost"}.Plan(context.Background(), store, env)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
}

func TestAcceptRequest_FromPool(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", false), approvedVolunteer("vol-2", true))
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})

	// Personal volunteers only take requests addressed to them
	_, err := AcceptRequest{RequestID: created.RequestID, VolunteerID: "vol-2"}.Plan(context.Background(), store, env)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))

	run(t, store, env, AcceptRequest{RequestID: created.RequestID, VolunteerID: "vol-1"})
	req := getRequest(t, store, created.RequestID)
	assert.Equal(t, model.StatusWaitingForAdminApproval, req.Status)
	assert.Equal(t, model.InitiatedByVolunteer, req.InitiatedBy)
}

func TestAcceptRequest_AddressedToAnother(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", true), approvedVolunteer("vol-2", false))
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})
	run(t, store, env, SelectVolunteer{RequestID: created.RequestID, VolunteerID: "vol-1"})

	_, err := AcceptRequest{RequestID: created.RequestID, VolunteerID: "vol-2"}.Plan(context.Background(), store, env)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
}

func TestDeclineRequest_ReturnsToPoolAndIsIdempotent(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", true))
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})
	run(t, store, env, SelectVolunteer{RequestID: created.RequestID, VolunteerID: "vol-1"})

	outcome := run(t, store, env, DeclineRequest{RequestID: created.RequestID, VolunteerID: "vol-1"})
	require.Len(t, outcome.Notices, 1)
	assert.Equal(t, NoticeRequestDeclined, outcome.Notices[0].Kind)

	req := getRequest(t, store, created.RequestID)
	assert.Equal(t, model.StatusWaitingForFirstApproval, req.Status)
	assert.Empty(t, req.VolunteerID)
	assert.Equal(t, model.InitiatedByNone, req.InitiatedBy)
	assert.Equal(t, []string{"vol-1"}, req.DeclinedVolunteers)

	// Declining again from the pool leaves a single entry
	outcome = run(t, store, env, DeclineRequest{RequestID: created.RequestID, VolunteerID: "vol-1"})
	assert.Empty(t, outcome.Notices)
	req = getRequest(t, store, created.RequestID)
	assert.Equal(t, []string{"vol-1"}, req.DeclinedVolunteers)

	_, err := SelectVolunteer{RequestID: created.RequestID, VolunteerID: "vol-1"}.Plan(context.Background(), store, env)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
}

func TestApproveRequest_CreatesMatch(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", false))
	env := testEnv()
	ctx := context.Background()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})
	run(t, store, env, SelectVolunteer{RequestID: created.RequestID, VolunteerID: "vol-1"})

	outcome := run(t, store, env, ApproveRequest{RequestID: created.RequestID})
	require.NotEmpty(t, outcome.MatchID)
	require.Len(t, outcome.Notices, 1)
	assert.Equal(t, NoticeMatchConfirmed, outcome.Notices[0].Kind)

	match, err := store.GetMatch(ctx, outcome.MatchID)
	require.NoError(t, err)
	assert.Equal(t, "req-1", match.RequesterID)
	assert.Equal(t, "vol-1", match.VolunteerID)
	assert.Equal(t, created.RequestID, match.RequestID)
	assert.Equal(t, model.MatchStatusActive, match.Status)
	assert.Equal(t, fixedNow, match.StartDate)

	req := getRequest(t, store, created.RequestID)
	assert.Equal(t, model.StatusMatched, req.Status)
	assert.Equal(t, match.ID, req.MatchID)

	requester, err := store.GetRequester(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, match.ID, requester.ActiveMatchID)

	volunteer, err := store.GetVolunteer(ctx, "vol-1")
	require.NoError(t, err)
	assert.Equal(t, []string{match.ID}, volunteer.ActiveMatchIDs)

	// A matched requester cannot open another request
	_, err = CreateRequest{RequesterID: "req-1"}.Plan(ctx, store, env)
	assert.True(t, IsPrecondition(err))
}

func TestApproveRequest_WrongStatus(t *testing.T) {
	store := seed(t)
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})

	_, err := ApproveRequest{RequestID: created.RequestID}.Plan(context.Background(), store, env)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeclineRequest_UnknownVolunteerFromPool(t *testing.T) {
	store := seed(t)
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})

	_, err := DeclineRequest{RequestID: created.RequestID, VolunteerID: "ghost"}.Plan(context.Background(), store, env)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	assert.Empty(t, getRequest(t, store, created.RequestID).DeclinedVolunteers)
}

func TestDeclineRequest_PreviousVolunteerRecorded(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", true))
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})
	run(t, store, env, SelectVolunteer{RequestID: created.RequestID, VolunteerID: "vol-1"})

	outcome := run(t, store, env, DeclineRequest{RequestID: created.RequestID, VolunteerID: "vol-1"})
	assert.Equal(t, map[string]string{created.RequestID: "vol-1"}, outcome.Batch.PreviousVolunteers)
}

func TestAdminDeclineRequest(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", false))
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})
	run(t, store, env, SelectVolunteer{RequestID: created.RequestID, VolunteerID: "vol-1"})

	outcome := run(t, store, env, AdminDeclineRequest{RequestID: created.RequestID})
	require.Len(t, outcome.Notices, 1)
	assert.Equal(t, "vol-1", outcome.Notices[0].VolunteerID)

	req := getRequest(t, store, created.RequestID)
	assert.Equal(t, model.StatusWaitingForFirstApproval, req.Status)
	assert.Empty(t, req.VolunteerID)
	assert.Equal(t, []string{"vol-1"}, req.DeclinedVolunteers)
}

func TestManualMatch_ReusesOpenRequest(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", true))
	env := testEnv()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})

	outcome := run(t, store, env, ManualMatch{RequesterID: "req-1", VolunteerID: "vol-1"})
	assert.Equal(t, created.RequestID, outcome.RequestID)

	req := getRequest(t, store, created.RequestID)
	assert.Equal(t, model.StatusMatched, req.Status)
	assert.Equal(t, model.InitiatedByAdmin, req.InitiatedBy)
	assert.Equal(t, outcome.MatchID, req.MatchID)
}

func TestManualMatch_CreatesRequest(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", false))
	env := testEnv()

	outcome := run(t, store, env, ManualMatch{RequesterID: "req-1", VolunteerID: "vol-1"})

	requests, err := store.ListRequestsByRequester(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, outcome.RequestID, requests[0].ID)
	assert.Equal(t, model.StatusMatched, requests[0].Status)
}

func TestManualMatch_RejectsMatchedRequester(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", false), approvedVolunteer("vol-2", false))
	env := testEnv()
	run(t, store, env, ManualMatch{RequesterID: "req-1", VolunteerID: "vol-1"})

	_, err := ManualMatch{RequesterID: "req-1", VolunteerID: "vol-2"}.Plan(context.Background(), store, env)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
}

func TestCancelMatch_ReopensRequest(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", false))
	env := testEnv()
	ctx := context.Background()
	matched := run(t, store, env, ManualMatch{RequesterID: "req-1", VolunteerID: "vol-1"})

	outcome := run(t, store, env, CancelMatch{MatchID: matched.MatchID})
	require.Len(t, outcome.Notices, 1)
	assert.Equal(t, NoticeMatchCancelled, outcome.Notices[0].Kind)

	_, err := store.GetMatch(ctx, matched.MatchID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	req := getRequest(t, store, matched.RequestID)
	assert.Equal(t, model.StatusWaitingForFirstApproval, req.Status)
	assert.Empty(t, req.MatchID)

	requester, err := store.GetRequester(ctx, "req-1")
	require.NoError(t, err)
	assert.Empty(t, requester.ActiveMatchID)

	volunteer, err := store.GetVolunteer(ctx, "vol-1")
	require.NoError(t, err)
	assert.Empty(t, volunteer.ActiveMatchIDs)
}

func TestConcurrentPlans_SecondBatchConflicts(t *testing.T) {
	store := seed(t, approvedVolunteer("vol-1", false), approvedVolunteer("vol-2", false))
	env := testEnv()
	ctx := context.Background()
	created := run(t, store, env, CreateRequest{RequesterID: "req-1"})

	// Both volunteers pick the request from the pool against the same snapshot
	first, err := AcceptRequest{RequestID: created.RequestID, VolunteerID: "vol-1"}.Plan(ctx, store, env)
	require.NoError(t, err)
	second, err := AcceptRequest{RequestID: created.RequestID, VolunteerID: "vol-2"}.Plan(ctx, store, env)
	require.NoError(t, err)

	require.NoError(t, store.ApplyBatch(ctx, first.Batch))
	err = store.ApplyBatch(ctx, second.Batch)
	assert.ErrorIs(t, err, db.ErrConflict)

	req := getRequest(t, store, created.RequestID)
	assert.Equal(t, "vol-1", req.VolunteerID)
}

func TestLatestOpenRequest(t *testing.T) {
	requests := []model.Request{
		{ID: "old", Status: model.StatusWaitingForFirstApproval, UpdatedAt: fixedNow.Add(-time.Hour)},
		{ID: "done", Status: model.StatusMatched, UpdatedAt: fixedNow.Add(time.Hour)},
		{ID: "new", Status: model.StatusWaitingForAdminApproval, UpdatedAt: fixedNow},
	}

	latest := LatestOpenRequest(requests)
	require.NotNil(t, latest)
	assert.Equal(t, "new", latest.ID)
	assert.Nil(t, LatestOpenRequest(nil))
}
