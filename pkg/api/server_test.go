package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/core/services"
	"github.com/jakechorley/support-match/pkg/db"
	"github.com/jakechorley/support-match/pkg/events"
	"github.com/jakechorley/support-match/pkg/metrics"
)

type stubCompleter struct {
	reply string
	err   error
}

func (c stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return c.reply, c.err
}

type testServer struct {
	server *Server
	store  *db.MemoryDB
	hub    *events.Hub
	router http.Handler
}

func newTestServer(t *testing.T, ai services.Completer) *testServer {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemoryDB()
	require.NoError(t, store.InsertRequester(ctx, &model.RequesterProfile{
		ID:             "req-1",
		FullName:       "Dana",
		Frequency:      []string{model.FrequencyOnceAWeek},
		PreferredTimes: []string{model.PeriodEvening},
	}))
	require.NoError(t, store.InsertVolunteer(ctx, &model.VolunteerProfile{
		ID:             "vol-1",
		FullName:       "Avi",
		Approved:       model.ApprovalApproved,
		IsAvailable:    true,
		AvailableDays:  []string{model.DaySunday, model.DayMonday, model.DayTuesday, model.DayWednesday, model.DayThursday},
		AvailableHours: []string{"ערב (20:00-24:00)"},
	}))

	hub := events.NewHub(zap.NewNop(), nil, 16)
	t.Cleanup(hub.Close)

	server := New(store, hub, nil, ai, metrics.New(), zap.NewNop(), Options{RecommendedThreshold: 50})
	return &testServer{server: server, store: store, hub: hub, router: server.Routes()}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])
}

func TestMatchLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/requesters/req-1/volunteers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ranked := decodeBody[services.RankResult](t, rec)
	require.Len(t, ranked.Volunteers, 1)
	assert.Equal(t, 50, ranked.Volunteers[0].CompatibilityScore)
	assert.True(t, ranked.Volunteers[0].Recommended)

	rec = ts.do(t, http.MethodPost, "/api/requests", map[string]string{"requesterId": "req-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[services.TransitionResult](t, rec)
	require.NotEmpty(t, created.RequestID)

	rec = ts.do(t, http.MethodPost, "/api/requests/"+created.RequestID+"/select", map[string]string{"volunteerId": "vol-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/admin/requests/"+created.RequestID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decodeBody[services.TransitionResult](t, rec)
	require.NotEmpty(t, approved.MatchID)

	request, err := ts.store.GetRequest(context.Background(), created.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusMatched, request.Status)

	rec = ts.do(t, http.MethodGet, "/api/admin/matches/"+approved.MatchID+"/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decodeBody[services.SessionPlan](t, rec)
	assert.Len(t, plan.Dates, 8)

	rec = ts.do(t, http.MethodDelete, "/api/admin/matches/"+approved.MatchID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	request, err = ts.store.GetRequest(context.Background(), created.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitingForFirstApproval, request.Status)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/requests", map[string]string{"requesterId": "req-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	requestID := decodeBody[services.TransitionResult](t, rec).RequestID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"wrong status", http.MethodPost, "/api/admin/requests/" + requestID + "/approve", nil, http.StatusConflict},
		{"second open request", http.MethodPost, "/api/requests", map[string]string{"requesterId": "req-1"}, http.StatusConflict},
		{"unknown request", http.MethodPost, "/api/admin/requests/missing/approve", nil, http.StatusNotFound},
		{"unknown requester", http.MethodGet, "/api/requesters/ghost/volunteers", nil, http.StatusNotFound},
		{"missing volunteer", http.MethodPost, "/api/requests/" + requestID + "/select", map[string]string{}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/requests", map[string]string{"requester": "req-1"}, http.StatusBadRequest},
		{"bad review decision", http.MethodPost, "/api/admin/volunteers/vol-1/review", map[string]string{"decision": "maybe"}, http.StatusBadRequest},
		{"suggestions disabled", http.MethodPost, "/api/admin/requesters/req-1/suggestions", nil, http.StatusServiceUnavailable},
		{"unknown collection", http.MethodGet, "/api/subscribe?collection=rotas", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody[errorResponse](t, rec).Error)
		})
	}
}

func TestRegisterVolunteer_StartsPending(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/volunteers", map[string]any{
		"fullName":      "Noa",
		"approved":      "true",
		"isAvailable":   true,
		"availableDays": []string{model.DayMonday},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	volunteer := decodeBody[model.VolunteerProfile](t, rec)
	assert.Equal(t, model.ApprovalPending, volunteer.Approved)

	rec = ts.do(t, http.MethodPost, "/api/admin/volunteers/"+volunteer.ID+"/review", map[string]string{"decision": "true"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := ts.store.GetVolunteer(context.Background(), volunteer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, stored.Approved)
}

func TestBrowseRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/requests", map[string]string{"requesterId": "req-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[services.TransitionResult](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/volunteers/vol-1/pool", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pool := decodeBody[[]services.RequestSummary](t, rec)
	require.Len(t, pool, 1)
	assert.Equal(t, created.RequestID, pool[0].ID)
	assert.Equal(t, "Dana", pool[0].RequesterName)

	rec = ts.do(t, http.MethodPost, "/api/requests/"+created.RequestID+"/select", map[string]string{"volunteerId": "vol-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/admin/requests?status=waiting_for_admin_approval", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	waiting := decodeBody[[]services.RequestSummary](t, rec)
	require.Len(t, waiting, 1)
	assert.Equal(t, "Avi", waiting[0].VolunteerName)

	rec = ts.do(t, http.MethodGet, "/api/admin/requests?status=closed", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/requests/"+created.RequestID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/admin/matches", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	matches := decodeBody[[]services.MatchSummary](t, rec)
	require.Len(t, matches, 1)
	assert.Equal(t, "Dana", matches[0].RequesterName)

	rec = ts.do(t, http.MethodGet, "/api/admin/volunteers?approved=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decodeBody[[]model.VolunteerProfile](t, rec))
}

func TestRankVolunteers_AdminSeesPool(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.store.InsertRequester(context.Background(), &model.RequesterProfile{
		ID: "req-personal", FullName: "Omer", Personal: true,
	}))

	rec := ts.do(t, http.MethodGet, "/api/requesters/req-personal/volunteers", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decodeBody[services.RankResult](t, rec).Volunteers)

	rec = ts.do(t, http.MethodGet, "/api/admin/requesters/req-personal/volunteers", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeBody[services.RankResult](t, rec).Volunteers, 1)
}

func TestRegisterVolunteer_Invalid(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/volunteers", map[string]any{
		"fullName":      "Noa",
		"availableDays": []string{"Funday"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestSuggestions(t *testing.T) {
	ts := newTestServer(t, stubCompleter{reply: "התאמה הטובה ביותר: מתנדב מספר 1\nנימוק: זמין בערב"})

	rec := ts.do(t, http.MethodPost, "/api/admin/requesters/req-1/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeBody[services.SuggestResult](t, rec)
	assert.True(t, result.OK)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "vol-1", result.Suggestions[0].Volunteer.ID)
	assert.Equal(t, "זמין בערב", result.Suggestions[0].Reasoning)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/health", nil)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `support_match_http_requests_total{route="/health",status="200"} 1`)
}

func TestSubscribe_StreamsCommittedChanges(t *testing.T) {
	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/subscribe?collection=requests&requesterId=req-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	rec := ts.do(t, http.MethodPost, "/api/requests", map[string]string{"requesterId": "req-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	requestID := decodeBody[services.TransitionResult](t, rec).RequestID

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e events.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, events.CollectionRequests, e.Collection)
	assert.Equal(t, events.OpPut, e.Op)
	assert.Equal(t, requestID, e.ID)
	assert.Equal(t, "req-1", e.RequesterID)

	conn.Close()
	require.Eventually(t, func() bool { return ts.hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
	assert.Equal(t, http.StatusConflict, statusFor(db.ErrConflict))
	assert.Equal(t, http.StatusNotFound, statusFor(db.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(model.ErrInvalid))
}
