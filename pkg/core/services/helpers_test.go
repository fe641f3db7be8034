package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jakechorley/support-match/pkg/clients/sheetsclient"
	"github.com/jakechorley/support-match/pkg/core/matchflow"
	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
	"github.com/jakechorley/support-match/pkg/events"
)

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e ...events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e...)
}

// recordingNotifier collects notices
type recordingNotifier struct {
	mu      sync.Mutex
	notices []matchflow.Notice
	calls   int
}

func (n *recordingNotifier) Notify(ctx context.Context, notices []matchflow.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.notices = append(n.notices, notices...)
}

func (n *recordingNotifier) snapshot() []matchflow.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]matchflow.Notice(nil), n.notices...)
}

// sentEmail is one call to mockSender.SendEmail
type sentEmail struct {
	to, subject, body string
}

type mockSender struct {
	sent []sentEmail
	err  error
}

func (s *mockSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{to, subject, body})
	return nil
}

// mockCompleter returns a canned reply and records the prompt
type mockCompleter struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (c *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls++
	c.prompt = prompt
	return c.reply, c.err
}

type mockReportPublisher struct {
	spreadsheetID, tab string
	report             *sheetsclient.MatchReport
	err                error
}

func (p *mockReportPublisher) PublishMatchReport(ctx context.Context, spreadsheetID, tab string, report *sheetsclient.MatchReport) error {
	p.spreadsheetID = spreadsheetID
	p.tab = tab
	p.report = report
	return p.err
}

// conflictingStore fails every batch as if another writer got there first
type conflictingStore struct {
	*db.MemoryDB
}

func (s conflictingStore) ApplyBatch(ctx context.Context, batch *db.Batch) error {
	return db.ErrConflict
}

var fiveDays = []string{model.DaySunday, model.DayMonday, model.DayTuesday, model.DayWednesday, model.DayThursday}

func newStore(t *testing.T) *db.MemoryDB {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemoryDB()
	require.NoError(t, store.InsertRequester(ctx, &model.RequesterProfile{
		ID:             "req-1",
		FullName:       "Dana",
		Email:          "dana@example.com",
		Frequency:      []string{model.FrequencyOnceAWeek},
		PreferredTimes: []string{model.PeriodEvening},
	}))
	// no days or hours, so scores zero
	require.NoError(t, store.InsertVolunteer(ctx, &model.VolunteerProfile{
		ID:          "vol-empty",
		FullName:    "Noa",
		Email:       "noa@example.com",
		Approved:    model.ApprovalApproved,
		IsAvailable: true,
	}))
	require.NoError(t, store.InsertVolunteer(ctx, &model.VolunteerProfile{
		ID:             "vol-evening",
		FullName:       "Avi",
		Email:          "avi@example.com",
		Approved:       model.ApprovalApproved,
		IsAvailable:    true,
		AvailableDays:  fiveDays,
		AvailableHours: []string{"ערב (20:00-24:00)"},
	}))
	require.NoError(t, store.InsertAdmin(ctx, &model.AdminProfile{ID: "admin-1", FullName: "Rina", Email: "rina@example.com"}))
	return store
}
