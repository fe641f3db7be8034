package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/matchflow"
	"github.com/jakechorley/support-match/pkg/db"
	"github.com/jakechorley/support-match/pkg/events"
	"github.com/jakechorley/support-match/pkg/metrics"
)

// Publisher receives the change events of committed writes
type Publisher interface {
	Publish(events ...events.Event)
}

// Notifier delivers transition notices. Delivery failures are the notifier's concern.
type Notifier interface {
	Notify(ctx context.Context, notices []matchflow.Notice)
}

// TransitionResult summarizes a committed transition
type TransitionResult struct {
	Command   string             `json:"command"`
	RequestID string             `json:"requestId,omitempty"`
	MatchID   string             `json:"matchId,omitempty"`
	Writes    int                `json:"writes"`
	Notices   []matchflow.Notice `json:"notices,omitempty"`
}

// DefaultEnv uses the wall clock and random UUIDs
func DefaultEnv() matchflow.Env {
	return matchflow.Env{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: func() string { return uuid.New().String() },
	}
}

// ApplyMatchTransition plans cmd against the current store contents and commits it as one batch.
// Events are published and notices sent only after the batch is committed.
// publisher, notifier and m may be nil.
func ApplyMatchTransition(
	ctx context.Context,
	store db.Database,
	publisher Publisher,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
	cmd matchflow.Command,
) (*TransitionResult, error) {
	logger = logger.With(zap.String("command", cmd.Name()))
	logger.Debug("Planning transition")

	env := DefaultEnv()
	outcome, err := cmd.Plan(ctx, store, env)
	if err != nil {
		m.ObserveTransition(cmd.Name(), transitionResultLabel(err))
		if matchflow.IsPrecondition(err) {
			logger.Info("Transition rejected", zap.Error(err))
		}
		return nil, err
	}

	logger.Debug("Transition planned",
		zap.Int("writes", outcome.Batch.Size()),
		zap.Int("notices", len(outcome.Notices)))

	if !outcome.Batch.IsEmpty() {
		if err := store.ApplyBatch(ctx, outcome.Batch); err != nil {
			m.ObserveTransition(cmd.Name(), transitionResultLabel(err))
			if errors.Is(err, db.ErrConflict) {
				logger.Warn("Transition lost a concurrent update", zap.Error(err))
			}
			return nil, fmt.Errorf("%s: failed to commit: %w", cmd.Name(), err)
		}
	}

	m.ObserveTransition(cmd.Name(), "ok")
	logger.Info("Transition committed",
		zap.String("request_id", outcome.RequestID),
		zap.String("match_id", outcome.MatchID),
		zap.Int("writes", outcome.Batch.Size()))

	if publisher != nil {
		publisher.Publish(events.FromBatch(outcome.Batch, env.Now())...)
	}
	if notifier != nil && len(outcome.Notices) > 0 {
		notifier.Notify(ctx, outcome.Notices)
	}

	return &TransitionResult{
		Command:   cmd.Name(),
		RequestID: outcome.RequestID,
		MatchID:   outcome.MatchID,
		Writes:    outcome.Batch.Size(),
		Notices:   outcome.Notices,
	}, nil
}

func transitionResultLabel(err error) string {
	switch {
	case errors.Is(err, matchflow.ErrInvalidCommand):
		return "invalid"
	case matchflow.IsPrecondition(err):
		return "rejected"
	case errors.Is(err, db.ErrNotFound):
		return "not_found"
	case errors.Is(err, db.ErrConflict):
		return "conflict"
	}
	return "error"
}
