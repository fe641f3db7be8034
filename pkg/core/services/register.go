package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
	"github.com/jakechorley/support-match/pkg/events"
)

// RegisterRequester stores a new requester profile. ID and CreatedAt are assigned when empty.
func RegisterRequester(ctx context.Context, store db.ProfileStore, publisher Publisher, logger *zap.Logger, requester *model.RequesterProfile) error {
	if requester.ID == "" {
		requester.ID = uuid.New().String()
	}
	if requester.CreatedAt.IsZero() {
		requester.CreatedAt = time.Now().UTC()
	}
	requester.ActiveMatchID = ""
	requester.Frequency = model.WithoutOther(requester.Frequency)
	requester.PreferredTimes = model.WithoutOther(requester.PreferredTimes)

	logger.Debug("Registering requester", zap.String("requester_id", requester.ID))

	if err := store.InsertRequester(ctx, requester); err != nil {
		return fmt.Errorf("failed to register requester: %w", err)
	}
	requester.Version = 1

	logger.Info("Requester registered", zap.String("requester_id", requester.ID))
	publishProfile(publisher, requester)
	return nil
}

// RegisterVolunteer stores a new volunteer profile awaiting admin review.
// New volunteers always start pending and unmatched.
func RegisterVolunteer(ctx context.Context, store db.ProfileStore, publisher Publisher, logger *zap.Logger, volunteer *model.VolunteerProfile) error {
	if volunteer.ID == "" {
		volunteer.ID = uuid.New().String()
	}
	if volunteer.CreatedAt.IsZero() {
		volunteer.CreatedAt = time.Now().UTC()
	}
	volunteer.Approved = model.ApprovalPending
	volunteer.ActiveMatchIDs = nil
	volunteer.Frequency = model.WithoutOther(volunteer.Frequency)

	logger.Debug("Registering volunteer", zap.String("volunteer_id", volunteer.ID))

	if err := store.InsertVolunteer(ctx, volunteer); err != nil {
		return fmt.Errorf("failed to register volunteer: %w", err)
	}
	volunteer.Version = 1

	logger.Info("Volunteer registered, awaiting review", zap.String("volunteer_id", volunteer.ID))
	publishProfile(publisher, volunteer)
	return nil
}

func publishProfile(publisher Publisher, doc any) {
	if publisher == nil {
		return
	}
	if e, ok := events.ProfileEvent(doc, time.Now().UTC()); ok {
		publisher.Publish(e)
	}
}
