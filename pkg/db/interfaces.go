package db

import (
	"context"
	"errors"

	"github.com/jakechorley/support-match/pkg/core/model"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a write was planned against a stale version
	// or would insert a document that already exists
	ErrConflict = errors.New("document was modified concurrently")
)

// ProfileStore defines the operations on requester, volunteer and admin profiles
type ProfileStore interface {
	GetRequester(ctx context.Context, id string) (*model.RequesterProfile, error)
	GetVolunteer(ctx context.Context, id string) (*model.VolunteerProfile, error)
	ListRequesters(ctx context.Context) ([]model.RequesterProfile, error)
	ListVolunteers(ctx context.Context) ([]model.VolunteerProfile, error)
	ListAdmins(ctx context.Context) ([]model.AdminProfile, error)
	InsertRequester(ctx context.Context, requester *model.RequesterProfile) error
	InsertVolunteer(ctx context.Context, volunteer *model.VolunteerProfile) error
	InsertAdmin(ctx context.Context, admin *model.AdminProfile) error
}

// MatchStore defines the operations on the Requests and Matches collections.
// Every multi-document change goes through ApplyBatch.
type MatchStore interface {
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.Request, error)
	GetMatch(ctx context.Context, id string) (*model.Match, error)
	ListMatches(ctx context.Context) ([]model.Match, error)
	ApplyBatch(ctx context.Context, batch *Batch) error
}

// Database defines the interface for all database operations.
// Both the in-memory MemoryDB and postgres.DB implement this interface.
type Database interface {
	ProfileStore
	MatchStore
	Ping(ctx context.Context) error
}
