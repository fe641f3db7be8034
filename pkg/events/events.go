package events

import (
	"time"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

// Collection names a document collection
type Collection string

const (
	CollectionRequesters Collection = "requesters"
	CollectionVolunteers Collection = "volunteers"
	CollectionRequests   Collection = "requests"
	CollectionMatches    Collection = "matches"
)

// Op is the kind of change applied to a document
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Event is a committed change to one document.
// PreviousVolunteerID is set on a request whose volunteer assignment the change cleared or replaced.
type Event struct {
	Seq                 uint64     `json:"seq"`
	Collection          Collection `json:"collection"`
	Op                  Op         `json:"op"`
	ID                  string     `json:"id"`
	RequesterID         string     `json:"requesterId,omitempty"`
	VolunteerID         string     `json:"volunteerId,omitempty"`
	PreviousVolunteerID string     `json:"previousVolunteerId,omitempty"`
	Doc                 any        `json:"doc,omitempty"`
	At                  time.Time  `json:"at"`
}

// FromBatch turns a committed batch into events, one per written document.
// Put events carry the document at its committed version; deleted documents carry
// only their ID and the parties they belonged to.
func FromBatch(batch *db.Batch, at time.Time) []Event {
	if batch == nil {
		return nil
	}

	events := make([]Event, 0, batch.Size())
	for i := range batch.Requesters {
		r := batch.Requesters[i]
		r.Version++
		events = append(events, Event{Collection: CollectionRequesters, Op: OpPut, ID: r.ID, RequesterID: r.ID, Doc: r, At: at})
	}
	for i := range batch.Volunteers {
		v := batch.Volunteers[i]
		v.Version++
		events = append(events, Event{Collection: CollectionVolunteers, Op: OpPut, ID: v.ID, VolunteerID: v.ID, Doc: v, At: at})
	}
	for i := range batch.Requests {
		r := batch.Requests[i]
		r.Version++
		events = append(events, Event{
			Collection:          CollectionRequests,
			Op:                  OpPut,
			ID:                  r.ID,
			RequesterID:         r.RequesterID,
			VolunteerID:         r.VolunteerID,
			PreviousVolunteerID: batch.PreviousVolunteers[r.ID],
			Doc:                 r,
			At:                  at,
		})
	}
	for i := range batch.Matches {
		m := batch.Matches[i]
		m.Version++
		events = append(events, Event{Collection: CollectionMatches, Op: OpPut, ID: m.ID, RequesterID: m.RequesterID, VolunteerID: m.VolunteerID, Doc: m, At: at})
	}

	deletes := []struct {
		collection Collection
		refs       []db.Ref
	}{
		{CollectionRequesters, batch.DeleteRequesters},
		{CollectionVolunteers, batch.DeleteVolunteers},
		{CollectionRequests, batch.DeleteRequests},
		{CollectionMatches, batch.DeleteMatches},
	}
	for _, d := range deletes {
		for _, ref := range d.refs {
			e := Event{Collection: d.collection, Op: OpDelete, ID: ref.ID, RequesterID: ref.RequesterID, VolunteerID: ref.VolunteerID, At: at}
			switch d.collection {
			case CollectionRequesters:
				e.RequesterID = ref.ID
			case CollectionVolunteers:
				e.VolunteerID = ref.ID
			}
			events = append(events, e)
		}
	}

	return events
}

// ProfileEvent builds the event for a newly registered profile
func ProfileEvent(doc any, at time.Time) (Event, bool) {
	switch p := doc.(type) {
	case *model.RequesterProfile:
		return Event{Collection: CollectionRequesters, Op: OpPut, ID: p.ID, RequesterID: p.ID, Doc: *p, At: at}, true
	case *model.VolunteerProfile:
		return Event{Collection: CollectionVolunteers, Op: OpPut, ID: p.ID, VolunteerID: p.ID, Doc: *p, At: at}, true
	}
	return Event{}, false
}
