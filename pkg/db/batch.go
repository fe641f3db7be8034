package db

import (
	"fmt"

	"github.com/jakechorley/support-match/pkg/core/model"
)

// Ref identifies a document to delete and the version it was read at.
// RequesterID and VolunteerID name the parties the document belonged to; stores ignore them.
type Ref struct {
	ID          string
	Version     int64
	RequesterID string
	VolunteerID string
}

// Batch is a set of writes that must be applied all-or-nothing.
//
// Each put carries the Version the document was read at; a zero Version means the
// document is new and must not exist yet. Stores reject the whole batch with ErrConflict
// when any stored version differs, and bump the version of every written document.
type Batch struct {
	Requesters []model.RequesterProfile
	Volunteers []model.VolunteerProfile
	Requests   []model.Request
	Matches    []model.Match

	DeleteRequesters []Ref
	DeleteVolunteers []Ref
	DeleteRequests   []Ref
	DeleteMatches    []Ref

	// PreviousVolunteers maps a written request to the volunteer it was assigned
	// before the batch, when the batch clears or replaces that assignment
	PreviousVolunteers map[string]string
}

// IsEmpty reports whether the batch writes nothing
func (b *Batch) IsEmpty() bool {
	return len(b.Requesters) == 0 && len(b.Volunteers) == 0 &&
		len(b.Requests) == 0 && len(b.Matches) == 0 &&
		len(b.DeleteRequesters) == 0 && len(b.DeleteVolunteers) == 0 &&
		len(b.DeleteRequests) == 0 && len(b.DeleteMatches) == 0
}

// Size returns the number of document writes in the batch
func (b *Batch) Size() int {
	return len(b.Requesters) + len(b.Volunteers) + len(b.Requests) + len(b.Matches) +
		len(b.DeleteRequesters) + len(b.DeleteVolunteers) + len(b.DeleteRequests) + len(b.DeleteMatches)
}

// Validate checks every document in the batch and rejects a document written twice
func (b *Batch) Validate() error {
	seen := make(map[string]bool)
	claim := func(collection, id string) error {
		key := collection + "/" + id
		if seen[key] {
			return fmt.Errorf("batch writes %s more than once", key)
		}
		seen[key] = true
		return nil
	}

	for i := range b.Requesters {
		if err := model.ValidateRequester(&b.Requesters[i]); err != nil {
			return err
		}
		if err := claim("requesters", b.Requesters[i].ID); err != nil {
			return err
		}
	}
	for i := range b.Volunteers {
		if err := model.ValidateVolunteer(&b.Volunteers[i]); err != nil {
			return err
		}
		if err := claim("volunteers", b.Volunteers[i].ID); err != nil {
			return err
		}
	}
	for i := range b.Requests {
		if err := model.ValidateRequest(&b.Requests[i]); err != nil {
			return err
		}
		if err := claim("requests", b.Requests[i].ID); err != nil {
			return err
		}
	}
	for i := range b.Matches {
		if err := model.ValidateMatch(&b.Matches[i]); err != nil {
			return err
		}
		if err := claim("matches", b.Matches[i].ID); err != nil {
			return err
		}
	}

	deletes := []struct {
		collection string
		refs       []Ref
	}{
		{"requesters", b.DeleteRequesters},
		{"volunteers", b.DeleteVolunteers},
		{"requests", b.DeleteRequests},
		{"matches", b.DeleteMatches},
	}
	for _, d := range deletes {
		for _, ref := range d.refs {
			if ref.ID == "" {
				return fmt.Errorf("batch deletes from %s without an id", d.collection)
			}
			if err := claim(d.collection, ref.ID); err != nil {
				return err
			}
		}
	}

	return nil
}
