package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

// execer is satisfied by both the pool and a transaction
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ApplyBatch applies every write in one transaction. A put planned at version 0 inserts;
// any other write only succeeds against the version it was planned at.
func (d *DB) ApplyBatch(ctx context.Context, batch *db.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		for i := range batch.Requesters {
			r := &batch.Requesters[i]
			if err := put(ctx, tx, "requester "+r.ID, r.Version, insertRequester, updateRequester, r); err != nil {
				return err
			}
		}
		for i := range batch.Volunteers {
			v := &batch.Volunteers[i]
			if err := put(ctx, tx, "volunteer "+v.ID, v.Version, insertVolunteer, updateVolunteer, v); err != nil {
				return err
			}
		}
		for i := range batch.Requests {
			r := &batch.Requests[i]
			if err := put(ctx, tx, "request "+r.ID, r.Version, insertRequest, updateRequest, r); err != nil {
				return err
			}
		}
		for i := range batch.Matches {
			m := &batch.Matches[i]
			if err := put(ctx, tx, "match "+m.ID, m.Version, insertMatch, updateMatch, m); err != nil {
				return err
			}
		}

		deletes := []struct {
			table string
			refs  []db.Ref
		}{
			{"requesters", batch.DeleteRequesters},
			{"volunteers", batch.DeleteVolunteers},
			{"requests", batch.DeleteRequests},
			{"matches", batch.DeleteMatches},
		}
		for _, del := range deletes {
			for _, ref := range del.refs {
				tag, err := tx.Exec(ctx, `DELETE FROM `+del.table+` WHERE id = $1 AND version = $2`, ref.ID, ref.Version)
				if err != nil {
					return fmt.Errorf("failed to delete %s %s: %w", del.table, ref.ID, err)
				}
				if tag.RowsAffected() == 0 {
					return fmt.Errorf("%s %s changed or no longer exists: %w", del.table, ref.ID, db.ErrConflict)
				}
			}
		}

		return nil
	})
}

// put inserts a new document or updates an existing one at the expected version
func put[T any](
	ctx context.Context,
	tx execer,
	what string,
	version int64,
	insert func(context.Context, execer, *T) (pgconn.CommandTag, error),
	update func(context.Context, execer, *T) (pgconn.CommandTag, error),
	doc *T,
) error {
	if version == 0 {
		_, err := insert(ctx, tx, doc)
		return translate(err, what)
	}

	tag, err := update(ctx, tx, doc)
	if err != nil {
		return translate(err, what)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s is not at version %d: %w", what, version, db.ErrConflict)
	}
	return nil
}

func insertRequester(ctx context.Context, e execer, r *model.RequesterProfile) (pgconn.CommandTag, error) {
	return e.Exec(ctx, `
		INSERT INTO requesters (`+requesterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11)
	`, r.ID, r.FullName, r.Email, r.Phone, nonNil(r.Frequency), nonNil(r.PreferredTimes), r.Reason, r.Needs,
		r.ActiveMatchID, r.Personal, r.CreatedAt)
}

func updateRequester(ctx context.Context, e execer, r *model.RequesterProfile) (pgconn.CommandTag, error) {
	return e.Exec(ctx, `
		UPDATE requesters SET full_name = $2, email = $3, phone = $4, frequency = $5, preferred_times = $6,
			reason = $7, needs = $8, active_match_id = $9, personal = $10, version = version + 1
		WHERE id = $1 AND version = $11
	`, r.ID, r.FullName, r.Email, r.Phone, nonNil(r.Frequency), nonNil(r.PreferredTimes), r.Reason, r.Needs,
		r.ActiveMatchID, r.Personal, r.Version)
}

func insertVolunteer(ctx context.Context, e execer, v *model.VolunteerProfile) (pgconn.CommandTag, error) {
	return e.Exec(ctx, `
		INSERT INTO volunteers (`+volunteerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16)
	`, v.ID, v.FullName, v.Email, v.Phone, v.Profession, v.Age, v.Gender, v.Experience, string(v.Approved),
		v.IsAvailable, nonNil(v.AvailableDays), nonNil(v.AvailableHours), nonNil(v.Frequency), nonNil(v.ActiveMatchIDs),
		v.Personal, v.CreatedAt)
}

func updateVolunteer(ctx context.Context, e execer, v *model.VolunteerProfile) (pgconn.CommandTag, error) {
	return e.Exec(ctx, `
		UPDATE volunteers SET full_name = $2, email = $3, phone = $4, profession = $5, age = $6, gender = $7,
			experience = $8, approved = $9, is_available = $10, available_days = $11, available_hours = $12,
			frequency = $13, active_match_ids = $14, personal = $15, version = version + 1
		WHERE id = $1 AND version = $16
	`, v.ID, v.FullName, v.Email, v.Phone, v.Profession, v.Age, v.Gender, v.Experience, string(v.Approved),
		v.IsAvailable, nonNil(v.AvailableDays), nonNil(v.AvailableHours), nonNil(v.Frequency), nonNil(v.ActiveMatchIDs),
		v.Personal, v.Version)
}

func insertRequest(ctx context.Context, e execer, r *model.Request) (pgconn.CommandTag, error) {
	return e.Exec(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9)
	`, r.ID, r.RequesterID, r.VolunteerID, string(r.InitiatedBy), string(r.Status), nonNil(r.DeclinedVolunteers),
		r.MatchID, r.CreatedAt, r.UpdatedAt)
}

func updateRequest(ctx context.Context, e execer, r *model.Request) (pgconn.CommandTag, error) {
	return e.Exec(ctx, `
		UPDATE requests SET volunteer_id = $2, initiated_by = $3, status = $4, declined_volunteers = $5,
			match_id = $6, updated_at = $7, version = version + 1
		WHERE id = $1 AND version = $8
	`, r.ID, r.VolunteerID, string(r.InitiatedBy), string(r.Status), nonNil(r.DeclinedVolunteers),
		r.MatchID, r.UpdatedAt, r.Version)
}

func insertMatch(ctx context.Context, e execer, m *model.Match) (pgconn.CommandTag, error) {
	return e.Exec(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
	`, m.ID, m.RequesterID, m.VolunteerID, m.RequestID, m.Status, m.StartDate)
}

func updateMatch(ctx context.Context, e execer, m *model.Match) (pgconn.CommandTag, error) {
	return e.Exec(ctx, `
		UPDATE matches SET status = $2, start_date = $3, version = version + 1
		WHERE id = $1 AND version = $4
	`, m.ID, m.Status, m.StartDate, m.Version)
}
