package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/support-match/pkg/core/model"
)

const requestColumns = `id, requester_id, volunteer_id, initiated_by, status, declined_volunteers, match_id,
	version, created_at, updated_at`

const matchColumns = `id, requester_id, volunteer_id, request_id, status, start_date, version`

func scanRequest(row pgx.Row) (*model.Request, error) {
	var r model.Request
	var initiatedBy, status string
	err := row.Scan(&r.ID, &r.RequesterID, &r.VolunteerID, &initiatedBy, &status, &r.DeclinedVolunteers, &r.MatchID,
		&r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.InitiatedBy = model.Initiator(initiatedBy)
	r.Status = model.RequestStatus(status)
	return &r, nil
}

func scanMatch(row pgx.Row) (*model.Match, error) {
	var m model.Match
	if err := row.Scan(&m.ID, &m.RequesterID, &m.VolunteerID, &m.RequestID, &m.Status, &m.StartDate, &m.Version); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetRequest retrieves a request by ID
func (d *DB) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	r, err := scanRequest(d.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "request "+id)
	}
	return r, nil
}

// ListRequests retrieves all requests ordered by ID
func (d *DB) ListRequests(ctx context.Context) ([]model.Request, error) {
	return d.queryRequests(ctx, `SELECT `+requestColumns+` FROM requests ORDER BY id`)
}

// ListRequestsByRequester retrieves the requests of one requester ordered by ID
func (d *DB) ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.Request, error) {
	return d.queryRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE requester_id = $1 ORDER BY id`, requesterID)
}

func (d *DB) queryRequests(ctx context.Context, query string, args ...any) ([]model.Request, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}

	return requests, nil
}

// GetMatch retrieves a match by ID
func (d *DB) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	m, err := scanMatch(d.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "match "+id)
	}
	return m, nil
}

// ListMatches retrieves all matches ordered by ID
func (d *DB) ListMatches(ctx context.Context) ([]model.Match, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}
