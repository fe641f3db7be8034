package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/support-match/pkg/core/model"
)

const requesterColumns = `id, full_name, email, phone, frequency, preferred_times, reason, needs,
	active_match_id, personal, version, created_at`

const volunteerColumns = `id, full_name, email, phone, profession, age, gender, experience, approved,
	is_available, available_days, available_hours, frequency, active_match_ids, personal, version, created_at`

func scanRequester(row pgx.Row) (*model.RequesterProfile, error) {
	var r model.RequesterProfile
	err := row.Scan(&r.ID, &r.FullName, &r.Email, &r.Phone, &r.Frequency, &r.PreferredTimes, &r.Reason, &r.Needs,
		&r.ActiveMatchID, &r.Personal, &r.Version, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanVolunteer(row pgx.Row) (*model.VolunteerProfile, error) {
	var v model.VolunteerProfile
	var approved string
	err := row.Scan(&v.ID, &v.FullName, &v.Email, &v.Phone, &v.Profession, &v.Age, &v.Gender, &v.Experience, &approved,
		&v.IsAvailable, &v.AvailableDays, &v.AvailableHours, &v.Frequency, &v.ActiveMatchIDs, &v.Personal, &v.Version, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.Approved = model.Approval(approved)
	return &v, nil
}

// GetRequester retrieves a requester by ID
func (d *DB) GetRequester(ctx context.Context, id string) (*model.RequesterProfile, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+requesterColumns+` FROM requesters WHERE id = $1`, id)
	r, err := scanRequester(row)
	if err != nil {
		return nil, translate(err, "requester "+id)
	}
	return r, nil
}

// GetVolunteer retrieves a volunteer by ID
func (d *DB) GetVolunteer(ctx context.Context, id string) (*model.VolunteerProfile, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+volunteerColumns+` FROM volunteers WHERE id = $1`, id)
	v, err := scanVolunteer(row)
	if err != nil {
		return nil, translate(err, "volunteer "+id)
	}
	return v, nil
}

// ListRequesters retrieves all requesters ordered by ID
func (d *DB) ListRequesters(ctx context.Context) ([]model.RequesterProfile, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+requesterColumns+` FROM requesters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query requesters: %w", err)
	}
	defer rows.Close()

	var requesters []model.RequesterProfile
	for rows.Next() {
		r, err := scanRequester(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requester: %w", err)
		}
		requesters = append(requesters, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requesters: %w", err)
	}

	return requesters, nil
}

// ListVolunteers retrieves all volunteers ordered by ID
func (d *DB) ListVolunteers(ctx context.Context) ([]model.VolunteerProfile, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+volunteerColumns+` FROM volunteers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteers: %w", err)
	}
	defer rows.Close()

	var volunteers []model.VolunteerProfile
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan volunteer: %w", err)
		}
		volunteers = append(volunteers, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volunteers: %w", err)
	}

	return volunteers, nil
}

// ListAdmins retrieves all admins ordered by ID
func (d *DB) ListAdmins(ctx context.Context) ([]model.AdminProfile, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, full_name, email FROM admins ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()

	var admins []model.AdminProfile
	for rows.Next() {
		var a model.AdminProfile
		if err := rows.Scan(&a.ID, &a.FullName, &a.Email); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admins: %w", err)
	}

	return admins, nil
}

// InsertRequester registers a new requester at version 1
func (d *DB) InsertRequester(ctx context.Context, requester *model.RequesterProfile) error {
	if err := model.ValidateRequester(requester); err != nil {
		return err
	}
	_, err := insertRequester(ctx, d.pool, requester)
	return translate(err, "requester "+requester.ID)
}

// InsertVolunteer registers a new volunteer at version 1
func (d *DB) InsertVolunteer(ctx context.Context, volunteer *model.VolunteerProfile) error {
	if err := model.ValidateVolunteer(volunteer); err != nil {
		return err
	}
	_, err := insertVolunteer(ctx, d.pool, volunteer)
	return translate(err, "volunteer "+volunteer.ID)
}

// InsertAdmin registers a new admin
func (d *DB) InsertAdmin(ctx context.Context, admin *model.AdminProfile) error {
	if err := model.ValidateAdmin(admin); err != nil {
		return err
	}
	_, err := d.pool.Exec(ctx, `INSERT INTO admins (id, full_name, email) VALUES ($1, $2, $3)`,
		admin.ID, admin.FullName, admin.Email)
	return translate(err, "admin "+admin.ID)
}
