package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalid marks a document rejected by validation
var ErrInvalid = errors.New("invalid document")

// ValidateRequester checks a requester document at the store boundary
func ValidateRequester(r *RequesterProfile) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: requester %q: %w", ErrInvalid, r.ID, err)
	}
	return nil
}

// ValidateVolunteer checks a volunteer document at the store boundary
func ValidateVolunteer(v *VolunteerProfile) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: volunteer %q: %w", ErrInvalid, v.ID, err)
	}
	if !v.Approved.IsValid() {
		return fmt.Errorf("%w: volunteer %q: unknown approval state %q", ErrInvalid, v.ID, v.Approved)
	}
	for _, day := range v.AvailableDays {
		if _, ok := WeekdayIndex(day); !ok {
			return fmt.Errorf("%w: volunteer %q: unknown weekday %q", ErrInvalid, v.ID, day)
		}
	}
	return nil
}

// ValidateRequest checks a request document at the store boundary
func ValidateRequest(r *Request) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: request %q: %w", ErrInvalid, r.ID, err)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: request %q: unknown status %q", ErrInvalid, r.ID, r.Status)
	}
	if !r.InitiatedBy.IsValid() {
		return fmt.Errorf("%w: request %q: unknown initiator %q", ErrInvalid, r.ID, r.InitiatedBy)
	}
	if r.Status == StatusMatched && r.MatchID == "" {
		return fmt.Errorf("%w: request %q: matched without a match id", ErrInvalid, r.ID)
	}
	if r.Status == StatusWaitingForAdminApproval && r.VolunteerID == "" {
		return fmt.Errorf("%w: request %q: awaiting admin approval without a volunteer", ErrInvalid, r.ID)
	}
	return nil
}

// ValidateMatch checks a match document at the store boundary
func ValidateMatch(m *Match) error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: match %q: %w", ErrInvalid, m.ID, err)
	}
	return nil
}

// ValidateAdmin checks an admin document at the store boundary
func ValidateAdmin(a *AdminProfile) error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: admin %q: %w", ErrInvalid, a.ID, err)
	}
	return nil
}
