package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayIndex(t *testing.T) {
	day, ok := WeekdayIndex(DaySunday)
	require.True(t, ok)
	assert.Equal(t, time.Sunday, day)

	day, ok = WeekdayIndex(DaySaturday)
	require.True(t, ok)
	assert.Equal(t, time.Saturday, day)

	_, ok = WeekdayIndex("Sunday")
	assert.False(t, ok)
}

func TestNormalizePeriod(t *testing.T) {
	assert.Equal(t, PeriodMorning, NormalizePeriod("בוקר (8:00-12:00)"))
	assert.Equal(t, PeriodEvening, NormalizePeriod("  ערב "))
	assert.Equal(t, "", NormalizePeriod("(20:00-24:00)"))
}

func TestWithoutOther(t *testing.T) {
	assert.Equal(t, []string{FrequencyOnceAWeek}, WithoutOther([]string{FrequencyOnceAWeek, OptionOther, " ", ""}))
	assert.Empty(t, WithoutOther(nil))
}

func TestRequestStatus(t *testing.T) {
	assert.True(t, StatusWaitingForFirstApproval.IsOpen())
	assert.True(t, StatusWaitingForAdminApproval.IsOpen())
	assert.False(t, StatusMatched.IsOpen())
	assert.False(t, RequestStatus("cancelled").IsValid())
}

func TestVolunteer_IsSelectable(t *testing.T) {
	tests := []struct {
		name      string
		volunteer VolunteerProfile
		want      bool
	}{
		{"approved and available", VolunteerProfile{Approved: ApprovalApproved, IsAvailable: true}, true},
		{"pending", VolunteerProfile{Approved: ApprovalPending, IsAvailable: true}, false},
		{"declined", VolunteerProfile{Approved: ApprovalDeclined, IsAvailable: true}, false},
		{"unavailable", VolunteerProfile{Approved: ApprovalApproved}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.volunteer.IsSelectable())
		})
	}
}

func TestValidateVolunteer(t *testing.T) {
	valid := VolunteerProfile{ID: "v1", FullName: "Avi", Approved: ApprovalPending, AvailableDays: []string{DayMonday}}
	assert.NoError(t, ValidateVolunteer(&valid))

	badDay := valid
	badDay.AvailableDays = []string{"Monday"}
	assert.ErrorIs(t, ValidateVolunteer(&badDay), ErrInvalid)

	badApproval := valid
	badApproval.Approved = "yes"
	assert.ErrorIs(t, ValidateVolunteer(&badApproval), ErrInvalid)

	badEmail := valid
	badEmail.Email = "not-an-email"
	assert.ErrorIs(t, ValidateVolunteer(&badEmail), ErrInvalid)

	missingName := valid
	missingName.FullName = ""
	assert.ErrorIs(t, ValidateVolunteer(&missingName), ErrInvalid)
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		wantErr bool
	}{
		{"open", Request{ID: "r1", RequesterID: "q1", Status: StatusWaitingForFirstApproval}, false},
		{"awaiting admin", Request{ID: "r1", RequesterID: "q1", VolunteerID: "v1", Status: StatusWaitingForAdminApproval, InitiatedBy: InitiatedByRequester}, false},
		{"awaiting admin without volunteer", Request{ID: "r1", RequesterID: "q1", Status: StatusWaitingForAdminApproval}, true},
		{"matched without match", Request{ID: "r1", RequesterID: "q1", VolunteerID: "v1", Status: StatusMatched}, true},
		{"unknown status", Request{ID: "r1", RequesterID: "q1", Status: "done"}, true},
		{"unknown initiator", Request{ID: "r1", RequesterID: "q1", Status: StatusWaitingForFirstApproval, InitiatedBy: "system"}, true},
		{"missing requester", Request{ID: "r1", Status: StatusWaitingForFirstApproval}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(&tt.request)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMatch(t *testing.T) {
	match := Match{ID: "m1", RequesterID: "q1", VolunteerID: "v1", RequestID: "r1", Status: MatchStatusActive}
	assert.NoError(t, ValidateMatch(&match))

	match.Status = "ended"
	assert.ErrorIs(t, ValidateMatch(&match), ErrInvalid)
}

func TestValidateAdmin(t *testing.T) {
	assert.NoError(t, ValidateAdmin(&AdminProfile{ID: "a1", FullName: "Rina", Email: "rina@example.com"}))
	assert.ErrorIs(t, ValidateAdmin(&AdminProfile{ID: "a1", FullName: "Rina"}), ErrInvalid)
}
