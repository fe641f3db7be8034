package model

import (
	"strings"
	"time"
)

// Option values shared by the registration forms
const (
	OptionOther = "אחר"

	FrequencyOnceAWeek  = "פעם בשבוע"
	FrequencyTwiceAWeek = "פעמיים בשבוע"
)

// Time period labels. Volunteer labels may carry a clock range suffix, e.g. "בוקר (8:00-12:00)"
const (
	PeriodMorning   = "בוקר"
	PeriodNoon      = "צהריים"
	PeriodAfternoon = "אחר הצהריים"
	PeriodEvening   = "ערב"
	PeriodNight     = "לילה"
)

// Weekday names as stored in volunteer availableDays
const (
	DaySunday    = "ראשון"
	DayMonday    = "שני"
	DayTuesday   = "שלישי"
	DayWednesday = "רביעי"
	DayThursday  = "חמישי"
	DayFriday    = "שישי"
	DaySaturday  = "שבת"
)

// Weekdays lists the weekday names in calendar order starting from Sunday
var Weekdays = []string{DaySunday, DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday}

// WeekdayIndex returns the time.Weekday for a Hebrew day name
func WeekdayIndex(day string) (time.Weekday, bool) {
	for i, d := range Weekdays {
		if d == day {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// Approval is the tri-state admin review status of a volunteer
type Approval string

const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "true"
	ApprovalDeclined Approval = "declined"
)

func (a Approval) IsValid() bool {
	return a == ApprovalPending || a == ApprovalApproved || a == ApprovalDeclined
}

// RequestStatus is the lifecycle state of a support request
type RequestStatus string

const (
	StatusWaitingForFirstApproval RequestStatus = "waiting_for_first_approval"
	StatusWaitingForAdminApproval RequestStatus = "waiting_for_admin_approval"
	StatusMatched                 RequestStatus = "matched"
)

func (s RequestStatus) IsValid() bool {
	return s == StatusWaitingForFirstApproval || s == StatusWaitingForAdminApproval || s == StatusMatched
}

// IsOpen reports whether the request is still looking for a match
func (s RequestStatus) IsOpen() bool {
	return s == StatusWaitingForFirstApproval || s == StatusWaitingForAdminApproval
}

// Initiator records who proposed the volunteer currently attached to a request
type Initiator string

const (
	InitiatedByNone      Initiator = ""
	InitiatedByRequester Initiator = "requester"
	InitiatedByVolunteer Initiator = "volunteer"
	InitiatedByAdmin     Initiator = "admin"
)

func (i Initiator) IsValid() bool {
	switch i {
	case InitiatedByNone, InitiatedByRequester, InitiatedByVolunteer, InitiatedByAdmin:
		return true
	}
	return false
}

const MatchStatusActive = "active"

// RequesterProfile is a person seeking support.
// Name and contact fields never take part in scoring.
type RequesterProfile struct {
	ID             string    `json:"id" validate:"required"`
	FullName       string    `json:"fullName" validate:"required"`
	Email          string    `json:"email" validate:"omitempty,email"`
	Phone          string    `json:"phone,omitempty"`
	Frequency      []string  `json:"frequency,omitempty"`
	PreferredTimes []string  `json:"preferredTimes,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Needs          string    `json:"needs,omitempty"`
	ActiveMatchID  string    `json:"activeMatchId,omitempty"` // empty when not matched
	Personal       bool      `json:"personal"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
}

// VolunteerProfile is a person offering support
type VolunteerProfile struct {
	ID             string    `json:"id" validate:"required"`
	FullName       string    `json:"fullName" validate:"required"`
	Email          string    `json:"email" validate:"omitempty,email"`
	Phone          string    `json:"phone,omitempty"`
	Profession     string    `json:"profession,omitempty"`
	Age            int       `json:"age,omitempty" validate:"gte=0,lte=120"`
	Gender         string    `json:"gender,omitempty"`
	Experience     string    `json:"experience,omitempty"`
	Approved       Approval  `json:"approved" validate:"required"`
	IsAvailable    bool      `json:"isAvailable"`
	AvailableDays  []string  `json:"availableDays,omitempty"`
	AvailableHours []string  `json:"availableHours,omitempty"`
	Frequency      []string  `json:"frequency,omitempty"`
	ActiveMatchIDs []string  `json:"activeMatchIds,omitempty"`
	Personal       bool      `json:"personal"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsSelectable reports whether the volunteer may currently be proposed for a match
func (v *VolunteerProfile) IsSelectable() bool {
	return v.IsAvailable && v.Approved == ApprovalApproved
}

// HasMatch reports whether matchID is one of the volunteer's active matches
func (v *VolunteerProfile) HasMatch(matchID string) bool {
	for _, id := range v.ActiveMatchIDs {
		if id == matchID {
			return true
		}
	}
	return false
}

// AdminProfile is a coordinator with access to the matching console
type AdminProfile struct {
	ID       string `json:"id" validate:"required"`
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// Request is a requester's standing ask for a match
type Request struct {
	ID                 string        `json:"id" validate:"required"`
	RequesterID        string        `json:"requesterId" validate:"required"`
	VolunteerID        string        `json:"volunteerId,omitempty"` // empty means open pool
	InitiatedBy        Initiator     `json:"initiatedBy,omitempty"`
	Status             RequestStatus `json:"status" validate:"required"`
	DeclinedVolunteers []string      `json:"declinedVolunteers,omitempty"`
	MatchID            string        `json:"matchId,omitempty"`
	Version            int64         `json:"version"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// HasDeclined reports whether volunteerID has already passed on this request
func (r *Request) HasDeclined(volunteerID string) bool {
	for _, id := range r.DeclinedVolunteers {
		if id == volunteerID {
			return true
		}
	}
	return false
}

// Match is an active, admin-approved pairing
type Match struct {
	ID          string    `json:"id" validate:"required"`
	RequesterID string    `json:"requesterId" validate:"required"`
	VolunteerID string    `json:"volunteerId" validate:"required"`
	RequestID   string    `json:"requestId" validate:"required"`
	Status      string    `json:"status" validate:"required,eq=active"`
	StartDate   time.Time `json:"startDate"`
	Version     int64     `json:"version"`
}

// NormalizePeriod strips a parenthesised clock range from a time period label
func NormalizePeriod(label string) string {
	if i := strings.Index(label, "("); i >= 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}

// WithoutOther returns values with empty entries and the "other" placeholder removed
func WithoutOther(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == OptionOther {
			continue
		}
		result = append(result, v)
	}
	return result
}
