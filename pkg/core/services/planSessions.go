package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

// rruleWeekdays is indexed by time.Weekday
var rruleWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// SessionPlan is the upcoming session schedule of one match
type SessionPlan struct {
	Match *model.Match `json:"match"`
	Rule  string       `json:"rule"`
	Dates []time.Time  `json:"dates"`
}

// PlanSessions returns the first count session dates of a match, starting at its start date.
// ruleText, when set, is used as the recurrence; otherwise one is derived from the pair's
// frequency and the volunteer's available days.
func PlanSessions(ctx context.Context, store db.Database, logger *zap.Logger, matchID, ruleText string, count int) (*SessionPlan, error) {
	if count <= 0 {
		return nil, fmt.Errorf("session count must be positive, got %d", count)
	}

	match, err := store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}

	var rule *rrule.RRule
	if ruleText != "" {
		rule, err = rrule.StrToRRule(ruleText)
		if err != nil {
			return nil, fmt.Errorf("failed to parse session rrule: %w", err)
		}
		rule.DTStart(match.StartDate)
	} else {
		requester, err := store.GetRequester(ctx, match.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("failed to load requester: %w", err)
		}
		volunteer, err := store.GetVolunteer(ctx, match.VolunteerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load volunteer: %w", err)
		}
		rule, err = rrule.NewRRule(SessionOption(requester, volunteer, match.StartDate))
		if err != nil {
			return nil, fmt.Errorf("failed to build session rrule: %w", err)
		}
	}

	dates := make([]time.Time, 0, count)
	next := rule.Iterator()
	for len(dates) < count {
		date, ok := next()
		if !ok {
			break
		}
		dates = append(dates, date)
	}

	logger.Debug("Planned sessions",
		zap.String("match_id", match.ID),
		zap.String("rule", rule.String()),
		zap.Int("sessions", len(dates)))

	return &SessionPlan{Match: match, Rule: rule.String(), Dates: dates}, nil
}

// SessionOption derives a weekly recurrence for a pair: on the volunteer's first available
// day, or the first two when the requester asked for twice a week. Without known days the
// sessions fall on the start date's weekday.
func SessionOption(requester *model.RequesterProfile, volunteer *model.VolunteerProfile, start time.Time) rrule.ROption {
	perWeek := 1
	if slices.Contains(requester.Frequency, model.FrequencyTwiceAWeek) {
		perWeek = 2
	}

	var days []rrule.Weekday
	seen := make(map[time.Weekday]bool)
	for _, name := range volunteer.AvailableDays {
		day, ok := model.WeekdayIndex(name)
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, rruleWeekdays[day])
		if len(days) == perWeek {
			break
		}
	}

	return rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   start,
		Byweekday: days,
	}
}
