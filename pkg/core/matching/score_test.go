package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakechorley/support-match/pkg/core/model"
)

var fiveDays = []string{model.DaySunday, model.DayMonday, model.DayTuesday, model.DayWednesday, model.DayThursday}

func TestScore_EmptyProfilesScoreZero(t *testing.T) {
	assert.Equal(t, 0, Score(&model.RequesterProfile{}, &model.VolunteerProfile{}))
}

func TestScore_NilProfilesScoreZero(t *testing.T) {
	assert.Equal(t, 0, Score(nil, &model.VolunteerProfile{}))
	assert.Equal(t, 0, Score(&model.RequesterProfile{}, nil))
}

func TestScore_OnceAWeekWithOneDay(t *testing.T) {
	requester := &model.RequesterProfile{Frequency: []string{model.FrequencyOnceAWeek}}
	volunteer := &model.VolunteerProfile{AvailableDays: []string{model.DayMonday}}

	// 1.5 of a possible 3
	assert.Equal(t, 50, Score(requester, volunteer))
}

func TestScore_SingleTimeMatchAwardsHalfWeight(t *testing.T) {
	requester := &model.RequesterProfile{PreferredTimes: []string{model.PeriodMorning, model.PeriodEvening}}
	volunteer := &model.VolunteerProfile{AvailableHours: []string{"בוקר (8:00-12:00)", "צהריים (12:00-16:00)"}}

	// only "בוקר" matches: 2 of 4
	assert.Equal(t, 50, Score(requester, volunteer))
}

func TestScore_TwoTimeMatchesAwardFullWeight(t *testing.T) {
	requester := &model.RequesterProfile{PreferredTimes: []string{model.PeriodMorning, model.PeriodNoon}}
	volunteer := &model.VolunteerProfile{AvailableHours: []string{"בוקר (8:00-12:00)", "צהריים (12:00-16:00)"}}

	assert.Equal(t, 100, Score(requester, volunteer))
}

func TestScore_DuplicateTimesCountOnce(t *testing.T) {
	requester := &model.RequesterProfile{PreferredTimes: []string{model.PeriodMorning, model.PeriodMorning}}
	volunteer := &model.VolunteerProfile{AvailableHours: []string{"בוקר (8:00-12:00)"}}

	assert.Equal(t, 50, Score(requester, volunteer))
}

func TestScore_OtherIsIgnored(t *testing.T) {
	requester := &model.RequesterProfile{
		Frequency:      []string{model.OptionOther},
		PreferredTimes: []string{model.OptionOther},
	}
	volunteer := &model.VolunteerProfile{
		AvailableDays:  fiveDays,
		AvailableHours: []string{model.OptionOther},
	}

	// both dimensions apply but "other" never earns points
	assert.Equal(t, 0, Score(requester, volunteer))
}

func TestScore_BothFrequenciesCollectFullWeight(t *testing.T) {
	requester := &model.RequesterProfile{Frequency: []string{model.FrequencyOnceAWeek, model.FrequencyTwiceAWeek}}
	volunteer := &model.VolunteerProfile{AvailableDays: []string{model.DayMonday, model.DayThursday}}

	assert.Equal(t, 100, Score(requester, volunteer))
}

func TestScore_TwiceAWeekNeedsTwoDays(t *testing.T) {
	requester := &model.RequesterProfile{Frequency: []string{model.FrequencyTwiceAWeek}}

	assert.Equal(t, 0, Score(requester, &model.VolunteerProfile{AvailableDays: []string{model.DayMonday}}))
	assert.Equal(t, 50, Score(requester, &model.VolunteerProfile{AvailableDays: []string{model.DayMonday, model.DayFriday}}))
}

func TestScore_VolunteerFrequencyEnablesDimensionWithoutDays(t *testing.T) {
	requester := &model.RequesterProfile{
		Frequency:      []string{model.FrequencyOnceAWeek},
		PreferredTimes: []string{model.PeriodEvening},
	}
	volunteer := &model.VolunteerProfile{
		Frequency:      []string{model.FrequencyOnceAWeek},
		AvailableHours: []string{"ערב (20:00-24:00)"},
	}

	// frequency applies (max 3) with no days to satisfy it, time earns 2 of 4
	assert.Equal(t, 29, Score(requester, volunteer))
}

func TestScore_AlwaysWithinRange(t *testing.T) {
	requesters := []model.RequesterProfile{
		{},
		{Frequency: []string{model.FrequencyOnceAWeek, model.FrequencyTwiceAWeek, model.FrequencyOnceAWeek}},
		{PreferredTimes: []string{model.PeriodMorning, model.PeriodNoon, model.PeriodEvening}},
		{Frequency: []string{model.FrequencyTwiceAWeek}, PreferredTimes: []string{model.PeriodNight}},
	}
	volunteers := []model.VolunteerProfile{
		{},
		{AvailableDays: fiveDays},
		{AvailableHours: []string{"בוקר (8:00-12:00)", "ערב", "צהריים (12:00-16:00)"}},
		{AvailableDays: []string{model.DaySaturday}, Frequency: []string{model.FrequencyTwiceAWeek}},
	}

	for _, r := range requesters {
		for _, v := range volunteers {
			s := Score(&r, &v)
			assert.GreaterOrEqual(t, s, 0)
			assert.LessOrEqual(t, s, 100)
		}
	}
}
