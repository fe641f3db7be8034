package matching

import (
	"math"

	"github.com/jakechorley/support-match/pkg/core/model"
)

// Dimension weights. The total of the dimensions that apply is the denominator of the score.
const (
	WeightFrequency      = 3.0
	WeightPreferredTimes = 4.0

	pointsPerFrequency   = 1.5
	pointsSingleTimeSlot = 2.0
)

// Score computes the 0-100 compatibility between a requester and a volunteer.
//
// Two independent dimensions contribute points:
//   - frequency/days: the requester's desired frequency against the number of days the volunteer offers
//   - preferred times: the requester's preferred periods against the volunteer's available hours
//
// A dimension only applies when both profiles carry the fields it compares. When no dimension
// applies the score is 0. Profession, age, gender and experience are deliberately not scored.
func Score(requester *model.RequesterProfile, volunteer *model.VolunteerProfile) int {
	if requester == nil || volunteer == nil {
		return 0
	}

	score := 0.0
	maxScore := 0.0

	if len(requester.Frequency) > 0 && (len(volunteer.AvailableDays) > 0 || len(volunteer.Frequency) > 0) {
		maxScore += WeightFrequency
		score += frequencyPoints(requester.Frequency, len(volunteer.AvailableDays))
	}

	if len(requester.PreferredTimes) > 0 && len(volunteer.AvailableHours) > 0 {
		maxScore += WeightPreferredTimes
		score += preferredTimePoints(requester.PreferredTimes, volunteer.AvailableHours)
	}

	if maxScore == 0 {
		return 0
	}

	result := int(math.Round(100 * score / maxScore))
	if result > 100 {
		return 100
	}
	if result < 0 {
		return 0
	}
	return result
}

// frequencyPoints awards points per requested frequency the volunteer's day count can satisfy.
// A requester selecting both frequencies can collect the full weight.
func frequencyPoints(frequency []string, dayCount int) float64 {
	points := 0.0
	for _, f := range model.WithoutOther(frequency) {
		switch {
		case f == model.FrequencyOnceAWeek && dayCount >= 1:
			points += pointsPerFrequency
		case f == model.FrequencyTwiceAWeek && dayCount >= 2:
			points += pointsPerFrequency
		}
	}
	return points
}

// preferredTimePoints counts distinct requester periods that exactly equal a normalized volunteer period
func preferredTimePoints(preferred []string, availableHours []string) float64 {
	periods := make(map[string]bool, len(availableHours))
	for _, h := range availableHours {
		periods[model.NormalizePeriod(h)] = true
	}

	matched := make(map[string]bool)
	for _, t := range model.WithoutOther(preferred) {
		if periods[t] {
			matched[t] = true
		}
	}

	switch {
	case len(matched) >= 2:
		return WeightPreferredTimes
	case len(matched) == 1:
		return pointsSingleTimeSlot
	default:
		return 0
	}
}
