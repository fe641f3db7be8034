package matching

import (
	"sort"

	"github.com/jakechorley/support-match/pkg/core/model"
)

// DefaultRecommendedThreshold is the score from which a volunteer is shown as recommended
const DefaultRecommendedThreshold = 50

// RankedVolunteer is a volunteer annotated with its compatibility score for one requester
type RankedVolunteer struct {
	Volunteer          model.VolunteerProfile `json:"volunteer"`
	CompatibilityScore int                    `json:"compatibilityScore"`
}

// Rank scores every volunteer against the requester and sorts them by descending score.
// Volunteers with equal scores keep their input order. Rank never filters; use Eligible first.
func Rank(volunteers []model.VolunteerProfile, requester *model.RequesterProfile) []RankedVolunteer {
	ranked := make([]RankedVolunteer, len(volunteers))
	for i := range volunteers {
		ranked[i] = RankedVolunteer{
			Volunteer:          volunteers[i],
			CompatibilityScore: Score(requester, &volunteers[i]),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompatibilityScore > ranked[j].CompatibilityScore
	})

	return ranked
}

// IsRecommended reports whether a score reaches the recommendation threshold
func IsRecommended(score, threshold int) bool {
	return score >= threshold
}

// Eligible returns the volunteers a requester may be shown:
// approved, available, not among the request's declined volunteers and,
// in a personal (self-selection) flow, accepting direct requests.
// request may be nil when the requester has no open request yet.
func Eligible(volunteers []model.VolunteerProfile, request *model.Request, personalFlow bool) []model.VolunteerProfile {
	result := make([]model.VolunteerProfile, 0, len(volunteers))
	for _, v := range volunteers {
		if v.Approved != model.ApprovalApproved {
			continue
		}
		if !v.IsAvailable {
			continue
		}
		if request != nil && request.HasDeclined(v.ID) {
			continue
		}
		if personalFlow && !v.Personal {
			continue
		}
		result = append(result, v)
	}
	return result
}
