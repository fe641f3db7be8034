package suggest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jakechorley/support-match/pkg/core/model"
)

// Suggestion is one labelled recommendation from the model
type Suggestion struct {
	Rank      int                    `json:"rank"` // 1 for best match
	Label     string                 `json:"label"`
	Volunteer model.VolunteerProfile `json:"volunteer"`
	Reasoning string                 `json:"reasoning"`
}

type header struct {
	rank    int
	hebrew  string
	english string
}

var headers = []header{
	{1, "התאמה הטובה ביותר", "best match"},
	{2, "בחירה שנייה", "second choice"},
	{3, "בחירה שלישית", "third choice"},
}

var headerPattern = regexp.MustCompile(
	`(?i)^[\s*#>_\-]*(?:\d+[.)]\s*)?(התאמה הטובה ביותר|בחירה שנייה|בחירה שלישית|best match|second choice|third choice)[^\d\n]*(\d+)`,
)

var reasoningPrefix = regexp.MustCompile(`(?i)^[\s*_\-]*(נימוק|הסבר|reasoning|reason)[\s*_]*:[\s*_]*`)

// Parse extracts the labelled suggestions from a completion. Lines after a header, up to
// the next header, are its reasoning. Numbers that do not refer to a listed volunteer
// and repeated volunteers are skipped. ok is false when nothing usable was found,
// which callers treat differently from a transport error.
func Parse(text string, volunteers []model.VolunteerProfile) (suggestions []Suggestion, ok bool) {
	seen := make(map[string]bool)
	var current *Suggestion
	var reasoning []string

	flush := func() {
		if current == nil {
			return
		}
		current.Reasoning = strings.TrimSpace(strings.Join(reasoning, "\n"))
		suggestions = append(suggestions, *current)
		current = nil
		reasoning = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")

		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush()

			n, err := strconv.Atoi(m[2])
			if err != nil || n < 1 || n > len(volunteers) {
				continue
			}
			v := volunteers[n-1]
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true

			current = &Suggestion{Rank: rankOf(m[1]), Label: m[1], Volunteer: v}
			continue
		}

		if current == nil {
			continue
		}
		line = strings.TrimSpace(reasoningPrefix.ReplaceAllString(line, ""))
		if line != "" {
			reasoning = append(reasoning, line)
		}
	}
	flush()

	return suggestions, len(suggestions) > 0
}

func rankOf(label string) int {
	lower := strings.ToLower(label)
	for _, h := range headers {
		if label == h.hebrew || lower == h.english {
			return h.rank
		}
	}
	return 0
}
