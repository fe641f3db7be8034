package suggest

import (
	"fmt"
	"strings"

	"github.com/jakechorley/support-match/pkg/core/model"
)

// SystemPrompt frames the model as the matching coordinator
const SystemPrompt = "אתה רכז התאמות מנוסה בארגון המעניק תמיכה רגשית. ענה בעברית ובפורמט המבוקש בלבד."

const notSpecified = "לא צוין"

// BuildPrompt renders the requester's needs and a numbered list of at most max volunteers.
// Names and contact details are left out. It returns the volunteers in the order they were
// numbered; Parse resolves suggestion numbers against that slice.
func BuildPrompt(requester *model.RequesterProfile, volunteers []model.VolunteerProfile, max int) (string, []model.VolunteerProfile) {
	if max > 0 && len(volunteers) > max {
		volunteers = volunteers[:max]
	}

	var b strings.Builder
	b.WriteString("עליך לבחור את המתנדבים המתאימים ביותר לפונה הבא.\n\n")

	b.WriteString("פרטי הפונה:\n")
	fmt.Fprintf(&b, "- תדירות מבוקשת: %s\n", list(requester.Frequency))
	fmt.Fprintf(&b, "- זמנים מועדפים: %s\n", list(requester.PreferredTimes))
	fmt.Fprintf(&b, "- סיבת הפנייה: %s\n", text(requester.Reason))
	fmt.Fprintf(&b, "- צרכים: %s\n", text(requester.Needs))
	b.WriteString("\n")

	b.WriteString("מתנדבים זמינים:\n")
	for i, v := range volunteers {
		fmt.Fprintf(&b, "%d. מקצוע: %s; גיל: %s; מגדר: %s; ניסיון: %s; ימים: %s; שעות: %s; תדירות: %s\n",
			i+1,
			text(v.Profession),
			age(v.Age),
			text(v.Gender),
			text(v.Experience),
			list(v.AvailableDays),
			list(v.AvailableHours),
			list(v.Frequency),
		)
	}
	b.WriteString("\n")

	b.WriteString("החזר עד שלוש המלצות בפורמט הבא בדיוק, כאשר X הוא מספר המתנדב ברשימה:\n")
	for _, h := range headers[:3] {
		fmt.Fprintf(&b, "%s: מתנדב מספר X\n", h.hebrew)
		b.WriteString("נימוק: הסבר קצר\n")
	}

	return b.String(), volunteers
}

func list(values []string) string {
	values = model.WithoutOther(values)
	if len(values) == 0 {
		return notSpecified
	}
	return strings.Join(values, ", ")
}

func text(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return notSpecified
	}
	return s
}

func age(a int) string {
	if a <= 0 {
		return notSpecified
	}
	return fmt.Sprintf("%d", a)
}
