package posture

import (
	"fmt"
	"strings"
	"time"
)

const noteDateLayout = "January 2, 2006"

var assessmentText = map[Status]string{
	StatusGood: "Posture is within normal limits with good alignment across the measured " +
		"parameters. No significant postural dysfunction identified.",
	StatusModerate: "Moderate postural deviations are present and may contribute to " +
		"musculoskeletal strain over time. Corrective exercise is indicated.",
	StatusPoor: "Significant postural deviations are present with a high likelihood of " +
		"associated musculoskeletal strain. Structured intervention is recommended.",
}

// GenerateNote renders an analysis as a SOAP-style clinical note dated now.
func GenerateNote(a *Analysis, now time.Time) string {
	var b strings.Builder

	b.WriteString("POSTURE ASSESSMENT NOTE\n")
	fmt.Fprintf(&b, "Date: %s\n\n", now.Format(noteDateLayout))

	b.WriteString("SUBJECTIVE\n")
	fmt.Fprintf(&b, "Photographic posture screening from a %s view. "+
		"Measurements derived from automated body landmark analysis.\n\n", a.ViewType)

	b.WriteString("OBJECTIVE\n")
	fmt.Fprintf(&b, "View: %s\n", a.ViewType.Title())
	fmt.Fprintf(&b, "Overall Posture Score: %d/100 (%s)\n\n", a.OverallScore, a.OverallStatus.Title())

	b.WriteString("Measurements:\n")
	for _, m := range a.Metrics {
		fmt.Fprintf(&b, "- %s: %.1f° (%s)\n", m.Label, m.Value, m.Status.Title())
	}

	var concerns, normal []Metric
	for _, m := range a.Metrics {
		if m.Status == StatusGood {
			normal = append(normal, m)
		} else {
			concerns = append(concerns, m)
		}
	}

	if len(concerns) > 0 {
		b.WriteString("\nAreas of Concern:\n")
		for _, m := range concerns {
			fmt.Fprintf(&b, "- %s (%.1f°): %s\n", m.Label, m.Value, m.Description)
		}
	}
	if len(normal) > 0 {
		b.WriteString("\nWithin Normal Limits:\n")
		for _, m := range normal {
			fmt.Fprintf(&b, "- %s\n", m.Label)
		}
	}

	b.WriteString("\nASSESSMENT\n")
	b.WriteString(assessmentText[OverallStatus(a.OverallScore)])
	b.WriteString("\n\nPLAN\n")

	plan := make([]string, 0, len(a.Metrics)+2)
	for _, m := range a.Metrics {
		plan = append(plan, m.Recommendation)
	}
	plan = append(plan, planFollowUp(a.OverallScore)...)

	for i, line := range plan {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}

	return b.String()
}

// planFollowUp returns the boilerplate plan lines for scores below the good tier.
func planFollowUp(score int) []string {
	if score >= GoodScore {
		return nil
	}

	interval := "2-4 weeks"
	if score >= ModerateScore {
		interval = "4-6 weeks"
	}

	return []string{
		"Ergonomic review of workstation setup and daily postural habits.",
		fmt.Sprintf("Follow-up posture assessment in %s to monitor progress.", interval),
	}
}
