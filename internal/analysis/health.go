package analysis

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityRed    Severity = "red"
)

// HealthReport is the composite severity signal for a workspace. The ratios
// are display strings built from counts; no division happens, so 0/0 renders
// literally when a workspace has no handoffs or stages.
type HealthReport struct {
	IssueCount    int      `json:"issue_count"`
	SLARatio      string   `json:"sla_ratio"`
	StaffingRatio string   `json:"staffing_ratio"`
	Severity      Severity `json:"severity"`
}

// ScoreHealth sums overlap and gap counts into one issue count and classifies
// it: 0 issues is green, 1 through 3 yellow, more than 3 red. The boundary at
// 3 is a fixed policy and must not drift.
func ScoreHealth(s Snapshot) HealthReport {
	overlaps := DetectOverlaps(s.Roles)
	gaps := DetectGaps(s)
	issues := len(overlaps) + len(gaps.EmptyStages) + len(gaps.MissingSLAs) + len(gaps.UnassignedActivities)

	withSLA := 0
	for _, h := range s.Handoffs {
		if strings.TrimSpace(h.SLA) != "" {
			withSLA++
		}
	}
	report := HealthReport{
		IssueCount:    issues,
		SLARatio:      fmt.Sprintf("%d/%d", withSLA, len(s.Handoffs)),
		StaffingRatio: fmt.Sprintf("%d/%d", len(s.Stages)-len(gaps.EmptyStages), len(s.Stages)),
	}
	switch {
	case issues == 0:
		report.Severity = SeverityGreen
	case issues <= 3:
		report.Severity = SeverityYellow
	default:
		report.Severity = SeverityRed
	}
	return report
}
