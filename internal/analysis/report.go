package analysis

import (
	"fmt"
	"strings"
)

// Focus selects which subset of analysers a combined run executes.
type Focus string

const (
	FocusFull       Focus = "full"
	FocusGaps       Focus = "gaps"
	FocusOverlaps   Focus = "overlaps"
	FocusBelbin     Focus = "belbin"
	FocusHealth     Focus = "health"
	FocusBoundaries Focus = "boundaries"
	FocusCareer     Focus = "career"
)

// Focuses lists the accepted focus selectors.
func Focuses() []string {
	return []string{
		string(FocusFull), string(FocusGaps), string(FocusOverlaps), string(FocusBelbin),
		string(FocusHealth), string(FocusBoundaries), string(FocusCareer),
	}
}

// ParseFocus validates a focus selector. Empty input means full.
func ParseFocus(in string) (Focus, error) {
	f := Focus(strings.ToLower(strings.TrimSpace(in)))
	if f == "" {
		return FocusFull, nil
	}
	for _, known := range Focuses() {
		if string(f) == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid focus %q (expected one of %s)", in, strings.Join(Focuses(), ", "))
}

// Report is the combined diagnostics result. Sections not covered by the
// requested focus stay nil.
type Report struct {
	Focus      Focus               `json:"focus"`
	Message    string              `json:"message"`
	Overlaps   []Overlap           `json:"overlaps,omitempty"`
	Gaps       *GapReport          `json:"gaps,omitempty"`
	Health     *HealthReport       `json:"health,omitempty"`
	Boundaries []BoundaryRef       `json:"boundaries,omitempty"`
	Fit        []CategoryFit       `json:"belbin_fit,omitempty"`
	Mismatches []Mismatch          `json:"belbin_mismatches,omitempty"`
	Team       []CompositionGroup  `json:"belbin_composition,omitempty"`
	Stretch    []StretchGap        `json:"stretch_gaps,omitempty"`
	Summary    *ActivitySummary    `json:"activity_summary,omitempty"`
	Coverage   []RoleCoverageEntry `json:"role_coverage,omitempty"`
}

// Analyse runs the analysers selected by focus over one snapshot and builds
// a human-readable status message from what ran.
func Analyse(s Snapshot, focus Focus) Report {
	report := Report{Focus: focus}
	full := focus == FocusFull

	if full || focus == FocusOverlaps || focus == FocusHealth {
		report.Overlaps = DetectOverlaps(s.Roles)
	}
	if full || focus == FocusGaps || focus == FocusHealth {
		gaps := DetectGaps(s)
		report.Gaps = &gaps
	}
	if full || focus == FocusHealth {
		health := ScoreHealth(s)
		report.Health = &health
	}
	if full || focus == FocusBoundaries {
		report.Boundaries = CrossReferenceBoundaries(s.Roles)
	}
	if full || focus == FocusBelbin {
		report.Fit = ActivityFit(s.Categories, s.Roles)
		report.Mismatches = DetectMismatches(s.Categories, s.Activities, s.ActivityAssignments, s.Roles)
		report.Team = TeamComposition(s.Roles)
	}
	if full || focus == FocusCareer {
		report.Stretch = StretchGaps(s)
	}
	if full {
		summary := SummarizeActivities(s.Activities, s.ActivityAssignments)
		report.Summary = &summary
		report.Coverage = RoleCoverage(s)
	}
	report.Message = statusMessage(report)
	return report
}

func statusMessage(r Report) string {
	var parts []string
	if r.Overlaps != nil || r.Focus == FocusOverlaps || r.Focus == FocusFull {
		parts = append(parts, fmt.Sprintf("%d ownership overlap(s)", len(r.Overlaps)))
	}
	if r.Gaps != nil {
		parts = append(parts, fmt.Sprintf("%d empty stage(s), %d missing SLA(s), %d unassigned activity(ies)",
			len(r.Gaps.EmptyStages), len(r.Gaps.MissingSLAs), len(r.Gaps.UnassignedActivities)))
	}
	if r.Health != nil {
		parts = append(parts, fmt.Sprintf("health %s (%d issue(s), SLA %s, staffing %s)",
			r.Health.Severity, r.Health.IssueCount, r.Health.SLARatio, r.Health.StaffingRatio))
	}
	if r.Boundaries != nil || r.Focus == FocusBoundaries {
		unresolved := 0
		for _, b := range r.Boundaries {
			if b.OwnedBy == nil {
				unresolved++
			}
		}
		parts = append(parts, fmt.Sprintf("%d boundary exclusion(s), %d unresolved", len(r.Boundaries), unresolved))
	}
	if r.Team != nil {
		parts = append(parts, fmt.Sprintf("%d Belbin mismatch(es)", len(r.Mismatches)))
	}
	if r.Stretch != nil || r.Focus == FocusCareer {
		parts = append(parts, fmt.Sprintf("%d stretch gap(s)", len(r.Stretch)))
	}
	if len(parts) == 0 {
		return "analysis complete"
	}
	return "Workspace analysis (" + string(r.Focus) + "): " + strings.Join(parts, "; ")
}
