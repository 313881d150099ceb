package analysis

import "strings"

// GapReport lists three independent structural gaps. The filters never
// suppress each other: an empty stage is reported even when its handoffs
// also lack SLAs.
type GapReport struct {
	EmptyStages          []Stage    `json:"empty_stages"`
	MissingSLAs          []Handoff  `json:"missing_slas"`
	UnassignedActivities []Activity `json:"unassigned_activities"`
}

// DetectGaps flags stages with no assigned roles, handoffs with a blank SLA,
// and activities nobody is assigned to.
func DetectGaps(s Snapshot) GapReport {
	staffed := map[string]bool{}
	for _, a := range s.StageAssignments {
		staffed[a.StageID] = true
	}
	assigned := map[string]bool{}
	for _, a := range s.ActivityAssignments {
		assigned[a.ActivityID] = true
	}
	var report GapReport
	for _, st := range s.Stages {
		if !staffed[st.ID] {
			report.EmptyStages = append(report.EmptyStages, st)
		}
	}
	for _, h := range s.Handoffs {
		if strings.TrimSpace(h.SLA) == "" {
			report.MissingSLAs = append(report.MissingSLAs, h)
		}
	}
	for _, act := range s.Activities {
		if !assigned[act.ID] {
			report.UnassignedActivities = append(report.UnassignedActivities, act)
		}
	}
	return report
}
