package analysis_test

import (
	"testing"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
)

func TestDetectGapsIndependentFilters(t *testing.T) {
	snap := analysis.Snapshot{
		Stages: []analysis.Stage{
			{ID: "st1", Name: "Prospect", SortOrder: 1},
			{ID: "st2", Name: "Close", SortOrder: 2},
		},
		StageAssignments: []analysis.StageAssignment{{StageID: "st2", RoleID: "r1"}},
		Handoffs: []analysis.Handoff{
			{ID: "h1", FromStageID: "st1", ToStageID: "st2", SLA: "  "},
			{ID: "h2", FromStageID: "st2", ToStageID: "st1", SLA: "24h"},
		},
		Activities: []analysis.Activity{
			{ID: "a1", Name: "Qualify"},
			{ID: "a2", Name: "Demo"},
		},
		ActivityAssignments: []analysis.ActivityAssignment{{ActivityID: "a2", RoleID: "r1"}},
	}
	gaps := analysis.DetectGaps(snap)
	if len(gaps.EmptyStages) != 1 || gaps.EmptyStages[0].ID != "st1" {
		t.Fatalf("expected st1 empty, got %v", gaps.EmptyStages)
	}
	if len(gaps.MissingSLAs) != 1 || gaps.MissingSLAs[0].ID != "h1" {
		t.Fatalf("expected h1 missing SLA, got %v", gaps.MissingSLAs)
	}
	if len(gaps.UnassignedActivities) != 1 || gaps.UnassignedActivities[0].ID != "a1" {
		t.Fatalf("expected a1 unassigned, got %v", gaps.UnassignedActivities)
	}
}

func TestDetectGapsEmptyStageReportedRegardlessOfSLA(t *testing.T) {
	// a stage with no roles is reported even when its outgoing handoff also
	// lacks an SLA; the filters never cross-suppress
	snap := analysis.Snapshot{
		Stages:   []analysis.Stage{{ID: "st1", Name: "Lonely"}},
		Handoffs: []analysis.Handoff{{ID: "h1", FromStageID: "st1", ToStageID: "st2"}},
	}
	gaps := analysis.DetectGaps(snap)
	if len(gaps.EmptyStages) != 1 {
		t.Fatalf("expected empty stage, got %v", gaps.EmptyStages)
	}
	if len(gaps.MissingSLAs) != 1 {
		t.Fatalf("expected missing SLA, got %v", gaps.MissingSLAs)
	}
}
