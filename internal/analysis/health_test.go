package analysis_test

import (
	"testing"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
)

func TestScoreHealthSeverityThresholds(t *testing.T) {
	// issue count is driven by unassigned activities only
	makeSnap := func(issues int) analysis.Snapshot {
		var snap analysis.Snapshot
		for i := 0; i < issues; i++ {
			snap.Activities = append(snap.Activities, analysis.Activity{ID: string(rune('a' + i))})
		}
		return snap
	}
	cases := []struct {
		issues int
		want   analysis.Severity
	}{
		{0, analysis.SeverityGreen},
		{1, analysis.SeverityYellow},
		{3, analysis.SeverityYellow},
		{4, analysis.SeverityRed},
	}
	for _, tc := range cases {
		got := analysis.ScoreHealth(makeSnap(tc.issues))
		if got.IssueCount != tc.issues {
			t.Fatalf("issues=%d: got count %d", tc.issues, got.IssueCount)
		}
		if got.Severity != tc.want {
			t.Fatalf("issues=%d: expected %s, got %s", tc.issues, tc.want, got.Severity)
		}
	}
}

func TestScoreHealthZeroRatios(t *testing.T) {
	got := analysis.ScoreHealth(analysis.Snapshot{})
	if got.SLARatio != "0/0" || got.StaffingRatio != "0/0" {
		t.Fatalf("expected literal 0/0 ratios, got %q and %q", got.SLARatio, got.StaffingRatio)
	}
	if got.Severity != analysis.SeverityGreen {
		t.Fatalf("empty workspace should be green, got %s", got.Severity)
	}
}

// Mirrors the reference scenario: one fuzzy overlap plus three gaps lands
// exactly one past the yellow/red boundary.
func TestScoreHealthEndToEndScenario(t *testing.T) {
	snap := analysis.Snapshot{
		Roles: []analysis.Role{
			{ID: "r1", Title: "R1", Owns: []analysis.OwnedCategory{{Title: "Finance", Items: []string{"Invoicing"}}}},
			{ID: "r2", Title: "R2", Owns: []analysis.OwnedCategory{{Title: "Ops", Items: []string{"invoicing "}}}},
		},
		Stages:     []analysis.Stage{{ID: "st1", Name: "Intake"}},
		Handoffs:   []analysis.Handoff{{ID: "h1", FromStageID: "st1", ToStageID: "st1"}},
		Activities: []analysis.Activity{{ID: "a1", Name: "Invoice run"}},
	}

	overlaps := analysis.DetectOverlaps(snap.Roles)
	if len(overlaps) != 1 || overlaps[0].Item != "invoicing" {
		t.Fatalf("expected single invoicing overlap, got %v", overlaps)
	}
	if len(overlaps[0].Owners) != 2 || overlaps[0].Owners[0] != "R1" || overlaps[0].Owners[1] != "R2" {
		t.Fatalf("expected owners R1,R2, got %v", overlaps[0].Owners)
	}

	gaps := analysis.DetectGaps(snap)
	if len(gaps.EmptyStages) != 1 || len(gaps.MissingSLAs) != 1 || len(gaps.UnassignedActivities) != 1 {
		t.Fatalf("unexpected gap report: %+v", gaps)
	}

	health := analysis.ScoreHealth(snap)
	if health.IssueCount != 4 {
		t.Fatalf("expected 4 issues, got %d", health.IssueCount)
	}
	if health.SLARatio != "0/1" || health.StaffingRatio != "0/1" {
		t.Fatalf("unexpected ratios: %s %s", health.SLARatio, health.StaffingRatio)
	}
	if health.Severity != analysis.SeverityRed {
		t.Fatalf("expected red, got %s", health.Severity)
	}
}
