package analysis_test

import (
	"testing"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
)

func TestStretchGapsReportsUnassignedGrowthWork(t *testing.T) {
	snap := analysis.Snapshot{
		Roles: []analysis.Role{{ID: "r1", Title: "Analyst"}},
		Activities: []analysis.Activity{
			{ID: "a1", Name: "Forecasting"},
			{ID: "a2", Name: "Board prep"},
		},
		ActivityAssignments: []analysis.ActivityAssignment{{ActivityID: "a1", RoleID: "r1"}},
		Progressions: []analysis.Progression{
			{RoleID: "r1", Track: "senior", GrowthActivityIDs: []string{"a1", "a2", "gone"}},
		},
	}
	gaps := analysis.StretchGaps(snap)
	if len(gaps) != 2 {
		t.Fatalf("expected 2 stretch gaps, got %d", len(gaps))
	}
	if gaps[0].ActivityID != "a2" || gaps[0].ActivityName != "Board prep" || gaps[0].Track != "senior" {
		t.Fatalf("unexpected first gap: %+v", gaps[0])
	}
	// dangling growth id still reported, name left empty
	if gaps[1].ActivityID != "gone" || gaps[1].ActivityName != "" {
		t.Fatalf("unexpected dangling gap: %+v", gaps[1])
	}
}

func TestStretchGapsSkipsUnknownRole(t *testing.T) {
	snap := analysis.Snapshot{
		Progressions: []analysis.Progression{{RoleID: "nope", GrowthActivityIDs: []string{"a1"}}},
	}
	if gaps := analysis.StretchGaps(snap); len(gaps) != 0 {
		t.Fatalf("progression without role must be skipped, got %v", gaps)
	}
}

func TestSummarizeActivities(t *testing.T) {
	activities := []analysis.Activity{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}
	assignments := []analysis.ActivityAssignment{
		{ActivityID: "a2", RoleID: "r1"},
		{ActivityID: "a3", RoleID: "r1"},
		{ActivityID: "a3", RoleID: "r2"},
	}
	got := analysis.SummarizeActivities(activities, assignments)
	want := analysis.ActivitySummary{Total: 3, Unassigned: 1, Owned: 1, Shared: 1}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestRoleCoverage(t *testing.T) {
	snap := analysis.Snapshot{
		Roles: []analysis.Role{
			{ID: "r1", Title: "Analyst"},
			{ID: "r2", Title: "Closer"},
		},
		Categories: []analysis.Category{
			{ID: "c1", Name: "Research"},
			{ID: "c2", Name: "Sales"},
		},
		Activities: []analysis.Activity{
			{ID: "a1", Name: "Forecast", CategoryID: "c1"},
			{ID: "a2", Name: "Demo", CategoryID: "c2"},
			{ID: "a3", Name: "Untyped"},
		},
		ActivityAssignments: []analysis.ActivityAssignment{
			{ActivityID: "a1", RoleID: "r1"},
			{ActivityID: "a2", RoleID: "r1"},
			{ActivityID: "a2", RoleID: "r2"},
			{ActivityID: "a3", RoleID: "r1"},
		},
	}
	entries := analysis.RoleCoverage(snap)
	if len(entries) != 2 {
		t.Fatalf("expected entry per role, got %d", len(entries))
	}
	analyst := entries[0]
	if analyst.Assigned != 3 || analyst.Solo != 2 || analyst.Shared != 1 {
		t.Fatalf("unexpected analyst coverage: %+v", analyst)
	}
	if len(analyst.Categories) != 2 || analyst.Categories[0] != "Research" || analyst.Categories[1] != "Sales" {
		t.Fatalf("unexpected analyst categories: %v", analyst.Categories)
	}
	closer := entries[1]
	if closer.Assigned != 1 || closer.Solo != 0 || closer.Shared != 1 {
		t.Fatalf("unexpected closer coverage: %+v", closer)
	}
}
