package analysis_test

import (
	"testing"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
)

func TestActivityFitMatchesPrimaryOrSecondary(t *testing.T) {
	categories := []analysis.Category{
		{ID: "c1", Name: "Deep Work", IdealTypes: []string{"plant", "specialist"}, FitReason: "needs focus"},
		{ID: "c2", Name: "Untyped"},
	}
	roles := []analysis.Role{
		{ID: "r1", Title: "Analyst", PrimaryType: "plant"},
		{ID: "r2", Title: "Support", SecondaryType: "specialist"},
		{ID: "r3", Title: "Closer", PrimaryType: "shaper"},
	}
	fits := analysis.ActivityFit(categories, roles)
	if len(fits) != 1 {
		t.Fatalf("categories without ideal types must be skipped, got %d", len(fits))
	}
	fit := fits[0]
	if fit.Category != "Deep Work" || fit.Reason != "needs focus" {
		t.Fatalf("unexpected fit header: %+v", fit)
	}
	if len(fit.BestFitRoles) != 2 || fit.BestFitRoles[0] != "Analyst" || fit.BestFitRoles[1] != "Support" {
		t.Fatalf("unexpected best fit roles: %v", fit.BestFitRoles)
	}
}

func TestDetectMismatchesDeduplicatesPerCategory(t *testing.T) {
	categories := []analysis.Category{{ID: "c1", Name: "Deep Work", IdealTypes: []string{"plant"}}}
	activities := []analysis.Activity{
		{ID: "a1", Name: "Research", CategoryID: "c1"},
		{ID: "a2", Name: "Modelling", CategoryID: "c1"},
	}
	assignments := []analysis.ActivityAssignment{
		{ActivityID: "a1", RoleID: "r1"},
		{ActivityID: "a2", RoleID: "r1"},
	}
	roles := []analysis.Role{{ID: "r1", Title: "Closer", PrimaryType: "shaper"}}
	mismatches := analysis.DetectMismatches(categories, activities, assignments, roles)
	if len(mismatches) != 1 {
		t.Fatalf("role must appear once per category, got %d", len(mismatches))
	}
	if mismatches[0].Role != "Closer" || mismatches[0].Category != "Deep Work" {
		t.Fatalf("unexpected mismatch: %+v", mismatches[0])
	}
}

func TestDetectMismatchesSkipsMatchingRoles(t *testing.T) {
	categories := []analysis.Category{{ID: "c1", Name: "Deep Work", IdealTypes: []string{"plant"}}}
	activities := []analysis.Activity{{ID: "a1", CategoryID: "c1"}}
	assignments := []analysis.ActivityAssignment{
		{ActivityID: "a1", RoleID: "r1"},
		{ActivityID: "a1", RoleID: "ghost"},
	}
	roles := []analysis.Role{{ID: "r1", Title: "Analyst", SecondaryType: "plant"}}
	// r1 matches via secondary; "ghost" has no role record and degrades silently
	if got := analysis.DetectMismatches(categories, activities, assignments, roles); len(got) != 0 {
		t.Fatalf("expected no mismatches, got %v", got)
	}
}

func TestTeamCompositionTotals(t *testing.T) {
	roles := []analysis.Role{
		{ID: "r1", Title: "A", PrimaryType: "shaper", SecondaryType: "plant"},
		{ID: "r2", Title: "B", PrimaryType: "shaper"},
		{ID: "r3", Title: "C", SecondaryType: "coordinator"},
		{ID: "r4", Title: "D"},
	}
	groups := analysis.TeamComposition(roles)
	if len(groups) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(groups))
	}

	sumTotals := 0
	for _, g := range groups {
		if len(g.Roles) != 3 {
			t.Fatalf("category %s should have 3 types", g.Category)
		}
		perCategory := 0
		for _, usage := range g.Roles {
			perCategory += usage.PrimaryCount + usage.SecondaryCount
			if usage.HasCoverage != (usage.PrimaryCount+usage.SecondaryCount > 0) {
				t.Fatalf("coverage flag wrong for %s", usage.Key)
			}
		}
		if g.TotalAssignments != perCategory {
			t.Fatalf("category %s total %d != sum %d", g.Category, g.TotalAssignments, perCategory)
		}
		sumTotals += g.TotalAssignments
	}
	// 2 primaries set + 2 secondaries set
	if sumTotals != 4 {
		t.Fatalf("expected grand total 4, got %d", sumTotals)
	}

	action := groups[0]
	if action.Category != "Action" {
		t.Fatalf("expected Action first, got %s", action.Category)
	}
	if got := action.Roles[0]; got.Key != "shaper" || got.PrimaryCount != 2 || got.SecondaryCount != 0 {
		t.Fatalf("unexpected shaper usage: %+v", got)
	}
	// implementer and completer_finisher are uncovered in Action
	if len(action.UncoveredRoles) != 2 {
		t.Fatalf("unexpected uncovered list: %v", action.UncoveredRoles)
	}
}

func TestValidBelbinKey(t *testing.T) {
	for _, key := range []string{"shaper", "plant", "resource_investigator"} {
		if !analysis.ValidBelbinKey(key) {
			t.Fatalf("%s should be valid", key)
		}
	}
	if analysis.ValidBelbinKey("visionary") {
		t.Fatal("unknown key accepted")
	}
}
