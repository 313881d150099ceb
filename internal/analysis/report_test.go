package analysis_test

import (
	"strings"
	"testing"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
)

func TestParseFocus(t *testing.T) {
	if f, err := analysis.ParseFocus(""); err != nil || f != analysis.FocusFull {
		t.Fatalf("empty focus should default to full, got %v %v", f, err)
	}
	if f, err := analysis.ParseFocus("  Belbin "); err != nil || f != analysis.FocusBelbin {
		t.Fatalf("focus parse should trim and lower, got %v %v", f, err)
	}
	if _, err := analysis.ParseFocus("vibes"); err == nil {
		t.Fatal("unknown focus accepted")
	}
}

func TestAnalyseFullRunsEverything(t *testing.T) {
	snap := analysis.Snapshot{
		Roles:      []analysis.Role{{ID: "r1", Title: "Analyst", PrimaryType: "plant"}},
		Stages:     []analysis.Stage{{ID: "st1", Name: "Intake"}},
		Activities: []analysis.Activity{{ID: "a1", Name: "Qualify"}},
	}
	report := analysis.Analyse(snap, analysis.FocusFull)
	if report.Gaps == nil || report.Health == nil || report.Summary == nil {
		t.Fatalf("full focus should populate every section: %+v", report)
	}
	if report.Team == nil || report.Coverage == nil {
		t.Fatal("full focus missing belbin/coverage sections")
	}
	if !strings.Contains(report.Message, "health") {
		t.Fatalf("message should mention health: %q", report.Message)
	}
}

func TestAnalyseFocusSelectsSubset(t *testing.T) {
	snap := analysis.Snapshot{
		Stages: []analysis.Stage{{ID: "st1", Name: "Intake"}},
	}
	report := analysis.Analyse(snap, analysis.FocusGaps)
	if report.Gaps == nil {
		t.Fatal("gaps focus should populate gap report")
	}
	if report.Health != nil || report.Summary != nil || report.Team != nil {
		t.Fatalf("gaps focus leaked other sections: %+v", report)
	}
	if len(report.Gaps.EmptyStages) != 1 {
		t.Fatalf("expected the empty stage, got %+v", report.Gaps)
	}
	if !strings.Contains(report.Message, "unassigned activity(ies)") {
		t.Fatalf("gap message misworded: %q", report.Message)
	}
}

func TestAnalyseHealthFocusIncludesInputs(t *testing.T) {
	// health re-derives overlaps and gaps, and the report carries them so the
	// dashboard can show what drove the count
	report := analysis.Analyse(analysis.Snapshot{
		Activities: []analysis.Activity{{ID: "a1"}},
	}, analysis.FocusHealth)
	if report.Health == nil || report.Gaps == nil {
		t.Fatalf("health focus should carry gaps: %+v", report)
	}
	if report.Health.IssueCount != 1 || report.Health.Severity != analysis.SeverityYellow {
		t.Fatalf("unexpected health: %+v", report.Health)
	}
}

func TestAnalyseCareerFocus(t *testing.T) {
	snap := analysis.Snapshot{
		Roles:        []analysis.Role{{ID: "r1", Title: "Analyst"}},
		Progressions: []analysis.Progression{{RoleID: "r1", GrowthActivityIDs: []string{"a9"}}},
	}
	report := analysis.Analyse(snap, analysis.FocusCareer)
	if len(report.Stretch) != 1 {
		t.Fatalf("expected stretch gap, got %+v", report.Stretch)
	}
	if !strings.Contains(report.Message, "stretch") {
		t.Fatalf("message should mention stretch gaps: %q", report.Message)
	}
}
