package analysis_test

import (
	"testing"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
)

func TestDetectOverlapsNormalisesCaseAndWhitespace(t *testing.T) {
	roles := []analysis.Role{
		{ID: "r1", Title: "Sales Lead", Owns: []analysis.OwnedCategory{
			{Title: "Reporting", Items: []string{"Pipeline Reports "}},
		}},
		{ID: "r2", Title: "Ops Lead", Owns: []analysis.OwnedCategory{
			{Title: "Reporting", Items: []string{"pipeline reports"}},
		}},
	}
	overlaps := analysis.DetectOverlaps(roles)
	if len(overlaps) != 1 {
		t.Fatalf("expected 1 overlap, got %d", len(overlaps))
	}
	if overlaps[0].Item != "pipeline reports" {
		t.Fatalf("expected normalised item, got %q", overlaps[0].Item)
	}
	if len(overlaps[0].Owners) != 2 {
		t.Fatalf("expected 2 owners, got %v", overlaps[0].Owners)
	}
}

func TestDetectOverlapsExcludesOversightRoles(t *testing.T) {
	roles := []analysis.Role{
		{ID: "r1", Title: "Account Exec", Owns: []analysis.OwnedCategory{
			{Title: "Deals", Items: []string{"contract negotiation"}},
		}},
		{ID: "r2", Title: "Sales Director", OverseesStageIDs: []string{"st-1"}, Owns: []analysis.OwnedCategory{
			{Title: "Deals", Items: []string{"contract negotiation"}},
		}},
	}
	if overlaps := analysis.DetectOverlaps(roles); len(overlaps) != 0 {
		t.Fatalf("oversight role must not count as owner, got %v", overlaps)
	}
}

func TestDetectOverlapsIgnoresRolesWithoutClaims(t *testing.T) {
	roles := []analysis.Role{
		{ID: "r1", Title: "A"},
		{ID: "r2", Title: "B", Owns: []analysis.OwnedCategory{{Title: "X", Items: []string{"billing"}}}},
	}
	if overlaps := analysis.DetectOverlaps(roles); len(overlaps) != 0 {
		t.Fatalf("single claim must not overlap, got %v", overlaps)
	}
}

func TestDetectOverlapsDedupesSameRoleClaimingTwice(t *testing.T) {
	roles := []analysis.Role{
		{ID: "r1", Title: "A", Owns: []analysis.OwnedCategory{
			{Title: "X", Items: []string{"billing"}},
			{Title: "Y", Items: []string{"Billing"}},
		}},
	}
	// same role claiming the item under two categories is not an overlap
	if overlaps := analysis.DetectOverlaps(roles); len(overlaps) != 0 {
		t.Fatalf("expected no overlap for single role, got %v", overlaps)
	}
}
