package analysis_test

import (
	"testing"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
)

func TestCrossReferenceBoundariesFirstMatchWins(t *testing.T) {
	roles := []analysis.Role{
		{ID: "a", Title: "A", DoesNotOwn: []string{"customer invoicing"}},
		{ID: "b", Title: "B", Owns: []analysis.OwnedCategory{{Title: "Finance", Items: []string{"Invoicing pipeline"}}}},
		{ID: "c", Title: "C", Owns: []analysis.OwnedCategory{{Title: "Billing", Items: []string{"invoicing disputes"}}}},
	}
	refs := analysis.CrossReferenceBoundaries(roles)
	if len(refs) != 1 {
		t.Fatalf("expected 1 reference, got %d", len(refs))
	}
	ref := refs[0]
	if ref.Item != "customer invoicing" || ref.ExcludedBy != "A" {
		t.Fatalf("unexpected reference: %+v", ref)
	}
	if ref.OwnedBy == nil || *ref.OwnedBy != "B" {
		t.Fatalf("expected first match B, got %v", ref.OwnedBy)
	}
}

func TestCrossReferenceBoundariesUnresolved(t *testing.T) {
	roles := []analysis.Role{
		{ID: "a", Title: "A", DoesNotOwn: []string{"procurement approvals"}},
		{ID: "b", Title: "B", Owns: []analysis.OwnedCategory{{Title: "Sales", Items: []string{"demo calls"}}}},
	}
	refs := analysis.CrossReferenceBoundaries(roles)
	if len(refs) != 1 || refs[0].OwnedBy != nil {
		t.Fatalf("expected unresolved exclusion, got %+v", refs)
	}
}

func TestCrossReferenceBoundariesShortWordsIgnored(t *testing.T) {
	// tokens of three characters or fewer never match
	roles := []analysis.Role{
		{ID: "a", Title: "A", DoesNotOwn: []string{"ad ops"}},
		{ID: "b", Title: "B", Owns: []analysis.OwnedCategory{{Title: "Marketing", Items: []string{"ad campaigns and ops review"}}}},
	}
	refs := analysis.CrossReferenceBoundaries(roles)
	if len(refs) != 1 || refs[0].OwnedBy != nil {
		t.Fatalf("short tokens must not match, got %+v", refs)
	}
}

func TestCrossReferenceBoundariesSkipsOversight(t *testing.T) {
	roles := []analysis.Role{
		{ID: "lead", Title: "Lead", OverseesStageIDs: []string{"st1"}, DoesNotOwn: []string{"customer invoicing"}},
		{ID: "a", Title: "A", DoesNotOwn: []string{"customer invoicing"}},
		{ID: "boss", Title: "Boss", OverseesStageIDs: []string{"st2"}, Owns: []analysis.OwnedCategory{{Title: "Fin", Items: []string{"invoicing"}}}},
	}
	refs := analysis.CrossReferenceBoundaries(roles)
	if len(refs) != 1 {
		t.Fatalf("oversight exclusions must be skipped, got %d refs", len(refs))
	}
	if refs[0].ExcludedBy != "A" {
		t.Fatalf("unexpected excluder %s", refs[0].ExcludedBy)
	}
	if refs[0].OwnedBy != nil {
		t.Fatalf("oversight owner must not resolve, got %v", *refs[0].OwnedBy)
	}
}
