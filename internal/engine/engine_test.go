package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
	"github.com/Lbridge2222/Teamforge-sub001/internal/config"
	"github.com/Lbridge2222/Teamforge-sub001/internal/db"
	"github.com/Lbridge2222/Teamforge-sub001/internal/engine"
	"github.com/Lbridge2222/Teamforge-sub001/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("ws-1")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if _, err := eng.InitWorkspace(ctx, "ws-1", "org-1", "Test Workspace", "", "tester"); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func strPtr(s string) *string { return &s }

func TestCreateRoleValidatesBelbinType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		WorkspaceID: "ws-1",
		Title:       "Pipeline Manager",
		PrimaryType: strPtr("mastermind"),
		ActorID:     "tester",
	})
	if err == nil {
		t.Fatalf("expected unknown Belbin type error")
	}
	role, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		WorkspaceID:   "ws-1",
		Title:         "Pipeline Manager",
		PrimaryType:   strPtr("shaper"),
		SecondaryType: strPtr("coordinator"),
		ActorID:       "tester",
	})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if role.ID == "" {
		t.Fatalf("expected generated role id")
	}
}

func TestCreateRoleRejectsUnknownOverseenStage(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		WorkspaceID:      "ws-1",
		Title:            "Head of Ops",
		OverseesStageIDs: []string{"no-such-stage"},
		ActorID:          "tester",
	})
	if err == nil {
		t.Fatalf("expected stage reference error")
	}
	stage, err := env.Engine.CreateStage(env.Ctx, "ws-1", "", "Intake", 1, "tester")
	if err != nil {
		t.Fatalf("create stage: %v", err)
	}
	_, err = env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		WorkspaceID:      "ws-1",
		Title:            "Head of Ops",
		OverseesStageIDs: []string{stage.ID},
		ActorID:          "tester",
	})
	if err != nil {
		t.Fatalf("create oversight role: %v", err)
	}
}

func TestUpdateRoleClearsOwnership(t *testing.T) {
	env := newTestEnv(t)
	role, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		WorkspaceID: "ws-1",
		Title:       "Admissions Lead",
		Owns: []analysis.OwnedCategory{
			{Title: "Reporting", Items: []string{"pipeline reports"}},
		},
		ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if role.OwnsJSON == nil {
		t.Fatalf("expected owns column set")
	}
	role, err = env.Engine.UpdateRole(env.Ctx, engine.RoleOptions{
		ID:      role.ID,
		SetOwns: true,
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if role.OwnsJSON != nil {
		t.Fatalf("expected owns cleared, got %v", *role.OwnsJSON)
	}
}

func TestHandoffRequiresDistinctStages(t *testing.T) {
	env := newTestEnv(t)
	s1, _ := env.Engine.CreateStage(env.Ctx, "ws-1", "", "Intake", 1, "tester")
	s2, _ := env.Engine.CreateStage(env.Ctx, "ws-1", "", "Review", 2, "tester")
	_, err := env.Engine.CreateHandoff(env.Ctx, engine.HandoffOptions{
		WorkspaceID: "ws-1",
		FromStageID: s1.ID,
		ToStageID:   s1.ID,
		ActorID:     "tester",
	})
	if err == nil {
		t.Fatalf("expected self-handoff rejection")
	}
	h, err := env.Engine.CreateHandoff(env.Ctx, engine.HandoffOptions{
		WorkspaceID: "ws-1",
		FromStageID: s1.ID,
		ToStageID:   s2.ID,
		SLA:         strPtr("48h"),
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatalf("create handoff: %v", err)
	}
	if h.SLA == nil || *h.SLA != "48h" {
		t.Fatalf("expected sla persisted")
	}
}

func TestActivityAssignmentCrossWorkspaceRejected(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.InitWorkspace(env.Ctx, "ws-2", "org-1", "Other", "", "tester"); err != nil {
		t.Fatal(err)
	}
	act, err := env.Engine.CreateActivity(env.Ctx, engine.ActivityOptions{
		WorkspaceID: "ws-1",
		Name:        "Run pipeline review",
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		WorkspaceID: "ws-2",
		Title:       "Outsider",
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.AssignActivityRole(env.Ctx, act.ID, other.ID, "tester"); err == nil {
		t.Fatalf("expected cross-workspace rejection")
	}
	local, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		WorkspaceID: "ws-1",
		Title:       "Reviewer",
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.AssignActivityRole(env.Ctx, act.ID, local.ID, "tester"); err != nil {
		t.Fatalf("assign: %v", err)
	}
}

func TestProgressionAllowsDanglingGrowthActivities(t *testing.T) {
	env := newTestEnv(t)
	role, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		WorkspaceID: "ws-1",
		Title:       "Coordinator",
		ActorID:     "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	p, err := env.Engine.SetProgression(env.Ctx, engine.ProgressionOptions{
		RoleID:            role.ID,
		Track:             strPtr("management"),
		GrowthActivityIDs: []string{"missing-activity"},
		ActorID:           "tester",
	})
	if err != nil {
		t.Fatalf("set progression: %v", err)
	}
	if p.GrowthActivityIDsJSON == nil {
		t.Fatalf("expected growth ids persisted")
	}
	report, err := env.Engine.Diagnose(env.Ctx, "ws-1", analysis.FocusCareer, "tester")
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if len(report.Stretch) != 1 || report.Stretch[0].ActivityID != "missing-activity" {
		t.Fatalf("expected dangling growth activity surfaced, got %+v", report.Stretch)
	}
}

func TestDiagnoseFullRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	stage, _ := env.Engine.CreateStage(env.Ctx, "ws-1", "", "Intake", 1, "tester")
	r1, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		ID:          "role-1",
		WorkspaceID: "ws-1",
		Title:       "Admissions Lead",
		PrimaryType: strPtr("shaper"),
		Owns: []analysis.OwnedCategory{
			{Title: "Reporting", Items: []string{"Pipeline Reports"}},
		},
		ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	r2, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{
		ID:          "role-2",
		WorkspaceID: "ws-1",
		Title:       "Marketing Manager",
		PrimaryType: strPtr("plant"),
		Owns: []analysis.OwnedCategory{
			{Title: "Insights", Items: []string{"pipeline reports "}},
		},
		ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.AssignStageRole(env.Ctx, stage.ID, r1.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	report, err := env.Engine.Diagnose(env.Ctx, "ws-1", analysis.FocusFull, "tester")
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if len(report.Overlaps) != 1 {
		t.Fatalf("expected normalised overlap, got %+v", report.Overlaps)
	}
	owners := report.Overlaps[0].Owners
	if len(owners) != 2 || owners[0] != r1.Title || owners[1] != r2.Title {
		t.Fatalf("expected owners in insertion order, got %v", owners)
	}
	if report.Health == nil {
		t.Fatalf("expected health report for full focus")
	}
	rows, err := env.Engine.DB.QueryContext(env.Ctx, `SELECT count(*) FROM events WHERE type='workspace.diagnosed'`)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	defer rows.Close()
	var count int
	rows.Next()
	rows.Scan(&count)
	if count == 0 {
		t.Fatalf("expected diagnose event")
	}
}

func TestEventAppendOnMutations(t *testing.T) {
	env := newTestEnv(t)
	role, err := env.Engine.CreateRole(env.Ctx, engine.RoleOptions{WorkspaceID: "ws-1", Title: "Evented", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateRole(env.Ctx, engine.RoleOptions{ID: role.ID, Title: "Evented v2", ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteRole(env.Ctx, role.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	rows, err := env.Engine.DB.QueryContext(env.Ctx, `SELECT type FROM events WHERE entity_id=?`, role.ID)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 events, got %d", count)
	}
}
