package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
	"github.com/Lbridge2222/Teamforge-sub001/internal/domain"
)

// LoadSnapshot assembles the full analysis view of a workspace. JSON blob
// columns are decoded into typed analysis structs here, so analysers never
// see raw storage shapes. Entity order follows the list queries: insertion
// order for roles, sort order then insertion for stages.
func (r Repo) LoadSnapshot(ctx context.Context, workspaceID string) (analysis.Snapshot, error) {
	var snap analysis.Snapshot
	if _, err := r.GetWorkspace(ctx, workspaceID); err != nil {
		return snap, err
	}

	roles, err := r.ListRoles(ctx, workspaceID)
	if err != nil {
		return snap, err
	}
	for _, role := range roles {
		converted, err := snapshotRole(role)
		if err != nil {
			return snap, err
		}
		snap.Roles = append(snap.Roles, converted)
	}

	stages, err := r.ListStages(ctx, workspaceID)
	if err != nil {
		return snap, err
	}
	for _, s := range stages {
		snap.Stages = append(snap.Stages, analysis.Stage{ID: s.ID, Name: s.Name, SortOrder: s.SortOrder})
	}

	stageRoles, err := r.ListStageRoles(ctx, workspaceID)
	if err != nil {
		return snap, err
	}
	for _, a := range stageRoles {
		snap.StageAssignments = append(snap.StageAssignments, analysis.StageAssignment{StageID: a.StageID, RoleID: a.RoleID})
	}

	handoffs, err := r.ListHandoffs(ctx, workspaceID)
	if err != nil {
		return snap, err
	}
	for _, h := range handoffs {
		var tensions []string
		if err := decodeJSONColumn(h.TensionsJSON, &tensions); err != nil {
			return snap, fmt.Errorf("handoff %s tensions: %w", h.ID, err)
		}
		snap.Handoffs = append(snap.Handoffs, analysis.Handoff{
			ID:          h.ID,
			FromStageID: h.FromStageID,
			ToStageID:   h.ToStageID,
			SLA:         deref(h.SLA),
			Tensions:    tensions,
		})
	}

	categories, err := r.ListCategories(ctx, workspaceID)
	if err != nil {
		return snap, err
	}
	for _, c := range categories {
		var idealTypes []string
		if err := decodeJSONColumn(c.IdealTypesJSON, &idealTypes); err != nil {
			return snap, fmt.Errorf("category %s ideal types: %w", c.ID, err)
		}
		snap.Categories = append(snap.Categories, analysis.Category{
			ID:         c.ID,
			Name:       c.Name,
			IdealTypes: idealTypes,
			FitReason:  deref(c.FitReason),
		})
	}

	activities, err := r.ListActivities(ctx, workspaceID)
	if err != nil {
		return snap, err
	}
	for _, a := range activities {
		snap.Activities = append(snap.Activities, analysis.Activity{
			ID:         a.ID,
			Name:       a.Name,
			CategoryID: deref(a.CategoryID),
			StageID:    deref(a.StageID),
		})
	}

	activityRoles, err := r.ListActivityRoles(ctx, workspaceID)
	if err != nil {
		return snap, err
	}
	for _, a := range activityRoles {
		snap.ActivityAssignments = append(snap.ActivityAssignments, analysis.ActivityAssignment{ActivityID: a.ActivityID, RoleID: a.RoleID})
	}

	progressions, err := r.ListProgressions(ctx, workspaceID)
	if err != nil {
		return snap, err
	}
	for _, p := range progressions {
		var growth []string
		if err := decodeJSONColumn(p.GrowthActivityIDsJSON, &growth); err != nil {
			return snap, fmt.Errorf("progression %s growth activities: %w", p.RoleID, err)
		}
		snap.Progressions = append(snap.Progressions, analysis.Progression{
			RoleID:            p.RoleID,
			Track:             deref(p.Track),
			GrowthActivityIDs: growth,
		})
	}

	return snap, nil
}

func snapshotRole(role domain.Role) (analysis.Role, error) {
	out := analysis.Role{
		ID:            role.ID,
		Title:         role.Title,
		PrimaryType:   deref(role.PrimaryType),
		SecondaryType: deref(role.SecondaryType),
	}
	if err := decodeJSONColumn(role.OwnsJSON, &out.Owns); err != nil {
		return out, fmt.Errorf("role %s owns: %w", role.ID, err)
	}
	if err := decodeJSONColumn(role.DoesNotOwnJSON, &out.DoesNotOwn); err != nil {
		return out, fmt.Errorf("role %s does_not_own: %w", role.ID, err)
	}
	if err := decodeJSONColumn(role.OverseesStageIDsJSON, &out.OverseesStageIDs); err != nil {
		return out, fmt.Errorf("role %s oversees_stage_ids: %w", role.ID, err)
	}
	return out, nil
}

func decodeJSONColumn(raw *string, dest any) error {
	if raw == nil || *raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(*raw), dest)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
