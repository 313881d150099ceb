package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
	"github.com/Lbridge2222/Teamforge-sub001/internal/engine"
)

// Dedicated read endpoints per report, for dashboards that only want one
// section. Unlike the aggregate diagnostics route these are plain reads and
// don't log a diagnosis event.
func registerReports(api huma.API, e engine.Engine) {
	registerReport(api, e, "report-overlaps", "overlaps", "Ownership overlap report",
		func(s analysis.Snapshot) []analysis.Overlap {
			return nonNilSlice(analysis.DetectOverlaps(s.Roles))
		})
	registerReport(api, e, "report-gaps", "gaps", "Structural gap report",
		func(s analysis.Snapshot) analysis.GapReport {
			return analysis.DetectGaps(s)
		})
	registerReport(api, e, "report-health", "health", "Workspace health score",
		func(s analysis.Snapshot) analysis.HealthReport {
			return analysis.ScoreHealth(s)
		})
	registerReport(api, e, "report-boundaries", "boundaries", "Boundary exclusion report",
		func(s analysis.Snapshot) []analysis.BoundaryRef {
			return nonNilSlice(analysis.CrossReferenceBoundaries(s.Roles))
		})
	registerReport(api, e, "report-belbin-fit", "belbin/fit", "Belbin activity-fit report",
		func(s analysis.Snapshot) []analysis.CategoryFit {
			return nonNilSlice(analysis.ActivityFit(s.Categories, s.Roles))
		})
	registerReport(api, e, "report-belbin-mismatches", "belbin/mismatches", "Belbin mismatch report",
		func(s analysis.Snapshot) []analysis.Mismatch {
			return nonNilSlice(analysis.DetectMismatches(s.Categories, s.Activities, s.ActivityAssignments, s.Roles))
		})
	registerReport(api, e, "report-belbin-composition", "belbin/composition", "Team composition report",
		func(s analysis.Snapshot) []analysis.CompositionGroup {
			return nonNilSlice(analysis.TeamComposition(s.Roles))
		})
	registerReport(api, e, "report-career", "career", "Stretch gap report",
		func(s analysis.Snapshot) []analysis.StretchGap {
			return nonNilSlice(analysis.StretchGaps(s))
		})
	registerReport(api, e, "report-coverage", "coverage", "Role coverage report",
		func(s analysis.Snapshot) []analysis.RoleCoverageEntry {
			return nonNilSlice(analysis.RoleCoverage(s))
		})
	registerReport(api, e, "report-summary", "summary", "Activity assignment summary",
		func(s analysis.Snapshot) analysis.ActivitySummary {
			return analysis.SummarizeActivities(s.Activities, s.ActivityAssignments)
		})
}

func registerReport[T any](api huma.API, e engine.Engine, opID, subpath, summary string, run func(analysis.Snapshot) T) {
	huma.Register(api, huma.Operation{
		OperationID: opID,
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/diagnostics/" + subpath,
		Summary:     summary,
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body T `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "diagnostics.read"); err != nil {
			return nil, handleError(err)
		}
		snap, err := e.Repo.LoadSnapshot(ctx, workspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body T `json:"body"`
		}{Body: run(snap)}, nil
	})
}
