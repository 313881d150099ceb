package server

import (
	"encoding/json"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
	"github.com/Lbridge2222/Teamforge-sub001/internal/config"
	"github.com/Lbridge2222/Teamforge-sub001/internal/domain"
)

// Request payloads

type CreateWorkspaceRequest struct {
	ID          string  `json:"id"`
	OrgID       string  `json:"org_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type OwnedCategoryRequest struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

type CreateRoleRequest struct {
	ID               *string                `json:"id,omitempty"`
	Title            string                 `json:"title"`
	PrimaryType      *string                `json:"primary_type,omitempty"`
	SecondaryType    *string                `json:"secondary_type,omitempty"`
	Owns             []OwnedCategoryRequest `json:"owns,omitempty"`
	DoesNotOwn       []string               `json:"does_not_own,omitempty"`
	OverseesStageIDs []string               `json:"oversees_stage_ids,omitempty"`
}

type UpdateRoleRequest struct {
	Title            *string                 `json:"title,omitempty"`
	PrimaryType      *string                 `json:"primary_type,omitempty"`
	SecondaryType    *string                 `json:"secondary_type,omitempty"`
	Owns             *[]OwnedCategoryRequest `json:"owns,omitempty"`
	DoesNotOwn       *[]string               `json:"does_not_own,omitempty"`
	OverseesStageIDs *[]string               `json:"oversees_stage_ids,omitempty"`
}

type CreateStageRequest struct {
	ID        *string `json:"id,omitempty"`
	Name      string  `json:"name"`
	SortOrder int     `json:"sort_order,omitempty"`
}

type UpdateStageRequest struct {
	Name      *string `json:"name,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
}

type CreateHandoffRequest struct {
	ID          *string  `json:"id,omitempty"`
	FromStageID string   `json:"from_stage_id"`
	ToStageID   string   `json:"to_stage_id"`
	SLA         *string  `json:"sla,omitempty"`
	Tensions    []string `json:"tensions,omitempty"`
}

type UpdateHandoffRequest struct {
	SLA      *string   `json:"sla,omitempty"`
	Tensions *[]string `json:"tensions,omitempty"`
}

type CreateCategoryRequest struct {
	ID         *string  `json:"id,omitempty"`
	Name       string   `json:"name"`
	IdealTypes []string `json:"ideal_types,omitempty"`
	FitReason  *string  `json:"fit_reason,omitempty"`
}

type UpdateCategoryRequest struct {
	Name       *string   `json:"name,omitempty"`
	IdealTypes *[]string `json:"ideal_types,omitempty"`
	FitReason  *string   `json:"fit_reason,omitempty"`
}

type CreateActivityRequest struct {
	ID         *string `json:"id,omitempty"`
	Name       string  `json:"name"`
	CategoryID *string `json:"category_id,omitempty"`
	StageID    *string `json:"stage_id,omitempty"`
}

type UpdateActivityRequest struct {
	Name       *string `json:"name,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	StageID    *string `json:"stage_id,omitempty"`
}

type AssignRoleRequest struct {
	RoleID string `json:"role_id"`
}

type SetProgressionRequest struct {
	Track             *string  `json:"track,omitempty"`
	GrowthActivityIDs []string `json:"growth_activity_ids,omitempty"`
}

type RoleChangeRequest struct {
	ActorID string `json:"actor_id"`
	RoleID  string `json:"role_id"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	OrgID   string   `json:"org_id"`
	Roles   []string `json:"roles,omitempty"`
	Scopes  []string `json:"scopes,omitempty"`
}

// Response payloads

type WorkspaceResponse struct {
	ID          string `json:"id"`
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Status      string `json:"status" enum:"active,archived"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type RoleResponse struct {
	ID               string                 `json:"id"`
	WorkspaceID      string                 `json:"workspace_id"`
	Title            string                 `json:"title"`
	PrimaryType      *string                `json:"primary_type,omitempty"`
	SecondaryType    *string                `json:"secondary_type,omitempty"`
	Owns             []OwnedCategoryRequest `json:"owns"`
	DoesNotOwn       []string               `json:"does_not_own"`
	OverseesStageIDs []string               `json:"oversees_stage_ids"`
	CreatedAt        string                 `json:"created_at" format:"date-time"`
	UpdatedAt        string                 `json:"updated_at" format:"date-time"`
}

type StageResponse struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	SortOrder   int    `json:"sort_order"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type StageRoleResponse struct {
	StageID string `json:"stage_id"`
	RoleID  string `json:"role_id"`
}

type HandoffResponse struct {
	ID          string   `json:"id"`
	WorkspaceID string   `json:"workspace_id"`
	FromStageID string   `json:"from_stage_id"`
	ToStageID   string   `json:"to_stage_id"`
	SLA         *string  `json:"sla,omitempty"`
	Tensions    []string `json:"tensions"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

type CategoryResponse struct {
	ID          string   `json:"id"`
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	IdealTypes  []string `json:"ideal_types"`
	FitReason   *string  `json:"fit_reason,omitempty"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

type ActivityResponse struct {
	ID          string  `json:"id"`
	WorkspaceID string  `json:"workspace_id"`
	Name        string  `json:"name"`
	CategoryID  *string `json:"category_id,omitempty"`
	StageID     *string `json:"stage_id,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

type ActivityRoleResponse struct {
	ActivityID string `json:"activity_id"`
	RoleID     string `json:"role_id"`
}

type ProgressionResponse struct {
	RoleID            string   `json:"role_id"`
	WorkspaceID       string   `json:"workspace_id"`
	Track             *string  `json:"track,omitempty"`
	GrowthActivityIDs []string `json:"growth_activity_ids"`
	CreatedAt         string   `json:"created_at" format:"date-time"`
	UpdatedAt         string   `json:"updated_at" format:"date-time"`
}

type EventResponse struct {
	ID          int64          `json:"id"`
	TS          string         `json:"ts" format:"date-time"`
	Type        string         `json:"type"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
	EntityKind  string         `json:"entity_kind"`
	EntityID    string         `json:"entity_id,omitempty"`
	ActorID     string         `json:"actor_id"`
	Payload     map[string]any `json:"payload"`
}

type WhoAmIResponse struct {
	ActorID     string   `json:"actor_id"`
	OrgID       string   `json:"org_id,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type WorkspaceConfigResponse struct {
	Workspace workspaceConfigSection `json:"workspace"`
	RBAC      rbacConfigSection      `json:"rbac"`
}

type workspaceConfigSection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type rbacConfigSection struct {
	Roles map[string]accessRoleResponse `json:"roles"`
}

type accessRoleResponse struct {
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func workspaceResponse(w domain.Workspace) WorkspaceResponse {
	return WorkspaceResponse(w)
}

func roleResponse(r domain.Role) RoleResponse {
	var owns []OwnedCategoryRequest
	if r.OwnsJSON != nil && *r.OwnsJSON != "" {
		_ = json.Unmarshal([]byte(*r.OwnsJSON), &owns)
	}
	return RoleResponse{
		ID:               r.ID,
		WorkspaceID:      r.WorkspaceID,
		Title:            r.Title,
		PrimaryType:      r.PrimaryType,
		SecondaryType:    r.SecondaryType,
		Owns:             nonNilSlice(owns),
		DoesNotOwn:       nonNilSlice(decodeStringSlice(r.DoesNotOwnJSON)),
		OverseesStageIDs: nonNilSlice(decodeStringSlice(r.OverseesStageIDsJSON)),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func stageResponse(s domain.Stage) StageResponse {
	return StageResponse(s)
}

func handoffResponse(h domain.Handoff) HandoffResponse {
	return HandoffResponse{
		ID:          h.ID,
		WorkspaceID: h.WorkspaceID,
		FromStageID: h.FromStageID,
		ToStageID:   h.ToStageID,
		SLA:         h.SLA,
		Tensions:    nonNilSlice(decodeStringSlice(h.TensionsJSON)),
		CreatedAt:   h.CreatedAt,
	}
}

func categoryResponse(c domain.ActivityCategory) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		WorkspaceID: c.WorkspaceID,
		Name:        c.Name,
		IdealTypes:  nonNilSlice(decodeStringSlice(c.IdealTypesJSON)),
		FitReason:   c.FitReason,
		CreatedAt:   c.CreatedAt,
	}
}

func activityResponse(a domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:          a.ID,
		WorkspaceID: a.WorkspaceID,
		Name:        a.Name,
		CategoryID:  a.CategoryID,
		StageID:     a.StageID,
		CreatedAt:   a.CreatedAt,
	}
}

func progressionResponse(p domain.RoleProgression) ProgressionResponse {
	return ProgressionResponse{
		RoleID:            p.RoleID,
		WorkspaceID:       p.WorkspaceID,
		Track:             p.Track,
		GrowthActivityIDs: nonNilSlice(decodeStringSlice(p.GrowthActivityIDsJSON)),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		TS:          e.TS,
		Type:        e.Type,
		WorkspaceID: e.WorkspaceID,
		EntityKind:  e.EntityKind,
		EntityID:    e.EntityID,
		ActorID:     e.ActorID,
		Payload:     decodeJSONMap(strPtr(e.Payload)),
	}
}

func configResponse(cfg *config.Config) WorkspaceConfigResponse {
	res := WorkspaceConfigResponse{
		Workspace: workspaceConfigSection{
			ID:   cfg.Workspace.ID,
			Name: cfg.Workspace.Name,
		},
		RBAC: rbacConfigSection{
			Roles: map[string]accessRoleResponse{},
		},
	}
	for name, role := range cfg.RBAC.Roles {
		res.RBAC.Roles[name] = accessRoleResponse{
			Description: role.Description,
			Permissions: nonNilSlice(role.Permissions),
		}
	}
	return res
}

func ownsFromRequest(in []OwnedCategoryRequest) []analysis.OwnedCategory {
	out := make([]analysis.OwnedCategory, 0, len(in))
	for _, c := range in {
		out = append(out, analysis.OwnedCategory{Title: c.Title, Items: c.Items})
	}
	return out
}

// JSON helpers

func decodeJSONMap(raw *string) map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(*raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func decodeStringSlice(raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	var arr []string
	if err := json.Unmarshal([]byte(*raw), &arr); err != nil {
		return nil
	}
	return arr
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func strPtr(in string) *string {
	return &in
}
