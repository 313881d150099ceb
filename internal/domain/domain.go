package domain

type Workspace struct {
	ID          string `json:"id"`
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Status      string `json:"status" enum:"active,archived"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

// Role stores the nested ownership/oversight shapes as JSON text columns;
// the repo decodes them into typed analysis structs at the snapshot boundary.
type Role struct {
	ID                   string  `json:"id"`
	WorkspaceID          string  `json:"workspace_id"`
	Title                string  `json:"title"`
	PrimaryType          *string `json:"primary_type,omitempty"`
	SecondaryType        *string `json:"secondary_type,omitempty"`
	OwnsJSON             *string `json:"owns_json,omitempty"`
	DoesNotOwnJSON       *string `json:"does_not_own_json,omitempty"`
	OverseesStageIDsJSON *string `json:"oversees_stage_ids_json,omitempty"`
	CreatedAt            string  `json:"created_at" format:"date-time"`
	UpdatedAt            string  `json:"updated_at" format:"date-time"`
}

type Stage struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	SortOrder   int    `json:"sort_order"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type StageRoleAssignment struct {
	StageID string `json:"stage_id"`
	RoleID  string `json:"role_id"`
}

type Handoff struct {
	ID           string  `json:"id"`
	WorkspaceID  string  `json:"workspace_id"`
	FromStageID  string  `json:"from_stage_id"`
	ToStageID    string  `json:"to_stage_id"`
	SLA          *string `json:"sla,omitempty"`
	TensionsJSON *string `json:"tensions_json,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type ActivityCategory struct {
	ID             string  `json:"id"`
	WorkspaceID    string  `json:"workspace_id"`
	Name           string  `json:"name"`
	IdealTypesJSON *string `json:"ideal_types_json,omitempty"`
	FitReason      *string `json:"fit_reason,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}

type Activity struct {
	ID          string  `json:"id"`
	WorkspaceID string  `json:"workspace_id"`
	Name        string  `json:"name"`
	CategoryID  *string `json:"category_id,omitempty"`
	StageID     *string `json:"stage_id,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

type ActivityAssignment struct {
	ActivityID string `json:"activity_id"`
	RoleID     string `json:"role_id"`
}

type RoleProgression struct {
	RoleID                string  `json:"role_id"`
	WorkspaceID           string  `json:"workspace_id"`
	Track                 *string `json:"track,omitempty"`
	GrowthActivityIDsJSON *string `json:"growth_activity_ids_json,omitempty"`
	CreatedAt             string  `json:"created_at" format:"date-time"`
	UpdatedAt             string  `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	Type        string `json:"type"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id,omitempty"`
	ActorID     string `json:"actor_id"`
	Payload     string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
