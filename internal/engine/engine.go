package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
	"github.com/Lbridge2222/Teamforge-sub001/internal/config"
	"github.com/Lbridge2222/Teamforge-sub001/internal/domain"
	"github.com/Lbridge2222/Teamforge-sub001/internal/engine/auth"
	"github.com/Lbridge2222/Teamforge-sub001/internal/events"
	"github.com/Lbridge2222/Teamforge-sub001/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Auth:   auth.Service{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// InitWorkspace creates a workspace with its default config, seeding the
// owning organization and actor when they do not exist yet.
func (e Engine) InitWorkspace(ctx context.Context, workspaceID, orgID, name, description, actorID string) (domain.Workspace, error) {
	if workspaceID == "" {
		return domain.Workspace{}, errors.New("workspace id is required")
	}
	if orgID == "" {
		orgID = "default"
	}
	if name == "" {
		name = workspaceID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Workspace{}, err
	}
	defer tx.Rollback()

	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.EnsureOrg(ctx, tx, orgID, "", now); err != nil {
		return domain.Workspace{}, err
	}
	if actorID != "" {
		if err := e.Repo.EnsureActor(ctx, tx, actorID, now); err != nil {
			return domain.Workspace{}, err
		}
	}
	w := domain.Workspace{
		ID:          workspaceID,
		OrgID:       orgID,
		Name:        name,
		Status:      "active",
		Description: description,
		CreatedAt:   now,
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO workspaces(id,org_id,name,status,description,created_at) VALUES (?,?,?,?,?,?)`,
		w.ID, w.OrgID, w.Name, w.Status, nullable(w.Description), w.CreatedAt); err != nil {
		return domain.Workspace{}, fmt.Errorf("insert workspace: %w", err)
	}
	seedCfg := config.Default(w.ID)
	if err := e.Repo.UpsertWorkspaceConfigTx(ctx, tx, w.ID, seedCfg); err != nil {
		return domain.Workspace{}, fmt.Errorf("insert workspace config: %w", err)
	}
	for roleID, role := range seedCfg.RBAC.Roles {
		if err := e.Repo.InsertAccessRole(ctx, tx, roleID, role.Description); err != nil {
			return domain.Workspace{}, err
		}
		for _, perm := range role.Permissions {
			if err := e.Repo.InsertPermission(ctx, tx, perm, ""); err != nil {
				return domain.Workspace{}, err
			}
			if err := e.Repo.AddRolePermission(ctx, tx, roleID, perm); err != nil {
				return domain.Workspace{}, err
			}
		}
	}
	if actorID != "" {
		if err := e.Repo.AssignAccessRole(ctx, tx, w.ID, actorID, "owner"); err != nil {
			return domain.Workspace{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "workspace.init", w.ID, "workspace", w.ID, actorID, events.EventPayload{"status": w.Status}); err != nil {
		return domain.Workspace{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Workspace{}, err
	}
	return w, nil
}

func (e Engine) UpdateWorkspace(ctx context.Context, id string, name, status, description *string, actorID string) (domain.Workspace, error) {
	if status != nil && *status != "active" && *status != "archived" {
		return domain.Workspace{}, fmt.Errorf("invalid workspace status %s", *status)
	}
	if _, err := e.Repo.GetWorkspace(ctx, id); err != nil {
		return domain.Workspace{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Workspace{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateWorkspace(ctx, tx, id, name, status, description); err != nil {
		return domain.Workspace{}, err
	}
	if err := e.Events.Append(ctx, tx, "workspace.updated", id, "workspace", id, actorID, events.EventPayload{}); err != nil {
		return domain.Workspace{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Workspace{}, err
	}
	return e.Repo.GetWorkspace(ctx, id)
}

func (e Engine) DeleteWorkspace(ctx context.Context, id, actorID string) error {
	if _, err := e.Repo.GetWorkspace(ctx, id); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteWorkspace(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "workspace.deleted", id, "workspace", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// RoleOptions are parameters for creating or updating an org design role.
// Nil slices on update mean "leave unchanged"; empty slices clear the field.
type RoleOptions struct {
	ID               string
	WorkspaceID      string
	Title            string
	PrimaryType      *string
	SecondaryType    *string
	Owns             []analysis.OwnedCategory
	DoesNotOwn       []string
	OverseesStageIDs []string
	SetOwns          bool
	SetDoesNotOwn    bool
	SetOversees      bool
	ActorID          string
}

func (e Engine) validateBelbinTypes(primary, secondary *string) error {
	if primary != nil && *primary != "" && !analysis.ValidBelbinKey(*primary) {
		return fmt.Errorf("unknown Belbin type %s", *primary)
	}
	if secondary != nil && *secondary != "" && !analysis.ValidBelbinKey(*secondary) {
		return fmt.Errorf("unknown Belbin type %s", *secondary)
	}
	return nil
}

func (e Engine) validateStageRefs(ctx context.Context, workspaceID string, stageIDs []string) error {
	for _, id := range stageIDs {
		s, err := e.Repo.GetStage(ctx, id)
		if err != nil {
			return fmt.Errorf("stage %s: %w", id, err)
		}
		if s.WorkspaceID != workspaceID {
			return fmt.Errorf("stage %s not in workspace %s", id, workspaceID)
		}
	}
	return nil
}

func (e Engine) CreateRole(ctx context.Context, opts RoleOptions) (domain.Role, error) {
	if opts.Title == "" {
		return domain.Role{}, errors.New("title is required")
	}
	if opts.WorkspaceID == "" {
		return domain.Role{}, errors.New("workspace is required")
	}
	if _, err := e.Repo.GetWorkspace(ctx, opts.WorkspaceID); err != nil {
		return domain.Role{}, err
	}
	if err := e.validateBelbinTypes(opts.PrimaryType, opts.SecondaryType); err != nil {
		return domain.Role{}, err
	}
	if err := e.validateStageRefs(ctx, opts.WorkspaceID, opts.OverseesStageIDs); err != nil {
		return domain.Role{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	ownsJSON, err := marshalJSONColumn(opts.Owns, len(opts.Owns) > 0)
	if err != nil {
		return domain.Role{}, err
	}
	doesNotOwnJSON, err := marshalJSONColumn(opts.DoesNotOwn, len(opts.DoesNotOwn) > 0)
	if err != nil {
		return domain.Role{}, err
	}
	overseesJSON, err := marshalJSONColumn(opts.OverseesStageIDs, len(opts.OverseesStageIDs) > 0)
	if err != nil {
		return domain.Role{}, err
	}
	role := domain.Role{
		ID:                   id,
		WorkspaceID:          opts.WorkspaceID,
		Title:                opts.Title,
		PrimaryType:          normalizePtr(opts.PrimaryType),
		SecondaryType:        normalizePtr(opts.SecondaryType),
		OwnsJSON:             ownsJSON,
		DoesNotOwnJSON:       doesNotOwnJSON,
		OverseesStageIDsJSON: overseesJSON,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Role{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertRole(ctx, tx, role); err != nil {
		return domain.Role{}, err
	}
	if err := e.Events.Append(ctx, tx, "role.created", role.WorkspaceID, "role", role.ID, opts.ActorID, events.EventPayload{"title": role.Title}); err != nil {
		return domain.Role{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Role{}, err
	}
	return role, nil
}

func (e Engine) UpdateRole(ctx context.Context, opts RoleOptions) (domain.Role, error) {
	role, err := e.Repo.GetRole(ctx, opts.ID)
	if err != nil {
		return role, err
	}
	if opts.Title != "" {
		role.Title = opts.Title
	}
	if opts.PrimaryType != nil {
		if err := e.validateBelbinTypes(opts.PrimaryType, nil); err != nil {
			return role, err
		}
		role.PrimaryType = normalizePtr(opts.PrimaryType)
	}
	if opts.SecondaryType != nil {
		if err := e.validateBelbinTypes(nil, opts.SecondaryType); err != nil {
			return role, err
		}
		role.SecondaryType = normalizePtr(opts.SecondaryType)
	}
	if opts.SetOwns {
		role.OwnsJSON, err = marshalJSONColumn(opts.Owns, len(opts.Owns) > 0)
		if err != nil {
			return role, err
		}
	}
	if opts.SetDoesNotOwn {
		role.DoesNotOwnJSON, err = marshalJSONColumn(opts.DoesNotOwn, len(opts.DoesNotOwn) > 0)
		if err != nil {
			return role, err
		}
	}
	if opts.SetOversees {
		if err := e.validateStageRefs(ctx, role.WorkspaceID, opts.OverseesStageIDs); err != nil {
			return role, err
		}
		role.OverseesStageIDsJSON, err = marshalJSONColumn(opts.OverseesStageIDs, len(opts.OverseesStageIDs) > 0)
		if err != nil {
			return role, err
		}
	}
	role.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return role, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateRole(ctx, tx, role); err != nil {
		return role, err
	}
	if err := e.Events.Append(ctx, tx, "role.updated", role.WorkspaceID, "role", role.ID, opts.ActorID, events.EventPayload{"title": role.Title}); err != nil {
		return role, err
	}
	if err := tx.Commit(); err != nil {
		return role, err
	}
	return role, nil
}

func (e Engine) DeleteRole(ctx context.Context, id, actorID string) error {
	role, err := e.Repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteRole(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "role.deleted", role.WorkspaceID, "role", id, actorID, events.EventPayload{"title": role.Title}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) CreateStage(ctx context.Context, workspaceID, id, name string, sortOrder int, actorID string) (domain.Stage, error) {
	if name == "" {
		return domain.Stage{}, errors.New("name is required")
	}
	if _, err := e.Repo.GetWorkspace(ctx, workspaceID); err != nil {
		return domain.Stage{}, err
	}
	if id == "" {
		id = uuid.New().String()
	}
	s := domain.Stage{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        name,
		SortOrder:   sortOrder,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertStage(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "stage.created", workspaceID, "stage", s.ID, actorID, events.EventPayload{"name": s.Name}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

func (e Engine) UpdateStage(ctx context.Context, id string, name *string, sortOrder *int, actorID string) (domain.Stage, error) {
	s, err := e.Repo.GetStage(ctx, id)
	if err != nil {
		return s, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateStage(ctx, tx, id, name, sortOrder); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "stage.updated", s.WorkspaceID, "stage", id, actorID, events.EventPayload{}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return e.Repo.GetStage(ctx, id)
}

func (e Engine) DeleteStage(ctx context.Context, id, actorID string) error {
	s, err := e.Repo.GetStage(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteStage(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "stage.deleted", s.WorkspaceID, "stage", id, actorID, events.EventPayload{"name": s.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) AssignStageRole(ctx context.Context, stageID, roleID, actorID string) error {
	s, err := e.Repo.GetStage(ctx, stageID)
	if err != nil {
		return fmt.Errorf("stage %s: %w", stageID, err)
	}
	role, err := e.Repo.GetRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role %s: %w", roleID, err)
	}
	if role.WorkspaceID != s.WorkspaceID {
		return fmt.Errorf("role %s not in workspace %s", roleID, s.WorkspaceID)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.AddStageRole(ctx, tx, stageID, roleID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "stage.role.assigned", s.WorkspaceID, "stage", stageID, actorID, events.EventPayload{"role_id": roleID}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) UnassignStageRole(ctx context.Context, stageID, roleID, actorID string) error {
	s, err := e.Repo.GetStage(ctx, stageID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.RemoveStageRole(ctx, tx, stageID, roleID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "stage.role.unassigned", s.WorkspaceID, "stage", stageID, actorID, events.EventPayload{"role_id": roleID}); err != nil {
		return err
	}
	return tx.Commit()
}

// HandoffOptions are parameters for creating a stage handoff.
type HandoffOptions struct {
	ID          string
	WorkspaceID string
	FromStageID string
	ToStageID   string
	SLA         *string
	Tensions    []string
	ActorID     string
}

func (e Engine) CreateHandoff(ctx context.Context, opts HandoffOptions) (domain.Handoff, error) {
	if opts.FromStageID == "" || opts.ToStageID == "" {
		return domain.Handoff{}, errors.New("from-stage and to-stage are required")
	}
	if opts.FromStageID == opts.ToStageID {
		return domain.Handoff{}, errors.New("handoff cannot target its own stage")
	}
	if _, err := e.Repo.GetWorkspace(ctx, opts.WorkspaceID); err != nil {
		return domain.Handoff{}, err
	}
	if err := e.validateStageRefs(ctx, opts.WorkspaceID, []string{opts.FromStageID, opts.ToStageID}); err != nil {
		return domain.Handoff{}, err
	}
	tensionsJSON, err := marshalJSONColumn(opts.Tensions, len(opts.Tensions) > 0)
	if err != nil {
		return domain.Handoff{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	h := domain.Handoff{
		ID:           id,
		WorkspaceID:  opts.WorkspaceID,
		FromStageID:  opts.FromStageID,
		ToStageID:    opts.ToStageID,
		SLA:          normalizePtr(opts.SLA),
		TensionsJSON: tensionsJSON,
		CreatedAt:    e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return h, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertHandoff(ctx, tx, h); err != nil {
		return h, err
	}
	if err := e.Events.Append(ctx, tx, "handoff.created", h.WorkspaceID, "handoff", h.ID, opts.ActorID, events.EventPayload{
		"from_stage_id": h.FromStageID,
		"to_stage_id":   h.ToStageID,
	}); err != nil {
		return h, err
	}
	if err := tx.Commit(); err != nil {
		return h, err
	}
	return h, nil
}

func (e Engine) UpdateHandoff(ctx context.Context, id string, sla *string, tensions []string, setTensions bool, actorID string) (domain.Handoff, error) {
	h, err := e.Repo.GetHandoff(ctx, id)
	if err != nil {
		return h, err
	}
	var tensionsJSON *string
	if setTensions {
		tensionsJSON, err = marshalJSONColumn(tensions, len(tensions) > 0)
		if err != nil {
			return h, err
		}
		if tensionsJSON == nil {
			empty := ""
			tensionsJSON = &empty
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return h, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateHandoff(ctx, tx, id, sla, tensionsJSON); err != nil {
		return h, err
	}
	if err := e.Events.Append(ctx, tx, "handoff.updated", h.WorkspaceID, "handoff", id, actorID, events.EventPayload{}); err != nil {
		return h, err
	}
	if err := tx.Commit(); err != nil {
		return h, err
	}
	return e.Repo.GetHandoff(ctx, id)
}

func (e Engine) DeleteHandoff(ctx context.Context, id, actorID string) error {
	h, err := e.Repo.GetHandoff(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteHandoff(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "handoff.deleted", h.WorkspaceID, "handoff", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// CategoryOptions are parameters for creating or updating an activity category.
type CategoryOptions struct {
	ID            string
	WorkspaceID   string
	Name          string
	IdealTypes    []string
	FitReason     *string
	SetIdealTypes bool
	ActorID       string
}

func validateIdealTypes(keys []string) error {
	for _, k := range keys {
		if !analysis.ValidBelbinKey(k) {
			return fmt.Errorf("unknown Belbin type %s", k)
		}
	}
	return nil
}

func (e Engine) CreateCategory(ctx context.Context, opts CategoryOptions) (domain.ActivityCategory, error) {
	if opts.Name == "" {
		return domain.ActivityCategory{}, errors.New("name is required")
	}
	if _, err := e.Repo.GetWorkspace(ctx, opts.WorkspaceID); err != nil {
		return domain.ActivityCategory{}, err
	}
	if err := validateIdealTypes(opts.IdealTypes); err != nil {
		return domain.ActivityCategory{}, err
	}
	idealTypesJSON, err := marshalJSONColumn(opts.IdealTypes, len(opts.IdealTypes) > 0)
	if err != nil {
		return domain.ActivityCategory{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	c := domain.ActivityCategory{
		ID:             id,
		WorkspaceID:    opts.WorkspaceID,
		Name:           opts.Name,
		IdealTypesJSON: idealTypesJSON,
		FitReason:      normalizePtr(opts.FitReason),
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCategory(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "category.created", c.WorkspaceID, "category", c.ID, opts.ActorID, events.EventPayload{"name": c.Name}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

func (e Engine) UpdateCategory(ctx context.Context, opts CategoryOptions) (domain.ActivityCategory, error) {
	c, err := e.Repo.GetCategory(ctx, opts.ID)
	if err != nil {
		return c, err
	}
	var name *string
	if opts.Name != "" {
		name = &opts.Name
	}
	var idealTypesJSON *string
	if opts.SetIdealTypes {
		if err := validateIdealTypes(opts.IdealTypes); err != nil {
			return c, err
		}
		idealTypesJSON, err = marshalJSONColumn(opts.IdealTypes, len(opts.IdealTypes) > 0)
		if err != nil {
			return c, err
		}
		if idealTypesJSON == nil {
			empty := ""
			idealTypesJSON = &empty
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateCategory(ctx, tx, opts.ID, name, idealTypesJSON, opts.FitReason); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "category.updated", c.WorkspaceID, "category", opts.ID, opts.ActorID, events.EventPayload{}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return e.Repo.GetCategory(ctx, opts.ID)
}

func (e Engine) DeleteCategory(ctx context.Context, id, actorID string) error {
	c, err := e.Repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteCategory(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "category.deleted", c.WorkspaceID, "category", id, actorID, events.EventPayload{"name": c.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

// ActivityOptions are parameters for creating or updating an activity.
type ActivityOptions struct {
	ID          string
	WorkspaceID string
	Name        string
	CategoryID  *string
	StageID     *string
	ActorID     string
}

func (e Engine) validateActivityRefs(ctx context.Context, workspaceID string, categoryID, stageID *string) error {
	if categoryID != nil && *categoryID != "" {
		c, err := e.Repo.GetCategory(ctx, *categoryID)
		if err != nil {
			return fmt.Errorf("category %s: %w", *categoryID, err)
		}
		if c.WorkspaceID != workspaceID {
			return fmt.Errorf("category %s not in workspace %s", *categoryID, workspaceID)
		}
	}
	if stageID != nil && *stageID != "" {
		return e.validateStageRefs(ctx, workspaceID, []string{*stageID})
	}
	return nil
}

func (e Engine) CreateActivity(ctx context.Context, opts ActivityOptions) (domain.Activity, error) {
	if opts.Name == "" {
		return domain.Activity{}, errors.New("name is required")
	}
	if _, err := e.Repo.GetWorkspace(ctx, opts.WorkspaceID); err != nil {
		return domain.Activity{}, err
	}
	if err := e.validateActivityRefs(ctx, opts.WorkspaceID, opts.CategoryID, opts.StageID); err != nil {
		return domain.Activity{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	a := domain.Activity{
		ID:          id,
		WorkspaceID: opts.WorkspaceID,
		Name:        opts.Name,
		CategoryID:  normalizePtr(opts.CategoryID),
		StageID:     normalizePtr(opts.StageID),
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertActivity(ctx, tx, a); err != nil {
		return a, err
	}
	if err := e.Events.Append(ctx, tx, "activity.created", a.WorkspaceID, "activity", a.ID, opts.ActorID, events.EventPayload{"name": a.Name}); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

func (e Engine) UpdateActivity(ctx context.Context, opts ActivityOptions) (domain.Activity, error) {
	a, err := e.Repo.GetActivity(ctx, opts.ID)
	if err != nil {
		return a, err
	}
	if err := e.validateActivityRefs(ctx, a.WorkspaceID, opts.CategoryID, opts.StageID); err != nil {
		return a, err
	}
	var name *string
	if opts.Name != "" {
		name = &opts.Name
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateActivity(ctx, tx, opts.ID, name, opts.CategoryID, opts.StageID); err != nil {
		return a, err
	}
	if err := e.Events.Append(ctx, tx, "activity.updated", a.WorkspaceID, "activity", opts.ID, opts.ActorID, events.EventPayload{}); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return e.Repo.GetActivity(ctx, opts.ID)
}

func (e Engine) DeleteActivity(ctx context.Context, id, actorID string) error {
	a, err := e.Repo.GetActivity(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteActivity(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "activity.deleted", a.WorkspaceID, "activity", id, actorID, events.EventPayload{"name": a.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) AssignActivityRole(ctx context.Context, activityID, roleID, actorID string) error {
	a, err := e.Repo.GetActivity(ctx, activityID)
	if err != nil {
		return fmt.Errorf("activity %s: %w", activityID, err)
	}
	role, err := e.Repo.GetRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role %s: %w", roleID, err)
	}
	if role.WorkspaceID != a.WorkspaceID {
		return fmt.Errorf("role %s not in workspace %s", roleID, a.WorkspaceID)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.AddActivityRole(ctx, tx, activityID, roleID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "activity.role.assigned", a.WorkspaceID, "activity", activityID, actorID, events.EventPayload{"role_id": roleID}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) UnassignActivityRole(ctx context.Context, activityID, roleID, actorID string) error {
	a, err := e.Repo.GetActivity(ctx, activityID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.RemoveActivityRole(ctx, tx, activityID, roleID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "activity.role.unassigned", a.WorkspaceID, "activity", activityID, actorID, events.EventPayload{"role_id": roleID}); err != nil {
		return err
	}
	return tx.Commit()
}

// ProgressionOptions are parameters for setting a role's growth track.
// Growth activity IDs are not checked against existing activities: career
// diagnostics surface dangling references instead of rejecting them.
type ProgressionOptions struct {
	RoleID            string
	Track             *string
	GrowthActivityIDs []string
	ActorID           string
}

func (e Engine) SetProgression(ctx context.Context, opts ProgressionOptions) (domain.RoleProgression, error) {
	role, err := e.Repo.GetRole(ctx, opts.RoleID)
	if err != nil {
		return domain.RoleProgression{}, err
	}
	growthJSON, err := marshalJSONColumn(opts.GrowthActivityIDs, len(opts.GrowthActivityIDs) > 0)
	if err != nil {
		return domain.RoleProgression{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	p := domain.RoleProgression{
		RoleID:                opts.RoleID,
		WorkspaceID:           role.WorkspaceID,
		Track:                 normalizePtr(opts.Track),
		GrowthActivityIDsJSON: growthJSON,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertProgression(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "progression.set", role.WorkspaceID, "progression", opts.RoleID, opts.ActorID, events.EventPayload{"track": deref(p.Track)}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

func (e Engine) DeleteProgression(ctx context.Context, roleID, actorID string) error {
	role, err := e.Repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteProgression(ctx, tx, roleID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "progression.deleted", role.WorkspaceID, "progression", roleID, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// Diagnose loads the workspace snapshot and runs the requested analysis.
// The raised event records which focus was requested and how it scored.
func (e Engine) Diagnose(ctx context.Context, workspaceID string, focus analysis.Focus, actorID string) (analysis.Report, error) {
	snap, err := e.Repo.LoadSnapshot(ctx, workspaceID)
	if err != nil {
		return analysis.Report{}, err
	}
	report := analysis.Analyse(snap, focus)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return report, err
	}
	defer tx.Rollback()
	payload := events.EventPayload{"focus": string(report.Focus)}
	if report.Health != nil {
		payload["severity"] = string(report.Health.Severity)
		payload["issue_count"] = report.Health.IssueCount
	}
	if err := e.Events.Append(ctx, tx, "workspace.diagnosed", workspaceID, "workspace", workspaceID, actorID, payload); err != nil {
		return report, err
	}
	if err := tx.Commit(); err != nil {
		return report, err
	}
	return report, nil
}

// --- helpers ---

func marshalJSONColumn(v any, present bool) (*string, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func normalizePtr(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
