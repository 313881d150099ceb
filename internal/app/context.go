package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lbridge2222/Teamforge-sub001/internal/config"
	"github.com/Lbridge2222/Teamforge-sub001/internal/domain"
	"github.com/Lbridge2222/Teamforge-sub001/internal/repo"
)

// ResolveWorkspaceAndConfig picks the active workspace and ensures a
// workspace + config exist in DB, seeding defaults if missing. It prefers
// overrides, then single-workspace DB. If the workspace does not exist, it
// is created on the fly.
func ResolveWorkspaceAndConfig(ctx context.Context, workspaceOverride, actorID string, r repo.Repo) (string, *config.Config, error) {
	workspaceID := workspaceOverride
	if workspaceID == "" {
		if w, err := r.SingleWorkspace(ctx); err == nil {
			workspaceID = w.ID
		} else {
			return "", nil, fmt.Errorf("workspace not specified; use --workspace")
		}
	}
	seedCfg := config.Default(workspaceID)

	if _, err := r.GetWorkspace(ctx, workspaceID); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return "", nil, err
		}
		if err := createWorkspace(ctx, r, workspaceID, seedCfg, actorID); err != nil {
			return "", nil, err
		}
	}
	cfg, err := r.GetWorkspaceConfig(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			if err := r.UpsertWorkspaceConfig(ctx, workspaceID, seedCfg); err != nil {
				return "", nil, fmt.Errorf("seed workspace config: %w", err)
			}
			cfg = seedCfg
		} else {
			return "", nil, err
		}
	}
	cfg.Workspace.ID = workspaceID
	return workspaceID, cfg, nil
}

// createWorkspace inserts a minimal workspace/org/rbac footprint using the seed config.
func createWorkspace(ctx context.Context, r repo.Repo, workspaceID string, seedCfg *config.Config, actorID string) error {
	if seedCfg == nil {
		seedCfg = config.Default(workspaceID)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	orgID := "default-org"
	w := domain.Workspace{
		ID:        workspaceID,
		OrgID:     orgID,
		Name:      workspaceID,
		Status:    "active",
		CreatedAt: now,
	}
	if err := r.EnsureOrg(ctx, tx, orgID, "Default Org", now); err != nil {
		return fmt.Errorf("ensure org: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO workspaces(id,org_id,name,status,description,created_at) VALUES (?,?,?,?,?,?)`,
		w.ID, w.OrgID, w.Name, w.Status, w.Description, w.CreatedAt); err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	if err := r.UpsertWorkspaceConfigTx(ctx, tx, workspaceID, seedCfg); err != nil {
		return fmt.Errorf("insert workspace config: %w", err)
	}
	if actorID == "" {
		actorID = "local-user"
	}
	if err := r.EnsureActor(ctx, tx, actorID, now); err != nil {
		return fmt.Errorf("ensure actor: %w", err)
	}
	for roleID, role := range seedCfg.RBAC.Roles {
		if err := r.InsertAccessRole(ctx, tx, roleID, role.Description); err != nil {
			return fmt.Errorf("insert access role: %w", err)
		}
		for _, perm := range role.Permissions {
			if err := r.InsertPermission(ctx, tx, perm, ""); err != nil {
				return fmt.Errorf("insert permission: %w", err)
			}
			if err := r.AddRolePermission(ctx, tx, roleID, perm); err != nil {
				return fmt.Errorf("add role permission: %w", err)
			}
		}
	}
	if err := r.AssignAccessRole(ctx, tx, workspaceID, actorID, "owner"); err != nil {
		return fmt.Errorf("assign access role: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
