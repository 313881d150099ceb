package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lbridge2222/Teamforge-sub001/internal/engine/auth"
	"github.com/Lbridge2222/Teamforge-sub001/internal/events"
)

// WhoAmIResult is the resolved RBAC view of an actor in a workspace.
type WhoAmIResult struct {
	ActorID     string
	Roles       []string
	Permissions []string
}

func (e Engine) WhoAmI(ctx context.Context, workspaceID, actorID string) (WhoAmIResult, error) {
	if actorID == "" {
		return WhoAmIResult{}, errors.New("actor_id required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return WhoAmIResult{}, err
	}
	defer tx.Rollback()
	roles, err := e.Auth.ActorRoles(ctx, tx, workspaceID, actorID)
	if err != nil {
		return WhoAmIResult{}, err
	}
	perms, err := e.Auth.ActorPermissions(ctx, tx, workspaceID, actorID)
	if err != nil {
		return WhoAmIResult{}, err
	}
	return WhoAmIResult{ActorID: actorID, Roles: roles, Permissions: perms}, nil
}

// GrantRole assigns an access role to an actor, creating the actor row on
// first grant. The granting actor must hold rbac.manage.
func (e Engine) GrantRole(ctx context.Context, workspaceID, grantedBy, actorID, roleID string) error {
	if actorID == "" || roleID == "" {
		return errors.New("actor_id and role_id required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ok, err := e.Auth.ActorHasPermission(ctx, tx, workspaceID, grantedBy, "rbac.manage")
	if err != nil {
		return err
	}
	if !ok {
		return auth.ForbiddenError{Permission: "rbac.manage"}
	}
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.EnsureActor(ctx, tx, actorID, now); err != nil {
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM access_roles WHERE id=?`, roleID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("access role %s not found", roleID)
	}
	if err := e.Repo.AssignAccessRole(ctx, tx, workspaceID, actorID, roleID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "rbac.role.granted", workspaceID, "rbac", actorID, grantedBy, events.EventPayload{"role_id": roleID}); err != nil {
		return err
	}
	return tx.Commit()
}

// RevokeRole removes an access role from an actor.
func (e Engine) RevokeRole(ctx context.Context, workspaceID, revokedBy, actorID, roleID string) error {
	if actorID == "" || roleID == "" {
		return errors.New("actor_id and role_id required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ok, err := e.Auth.ActorHasPermission(ctx, tx, workspaceID, revokedBy, "rbac.manage")
	if err != nil {
		return err
	}
	if !ok {
		return auth.ForbiddenError{Permission: "rbac.manage"}
	}
	if err := e.Repo.RevokeAccessRole(ctx, tx, workspaceID, actorID, roleID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "rbac.role.revoked", workspaceID, "rbac", actorID, revokedBy, events.EventPayload{"role_id": roleID}); err != nil {
		return err
	}
	return tx.Commit()
}
