package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Lbridge2222/Teamforge-sub001/internal/config"
	"github.com/Lbridge2222/Teamforge-sub001/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertWorkspace(ctx context.Context, w domain.Workspace) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO workspaces(id,org_id,name,status,description,created_at) VALUES (?,?,?,?,?,?)`,
		w.ID, w.OrgID, w.Name, w.Status, nullable(w.Description), w.CreatedAt)
	return err
}

func (r Repo) GetWorkspace(ctx context.Context, id string) (domain.Workspace, error) {
	var w domain.Workspace
	var desc sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,org_id,name,status,description,created_at FROM workspaces WHERE id=?`, id).
		Scan(&w.ID, &w.OrgID, &w.Name, &w.Status, &desc, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	if desc.Valid {
		w.Description = desc.String
	}
	return w, err
}

func (r Repo) SingleWorkspace(ctx context.Context) (domain.Workspace, error) {
	ws, err := r.ListWorkspaces(ctx)
	if err != nil {
		return domain.Workspace{}, err
	}
	if len(ws) == 0 {
		return domain.Workspace{}, ErrNotFound
	}
	if len(ws) > 1 {
		return domain.Workspace{}, fmt.Errorf("multiple workspaces exist; specify --workspace")
	}
	return ws[0], nil
}

func (r Repo) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,org_id,name,status,COALESCE(description,'') AS description,created_at FROM workspaces ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.OrgID, &w.Name, &w.Status, &w.Description, &w.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, nil
}

func (r Repo) UpdateWorkspace(ctx context.Context, tx *sql.Tx, id string, name, status, description *string) error {
	var (
		fields []string
		args   []any
	)
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if status != nil {
		fields = append(fields, "status=?")
		args = append(args, *status)
	}
	if description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*description))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE workspaces SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteWorkspace(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM workspaces WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpsertWorkspaceConfig(ctx context.Context, workspaceID string, cfg *config.Config) error {
	return upsertWorkspaceConfig(ctx, r.DB, nil, workspaceID, cfg)
}

func (r Repo) UpsertWorkspaceConfigTx(ctx context.Context, tx *sql.Tx, workspaceID string, cfg *config.Config) error {
	return upsertWorkspaceConfig(ctx, nil, tx, workspaceID, cfg)
}

func upsertWorkspaceConfig(ctx context.Context, db *sql.DB, tx *sql.Tx, workspaceID string, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	cfg.Workspace.ID = workspaceID
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return db.ExecContext(ctx, query, args...)
	}
	_, err = exec(`INSERT INTO workspace_configs(workspace_id,config_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(workspace_id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, workspaceID, string(payload), now, now)
	return err
}

func (r Repo) GetWorkspaceConfig(ctx context.Context, workspaceID string) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM workspace_configs WHERE workspace_id=?`, workspaceID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	if cfg.Workspace.ID == "" {
		cfg.Workspace.ID = workspaceID
	}
	return &cfg, cfg.Validate()
}

const roleColumns = `workspace_id,id,title,primary_type,secondary_type,owns_json,does_not_own_json,oversees_stage_ids_json,created_at,updated_at`

func (r Repo) InsertRole(ctx context.Context, tx *sql.Tx, role domain.Role) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO org_roles(`+roleColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		role.WorkspaceID, role.ID, role.Title, nullableStringPtr(role.PrimaryType), nullableStringPtr(role.SecondaryType),
		nullableStringPtr(role.OwnsJSON), nullableStringPtr(role.DoesNotOwnJSON), nullableStringPtr(role.OverseesStageIDsJSON),
		role.CreatedAt, role.UpdatedAt)
	return err
}

func (r Repo) UpdateRole(ctx context.Context, tx *sql.Tx, role domain.Role) error {
	res, err := tx.ExecContext(ctx, `UPDATE org_roles SET title=?, primary_type=?, secondary_type=?, owns_json=?, does_not_own_json=?, oversees_stage_ids_json=?, updated_at=? WHERE id=?`,
		role.Title, nullableStringPtr(role.PrimaryType), nullableStringPtr(role.SecondaryType),
		nullableStringPtr(role.OwnsJSON), nullableStringPtr(role.DoesNotOwnJSON), nullableStringPtr(role.OverseesStageIDsJSON),
		role.UpdatedAt, role.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRole(scan func(dest ...any) error) (domain.Role, error) {
	var role domain.Role
	var primary, secondary, owns, doesNotOwn, oversees sql.NullString
	err := scan(&role.WorkspaceID, &role.ID, &role.Title, &primary, &secondary, &owns, &doesNotOwn, &oversees, &role.CreatedAt, &role.UpdatedAt)
	if err == sql.ErrNoRows {
		return role, ErrNotFound
	}
	if err != nil {
		return role, err
	}
	if primary.Valid {
		role.PrimaryType = &primary.String
	}
	if secondary.Valid {
		role.SecondaryType = &secondary.String
	}
	if owns.Valid {
		role.OwnsJSON = &owns.String
	}
	if doesNotOwn.Valid {
		role.DoesNotOwnJSON = &doesNotOwn.String
	}
	if oversees.Valid {
		role.OverseesStageIDsJSON = &oversees.String
	}
	return role, nil
}

func (r Repo) GetRole(ctx context.Context, id string) (domain.Role, error) {
	return scanRole(r.DB.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM org_roles WHERE id=?`, id).Scan)
}

// ListRoles returns roles in insertion order. Diagnostics depend on this
// ordering for first-match resolution, so it must stay stable.
func (r Repo) ListRoles(ctx context.Context, workspaceID string) ([]domain.Role, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+roleColumns+` FROM org_roles WHERE workspace_id=? ORDER BY created_at ASC, id ASC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Role
	for rows.Next() {
		role, err := scanRole(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, role)
	}
	return res, nil
}

func (r Repo) DeleteRole(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM org_roles WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertStage(ctx context.Context, tx *sql.Tx, s domain.Stage) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO stages(id,workspace_id,name,sort_order,created_at) VALUES (?,?,?,?,?)`,
		s.ID, s.WorkspaceID, s.Name, s.SortOrder, s.CreatedAt)
	return err
}

func (r Repo) UpdateStage(ctx context.Context, tx *sql.Tx, id string, name *string, sortOrder *int) error {
	var (
		fields []string
		args   []any
	)
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if sortOrder != nil {
		fields = append(fields, "sort_order=?")
		args = append(args, *sortOrder)
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE stages SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetStage(ctx context.Context, id string) (domain.Stage, error) {
	var s domain.Stage
	err := r.DB.QueryRowContext(ctx, `SELECT id,workspace_id,name,sort_order,created_at FROM stages WHERE id=?`, id).
		Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.SortOrder, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListStages(ctx context.Context, workspaceID string) ([]domain.Stage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,workspace_id,name,sort_order,created_at FROM stages WHERE workspace_id=? ORDER BY sort_order ASC, created_at ASC, id ASC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Stage
	for rows.Next() {
		var s domain.Stage
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.SortOrder, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

func (r Repo) DeleteStage(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM stages WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) AddStageRole(ctx context.Context, tx *sql.Tx, stageID, roleID string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO stage_role_assignments(stage_id, role_id) VALUES (?,?)`, stageID, roleID)
	return err
}

func (r Repo) RemoveStageRole(ctx context.Context, tx *sql.Tx, stageID, roleID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM stage_role_assignments WHERE stage_id=? AND role_id=?`, stageID, roleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListStageRoles(ctx context.Context, workspaceID string) ([]domain.StageRoleAssignment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT a.stage_id, a.role_id FROM stage_role_assignments a
JOIN stages s ON s.id=a.stage_id WHERE s.workspace_id=? ORDER BY a.stage_id, a.role_id`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StageRoleAssignment
	for rows.Next() {
		var a domain.StageRoleAssignment
		if err := rows.Scan(&a.StageID, &a.RoleID); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

func (r Repo) InsertHandoff(ctx context.Context, tx *sql.Tx, h domain.Handoff) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO handoffs(id,workspace_id,from_stage_id,to_stage_id,sla,tensions_json,created_at) VALUES (?,?,?,?,?,?,?)`,
		h.ID, h.WorkspaceID, h.FromStageID, h.ToStageID, nullableStringPtr(h.SLA), nullableStringPtr(h.TensionsJSON), h.CreatedAt)
	return err
}

func (r Repo) UpdateHandoff(ctx context.Context, tx *sql.Tx, id string, sla, tensionsJSON *string) error {
	var (
		fields []string
		args   []any
	)
	if sla != nil {
		fields = append(fields, "sla=?")
		args = append(args, nullable(*sla))
	}
	if tensionsJSON != nil {
		fields = append(fields, "tensions_json=?")
		args = append(args, nullable(*tensionsJSON))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE handoffs SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanHandoff(scan func(dest ...any) error) (domain.Handoff, error) {
	var h domain.Handoff
	var sla, tensions sql.NullString
	err := scan(&h.ID, &h.WorkspaceID, &h.FromStageID, &h.ToStageID, &sla, &tensions, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return h, ErrNotFound
	}
	if err != nil {
		return h, err
	}
	if sla.Valid {
		h.SLA = &sla.String
	}
	if tensions.Valid {
		h.TensionsJSON = &tensions.String
	}
	return h, nil
}

func (r Repo) GetHandoff(ctx context.Context, id string) (domain.Handoff, error) {
	return scanHandoff(r.DB.QueryRowContext(ctx, `SELECT id,workspace_id,from_stage_id,to_stage_id,sla,tensions_json,created_at FROM handoffs WHERE id=?`, id).Scan)
}

func (r Repo) ListHandoffs(ctx context.Context, workspaceID string) ([]domain.Handoff, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,workspace_id,from_stage_id,to_stage_id,sla,tensions_json,created_at FROM handoffs WHERE workspace_id=? ORDER BY created_at ASC, id ASC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Handoff
	for rows.Next() {
		h, err := scanHandoff(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, nil
}

func (r Repo) DeleteHandoff(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM handoffs WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertCategory(ctx context.Context, tx *sql.Tx, c domain.ActivityCategory) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO activity_categories(id,workspace_id,name,ideal_types_json,fit_reason,created_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.WorkspaceID, c.Name, nullableStringPtr(c.IdealTypesJSON), nullableStringPtr(c.FitReason), c.CreatedAt)
	return err
}

func (r Repo) UpdateCategory(ctx context.Context, tx *sql.Tx, id string, name, idealTypesJSON, fitReason *string) error {
	var (
		fields []string
		args   []any
	)
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if idealTypesJSON != nil {
		fields = append(fields, "ideal_types_json=?")
		args = append(args, nullable(*idealTypesJSON))
	}
	if fitReason != nil {
		fields = append(fields, "fit_reason=?")
		args = append(args, nullable(*fitReason))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE activity_categories SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCategory(scan func(dest ...any) error) (domain.ActivityCategory, error) {
	var c domain.ActivityCategory
	var idealTypes, fitReason sql.NullString
	err := scan(&c.ID, &c.WorkspaceID, &c.Name, &idealTypes, &fitReason, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if idealTypes.Valid {
		c.IdealTypesJSON = &idealTypes.String
	}
	if fitReason.Valid {
		c.FitReason = &fitReason.String
	}
	return c, nil
}

func (r Repo) GetCategory(ctx context.Context, id string) (domain.ActivityCategory, error) {
	return scanCategory(r.DB.QueryRowContext(ctx, `SELECT id,workspace_id,name,ideal_types_json,fit_reason,created_at FROM activity_categories WHERE id=?`, id).Scan)
}

func (r Repo) ListCategories(ctx context.Context, workspaceID string) ([]domain.ActivityCategory, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,workspace_id,name,ideal_types_json,fit_reason,created_at FROM activity_categories WHERE workspace_id=? ORDER BY created_at ASC, id ASC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ActivityCategory
	for rows.Next() {
		c, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (r Repo) DeleteCategory(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM activity_categories WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO activities(id,workspace_id,name,category_id,stage_id,created_at) VALUES (?,?,?,?,?,?)`,
		a.ID, a.WorkspaceID, a.Name, nullableStringPtr(a.CategoryID), nullableStringPtr(a.StageID), a.CreatedAt)
	return err
}

func (r Repo) UpdateActivity(ctx context.Context, tx *sql.Tx, id string, name, categoryID, stageID *string) error {
	var (
		fields []string
		args   []any
	)
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if categoryID != nil {
		fields = append(fields, "category_id=?")
		args = append(args, nullable(*categoryID))
	}
	if stageID != nil {
		fields = append(fields, "stage_id=?")
		args = append(args, nullable(*stageID))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE activities SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanActivity(scan func(dest ...any) error) (domain.Activity, error) {
	var a domain.Activity
	var categoryID, stageID sql.NullString
	err := scan(&a.ID, &a.WorkspaceID, &a.Name, &categoryID, &stageID, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if categoryID.Valid {
		a.CategoryID = &categoryID.String
	}
	if stageID.Valid {
		a.StageID = &stageID.String
	}
	return a, nil
}

func (r Repo) GetActivity(ctx context.Context, id string) (domain.Activity, error) {
	return scanActivity(r.DB.QueryRowContext(ctx, `SELECT id,workspace_id,name,category_id,stage_id,created_at FROM activities WHERE id=?`, id).Scan)
}

func (r Repo) ListActivities(ctx context.Context, workspaceID string) ([]domain.Activity, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,workspace_id,name,category_id,stage_id,created_at FROM activities WHERE workspace_id=? ORDER BY created_at ASC, id ASC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

func (r Repo) DeleteActivity(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) AddActivityRole(ctx context.Context, tx *sql.Tx, activityID, roleID string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO activity_assignments(activity_id, role_id) VALUES (?,?)`, activityID, roleID)
	return err
}

func (r Repo) RemoveActivityRole(ctx context.Context, tx *sql.Tx, activityID, roleID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM activity_assignments WHERE activity_id=? AND role_id=?`, activityID, roleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListActivityRoles(ctx context.Context, workspaceID string) ([]domain.ActivityAssignment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT aa.activity_id, aa.role_id FROM activity_assignments aa
JOIN activities a ON a.id=aa.activity_id WHERE a.workspace_id=? ORDER BY aa.activity_id, aa.role_id`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ActivityAssignment
	for rows.Next() {
		var a domain.ActivityAssignment
		if err := rows.Scan(&a.ActivityID, &a.RoleID); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

func (r Repo) UpsertProgression(ctx context.Context, tx *sql.Tx, p domain.RoleProgression) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO role_progressions(role_id,workspace_id,track,growth_activity_ids_json,created_at,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(role_id) DO UPDATE SET track=excluded.track, growth_activity_ids_json=excluded.growth_activity_ids_json, updated_at=excluded.updated_at`,
		p.RoleID, p.WorkspaceID, nullableStringPtr(p.Track), nullableStringPtr(p.GrowthActivityIDsJSON), p.CreatedAt, p.UpdatedAt)
	return err
}

func scanProgression(scan func(dest ...any) error) (domain.RoleProgression, error) {
	var p domain.RoleProgression
	var track, growth sql.NullString
	err := scan(&p.RoleID, &p.WorkspaceID, &track, &growth, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if track.Valid {
		p.Track = &track.String
	}
	if growth.Valid {
		p.GrowthActivityIDsJSON = &growth.String
	}
	return p, nil
}

func (r Repo) GetProgression(ctx context.Context, roleID string) (domain.RoleProgression, error) {
	return scanProgression(r.DB.QueryRowContext(ctx, `SELECT role_id,workspace_id,track,growth_activity_ids_json,created_at,updated_at FROM role_progressions WHERE role_id=?`, roleID).Scan)
}

func (r Repo) ListProgressions(ctx context.Context, workspaceID string) ([]domain.RoleProgression, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT role_id,workspace_id,track,growth_activity_ids_json,created_at,updated_at FROM role_progressions WHERE workspace_id=? ORDER BY created_at ASC, role_id ASC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RoleProgression
	for rows.Next() {
		p, err := scanProgression(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) DeleteProgression(ctx context.Context, tx *sql.Tx, roleID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM role_progressions WHERE role_id=?`, roleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) LatestEvents(ctx context.Context, limit int, workspaceID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, workspaceID, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, workspaceID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if workspaceID != "" {
		clauses = append(clauses, "workspace_id=?")
		args = append(args, workspaceID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,workspace_id,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, workspaceID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if workspaceID != "" {
		clauses = append(clauses, "workspace_id=?")
		args = append(args, workspaceID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,workspace_id,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]domain.Event, error) {
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var workspaceID, entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &workspaceID, &e.EntityKind, &entityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if workspaceID.Valid {
			e.WorkspaceID = workspaceID.String
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event ID for a workspace.
func (r Repo) LatestEventID(ctx context.Context, workspaceID string) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events WHERE workspace_id=?`, workspaceID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
