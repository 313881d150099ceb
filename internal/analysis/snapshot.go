// Package analysis computes structural diagnostics over a workspace snapshot.
// Every function is pure: it reads the snapshot, allocates a result, and
// performs no I/O. Callers are responsible for assembling a consistent
// snapshot (usually via repo.LoadSnapshot) before invoking an analyser.
package analysis

// OwnedCategory is one named group of ownership claims on a role.
type OwnedCategory struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

type Role struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Owns             []OwnedCategory `json:"owns,omitempty"`
	DoesNotOwn       []string        `json:"does_not_own,omitempty"`
	PrimaryType      string          `json:"primary_type,omitempty"`
	SecondaryType    string          `json:"secondary_type,omitempty"`
	OverseesStageIDs []string        `json:"oversees_stage_ids,omitempty"`
}

// Oversight reports whether the role is a leadership role. Oversight roles
// are excluded from ownership and boundary accounting.
func (r Role) Oversight() bool {
	return len(r.OverseesStageIDs) > 0
}

type Stage struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// StageAssignment staffs a stage with an operational role.
type StageAssignment struct {
	StageID string `json:"stage_id"`
	RoleID  string `json:"role_id"`
}

type Handoff struct {
	ID          string   `json:"id"`
	FromStageID string   `json:"from_stage_id"`
	ToStageID   string   `json:"to_stage_id"`
	SLA         string   `json:"sla,omitempty"`
	Tensions    []string `json:"tensions,omitempty"`
}

type Category struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	IdealTypes []string `json:"ideal_types,omitempty"`
	FitReason  string   `json:"fit_reason,omitempty"`
}

type Activity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"category_id,omitempty"`
	StageID    string `json:"stage_id,omitempty"`
}

type ActivityAssignment struct {
	ActivityID string `json:"activity_id"`
	RoleID     string `json:"role_id"`
}

type Progression struct {
	RoleID            string   `json:"role_id"`
	Track             string   `json:"track,omitempty"`
	GrowthActivityIDs []string `json:"growth_activity_ids,omitempty"`
}

// Snapshot is the complete read-only view of one workspace. Slice order is
// significant: analysers that short-circuit on first match iterate in
// snapshot order.
type Snapshot struct {
	Roles               []Role               `json:"roles"`
	Stages              []Stage              `json:"stages"`
	StageAssignments    []StageAssignment    `json:"stage_assignments"`
	Handoffs            []Handoff            `json:"handoffs"`
	Categories          []Category           `json:"categories"`
	Activities          []Activity           `json:"activities"`
	ActivityAssignments []ActivityAssignment `json:"activity_assignments"`
	Progressions        []Progression        `json:"progressions"`
}

func (s Snapshot) operationalRoles() []Role {
	var out []Role
	for _, r := range s.Roles {
		if !r.Oversight() {
			out = append(out, r)
		}
	}
	return out
}
