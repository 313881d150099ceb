package analysis

// The Belbin Team Roles framework defines nine behavioural types in three
// groups of three. The table below is fixed reference data; role records
// carry type keys as primary/secondary.

type BelbinType struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type BelbinGroup struct {
	Category string       `json:"category"`
	Types    []BelbinType `json:"types"`
}

var BelbinReference = []BelbinGroup{
	{
		Category: "Action",
		Types: []BelbinType{
			{Key: "shaper", Label: "Shaper"},
			{Key: "implementer", Label: "Implementer"},
			{Key: "completer_finisher", Label: "Completer Finisher"},
		},
	},
	{
		Category: "People",
		Types: []BelbinType{
			{Key: "coordinator", Label: "Coordinator"},
			{Key: "teamworker", Label: "Teamworker"},
			{Key: "resource_investigator", Label: "Resource Investigator"},
		},
	},
	{
		Category: "Thinking",
		Types: []BelbinType{
			{Key: "plant", Label: "Plant"},
			{Key: "monitor_evaluator", Label: "Monitor Evaluator"},
			{Key: "specialist", Label: "Specialist"},
		},
	},
}

// ValidBelbinKey reports whether key is one of the nine reference types.
func ValidBelbinKey(key string) bool {
	for _, g := range BelbinReference {
		for _, t := range g.Types {
			if t.Key == key {
				return true
			}
		}
	}
	return false
}

// CategoryFit lists the roles whose Belbin typing matches an activity
// category's declared ideal types.
type CategoryFit struct {
	Category     string   `json:"category"`
	IdealTypes   []string `json:"ideal_types"`
	BestFitRoles []string `json:"best_fit_roles"`
	Reason       string   `json:"reason,omitempty"`
}

// ActivityFit reports, for each category with ideal types, every role whose
// primary or secondary type appears in the ideal list.
func ActivityFit(categories []Category, roles []Role) []CategoryFit {
	var out []CategoryFit
	for _, cat := range categories {
		if len(cat.IdealTypes) == 0 {
			continue
		}
		fit := CategoryFit{
			Category:   cat.Name,
			IdealTypes: cat.IdealTypes,
			Reason:     cat.FitReason,
		}
		for _, r := range roles {
			if containsString(cat.IdealTypes, r.PrimaryType) || containsString(cat.IdealTypes, r.SecondaryType) {
				fit.BestFitRoles = append(fit.BestFitRoles, r.Title)
			}
		}
		out = append(out, fit)
	}
	return out
}

// Mismatch is a role assigned to work in a category whose ideal types it does
// not carry.
type Mismatch struct {
	Role       string   `json:"role"`
	Category   string   `json:"category"`
	IdealTypes []string `json:"ideal_types"`
}

// DetectMismatches reports each (role, category) pair at most once: the roles
// assigned to a category's activities are collected into a set first, so a
// role working two activities in the same category still yields one entry.
func DetectMismatches(categories []Category, activities []Activity, assignments []ActivityAssignment, roles []Role) []Mismatch {
	rolesByID := map[string]Role{}
	for _, r := range roles {
		rolesByID[r.ID] = r
	}
	assignedRoles := map[string][]string{} // activity id -> role ids
	for _, a := range assignments {
		assignedRoles[a.ActivityID] = append(assignedRoles[a.ActivityID], a.RoleID)
	}
	var out []Mismatch
	for _, cat := range categories {
		if len(cat.IdealTypes) == 0 {
			continue
		}
		seen := map[string]bool{}
		var roleIDs []string
		for _, act := range activities {
			if act.CategoryID != cat.ID {
				continue
			}
			for _, roleID := range assignedRoles[act.ID] {
				if !seen[roleID] {
					seen[roleID] = true
					roleIDs = append(roleIDs, roleID)
				}
			}
		}
		for _, roleID := range roleIDs {
			r, ok := rolesByID[roleID]
			if !ok {
				continue
			}
			if containsString(cat.IdealTypes, r.PrimaryType) || containsString(cat.IdealTypes, r.SecondaryType) {
				continue
			}
			out = append(out, Mismatch{Role: r.Title, Category: cat.Name, IdealTypes: cat.IdealTypes})
		}
	}
	return out
}

// TypeUsage counts how often one Belbin type is held across the role set.
// Primary and secondary counts are independent; a role contributes to both.
type TypeUsage struct {
	Key            string `json:"key"`
	Label          string `json:"label"`
	PrimaryCount   int    `json:"primary_count"`
	SecondaryCount int    `json:"secondary_count"`
	HasCoverage    bool   `json:"has_coverage"`
}

type CompositionGroup struct {
	Category         string      `json:"category"`
	Roles            []TypeUsage `json:"roles"`
	UncoveredRoles   []string    `json:"uncovered_roles"`
	TotalAssignments int         `json:"total_assignments"`
}

// TeamComposition tallies primary/secondary Belbin keys against the fixed
// reference table and lists the types nobody covers per category.
func TeamComposition(roles []Role) []CompositionGroup {
	var out []CompositionGroup
	for _, group := range BelbinReference {
		comp := CompositionGroup{Category: group.Category, UncoveredRoles: []string{}}
		for _, t := range group.Types {
			usage := TypeUsage{Key: t.Key, Label: t.Label}
			for _, r := range roles {
				if r.PrimaryType == t.Key {
					usage.PrimaryCount++
				}
				if r.SecondaryType == t.Key {
					usage.SecondaryCount++
				}
			}
			usage.HasCoverage = usage.PrimaryCount+usage.SecondaryCount > 0
			if !usage.HasCoverage {
				comp.UncoveredRoles = append(comp.UncoveredRoles, t.Label)
			}
			comp.TotalAssignments += usage.PrimaryCount + usage.SecondaryCount
			comp.Roles = append(comp.Roles, usage)
		}
		out = append(out, comp)
	}
	return out
}
