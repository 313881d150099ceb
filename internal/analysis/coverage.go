package analysis

// StretchGap is a declared growth activity the role is not actually assigned
// to yet.
type StretchGap struct {
	Role         string `json:"role"`
	Track        string `json:"track,omitempty"`
	ActivityID   string `json:"activity_id"`
	ActivityName string `json:"activity_name,omitempty"`
}

// StretchGaps compares each progression's growth activities against the
// role's current assignments. Activity names are resolved best-effort;
// a growth id that no longer references an activity is still reported with
// its id alone.
func StretchGaps(s Snapshot) []StretchGap {
	rolesByID := map[string]Role{}
	for _, r := range s.Roles {
		rolesByID[r.ID] = r
	}
	activityNames := map[string]string{}
	for _, a := range s.Activities {
		activityNames[a.ID] = a.Name
	}
	assigned := map[string]map[string]bool{} // role id -> activity id set
	for _, a := range s.ActivityAssignments {
		if assigned[a.RoleID] == nil {
			assigned[a.RoleID] = map[string]bool{}
		}
		assigned[a.RoleID][a.ActivityID] = true
	}
	var out []StretchGap
	for _, p := range s.Progressions {
		role, ok := rolesByID[p.RoleID]
		if !ok {
			continue
		}
		for _, activityID := range p.GrowthActivityIDs {
			if assigned[p.RoleID][activityID] {
				continue
			}
			out = append(out, StretchGap{
				Role:         role.Title,
				Track:        p.Track,
				ActivityID:   activityID,
				ActivityName: activityNames[activityID],
			})
		}
	}
	return out
}

// ActivitySummary classifies activities by assignment count.
type ActivitySummary struct {
	Total      int `json:"total"`
	Unassigned int `json:"unassigned"`
	Owned      int `json:"owned"`
	Shared     int `json:"shared"`
}

func SummarizeActivities(activities []Activity, assignments []ActivityAssignment) ActivitySummary {
	counts := map[string]int{}
	for _, a := range assignments {
		counts[a.ActivityID]++
	}
	summary := ActivitySummary{Total: len(activities)}
	for _, act := range activities {
		switch n := counts[act.ID]; {
		case n == 0:
			summary.Unassigned++
		case n == 1:
			summary.Owned++
		default:
			summary.Shared++
		}
	}
	return summary
}

// RoleCoverageEntry summarises one role's activity load: how much it holds
// alone versus shared, and which category names it touches.
type RoleCoverageEntry struct {
	Role       string   `json:"role"`
	Assigned   int      `json:"assigned"`
	Solo       int      `json:"solo"`
	Shared     int      `json:"shared"`
	Categories []string `json:"categories"`
}

func RoleCoverage(s Snapshot) []RoleCoverageEntry {
	assignmentCounts := map[string]int{}
	for _, a := range s.ActivityAssignments {
		assignmentCounts[a.ActivityID]++
	}
	activitiesByID := map[string]Activity{}
	for _, a := range s.Activities {
		activitiesByID[a.ID] = a
	}
	categoryNames := map[string]string{}
	for _, c := range s.Categories {
		categoryNames[c.ID] = c.Name
	}
	var out []RoleCoverageEntry
	for _, r := range s.Roles {
		entry := RoleCoverageEntry{Role: r.Title, Categories: []string{}}
		seenCategories := map[string]bool{}
		for _, a := range s.ActivityAssignments {
			if a.RoleID != r.ID {
				continue
			}
			entry.Assigned++
			if assignmentCounts[a.ActivityID] == 1 {
				entry.Solo++
			} else {
				entry.Shared++
			}
			act, ok := activitiesByID[a.ActivityID]
			if !ok || act.CategoryID == "" {
				continue
			}
			name, ok := categoryNames[act.CategoryID]
			if !ok || seenCategories[name] {
				continue
			}
			seenCategories[name] = true
			entry.Categories = append(entry.Categories, name)
		}
		out = append(out, entry)
	}
	return out
}
