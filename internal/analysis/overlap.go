package analysis

import "strings"

// Overlap is one ownership item claimed by two or more operational roles.
// Item carries the normalised (lower-cased, trimmed) text.
type Overlap struct {
	Item   string   `json:"item"`
	Owners []string `json:"owners"`
}

// DetectOverlaps groups ownership claims by normalised item text and reports
// every item claimed by more than one distinct operational role. Items that
// differ only in case or surrounding whitespace collapse into one entry; this
// is a fuzzy duplicate-claim detector, not exact matching. Oversight roles
// never contribute claims.
func DetectOverlaps(roles []Role) []Overlap {
	owners := map[string][]string{}
	var order []string
	for _, r := range roles {
		if r.Oversight() {
			continue
		}
		for _, cat := range r.Owns {
			for _, item := range cat.Items {
				key := strings.ToLower(strings.TrimSpace(item))
				if key == "" {
					continue
				}
				if _, seen := owners[key]; !seen {
					order = append(order, key)
				}
				if !containsString(owners[key], r.Title) {
					owners[key] = append(owners[key], r.Title)
				}
			}
		}
	}
	var out []Overlap
	for _, key := range order {
		if len(owners[key]) >= 2 {
			out = append(out, Overlap{Item: key, Owners: owners[key]})
		}
	}
	return out
}

func containsString(in []string, v string) bool {
	for _, s := range in {
		if s == v {
			return true
		}
	}
	return false
}
