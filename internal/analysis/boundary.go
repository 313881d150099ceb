package analysis

import "strings"

// BoundaryRef resolves one explicit exclusion against other roles' ownership
// claims. OwnedBy is nil when no other operational role's ownership text
// matches, which presentation layers flag as a potential ownership gap.
type BoundaryRef struct {
	Item       string  `json:"item"`
	ExcludedBy string  `json:"excluded_by"`
	OwnedBy    *string `json:"owned_by"`
}

// CrossReferenceBoundaries matches each operational role's exclusions against
// every other operational role's owned items. Matching is a deliberate
// heuristic: the exclusion text is tokenised into lower-cased words longer
// than three characters, and an owned item matches if it contains any such
// word as a substring. The first match in snapshot order wins and
// short-circuits the remaining candidates. False positives are acceptable;
// results are discussion starters, not ground truth.
func CrossReferenceBoundaries(roles []Role) []BoundaryRef {
	var operational []Role
	for _, r := range roles {
		if !r.Oversight() {
			operational = append(operational, r)
		}
	}
	var out []BoundaryRef
	for _, r := range operational {
		for _, excluded := range r.DoesNotOwn {
			ref := BoundaryRef{Item: excluded, ExcludedBy: r.Title}
			words := boundaryWords(excluded)
			if owner, ok := firstOwnerMatch(operational, r.ID, words); ok {
				ref.OwnedBy = &owner
			}
			out = append(out, ref)
		}
	}
	return out
}

// boundaryWords keeps lower-cased tokens longer than 3 characters, a coarse
// stopword heuristic.
func boundaryWords(text string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}

func firstOwnerMatch(operational []Role, excludingRoleID string, words []string) (string, bool) {
	if len(words) == 0 {
		return "", false
	}
	for _, other := range operational {
		if other.ID == excludingRoleID {
			continue
		}
		for _, cat := range other.Owns {
			for _, item := range cat.Items {
				owned := strings.ToLower(item)
				for _, w := range words {
					if strings.Contains(owned, w) {
						return other.Title, true
					}
				}
			}
		}
	}
	return "", false
}
