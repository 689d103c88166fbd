package ranking

import "sort"

// sortGroups orders brands best first: visibility percent desc, position asc,
// sentiment desc, raw visibility desc, then input order. A missing position
// or sentiment sorts after any present one.
func sortGroups(groups []*group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return less(groups[i], groups[j])
	})
}

func less(a, b *group) bool {
	pa, pb := Percent(a.visibility), Percent(b.visibility)
	if pa != pb {
		return pa > pb
	}

	if c := compareOptional(a.position, b.position, false); c != 0 {
		return c < 0
	}
	if c := compareOptional(a.sentiment, b.sentiment, true); c != 0 {
		return c < 0
	}

	return a.visibility > b.visibility
}

// compareOptional returns -1 when a sorts first. Present values order
// ascending (descending when desc is set); nil always sorts last.
func compareOptional(a, b *float64, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a == *b:
		return 0
	case (*a < *b) != desc:
		return -1
	default:
		return 1
	}
}
