package planner

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Reorder sorts the roster with cmp (stable, so ties keep their original
// order) and remaps every member-indexed mapping in one pass. It returns
// the permutation old index -> new index.
func (s *Store) Reorder(cmp func(a, b Member) int) []int {
	members := s.data.Members
	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp(members[a], members[b])
	})

	perm := make([]int, len(members))
	sorted := make([]Member, len(members))
	for newIdx, oldIdx := range order {
		perm[oldIdx] = newIdx
		sorted[newIdx] = members[oldIdx]
	}
	s.data.Members = sorted
	s.remapMembers(func(old int) (int, bool) {
		if old < 0 || old >= len(perm) {
			return 0, false
		}
		return perm[old], true
	})
	return perm
}

// SortMembers orders the roster alphabetically (German collation,
// case- and accent-insensitive) with blank names last.
func (s *Store) SortMembers() []int {
	return s.Reorder(ByName())
}

// ByName returns the roster comparator used after every roster change.
func ByName() func(a, b Member) int {
	col := collate.New(language.German, collate.Loose)
	return func(a, b Member) int {
		na, nb := strings.TrimSpace(a.Name), strings.TrimSpace(b.Name)
		switch {
		case na == "" && nb == "":
			return 0
		case na == "":
			return 1
		case nb == "":
			return -1
		}
		return col.CompareString(na, nb)
	}
}

// remapMembers rewrites every member-indexed key in every year through
// mapping. Keys for which mapping reports false are dropped.
func (s *Store) remapMembers(mapping func(old int) (int, bool)) {
	for _, yr := range s.data.Years {
		yr.VacationDays = remapKeys(yr.VacationDays, mapping)
		for _, mr := range yr.Months {
			mr.Days = remapKeys(mr.Days, mapping)
			mr.Approved = remapKeys(mr.Approved, mapping)
		}
	}
}

func remapKeys[V any](m map[int]V, mapping func(int) (int, bool)) map[int]V {
	out := make(map[int]V, len(m))
	for old, v := range m {
		if idx, ok := mapping(old); ok {
			out[idx] = v
		}
	}
	return out
}
