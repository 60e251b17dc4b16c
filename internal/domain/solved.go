package domain

import "sort"

// SolvedSet is the set of problem ids a user has answered correctly at least once.
type SolvedSet map[int64]struct{}

func NewSolvedSet(ids ...int64) SolvedSet {
	s := make(SolvedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s SolvedSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Clone returns a copy; a nil set clones to an empty one.
func (s SolvedSet) Clone() SolvedSet {
	out := make(SolvedSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the members in ascending order.
func (s SolvedSet) IDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
