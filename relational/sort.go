package relational

import (
	"slices"
	"sort"
)

// SortTables orders tables so that every table comes after the tables it
// references through its foreign keys. Dependencies are read from the
// dependent columns of each table; self-references are ignored.
//
// Among the tables that are ready to be emitted, the one that came first in
// the input is picked, so the result is deterministic and keeps the input
// order wherever the dependencies allow it. A cycle between distinct tables
// is reported as a CycleError.
func SortTables(tables []*Table) ([]*Table, error) {
	index := make(map[*Table]int, len(tables))
	for i, t := range tables {
		index[t] = i
	}
	// succ[i] lists the tables that must be emitted after tables[i].
	succ := make([][]int, len(tables))
	indeg := make([]int, len(tables))
	for i, t := range tables {
		seen := make(map[int]struct{})
		for _, c := range t.DependentColumns {
			j, ok := index[c.Table]
			if !ok || j == i {
				continue
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			succ[i] = append(succ[i], j)
			indeg[j]++
		}
	}
	var ready []int
	for i := range tables {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	sorted := make([]*Table, 0, len(tables))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		sorted = append(sorted, tables[i])
		for _, j := range succ[i] {
			if indeg[j]--; indeg[j] == 0 {
				pos := sort.SearchInts(ready, j)
				ready = slices.Insert(ready, pos, j)
			}
		}
	}
	if len(sorted) == len(tables) {
		return sorted, nil
	}
	return nil, &CycleError{Tables: cycleMembers(tables, succ, indeg)}
}

// cycleMembers returns the names of the unsorted tables that still have an
// unsorted successor, dropping the tables that only hang off a cycle.
func cycleMembers(tables []*Table, succ [][]int, indeg []int) []string {
	left := make(map[int]bool)
	for i := range tables {
		if indeg[i] > 0 {
			left[i] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for i := range left {
			if !slices.ContainsFunc(succ[i], func(j int) bool { return left[j] }) {
				delete(left, i)
				changed = true
			}
		}
	}
	names := make([]string, 0, len(left))
	for i := range tables {
		if left[i] {
			names = append(names, tables[i].Name)
		}
	}
	return names
}
