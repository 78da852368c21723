// Package match substitutes core IDs into keyed data rows and reports on the
// quality of the core list.
package match

import (
	"sort"

	"github.com/laccore/coreid/internal/section"
)

// KeyedRow is a data row with its composite key.
type KeyedRow struct {
	Row []string
	Key section.Key
}

// Result is the partition of data rows produced by Match.
type Result struct {
	// Matched rows have the section field replaced by the core ID.
	Matched [][]string
	// Unmatched rows are unchanged except for the composite key, which is
	// appended as a final column.
	Unmatched [][]string
	Stats     Stats
}

// Stats are diagnostics about a match run. They never change output rows.
type Stats struct {
	Matched            int            `json:"matched" yaml:"matched"`
	Unmatched          int            `json:"unmatched" yaml:"unmatched"`
	DuplicateCoreNames map[string]int `json:"duplicate_core_names,omitempty" yaml:"duplicate_core_names,omitempty"`
	UnusedCoreNames    []string       `json:"unused_core_names,omitempty" yaml:"unused_core_names,omitempty"`
}

// Match resolves every row against lookup. Rows are partitioned in input order
// and are never modified in place.
func Match(rows []KeyedRow, lookup *Lookup, sectionField int) Result {
	var res Result
	used := make(map[string]struct{})
	for _, kr := range rows {
		if id, ok := lookup.Resolve(kr.Key); ok && sectionField >= 0 && sectionField < len(kr.Row) {
			out := make([]string, len(kr.Row))
			copy(out, kr.Row)
			out[sectionField] = id
			res.Matched = append(res.Matched, out)
			used[id] = struct{}{}
			continue
		}
		out := make([]string, len(kr.Row), len(kr.Row)+1)
		copy(out, kr.Row)
		res.Unmatched = append(res.Unmatched, append(out, kr.Key.String()))
	}
	res.Stats = Stats{
		Matched:            len(res.Matched),
		Unmatched:          len(res.Unmatched),
		DuplicateCoreNames: DuplicateCoreNames(CoreIDs(lookup.Entries())),
		UnusedCoreNames:    UnusedCoreNames(CoreIDs(lookup.Entries()), used),
	}
	return res
}

// CoreIDs returns the core ID of every entry in order.
func CoreIDs(entries []Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.CoreID
	}
	return ids
}

// DuplicateCoreNames returns every core ID that occurs more than once, with its
// count. It returns nil when all IDs are distinct.
func DuplicateCoreNames(ids []string) map[string]int {
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}
	var dups map[string]int
	for id, n := range counts {
		if n < 2 {
			continue
		}
		if dups == nil {
			dups = make(map[string]int)
		}
		dups[id] = n
	}
	return dups
}

// UnusedCoreNames returns the sorted core IDs that never appear in used.
func UnusedCoreNames(ids []string, used map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := used[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
