// Package section recovers physical section identity from raw, locally reset
// section numbers.
//
// Instruments such as the Geotek MSCL restart their section counter whenever a
// new core is loaded, so the raw number alone is ambiguous. Scanning the rows in
// source order, a drop in the section number (or, for data rows, a repeat of the
// same number with a smaller depth) marks the start of a new part. Each row is
// then identified by a composite Key of part index and raw section number.
package section

import (
	"strconv"
)

// Observation is one row as seen by the keyer.
type Observation struct {
	Section int
	Depth   float64
}

// Key identifies a physical section within one scan. The zero Key means the
// row was not keyed.
type Key struct {
	Part    int
	Section int
}

// String renders the key as "<part>_<section>".
func (k Key) String() string {
	if k.Part == 0 {
		return ""
	}
	return strconv.Itoa(k.Part) + "_" + strconv.Itoa(k.Section)
}

// IsZero reports whether the key was never assigned.
func (k Key) IsZero() bool { return k.Part == 0 }

// BoundaryFunc reports whether cur starts a new part given the row before it.
type BoundaryFunc func(prev, cur Observation) bool

// LookupBoundary is used for core lists, which carry no depth: any repeat or
// drop of the section number starts a new part.
func LookupBoundary(prev, cur Observation) bool {
	return cur.Section <= prev.Section
}

// DepthBoundary is used for data rows. Consecutive rows of the same section
// share a number, so a repeat only counts as a boundary when depth goes back.
func DepthBoundary(prev, cur Observation) bool {
	if cur.Section < prev.Section {
		return true
	}
	return cur.Section == prev.Section && cur.Depth < prev.Depth
}

// Keyer assigns composite keys using a boundary rule.
type Keyer struct {
	Boundary BoundaryFunc
}

// NewLookupKeyer returns a keyer for core list entries.
func NewLookupKeyer() Keyer { return Keyer{Boundary: LookupBoundary} }

// NewDepthKeyer returns a keyer for data rows with a depth column.
func NewDepthKeyer() Keyer { return Keyer{Boundary: DepthBoundary} }

// Keys returns one key per observation, aligned by index. Observations before
// start are left unkeyed.
func (k Keyer) Keys(obs []Observation, start int) []Key {
	keys := make([]Key, len(obs))
	if start < 0 {
		start = 0
	}
	if start >= len(obs) {
		return keys
	}
	boundary := k.Boundary
	if boundary == nil {
		boundary = LookupBoundary
	}
	part := 1
	keys[start] = Key{Part: part, Section: obs[start].Section}
	for i := start + 1; i < len(obs); i++ {
		if boundary(obs[i-1], obs[i]) {
			part++
		}
		keys[i] = Key{Part: part, Section: obs[i].Section}
	}
	return keys
}

// Boundaries counts the part transitions in a keyed scan.
func Boundaries(keys []Key) int {
	n := 0
	prev := 0
	for _, k := range keys {
		if k.IsZero() {
			continue
		}
		if prev != 0 && k.Part != prev {
			n++
		}
		prev = k.Part
	}
	return n
}

// Parts returns the number of distinct parts in a keyed scan.
func Parts(keys []Key) int {
	parts := 0
	for _, k := range keys {
		if k.Part > parts {
			parts = k.Part
		}
	}
	return parts
}
