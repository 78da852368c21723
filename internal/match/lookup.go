package match

import (
	"errors"
	"fmt"

	"github.com/laccore/coreid/internal/section"
)

// ErrDuplicateKey is matched by DuplicateKeyError.
var ErrDuplicateKey = errors.New("duplicate composite key")

// Entry is one core list row: a raw section number and the core ID to assign.
type Entry struct {
	Section int    `json:"section" yaml:"section"`
	CoreID  string `json:"core_id" yaml:"core_id"`
	// Row is the 0-based row of the entry in the core list file.
	Row int `json:"row" yaml:"row"`
}

// DuplicateKeyError reports two core list entries that resolve to the same key.
type DuplicateKeyError struct {
	Key      string
	Previous string
	Current  string
	// Row is the 0-based core list index of the second entry.
	Row int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("core list row %d: key %s already maps to %q, refusing to replace it with %q",
		e.Row, e.Key, e.Previous, e.Current)
}

// Is implements errors.Is support.
func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

// Lookup maps composite keys to core IDs.
type Lookup struct {
	byKey   map[string]string
	entries []Entry
	keys    []section.Key
}

// NewLookup keys the entries in source order and indexes them.
//
// Under the lookup boundary rule section numbers strictly increase within a
// part, so keys are unique for any core list. A collision therefore means the
// keying rule changed and is reported rather than silently overwritten.
func NewLookup(entries []Entry) (*Lookup, error) {
	obs := make([]section.Observation, len(entries))
	for i, e := range entries {
		obs[i] = section.Observation{Section: e.Section}
	}
	return index(entries, section.NewLookupKeyer().Keys(obs, 0))
}

func index(entries []Entry, keys []section.Key) (*Lookup, error) {
	l := &Lookup{
		byKey:   make(map[string]string, len(entries)),
		entries: append([]Entry(nil), entries...),
		keys:    keys,
	}
	for i, e := range entries {
		k := keys[i].String()
		if prev, ok := l.byKey[k]; ok {
			return nil, &DuplicateKeyError{Key: k, Previous: prev, Current: e.CoreID, Row: i}
		}
		l.byKey[k] = e.CoreID
	}
	return l, nil
}

// Resolve returns the core ID for key.
func (l *Lookup) Resolve(key section.Key) (string, bool) {
	if l == nil || key.IsZero() {
		return "", false
	}
	id, ok := l.byKey[key.String()]
	return id, ok
}

// Len returns the number of distinct keys.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.byKey)
}

// Entries returns the core list in source order.
func (l *Lookup) Entries() []Entry {
	if l == nil {
		return nil
	}
	return l.entries
}

// Keys returns the key assigned to each entry, aligned with Entries.
func (l *Lookup) Keys() []section.Key {
	if l == nil {
		return nil
	}
	return l.keys
}
