// Package glossary defines the multi-key terminology dictionary the merge
// engine operates on, along with the mutation primitives applied to it.
// A dictionary is an ordered list of entries; each entry carries a stable
// numeric id, a set of lookup keys, and a single translation value.
package glossary

// Entry is one terminology record. The id is immutable once assigned; keys
// and value change only through validated mutation actions.
type Entry struct {
	ID    int      `json:"id"`
	Keys  []string `json:"keys"`
	Value string   `json:"value"`
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	keys := make([]string, len(e.Keys))
	copy(keys, e.Keys)
	return &Entry{ID: e.ID, Keys: keys, Value: e.Value}
}

// HasKey reports whether the entry carries the exact key.
func (e *Entry) HasKey(key string) bool {
	for _, k := range e.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// AddKeys appends keys to the entry and de-duplicates, preserving
// first-seen order. Key order within an entry carries no meaning.
func (e *Entry) AddKeys(keys []string) {
	merged := append(e.Keys, keys...)
	seen := make(map[string]struct{}, len(merged))
	deduped := merged[:0]
	for _, k := range merged {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		deduped = append(deduped, k)
	}
	e.Keys = deduped
}

// RemoveKeys removes the listed keys from the entry. Keys not present are
// ignored.
func (e *Entry) RemoveKeys(keys []string) {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	kept := e.Keys[:0]
	for _, k := range e.Keys {
		if _, ok := drop[k]; ok {
			continue
		}
		kept = append(kept, k)
	}
	e.Keys = kept
}

// Dictionary is an ordered collection of entries. Entries are kept in
// insertion order and never re-sorted. Ids are unique; keys are disjoint
// across entries once a merge session completes, though conflicting
// intermediate states exist so they can be arbitrated.
type Dictionary struct {
	Entries []*Entry `json:"entries"`
}

// Clone returns a deep copy of the dictionary. Merge sessions operate on a
// clone so the caller's dictionary stays unobserved until the session
// returns its result.
func (d *Dictionary) Clone() *Dictionary {
	entries := make([]*Entry, len(d.Entries))
	for i, e := range d.Entries {
		entries[i] = e.Clone()
	}
	return &Dictionary{Entries: entries}
}

// MaxID returns the highest id currently in use, or zero for an empty
// dictionary.
func (d *Dictionary) MaxID() int {
	max := 0
	for _, e := range d.Entries {
		if e.ID > max {
			max = e.ID
		}
	}
	return max
}

// FindByID returns the entry with the given id, or nil.
func (d *Dictionary) FindByID(id int) *Entry {
	for _, e := range d.Entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Remove deletes the entry with the given id, reporting whether it existed.
func (d *Dictionary) Remove(id int) bool {
	for i, e := range d.Entries {
		if e.ID == id {
			d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.Entries)
}

// Proposal is a candidate new entry awaiting merge. It has no id until the
// merge assigns one.
type Proposal struct {
	Keys  []string `json:"keys"`
	Value string   `json:"value"`
}

// Clone returns a deep copy of the proposal.
func (p Proposal) Clone() Proposal {
	keys := make([]string, len(p.Keys))
	copy(keys, p.Keys)
	return Proposal{Keys: keys, Value: p.Value}
}
