package glossary

// FindConflicts returns the entries whose keys intersect the proposal's
// keys. Matching is exact string equality; no normalization or fuzzy
// matching. The result must be recomputed whenever the dictionary changes,
// since delete and del_key actions can shrink a later proposal's conflicts.
func FindConflicts(d *Dictionary, p Proposal) []*Entry {
	var conflicts []*Entry
	for _, e := range d.Entries {
		if intersects(e.Keys, p.Keys) {
			conflicts = append(conflicts, e)
		}
	}
	return conflicts
}

// LockSet returns the union of the proposal's keys and the keys of every
// conflicting entry. These are the keys a merge session must hold
// exclusively before arbitrating the proposal. The result is de-duplicated
// and used for scheduling only, never persisted.
func LockSet(p Proposal, conflicts []*Entry) []string {
	seen := make(map[string]struct{}, len(p.Keys))
	var keys []string
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, k := range p.Keys {
		add(k)
	}
	for _, e := range conflicts {
		for _, k := range e.Keys {
			add(k)
		}
	}
	return keys
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	for _, k := range b {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}
