package glossary

import "log/slog"

// IDAllocator hands out fresh entry ids for one merge session. Ids start at
// max existing id + 1 and increase by one per creation, regardless of
// deletions, so ids are never reused within a session. The allocator is
// owned by the session, not shared module state, so independent sessions
// cannot interfere.
type IDAllocator struct {
	next int
}

// NewIDAllocator creates an allocator seeded from the dictionary's current
// maximum id.
func NewIDAllocator(d *Dictionary) *IDAllocator {
	return &IDAllocator{next: d.MaxID() + 1}
}

// Next returns a fresh, previously-unused id.
func (a *IDAllocator) Next() int {
	id := a.next
	a.next++
	return id
}

// AddEntry materializes a proposal as a new entry with a fresh id and
// appends it to the dictionary. The proposal's keys are copied, not
// aliased.
func AddEntry(d *Dictionary, p Proposal, ids *IDAllocator) *Entry {
	keys := make([]string, len(p.Keys))
	copy(keys, p.Keys)
	entry := &Entry{ID: ids.Next(), Keys: keys, Value: p.Value}
	d.Entries = append(d.Entries, entry)
	return entry
}

// Apply executes one validated action against the dictionary. The proposal
// is the one whose arbitration produced the action; add_entry uses it as
// payload. A target id that no longer exists (removed by an earlier action
// in the same batch) is logged and skipped rather than failing the batch.
func Apply(d *Dictionary, act Action, p Proposal, ids *IDAllocator, logger *slog.Logger) {
	switch act.Kind {
	case ActionNone:

	case ActionAddEntry:
		AddEntry(d, p, ids)

	case ActionDelete:
		if !d.Remove(act.ID) {
			logger.Warn("delete target no longer exists, skipping", "id", act.ID)
		}

	case ActionUpdate:
		entry := d.FindByID(act.ID)
		if entry == nil {
			logger.Warn("update target no longer exists, skipping", "id", act.ID)
			return
		}
		entry.Value = act.Data

	case ActionAddKey:
		entry := d.FindByID(act.ID)
		if entry == nil {
			logger.Warn("add_key target no longer exists, skipping", "id", act.ID)
			return
		}
		entry.AddKeys(act.Keys)

	case ActionDelKey:
		entry := d.FindByID(act.ID)
		if entry == nil {
			logger.Warn("del_key target no longer exists, skipping", "id", act.ID)
			return
		}
		entry.RemoveKeys(act.Keys)
	}
}
