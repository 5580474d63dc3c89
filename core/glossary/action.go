package glossary

// ActionKind identifies one variant of the arbitration decision grammar.
type ActionKind string

const (
	// ActionNone leaves the dictionary unchanged.
	ActionNone ActionKind = "none"

	// ActionUpdate overwrites the target entry's value.
	ActionUpdate ActionKind = "update"

	// ActionDelete removes the target entry entirely.
	ActionDelete ActionKind = "delete"

	// ActionAddKey appends keys to the target entry.
	ActionAddKey ActionKind = "add_key"

	// ActionDelKey removes keys from the target entry.
	ActionDelKey ActionKind = "del_key"

	// ActionAddEntry inserts the proposal that triggered the arbitration
	// as a fresh entry.
	ActionAddEntry ActionKind = "add_entry"
)

// Action is one validated arbitration decision. Which payload fields are
// meaningful depends on Kind: ID for update/delete/add_key/del_key, Data
// for update, Keys for add_key/del_key. none and add_entry carry no
// payload.
type Action struct {
	Kind ActionKind
	ID   int
	Data string
	Keys []string
}
