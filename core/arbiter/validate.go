package arbiter

import (
	"encoding/json"
	"fmt"

	"github.com/adalundhe/termbase/core/glossary"
)

// Validator checks a decoded action batch against the conflict set it was
// generated for. The conflict set's ids are the only ids the batch may
// reference; anything else is a reference error even if the id exists
// elsewhere in the dictionary.
type Validator struct {
	allowed map[int]struct{}
}

// NewValidator builds a validator scoped to the given conflict set.
func NewValidator(conflicts []*glossary.Entry) *Validator {
	allowed := make(map[int]struct{}, len(conflicts))
	for _, e := range conflicts {
		allowed[e.ID] = struct{}{}
	}
	return &Validator{allowed: allowed}
}

// Validate converts raw action objects into typed actions. One invalid
// action invalidates the whole batch: either every action is returned or
// none is.
func (v *Validator) Validate(raws []json.RawMessage) ([]glossary.Action, error) {
	actions := make([]glossary.Action, 0, len(raws))
	for i, raw := range raws {
		act, err := v.validateOne(raw)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, act)
	}
	return actions, nil
}

// validateOne checks a single raw action object against the grammar.
func (v *Validator) validateOne(raw json.RawMessage) (glossary.Action, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return glossary.Action{}, fmt.Errorf("%w: %v", ErrStructural, err)
	}

	kind, err := actionKind(fields)
	if err != nil {
		return glossary.Action{}, err
	}

	switch kind {
	case glossary.ActionNone, glossary.ActionAddEntry:
		return v.validateBare(kind, fields)
	case glossary.ActionDelete:
		return v.validateDelete(fields)
	case glossary.ActionUpdate:
		return v.validateUpdate(fields)
	case glossary.ActionAddKey, glossary.ActionDelKey:
		return v.validateKeyEdit(kind, fields)
	}
	return glossary.Action{}, fmt.Errorf("%w: unknown action %q", ErrStructural, kind)
}

// actionKind extracts and checks the action tag.
func actionKind(fields map[string]json.RawMessage) (glossary.ActionKind, error) {
	raw, ok := fields["action"]
	if !ok {
		return "", fmt.Errorf("%w: missing action tag", ErrStructural)
	}
	var tag string
	if err := json.Unmarshal(raw, &tag); err != nil {
		return "", fmt.Errorf("%w: action tag is not a string", ErrType)
	}
	kind := glossary.ActionKind(tag)
	switch kind {
	case glossary.ActionNone, glossary.ActionUpdate, glossary.ActionDelete,
		glossary.ActionAddKey, glossary.ActionDelKey, glossary.ActionAddEntry:
		return kind, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrStructural, tag)
}

// validateBare handles none and add_entry, which must carry no payload.
func (v *Validator) validateBare(kind glossary.ActionKind, fields map[string]json.RawMessage) (glossary.Action, error) {
	if _, ok := fields["id"]; ok {
		return glossary.Action{}, fmt.Errorf("%w: %s must not carry an id", ErrStructural, kind)
	}
	if _, ok := fields["data"]; ok {
		return glossary.Action{}, fmt.Errorf("%w: %s must not carry data", ErrStructural, kind)
	}
	return glossary.Action{Kind: kind}, nil
}

// validateDelete handles delete{id}.
func (v *Validator) validateDelete(fields map[string]json.RawMessage) (glossary.Action, error) {
	if _, ok := fields["data"]; ok {
		return glossary.Action{}, fmt.Errorf("%w: delete must not carry data", ErrStructural)
	}
	id, err := v.entryID(fields)
	if err != nil {
		return glossary.Action{}, err
	}
	return glossary.Action{Kind: glossary.ActionDelete, ID: id}, nil
}

// validateUpdate handles update{id, data:string}.
func (v *Validator) validateUpdate(fields map[string]json.RawMessage) (glossary.Action, error) {
	id, err := v.entryID(fields)
	if err != nil {
		return glossary.Action{}, err
	}
	raw, ok := fields["data"]
	if !ok {
		return glossary.Action{}, fmt.Errorf("%w: update requires data", ErrStructural)
	}
	var data string
	if err := json.Unmarshal(raw, &data); err != nil {
		return glossary.Action{}, fmt.Errorf("%w: update data must be a string", ErrType)
	}
	return glossary.Action{Kind: glossary.ActionUpdate, ID: id, Data: data}, nil
}

// validateKeyEdit handles add_key and del_key, whose data must be an array
// of strings.
func (v *Validator) validateKeyEdit(kind glossary.ActionKind, fields map[string]json.RawMessage) (glossary.Action, error) {
	id, err := v.entryID(fields)
	if err != nil {
		return glossary.Action{}, err
	}
	raw, ok := fields["data"]
	if !ok {
		return glossary.Action{}, fmt.Errorf("%w: %s requires data", ErrStructural, kind)
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return glossary.Action{}, fmt.Errorf("%w: %s data must be an array of strings", ErrType, kind)
	}
	return glossary.Action{Kind: kind, ID: id, Keys: keys}, nil
}

// entryID extracts the id field and confirms it belongs to the conflict
// set.
func (v *Validator) entryID(fields map[string]json.RawMessage) (int, error) {
	raw, ok := fields["id"]
	if !ok {
		return 0, fmt.Errorf("%w: missing id", ErrStructural)
	}
	var id int
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("%w: id must be an integer", ErrType)
	}
	if _, ok := v.allowed[id]; !ok {
		return 0, fmt.Errorf("%w: id %d", ErrReference, id)
	}
	return id, nil
}
