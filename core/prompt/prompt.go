// Package prompt assembles arbitration prompts from a proposal and the
// entries it collides with. Building is pure: no I/O, deterministic output
// for the same inputs.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/adalundhe/termbase/core/glossary"
)

const arbitrationTemplate = `You maintain a terminology glossary used to keep proper-noun translations consistent.

A new entry has been proposed. Its keys collide with one or more existing entries. Decide how to reconcile them.

## EXISTING CONFLICTING ENTRIES

{{.Conflicts}}

## PROPOSED ENTRY

{{.Proposal}}

## DECISION FORMAT

Respond with a single JSON object, or a JSON array of objects, each shaped as one of:

- {"action": "none"}: keep everything as is, discard the proposal
- {"action": "add_entry"}: insert the proposed entry alongside the existing ones
- {"action": "update", "id": <existing id>, "data": "<new value>"}: replace an entry's value
- {"action": "delete", "id": <existing id>}: remove an entry entirely
- {"action": "add_key", "id": <existing id>, "data": ["<key>", ...]}: add keys to an entry
- {"action": "del_key", "id": <existing id>, "data": ["<key>", ...]}: remove keys from an entry

Only reference ids listed above. Output JSON only, no explanation.`

// Builder renders arbitration prompts through a fixed template.
type Builder struct {
	tmpl *template.Template
}

// NewBuilder creates a prompt builder.
func NewBuilder() *Builder {
	return &Builder{
		tmpl: template.Must(template.New("arbitration").Parse(arbitrationTemplate)),
	}
}

type templateInput struct {
	Conflicts string
	Proposal  string
}

// Build renders the arbitration prompt for one proposal and its conflict
// set. Conflicts and proposal are embedded as indented JSON.
func (b *Builder) Build(conflicts []*glossary.Entry, p glossary.Proposal) (string, error) {
	conflictJSON, err := marshalConflicts(conflicts)
	if err != nil {
		return "", err
	}
	proposalJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal proposal: %w", err)
	}

	var out strings.Builder
	input := templateInput{Conflicts: conflictJSON, Proposal: string(proposalJSON)}
	if err := b.tmpl.Execute(&out, input); err != nil {
		return "", fmt.Errorf("render arbitration prompt: %w", err)
	}
	return out.String(), nil
}

// marshalConflicts renders the conflict set in the same shape the
// dictionary uses on the wire.
func marshalConflicts(conflicts []*glossary.Entry) (string, error) {
	wrapped := glossary.Dictionary{Entries: conflicts}
	data, err := json.MarshalIndent(wrapped, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal conflicts: %w", err)
	}
	return string(data), nil
}
