package glossary

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIDAllocatorSequence(t *testing.T) {
	dict := sampleDictionary() // max id 4
	ids := NewIDAllocator(dict)

	assert.Equal(t, 5, ids.Next())
	assert.Equal(t, 6, ids.Next())
	assert.Equal(t, 7, ids.Next())
}

func TestIDAllocatorIgnoresDeletions(t *testing.T) {
	dict := sampleDictionary()
	ids := NewIDAllocator(dict)

	dict.Remove(4)
	// Ids keep increasing even after the max entry is gone.
	assert.Equal(t, 5, ids.Next())
}

func TestAddEntry(t *testing.T) {
	dict := sampleDictionary()
	ids := NewIDAllocator(dict)
	proposal := Proposal{Keys: []string{"Drift"}, Value: "ドリフト"}

	entry := AddEntry(dict, proposal, ids)

	assert.Equal(t, 5, entry.ID)
	assert.Equal(t, 4, dict.Len())
	assert.Same(t, entry, dict.Entries[3])

	// The proposal's key slice is not aliased.
	proposal.Keys[0] = "mutated"
	assert.Equal(t, "Drift", entry.Keys[0])
}

func TestApplyUpdate(t *testing.T) {
	dict := sampleDictionary()
	ids := NewIDAllocator(dict)

	Apply(dict, Action{Kind: ActionUpdate, ID: 3, Data: "NEW"}, Proposal{}, ids, discardLogger())

	assert.Equal(t, "NEW", dict.FindByID(3).Value)
	assert.Equal(t, []string{"Bram"}, dict.FindByID(3).Keys)
	assert.Equal(t, "アリア", dict.FindByID(1).Value)
}

func TestApplyDelete(t *testing.T) {
	dict := sampleDictionary()
	ids := NewIDAllocator(dict)

	Apply(dict, Action{Kind: ActionDelete, ID: 1}, Proposal{}, ids, discardLogger())

	assert.Nil(t, dict.FindByID(1))
	assert.Equal(t, 2, dict.Len())
}

func TestApplyDeleteMissingIsSkipped(t *testing.T) {
	dict := sampleDictionary()
	ids := NewIDAllocator(dict)

	// Deleting twice (as an earlier action in the batch might) must not
	// fail the batch.
	Apply(dict, Action{Kind: ActionDelete, ID: 1}, Proposal{}, ids, discardLogger())
	Apply(dict, Action{Kind: ActionDelete, ID: 1}, Proposal{}, ids, discardLogger())

	assert.Equal(t, 2, dict.Len())
}

func TestApplyAddKey(t *testing.T) {
	dict := sampleDictionary()
	ids := NewIDAllocator(dict)

	Apply(dict, Action{Kind: ActionAddKey, ID: 3, Keys: []string{"bram", "Bram"}}, Proposal{}, ids, discardLogger())

	assert.Equal(t, []string{"Bram", "bram"}, dict.FindByID(3).Keys)
}

func TestApplyDelKey(t *testing.T) {
	dict := sampleDictionary()
	ids := NewIDAllocator(dict)

	Apply(dict, Action{Kind: ActionDelKey, ID: 1, Keys: []string{"aria"}}, Proposal{}, ids, discardLogger())

	assert.Equal(t, []string{"Aria"}, dict.FindByID(1).Keys)
}

func TestApplyAddEntryUsesProposal(t *testing.T) {
	dict := sampleDictionary()
	ids := NewIDAllocator(dict)
	proposal := Proposal{Keys: []string{"Drift"}, Value: "ドリフト"}

	Apply(dict, Action{Kind: ActionAddEntry}, proposal, ids, discardLogger())

	require.Equal(t, 4, dict.Len())
	added := dict.Entries[3]
	assert.Equal(t, 5, added.ID)
	assert.Equal(t, []string{"Drift"}, added.Keys)
	assert.Equal(t, "ドリフト", added.Value)
}

func TestApplyNone(t *testing.T) {
	dict := sampleDictionary()
	ids := NewIDAllocator(dict)

	Apply(dict, Action{Kind: ActionNone}, Proposal{Keys: []string{"x"}}, ids, discardLogger())

	assert.Equal(t, sampleDictionary(), dict)
}
