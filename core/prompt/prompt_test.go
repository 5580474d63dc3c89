package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/termbase/core/glossary"
)

func TestBuildEmbedsConflictsAndProposal(t *testing.T) {
	builder := NewBuilder()
	conflicts := []*glossary.Entry{
		{ID: 7, Keys: []string{"Aria"}, Value: "アリア"},
	}
	proposal := glossary.Proposal{Keys: []string{"Aria", "aria"}, Value: "アーリア"}

	out, err := builder.Build(conflicts, proposal)
	require.NoError(t, err)

	assert.Contains(t, out, `"id": 7`)
	assert.Contains(t, out, `"Aria"`)
	assert.Contains(t, out, "アーリア")
	assert.Contains(t, out, `"add_entry"`)
	assert.Contains(t, out, `"del_key"`)
}

func TestBuildDeterministic(t *testing.T) {
	builder := NewBuilder()
	conflicts := []*glossary.Entry{{ID: 1, Keys: []string{"a"}, Value: "A"}}
	proposal := glossary.Proposal{Keys: []string{"a"}, Value: "B"}

	first, err := builder.Build(conflicts, proposal)
	require.NoError(t, err)
	second, err := builder.Build(conflicts, proposal)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildNoConflicts(t *testing.T) {
	builder := NewBuilder()
	out, err := builder.Build(nil, glossary.Proposal{Keys: []string{"x"}, Value: "X"})

	require.NoError(t, err)
	assert.Contains(t, out, `"entries"`)
}
