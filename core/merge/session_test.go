package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/termbase/core/glossary"
)

// --- Test fixtures ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDict() *glossary.Dictionary {
	return &glossary.Dictionary{Entries: []*glossary.Entry{
		{ID: 1, Keys: []string{"a"}, Value: "A"},
		{ID: 2, Keys: []string{"b"}, Value: "B"},
	}}
}

// stubBuilder renders a trivial prompt; the mock transports below ignore
// it anyway.
type stubBuilder struct {
	err error
}

func (b *stubBuilder) Build(conflicts []*glossary.Entry, p glossary.Proposal) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return fmt.Sprintf("conflicts=%d proposal=%v", len(conflicts), p.Keys), nil
}

// countingTransport answers immediately with a fixed response.
type countingTransport struct {
	calls    atomic.Int32
	response string
	err      error
}

func (m *countingTransport) Request(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// gatedTransport blocks every call until released, so tests can observe
// which calls are in flight concurrently.
type gatedTransport struct {
	started atomic.Int32
	release chan struct{}
	respond func(prompt string) string
}

func newGatedTransport(respond func(prompt string) string) *gatedTransport {
	if respond == nil {
		respond = func(string) string { return `{"action": "none"}` }
	}
	return &gatedTransport{
		release: make(chan struct{}),
		respond: respond,
	}
}

func (m *gatedTransport) Request(ctx context.Context, prompt string) (string, error) {
	m.started.Add(1)
	select {
	case <-m.release:
		return m.respond(prompt), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func runMerge(t *testing.T, transport Transport, dict *glossary.Dictionary, proposals []glossary.Proposal) (*glossary.Dictionary, *Session) {
	t.Helper()
	session := NewSession(&stubBuilder{}, transport, DefaultConfig(), testLogger())
	merged, err := session.Merge(context.Background(), dict, proposals)
	require.NoError(t, err)
	return merged, session
}

// --- Conflict-free behavior ---

func TestMergeConflictFreeSkipsArbitration(t *testing.T) {
	transport := &countingTransport{}
	dict := &glossary.Dictionary{Entries: []*glossary.Entry{
		{ID: 1, Keys: []string{"a"}, Value: "A"},
	}}
	proposals := []glossary.Proposal{
		{Keys: []string{"x"}, Value: "X"},
		{Keys: []string{"y"}, Value: "Y"},
	}

	merged, session := runMerge(t, transport, dict, proposals)

	assert.Equal(t, 3, merged.Len())
	assert.Equal(t, int32(0), transport.calls.Load())
	assert.Equal(t, 2, session.Stats().Immediate)
}

func TestMergeFreshIDsAreSequential(t *testing.T) {
	transport := &countingTransport{}
	dict := &glossary.Dictionary{Entries: []*glossary.Entry{
		{ID: 7, Keys: []string{"a"}, Value: "A"},
	}}
	var proposals []glossary.Proposal
	for i := 0; i < 5; i++ {
		proposals = append(proposals, glossary.Proposal{
			Keys:  []string{fmt.Sprintf("k%d", i)},
			Value: fmt.Sprintf("v%d", i),
		})
	}

	merged, _ := runMerge(t, transport, dict, proposals)

	require.Equal(t, 6, merged.Len())
	ids := make(map[int]bool)
	for _, e := range merged.Entries[1:] {
		ids[e.ID] = true
	}
	for want := 8; want <= 12; want++ {
		assert.True(t, ids[want], "expected id %d to be assigned", want)
	}
}

func TestMergeEmptyProposals(t *testing.T) {
	transport := &countingTransport{}
	dict := testDict()

	merged, _ := runMerge(t, transport, dict, nil)

	assert.Equal(t, testDict(), merged)
	assert.Equal(t, int32(0), transport.calls.Load())
}

func TestMergeDoesNotTouchCallerDictionary(t *testing.T) {
	transport := &countingTransport{response: `{"action": "delete", "id": 1}`}
	dict := testDict()

	merged, _ := runMerge(t, transport, dict, []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
	})

	assert.Equal(t, testDict(), dict)
	assert.Nil(t, merged.FindByID(1))
}

// --- Arbitrated behavior ---

func TestMergeAppliesUpdate(t *testing.T) {
	transport := &countingTransport{response: `{"action": "update", "id": 1, "data": "NEW"}`}

	merged, session := runMerge(t, transport, testDict(), []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
	})

	assert.Equal(t, "NEW", merged.FindByID(1).Value)
	assert.Equal(t, "B", merged.FindByID(2).Value)
	assert.Equal(t, 2, merged.Len())
	assert.Equal(t, int32(1), transport.calls.Load())
	assert.Equal(t, 1, session.Stats().Arbitrated)
}

func TestMergeAppliesDelete(t *testing.T) {
	transport := &countingTransport{response: `{"action": "delete", "id": 1}`}

	merged, _ := runMerge(t, transport, testDict(), []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
	})

	assert.Nil(t, merged.FindByID(1))
	assert.Equal(t, 1, merged.Len())
}

func TestMergeAppliesAddEntry(t *testing.T) {
	transport := &countingTransport{response: `{"action": "add_entry"}`}

	merged, _ := runMerge(t, transport, testDict(), []glossary.Proposal{
		{Keys: []string{"a", "alpha"}, Value: "A2"},
	})

	require.Equal(t, 3, merged.Len())
	added := merged.Entries[2]
	assert.Equal(t, 3, added.ID)
	assert.Equal(t, []string{"a", "alpha"}, added.Keys)
	assert.Equal(t, "A2", added.Value)
}

func TestMergeRejectsForeignID(t *testing.T) {
	// Entry 2 exists in the dictionary but is not in this proposal's
	// conflict set, so the batch is discarded and entry 2 survives.
	transport := &countingTransport{response: `{"action": "delete", "id": 2}`}

	merged, session := runMerge(t, transport, testDict(), []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
	})

	assert.NotNil(t, merged.FindByID(2))
	assert.Equal(t, "A", merged.FindByID(1).Value)
	assert.Equal(t, 1, session.Stats().Discarded)
}

func TestMergeBatchAtomicity(t *testing.T) {
	// The update is valid, the delete is not; neither applies.
	transport := &countingTransport{
		response: `[{"action": "update", "id": 1, "data": "NEW"}, {"action": "delete", "id": 99}]`,
	}

	merged, session := runMerge(t, transport, testDict(), []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
	})

	assert.Equal(t, "A", merged.FindByID(1).Value)
	assert.Equal(t, 1, session.Stats().Discarded)
	assert.Equal(t, 0, session.Stats().Arbitrated)
}

func TestMergeTransportFailureIsIsolated(t *testing.T) {
	transport := &countingTransport{err: errors.New("boom")}

	merged, session := runMerge(t, transport, testDict(), []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
		{Keys: []string{"fresh"}, Value: "F"},
	})

	// The failed arbitration leaves its entries unchanged; the
	// conflict-free proposal still merges.
	assert.Equal(t, "A", merged.FindByID(1).Value)
	assert.Equal(t, 3, merged.Len())
	assert.Equal(t, 1, session.Stats().Discarded)
	assert.Equal(t, 1, session.Stats().Immediate)
}

func TestMergeGarbageResponseIsDiscarded(t *testing.T) {
	transport := &countingTransport{response: "no json here"}

	merged, session := runMerge(t, transport, testDict(), []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
	})

	assert.Equal(t, testDict(), merged)
	assert.Equal(t, 1, session.Stats().Discarded)
}

func TestMergeBuilderErrorPropagates(t *testing.T) {
	session := NewSession(&stubBuilder{err: errors.New("template broken")}, &countingTransport{}, DefaultConfig(), testLogger())

	_, err := session.Merge(context.Background(), testDict(), []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "arbitration prompt")
}

// --- Concurrency properties ---

func TestMergeDisjointConflictsRunConcurrently(t *testing.T) {
	transport := newGatedTransport(nil)
	proposals := []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
		{Keys: []string{"b"}, Value: "B2"},
	}

	session := NewSession(&stubBuilder{}, transport, DefaultConfig(), testLogger())
	done := make(chan error, 1)
	go func() {
		_, err := session.Merge(context.Background(), testDict(), proposals)
		done <- err
	}()

	// Both arbitrations must be dispatched before either resolves.
	require.Eventually(t, func() bool {
		return transport.started.Load() == 2
	}, time.Second, 5*time.Millisecond)

	close(transport.release)
	require.NoError(t, <-done)
}

func TestMergeOverlappingConflictsAreSerialized(t *testing.T) {
	transport := newGatedTransport(nil)
	// Both proposals collide with entry 1, so their lock sets overlap.
	proposals := []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
		{Keys: []string{"a"}, Value: "A3"},
	}

	session := NewSession(&stubBuilder{}, transport, DefaultConfig(), testLogger())
	done := make(chan error, 1)
	go func() {
		_, err := session.Merge(context.Background(), testDict(), proposals)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return transport.started.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// The second call must not start while the first holds the keys.
	assert.Never(t, func() bool {
		return transport.started.Load() > 1
	}, 100*time.Millisecond, 10*time.Millisecond)

	transport.release <- struct{}{}

	require.Eventually(t, func() bool {
		return transport.started.Load() == 2
	}, time.Second, 5*time.Millisecond)

	transport.release <- struct{}{}
	require.NoError(t, <-done)
}

func TestMergeInflightCapSerializes(t *testing.T) {
	transport := newGatedTransport(nil)
	proposals := []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
		{Keys: []string{"b"}, Value: "B2"},
	}

	session := NewSession(&stubBuilder{}, transport, Config{MaxInflight: 1}, testLogger())
	done := make(chan error, 1)
	go func() {
		_, err := session.Merge(context.Background(), testDict(), proposals)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return transport.started.Load() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Never(t, func() bool {
		return transport.started.Load() > 1
	}, 100*time.Millisecond, 10*time.Millisecond)

	transport.release <- struct{}{}
	require.Eventually(t, func() bool {
		return transport.started.Load() == 2
	}, time.Second, 5*time.Millisecond)

	transport.release <- struct{}{}
	require.NoError(t, <-done)
}

func TestMergeContextCancellation(t *testing.T) {
	transport := newGatedTransport(nil)
	ctx, cancel := context.WithCancel(context.Background())

	session := NewSession(&stubBuilder{}, transport, DefaultConfig(), testLogger())
	done := make(chan error, 1)
	go func() {
		_, err := session.Merge(ctx, testDict(), []glossary.Proposal{
			{Keys: []string{"a"}, Value: "A2"},
		})
		done <- err
	}()

	require.Eventually(t, func() bool {
		return transport.started.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestMergeConflictsRecomputedAfterDelete(t *testing.T) {
	// The first proposal's arbitration deletes entry 1. The second
	// proposal collided with entry 1 only, so once unblocked it must be
	// recomputed as conflict-free and merge immediately, without a
	// second arbitration call.
	transport := newGatedTransport(func(string) string {
		return `{"action": "delete", "id": 1}`
	})
	proposals := []glossary.Proposal{
		{Keys: []string{"a"}, Value: "A2"},
		{Keys: []string{"a"}, Value: "A3"},
	}

	session := NewSession(&stubBuilder{}, transport, DefaultConfig(), testLogger())
	done := make(chan error, 1)
	var merged *glossary.Dictionary
	go func() {
		var err error
		merged, err = session.Merge(context.Background(), testDict(), proposals)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return transport.started.Load() == 1
	}, time.Second, 5*time.Millisecond)

	transport.release <- struct{}{}
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), transport.started.Load())
	assert.Nil(t, merged.FindByID(1))
	// The second proposal merged conflict-free with a fresh id.
	require.Equal(t, 2, merged.Len())
	assert.Equal(t, 1, session.Stats().Immediate)
}
