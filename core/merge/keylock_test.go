package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLockDisjointSets(t *testing.T) {
	l := NewKeyLock()

	require.True(t, l.TryAcquire([]string{"a", "b"}))
	assert.True(t, l.TryAcquire([]string{"c", "d"}))
	assert.Equal(t, 4, l.HeldCount())
}

func TestKeyLockOverlapRejected(t *testing.T) {
	l := NewKeyLock()

	require.True(t, l.TryAcquire([]string{"a", "b"}))
	assert.False(t, l.TryAcquire([]string{"b", "c"}))

	// All-or-nothing: the failed acquire must not have taken "c".
	assert.True(t, l.TryAcquire([]string{"c"}))
}

func TestKeyLockReleaseReadmits(t *testing.T) {
	l := NewKeyLock()

	require.True(t, l.TryAcquire([]string{"a", "b"}))
	require.False(t, l.TryAcquire([]string{"a"}))

	l.Release([]string{"a", "b"})
	assert.True(t, l.TryAcquire([]string{"a"}))
}

func TestKeyLockReleaseUnheldIsNoop(t *testing.T) {
	l := NewKeyLock()
	l.Release([]string{"ghost"})

	assert.Equal(t, 0, l.HeldCount())
}
