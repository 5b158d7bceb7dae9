package genheap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextGenChain(t *testing.T) {
	_, young, old := newTestHeap(t, 2048, 8192, 4096, 16384)

	require.Same(t, old.Generation, young.NextGen())
	require.Nil(t, old.NextGen(), "the oldest tier ends the chain")
}

func TestMaxContiguousAvailableWalksChain(t *testing.T) {
	// Young can hold 10 more words, old 200.
	_, young, old := newTestHeap(t, 10*WordSize, 8192, 200*WordSize, 16384)

	require.Equal(t, 10, young.ContiguousAvailable())
	require.Equal(t, 200, old.ContiguousAvailable())

	// The chain maximum sees past the local tier: an object too big for
	// young may still be promotable during the same pause.
	require.Equal(t, 200, young.MaxContiguousAvailable())
	require.Equal(t, 200, old.MaxContiguousAvailable())
}

func TestMaxContiguousAvailableShrinksWithUse(t *testing.T) {
	_, young, old := newTestHeap(t, 10*WordSize, 8192, 200*WordSize, 16384)

	require.NotEqual(t, NilAddress, old.Allocate(150, false))
	require.Equal(t, 50, young.MaxContiguousAvailable())

	require.NotEqual(t, NilAddress, old.Allocate(45, false))
	require.Equal(t, 10, young.MaxContiguousAvailable(), "young itself is now the best tier")
}

func TestPromotionAttemptIsSafe(t *testing.T) {
	_, young, _ := newTestHeap(t, 10*WordSize, 8192, 200*WordSize, 16384)

	require.True(t, young.PromotionAttemptIsSafe(0), "promoting nothing is always safe")
	require.True(t, young.PromotionAttemptIsSafe(200), "exactly the chain maximum fits")
	require.False(t, young.PromotionAttemptIsSafe(201))
	require.False(t, young.PromotionAttemptIsSafe(1<<20))
}
