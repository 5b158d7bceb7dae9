package genheap

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestPromoteCopiesBitPattern(t *testing.T) {
	_, young, old := newTestHeap(t, 2048, 8192, 4096, 16384)

	other := mustAllocate(t, young.Space(), nil, []uintptr{0x11})
	obj := mustAllocate(t, young.Space(), []Oop{other}, []uintptr{0xCAFE, 0xF00D, 0x42})
	before := append([]uintptr(nil), ObjectWords(obj)...)

	dest, err := old.Promote(obj, ObjectSizeWords(obj))
	require.NoError(t, err)
	require.NotEqual(t, obj, dest)
	require.True(t, old.Reserved().Contains(dest))
	require.False(t, young.Reserved().Contains(dest))

	// The copy is bit-identical: reference slots still name the old
	// locations until the caller patches them.
	require.Empty(t, cmp.Diff(before, ObjectWords(dest)))
	require.EqualValues(t, uintptr(len(before))*WordSize, old.Used())
}

func TestPromoteFailureDefersToCoordinator(t *testing.T) {
	// Old tier committed far too small for the object; no expansion on
	// the promotion path.
	h, young, old := newTestHeap(t, 2048, 8192, 4*WordSize, 16384)

	payload := make([]uintptr, 50-objHeaderWords)
	obj := mustAllocate(t, young.Space(), nil, payload)
	require.Equal(t, 50, ObjectSizeWords(obj))

	dest, err := old.Promote(obj, 50)
	require.Equal(t, NilAddress, dest)
	require.True(t, errors.Is(err, ErrOutOfMemory))

	require.Len(t, h.failedCalls, 1, "coordinator consulted exactly once")
	call := h.failedCalls[0]
	require.Same(t, old.Generation, call.from)
	require.Equal(t, obj, call.obj)
	require.Equal(t, 50, call.words)
}

func TestPromoteFallbackResult(t *testing.T) {
	h, young, old := newTestHeap(t, 2048, 8192, 4*WordSize, 16384)

	// The coordinator resolves the failure itself; its answer passes
	// through Promote untouched.
	resolved := Oop(0x1000)
	h.fallback = func(from *Generation, obj Oop, wordCount int) (Oop, error) {
		return resolved, nil
	}

	obj := mustAllocate(t, young.Space(), nil, make([]uintptr, 40))
	dest, err := old.Promote(obj, ObjectSizeWords(obj))
	require.NoError(t, err)
	require.Equal(t, resolved, dest)
}

func TestForcedPromotionFailure(t *testing.T) {
	h := &testHeap{
		youngSpec: GenerationSpec{Level: YoungLevel, InitialSize: 2048, MaxSize: 8192},
		oldSpec:   GenerationSpec{Level: OldLevel, InitialSize: 4096, MaxSize: 16384},
	}
	young := newTestTier(t, h, YoungLevel, 2048, 8192, DebugFlags{})
	old := newTestTier(t, h, OldLevel, 4096, 16384, DebugFlags{ForcePromotionFailure: true})
	h.old = old.Generation

	obj := mustAllocate(t, young.Space(), nil, []uintptr{1})
	dest, err := old.Promote(obj, ObjectSizeWords(obj))
	require.Equal(t, NilAddress, dest)
	require.True(t, errors.Is(err, ErrPromotionFailed))
	require.Empty(t, h.failedCalls, "forced failure must not reach the coordinator")
	require.Zero(t, old.Used(), "no allocation happened")
}

func TestPromotionFailureFuncGatesPerCall(t *testing.T) {
	h := &testHeap{
		youngSpec: GenerationSpec{Level: YoungLevel, InitialSize: 2048, MaxSize: 8192},
		oldSpec:   GenerationSpec{Level: OldLevel, InitialSize: 4096, MaxSize: 16384},
	}
	calls := 0
	flags := DebugFlags{
		ForcePromotionFailure: true,
		PromotionFailureFunc: func() bool {
			calls++
			return calls == 1
		},
	}
	young := newTestTier(t, h, YoungLevel, 2048, 8192, DebugFlags{})
	old := newTestTier(t, h, OldLevel, 4096, 16384, flags)
	h.old = old.Generation

	obj := mustAllocate(t, young.Space(), nil, []uintptr{1})

	_, err := old.Promote(obj, ObjectSizeWords(obj))
	require.True(t, errors.Is(err, ErrPromotionFailed))

	_, err = old.Promote(obj, ObjectSizeWords(obj))
	require.NoError(t, err, "the func takes precedence over the static flag")
}

func TestPromoteSizeMismatchPanics(t *testing.T) {
	_, young, old := newTestHeap(t, 2048, 8192, 4096, 16384)
	obj := mustAllocate(t, young.Space(), nil, []uintptr{1, 2})
	require.Panics(t, func() { _, _ = old.Promote(obj, ObjectSizeWords(obj)+1) })
}

func TestParPromoteUnsupportedPanics(t *testing.T) {
	_, young, old := newTestHeap(t, 2048, 8192, 4096, 16384)

	// The contiguous tier embeds Generation; the promoted ParPromote
	// dispatcher must not make it pass the capability check, or the
	// dispatch would re-enter itself instead of panicking.
	var impl GenerationImpl = old
	_, ok := impl.(ParallelPromoter)
	require.False(t, ok, "embedding the dispatcher is not opting in")

	obj := mustAllocate(t, young.Space(), nil, []uintptr{1})
	require.Panics(t, func() { _, _ = old.ParPromote(0, obj, ObjectSizeWords(obj)) })
}

// workerTier wraps the contiguous tier with trivially serialized
// parallel promotion so the capability dispatch path is covered.
type workerTier struct {
	*ContiguousGeneration
	workers []int
}

func (wt *workerTier) PromoteForWorker(worker int, obj Oop, wordCount int) (Oop, error) {
	wt.workers = append(wt.workers, worker)
	dest := wt.Allocate(wordCount, false)
	if dest == NilAddress {
		return NilAddress, &HeapError{Code: ErrorPromotionFailed, Message: "worker allocation failed"}
	}
	CopyDisjointWords(obj, dest, wordCount)
	return dest, nil
}

func TestParPromoteDispatchesToCapability(t *testing.T) {
	h := &testHeap{
		youngSpec: GenerationSpec{Level: YoungLevel, InitialSize: 2048, MaxSize: 8192},
		oldSpec:   GenerationSpec{Level: OldLevel, InitialSize: 4096, MaxSize: 16384},
	}
	young := newTestTier(t, h, YoungLevel, 2048, 8192, DebugFlags{})

	rs, err := ReserveSpace(16384)
	require.NoError(t, err)
	base, err := NewGeneration(GenerationConfig{
		Heap:        h,
		Reserved:    rs,
		InitialSize: 4096,
		Level:       OldLevel,
		Objects:     HeaderObjectModel{},
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	inner := &ContiguousGeneration{Generation: base, fwd: NewForwarding()}
	inner.space = NewContiguousSpace("old space", base.Committed(), inner.fwd)
	wt := &workerTier{ContiguousGeneration: inner}
	base.Bind(wt)
	h.old = base

	obj := mustAllocate(t, young.Space(), nil, []uintptr{0xAB})
	dest, err := base.ParPromote(3, obj, ObjectSizeWords(obj))
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(ObjectWords(obj), ObjectWords(dest)))
	require.Equal(t, []int{3}, wt.workers)
}
