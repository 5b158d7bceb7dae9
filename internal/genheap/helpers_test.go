package genheap

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// testHeap is a minimal coordinator: it hands out fixed specs and
// records every failed-promotion call for assertions.
type testHeap struct {
	youngSpec GenerationSpec
	oldSpec   GenerationSpec
	old       *Generation

	failedCalls []failedPromotion
	fallback    func(from *Generation, obj Oop, wordCount int) (Oop, error)
}

type failedPromotion struct {
	from  *Generation
	obj   Oop
	words int
}

func (h *testHeap) YoungGenSpec() *GenerationSpec { return &h.youngSpec }
func (h *testHeap) OldGenSpec() *GenerationSpec   { return &h.oldSpec }
func (h *testHeap) OldGen() *Generation           { return h.old }

func (h *testHeap) HandleFailedPromotion(from *Generation, obj Oop, wordCount int) (Oop, error) {
	h.failedCalls = append(h.failedCalls, failedPromotion{from: from, obj: obj, words: wordCount})
	if h.fallback != nil {
		return h.fallback(from, obj, wordCount)
	}
	return NilAddress, &HeapError{Code: ErrorOutOfMemory, Message: "test heap exhausted"}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestTier builds a contiguous tier over a fresh reservation.
func newTestTier(t *testing.T, h Heap, level int, initial, max uintptr, flags DebugFlags) *ContiguousGeneration {
	t.Helper()
	rs, err := ReserveSpace(max)
	require.NoError(t, err)
	g, err := NewContiguousGeneration(GenerationConfig{
		Heap:        h,
		Reserved:    rs,
		InitialSize: initial,
		Level:       level,
		Objects:     HeaderObjectModel{},
		Flags:       flags,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	return g
}

// newTestHeap wires a young and an old contiguous tier to a testHeap.
func newTestHeap(t *testing.T, youngInitial, youngMax, oldInitial, oldMax uintptr) (*testHeap, *ContiguousGeneration, *ContiguousGeneration) {
	t.Helper()
	h := &testHeap{
		youngSpec: GenerationSpec{Name: "young", Level: YoungLevel, InitialSize: youngInitial, MaxSize: youngMax},
		oldSpec:   GenerationSpec{Name: "old", Level: OldLevel, InitialSize: oldInitial, MaxSize: oldMax},
	}
	young := newTestTier(t, h, YoungLevel, youngInitial, youngMax, DebugFlags{})
	old := newTestTier(t, h, OldLevel, oldInitial, oldMax, DebugFlags{})
	h.old = old.Generation
	return h, young, old
}

// mustAllocate allocates an object and fails the test on exhaustion.
func mustAllocate(t *testing.T, cs *ContiguousSpace, refs []Oop, payload []uintptr) Oop {
	t.Helper()
	obj := cs.AllocateObject(refs, payload)
	require.NotEqual(t, NilAddress, obj, "space %q full", cs.Name())
	return obj
}
