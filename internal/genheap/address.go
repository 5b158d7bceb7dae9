package genheap

import "unsafe"

// Heap addresses are byte addresses into memory owned by a
// ReservedSpace. All block and object sizes in this package are counted
// in heap words unless a name says bytes.
const (
	LogWordSize = 3
	WordSize    = 1 << LogWordSize // bytes per heap word
)

// badHeapWord fills unused heap memory when the zap-unused-heap
// diagnostic is enabled, so uninitialized reads show up as a
// recognizable pattern. Kept as a var: the pattern is wider than a
// 32-bit uintptr and must truncate at runtime, not at compile time.
var badHeapWord uint64 = 0xBAADBABEBAADBABE

// Address is a byte address within reserved heap memory.
type Address uintptr

// NilAddress is the zero address; no reservation ever contains it.
const NilAddress Address = 0

// Oop identifies an object by the address of its first word.
type Oop = Address

// MemRegion is a half-open address interval [Start, End).
type MemRegion struct {
	Start Address
	End   Address
}

// ByteSize returns the length of the region in bytes.
func (m MemRegion) ByteSize() uintptr {
	return uintptr(m.End - m.Start)
}

// WordCount returns the length of the region in heap words.
func (m MemRegion) WordCount() int {
	return int(m.ByteSize() / WordSize)
}

// Contains reports whether p lies within the region.
func (m MemRegion) Contains(p Address) bool {
	return p >= m.Start && p < m.End
}

// IsEmpty reports whether the region spans no bytes.
func (m MemRegion) IsEmpty() bool {
	return m.End <= m.Start
}

func alignUp(n, alignment uintptr) uintptr {
	return (n + alignment - 1) &^ (alignment - 1)
}

func ptrAt(a Address) unsafe.Pointer {
	return unsafe.Pointer(uintptr(a)) //nolint:govet // heap memory is pinned by its ReservedSpace backing
}

func loadWord(a Address) uintptr {
	return *(*uintptr)(ptrAt(a))
}

func storeWord(a Address, v uintptr) {
	*(*uintptr)(ptrAt(a)) = v
}

// wordSlice views wordCount heap words starting at a as a slice.
func wordSlice(a Address, wordCount int) []uintptr {
	return unsafe.Slice((*uintptr)(ptrAt(a)), wordCount)
}

// copyAlignedDisjointWords copies wordCount heap words from src to dst.
// The two ranges must not overlap; the allocator contract guarantees
// freshly allocated destinations never alias their source.
func copyAlignedDisjointWords(src, dst Address, wordCount int) {
	copy(wordSlice(dst, wordCount), wordSlice(src, wordCount))
}

// CopyDisjointWords copies wordCount heap words from src to dst for a
// caller completing a promotion itself, such as a coordinator's failed
// promotion fallback. The ranges must not overlap.
func CopyDisjointWords(src, dst Address, wordCount int) {
	copyAlignedDisjointWords(src, dst, wordCount)
}

// zapRegion fills r with the unused-memory pattern.
func zapRegion(r MemRegion) {
	pattern := uintptr(badHeapWord)
	s := wordSlice(r.Start, r.WordCount())
	for i := range s {
		s[i] = pattern
	}
}
