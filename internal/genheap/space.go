package genheap

// OopVisitor is invoked once per reference field. slot is the address
// of the field itself; the word stored there is an object address.
type OopVisitor func(slot Address)

// ObjectVisitor is invoked once per object, identified by its start
// address.
type ObjectVisitor func(obj Oop)

// Space is the narrow surface a generation consumes from one of its
// regions: a contiguous, independently managed sub-range that can
// report containment, locate blocks, and iterate its contents.
//
// AdjustPointers belongs to every space, not only compaction-capable
// ones: a space holding immutable metadata still contains reference
// fields that need fix-up after its neighbors move.
type Space interface {
	Name() string

	// Bounds returns the space's reserved sub-range.
	Bounds() MemRegion

	// IsInReserved reports whether p lies in the reserved sub-range.
	IsInReserved(p Address) bool

	// IsIn reports whether p lies in the used portion of the space.
	IsIn(p Address) bool

	// BlockStart returns the start of the block containing p, or
	// NilAddress when the space holds no block there.
	BlockStart(p Address) Address

	// BlockSize returns the size in words of the block starting at p,
	// or zero when p does not start a block.
	BlockSize(p Address) int

	// BlockIsObj reports whether the block at p is a live, well-formed
	// object.
	BlockIsObj(p Address) bool

	OopIterate(visit OopVisitor)
	ObjectIterate(visit ObjectVisitor)

	// SafeObjectIterate is ObjectIterate hardened against concurrent
	// mutation hazards; it stops on inconsistent state instead of
	// panicking.
	SafeObjectIterate(visit ObjectVisitor)

	// AdjustPointers rewrites every reference field so it points at
	// objects' post-compaction locations.
	AdjustPointers()
}

// CompactibleSpace is a Space that participates in the compaction
// pipeline. Compaction-capable spaces form their own chain (first
// compaction space, next compaction space) because they must be
// compacted in a fixed relative-address order to avoid overlap.
type CompactibleSpace interface {
	Space

	// PrepareForCompaction reserves the post-compaction placement of
	// every live object against the shared compaction point.
	PrepareForCompaction(cp *CompactPoint)

	// Compact physically relocates live objects into the placements
	// reserved by PrepareForCompaction.
	Compact()

	// NextCompactionSpace returns the next space in the compaction
	// chain, or nil at the end.
	NextCompactionSpace() CompactibleSpace

	// SetCompactionTop records the space's post-compaction allocation
	// top while the compaction point places objects into it.
	SetCompactionTop(top Address)
}
