package genheap

import "fmt"

// Reference object model used by the contiguous space: a two-word
// header followed by the payload. Word 0 is the object's total size in
// words (header included); word 1 is metadata holding the live bit and
// the number of leading payload words that are reference slots.
const (
	objHeaderWords = 2
	metaLiveBit    = uintptr(1)
	metaRefShift   = 8
)

// ObjectSizeWords returns the object's self-reported size in words.
func ObjectSizeWords(obj Oop) int {
	return int(loadWord(obj))
}

// ObjectIsLive reports whether the object's live bit is set.
func ObjectIsLive(obj Oop) bool {
	return loadWord(obj+WordSize)&metaLiveBit != 0
}

// ObjectRefCount returns the number of reference slots in the object.
func ObjectRefCount(obj Oop) int {
	return int(loadWord(obj+WordSize) >> metaRefShift)
}

// ObjectRef returns the target of the i'th reference slot.
func ObjectRef(obj Oop, i int) Oop {
	return Oop(loadWord(objRefSlot(obj, i)))
}

// SetObjectRef points the i'th reference slot at target.
func SetObjectRef(obj Oop, i int, target Oop) {
	storeWord(objRefSlot(obj, i), uintptr(target))
}

// ObjectWords returns the object's full bit pattern, header included.
func ObjectWords(obj Oop) []uintptr {
	return wordSlice(obj, ObjectSizeWords(obj))
}

func objRefSlot(obj Oop, i int) Address {
	if i < 0 || i >= ObjectRefCount(obj) {
		panic(fmt.Sprintf("genheap: reference slot %d out of range", i))
	}
	return obj + Address((objHeaderWords+i)*WordSize)
}

// HeaderObjectModel reads the self-reported size straight from the
// block header.
type HeaderObjectModel struct{}

// SizeOf implements ObjectModel.
func (HeaderObjectModel) SizeOf(obj Oop) int { return ObjectSizeWords(obj) }

// ContiguousSpace is a bump-pointer space: objects are laid out
// contiguously between bottom and top in allocation order. It is
// compaction capable, sliding live objects toward the compaction
// point's destination chain.
type ContiguousSpace struct {
	name   string
	bottom Address
	top    Address
	end    Address

	// compactionTop is the post-compaction allocation top while this
	// space serves as a compaction destination. entered tracks whether
	// the current cycle's compaction point has placed anything here.
	compactionTop Address
	entered       bool

	next CompactibleSpace
	fwd  *Forwarding
}

// NewContiguousSpace returns an empty space over region. fwd is the
// forwarding table shared by the owning tier's spaces; nil allocates a
// private one.
func NewContiguousSpace(name string, region MemRegion, fwd *Forwarding) *ContiguousSpace {
	if fwd == nil {
		fwd = NewForwarding()
	}
	return &ContiguousSpace{
		name:   name,
		bottom: region.Start,
		top:    region.Start,
		end:    region.End,
		fwd:    fwd,
	}
}

// SetNextCompactionSpace links the next space in the compaction chain.
func (cs *ContiguousSpace) SetNextCompactionSpace(next CompactibleSpace) { cs.next = next }

// Name implements Space.
func (cs *ContiguousSpace) Name() string { return cs.name }

// Bounds implements Space.
func (cs *ContiguousSpace) Bounds() MemRegion {
	return MemRegion{Start: cs.bottom, End: cs.end}
}

// IsInReserved implements Space.
func (cs *ContiguousSpace) IsInReserved(p Address) bool {
	return p >= cs.bottom && p < cs.end
}

// IsIn implements Space: containment in the used portion.
func (cs *ContiguousSpace) IsIn(p Address) bool {
	return p >= cs.bottom && p < cs.top
}

// Capacity returns the space's byte size.
func (cs *ContiguousSpace) Capacity() uintptr { return uintptr(cs.end - cs.bottom) }

// Used returns the occupied bytes.
func (cs *ContiguousSpace) Used() uintptr { return uintptr(cs.top - cs.bottom) }

// FreeWords returns the contiguous free words between top and end.
func (cs *ContiguousSpace) FreeWords() int { return int(uintptr(cs.end-cs.top) / WordSize) }

// Top returns the current allocation top.
func (cs *ContiguousSpace) Top() Address { return cs.top }

// Reset empties the space. The driver uses this after evacuating a
// young space.
func (cs *ContiguousSpace) Reset() { cs.top = cs.bottom }

func (cs *ContiguousSpace) setEnd(end Address) { cs.end = end }

// AllocateWords bumps the top by wordCount words, returning NilAddress
// when the space cannot hold them.
func (cs *ContiguousSpace) AllocateWords(wordCount int) Address {
	if wordCount <= 0 {
		return NilAddress
	}
	next := cs.top + Address(uintptr(wordCount)*WordSize)
	if next > cs.end {
		return NilAddress
	}
	a := cs.top
	cs.top = next
	return a
}

// AllocateObject allocates and initializes an object with the given
// reference slots and payload words, returning its identity.
func (cs *ContiguousSpace) AllocateObject(refs []Oop, payload []uintptr) Oop {
	size := objHeaderWords + len(refs) + len(payload)
	obj := cs.AllocateWords(size)
	if obj == NilAddress {
		return NilAddress
	}
	storeWord(obj, uintptr(size))
	storeWord(obj+WordSize, metaLiveBit|uintptr(len(refs))<<metaRefShift)
	for i, r := range refs {
		storeWord(obj+Address((objHeaderWords+i)*WordSize), uintptr(r))
	}
	for i, w := range payload {
		storeWord(obj+Address((objHeaderWords+len(refs)+i)*WordSize), w)
	}
	return obj
}

// MarkDead clears the object's live bit. Dead blocks keep their extent
// so block walks stay consistent until the next compaction.
func (cs *ContiguousSpace) MarkDead(obj Oop) {
	if !cs.IsIn(obj) {
		panic(fmt.Sprintf("genheap: %#x is not in space %q", uintptr(obj), cs.name))
	}
	storeWord(obj+WordSize, loadWord(obj+WordSize)&^metaLiveBit)
}

// BlockStart implements Space by walking block extents from the bottom.
func (cs *ContiguousSpace) BlockStart(p Address) Address {
	if !cs.IsIn(p) {
		return NilAddress
	}
	q := cs.bottom
	for {
		size := ObjectSizeWords(q)
		if size <= 0 {
			panic(fmt.Sprintf("genheap: zero-size block at %#x", uintptr(q)))
		}
		next := q + Address(uintptr(size)*WordSize)
		if p < next {
			return q
		}
		q = next
	}
}

// BlockSize implements Space. p must be a block start; addresses past
// the allocation top hold no block and report zero.
func (cs *ContiguousSpace) BlockSize(p Address) int {
	if !cs.IsIn(p) {
		return 0
	}
	return ObjectSizeWords(p)
}

// BlockIsObj implements Space: the block at p is an object iff it lies
// below the allocation top and its live bit is set.
func (cs *ContiguousSpace) BlockIsObj(p Address) bool {
	return cs.IsIn(p) && ObjectIsLive(p)
}

// ObjectIterate implements Space, visiting live objects in address
// order.
func (cs *ContiguousSpace) ObjectIterate(visit ObjectVisitor) {
	for p := cs.bottom; p < cs.top; {
		size := ObjectSizeWords(p)
		if size <= 0 {
			panic(fmt.Sprintf("genheap: zero-size block at %#x", uintptr(p)))
		}
		if ObjectIsLive(p) {
			visit(p)
		}
		p += Address(uintptr(size) * WordSize)
	}
}

// SafeObjectIterate implements Space. It snapshots the allocation top
// and stops on inconsistent block state instead of panicking, so it
// tolerates a mutator racing the walk.
func (cs *ContiguousSpace) SafeObjectIterate(visit ObjectVisitor) {
	limit := cs.top
	for p := cs.bottom; p < limit; {
		size := ObjectSizeWords(p)
		if size <= 0 {
			return
		}
		next := p + Address(uintptr(size)*WordSize)
		if next > limit {
			return
		}
		if ObjectIsLive(p) {
			visit(p)
		}
		p = next
	}
}

// OopIterate implements Space, visiting each live object's reference
// slots in address order.
func (cs *ContiguousSpace) OopIterate(visit OopVisitor) {
	cs.ObjectIterate(func(obj Oop) {
		n := ObjectRefCount(obj)
		for i := 0; i < n; i++ {
			visit(obj + Address((objHeaderWords+i)*WordSize))
		}
	})
}

// PrepareForCompaction implements CompactibleSpace: every live object
// gets its post-compaction placement reserved at the compaction point,
// recorded in the cycle's forwarding table.
func (cs *ContiguousSpace) PrepareForCompaction(cp *CompactPoint) {
	cs.fwd = cp.Fwd
	cs.ObjectIterate(func(obj Oop) {
		dest := cp.Allocate(ObjectSizeWords(obj))
		cp.Fwd.Forward(obj, dest)
	})
}

// Compact implements CompactibleSpace: live objects move to the
// placements reserved during PrepareForCompaction. Destinations never
// lie above their sources in chain order, so an in-order walk with an
// overlap-tolerant copy is safe.
func (cs *ContiguousSpace) Compact() {
	oldTop := cs.top
	for p := cs.bottom; p < oldTop; {
		size := ObjectSizeWords(p)
		if size <= 0 {
			panic(fmt.Sprintf("genheap: zero-size block at %#x", uintptr(p)))
		}
		next := p + Address(uintptr(size)*WordSize)
		if ObjectIsLive(p) {
			dest, ok := cs.fwd.Lookup(p)
			if !ok {
				panic(fmt.Sprintf("genheap: live object at %#x was not forwarded", uintptr(p)))
			}
			if dest != p {
				copy(wordSlice(dest, size), wordSlice(p, size))
			}
		}
		p = next
	}
	if cs.entered {
		cs.top = cs.compactionTop
	} else {
		cs.top = cs.bottom
	}
	cs.entered = false
}

// AdjustPointers implements Space: reference slots holding addresses
// forwarded this cycle are rewritten to the new locations; all other
// slots are left alone.
func (cs *ContiguousSpace) AdjustPointers() {
	cs.OopIterate(func(slot Address) {
		old := Address(loadWord(slot))
		if dest, ok := cs.fwd.Lookup(old); ok {
			storeWord(slot, uintptr(dest))
		}
	})
}

// NextCompactionSpace implements CompactibleSpace.
func (cs *ContiguousSpace) NextCompactionSpace() CompactibleSpace { return cs.next }

// SetCompactionTop implements CompactibleSpace.
func (cs *ContiguousSpace) SetCompactionTop(top Address) {
	cs.compactionTop = top
	cs.entered = true
}

// ContiguousGeneration is the reference tier: one bump-pointer space
// spanning the committed portion of the reservation. It implements
// GenerationImpl and deliberately not ParallelPromoter.
type ContiguousGeneration struct {
	*Generation
	space *ContiguousSpace
	fwd   *Forwarding
}

// NewContiguousGeneration constructs the tier over cfg's reservation.
func NewContiguousGeneration(cfg GenerationConfig) (*ContiguousGeneration, error) {
	base, err := NewGeneration(cfg)
	if err != nil {
		return nil, err
	}
	cg := &ContiguousGeneration{
		Generation: base,
		fwd:        NewForwarding(),
	}
	cg.space = NewContiguousSpace(
		fmt.Sprintf("contiguous space %d", cfg.Level),
		base.Committed(),
		cg.fwd,
	)
	base.Bind(cg)
	return cg, nil
}

// Name implements GenerationImpl.
func (cg *ContiguousGeneration) Name() string {
	return fmt.Sprintf("contiguous generation %d", cg.Level())
}

// SpaceIterate implements GenerationImpl.
func (cg *ContiguousGeneration) SpaceIterate(visit func(Space)) {
	visit(cg.space)
}

// FirstCompactionSpace implements GenerationImpl.
func (cg *ContiguousGeneration) FirstCompactionSpace() CompactibleSpace {
	return cg.space
}

// Allocate implements GenerationImpl. With expand set, it commits more
// of the reservation before giving up.
func (cg *ContiguousGeneration) Allocate(wordCount int, expand bool) Address {
	a := cg.space.AllocateWords(wordCount)
	if a == NilAddress && expand {
		need := uintptr(wordCount) * WordSize
		if cg.vs.ExpandBy(need) {
			cg.space.setEnd(cg.vs.High())
			a = cg.space.AllocateWords(wordCount)
		}
	}
	return a
}

// ContiguousAvailable implements GenerationImpl.
func (cg *ContiguousGeneration) ContiguousAvailable() int {
	return cg.space.FreeWords()
}

// Capacity implements GenerationImpl.
func (cg *ContiguousGeneration) Capacity() uintptr { return cg.space.Capacity() }

// Used implements GenerationImpl.
func (cg *ContiguousGeneration) Used() uintptr { return cg.space.Used() }

// Space returns the tier's single space.
func (cg *ContiguousGeneration) Space() *ContiguousSpace { return cg.space }

// NewCompactPoint starts a compaction cycle targeting this tier's own
// space chain: the forwarding table is reset and the cursor placed at
// the head of the chain.
func (cg *ContiguousGeneration) NewCompactPoint() *CompactPoint {
	cg.fwd.Reset()
	return &CompactPoint{
		Gen:   cg.Generation,
		Space: cg.space,
		Fwd:   cg.fwd,
	}
}
