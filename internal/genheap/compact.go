package genheap

import "fmt"

// Forwarding records old-to-new object addresses for one compaction
// cycle. It lives outside the objects themselves so the fixed phase
// order prepare -> compact -> adjust-pointers can resolve old addresses
// after the move phase has already overwritten the source memory.
type Forwarding struct {
	m map[Address]Address
}

// NewForwarding returns an empty forwarding table.
func NewForwarding() *Forwarding {
	return &Forwarding{m: make(map[Address]Address)}
}

// Reset discards all recorded forwardings.
func (f *Forwarding) Reset() {
	if f == nil {
		return
	}
	for k := range f.m {
		delete(f.m, k)
	}
}

// Forward records that the object at old relocates to new.
func (f *Forwarding) Forward(old, new Address) {
	f.m[old] = new
}

// Lookup returns the recorded destination of old.
func (f *Forwarding) Lookup(old Address) (Address, bool) {
	if f == nil {
		return NilAddress, false
	}
	a, ok := f.m[old]
	return a, ok
}

// Len returns the number of recorded forwardings.
func (f *Forwarding) Len() int {
	if f == nil {
		return 0
	}
	return len(f.m)
}

// CompactPoint is the shared placement cursor for one compaction cycle:
// the destination space currently being filled, the next free address
// within it, and the forwarding table the cycle records into.
type CompactPoint struct {
	Gen   *Generation
	Space CompactibleSpace
	Free  Address // next destination address; NilAddress means start of Space
	Fwd   *Forwarding
}

// Allocate reserves wordCount words at the compaction point, advancing
// to the next space in the destination chain when the current one is
// full. Running out of destination spaces is a driver defect: the
// pipeline placed more live data than the chain can hold.
func (cp *CompactPoint) Allocate(wordCount int) Address {
	for {
		if cp.Space == nil {
			panic("genheap: compaction ran out of destination spaces")
		}
		if cp.Free == NilAddress {
			cp.Free = cp.Space.Bounds().Start
			cp.Space.SetCompactionTop(cp.Free)
		}
		next := cp.Free + Address(uintptr(wordCount)*WordSize)
		if next <= cp.Space.Bounds().End {
			a := cp.Free
			cp.Free = next
			cp.Space.SetCompactionTop(next)
			return a
		}
		cp.Space = cp.Space.NextCompactionSpace()
		cp.Free = NilAddress
	}
}

// PrepareForCompaction walks the tier's compaction-space chain in its
// fixed order, asking each space to reserve post-compaction placements
// against cp. A tier with no compaction-capable spaces is a no-op.
func (g *Generation) PrepareForCompaction(cp *CompactPoint) {
	if cp.Fwd == nil {
		panic("genheap: compaction point has no forwarding table")
	}
	for sp := g.impl.FirstCompactionSpace(); sp != nil; sp = sp.NextCompactionSpace() {
		sp.PrepareForCompaction(cp)
	}
}

// Compact walks the compaction-space chain in the same order as
// PrepareForCompaction, relocating live objects into their reserved
// placements.
func (g *Generation) Compact() {
	for sp := g.impl.FirstCompactionSpace(); sp != nil; sp = sp.NextCompactionSpace() {
		sp.Compact()
	}
}

// AdjustPointers rewrites reference fields across all spaces, not just
// the compactible ones.
func (g *Generation) AdjustPointers() {
	g.impl.SpaceIterate(func(s Space) {
		s.AdjustPointers()
	})
}

func (g *Generation) String() string {
	return fmt.Sprintf("%s [%#x, %#x)", g.Name(), uintptr(g.reserved.Start), uintptr(g.reserved.End))
}
