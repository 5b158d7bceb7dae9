package genheap

import "fmt"

// Generic query implementations. Each builds a single-use visitor
// carrying the query input and an output slot, iterates every space in
// tier order, and captures the first answer. Later spaces are still
// visited; the generic path trades early exit for simplicity. These are
// mediocre general implementations by design: concrete tiers should
// shadow them with direct, non-iterating versions on hot paths.

// IsIn reports whether p lies within some space's reserved range. This
// is a bounds check, not a liveness check, and is consistent with
// SpaceContaining returning non-nil.
func (g *Generation) IsIn(p Address) bool {
	found := false
	g.impl.SpaceIterate(func(s Space) {
		if !found && s.IsInReserved(p) {
			found = true
		}
	})
	return found
}

// SpaceContaining returns the space whose reserved range contains p,
// or nil.
func (g *Generation) SpaceContaining(p Address) Space {
	var sp Space
	g.impl.SpaceIterate(func(s Space) {
		if sp == nil && s.IsInReserved(p) {
			sp = s
		}
	})
	return sp
}

// BlockStart returns the start address of the block containing p,
// delegating to the owning space, or NilAddress when no space claims p.
func (g *Generation) BlockStart(p Address) Address {
	start := NilAddress
	g.impl.SpaceIterate(func(s Space) {
		if start == NilAddress && s.IsInReserved(p) {
			start = s.BlockStart(p)
		}
	})
	return start
}

// BlockSize returns the size in words of the block at p. A zero-size
// result is a consistency violation and panics; it must never occur for
// an address inside a live block.
func (g *Generation) BlockSize(p Address) int {
	size := 0
	g.impl.SpaceIterate(func(s Space) {
		if size == 0 && s.IsInReserved(p) {
			size = s.BlockSize(p)
		}
	})
	if size <= 0 {
		panic(fmt.Sprintf("genheap: zero-size block at %#x", uintptr(p)))
	}
	return size
}

// BlockIsObj reports whether the block at p is a live, well-formed
// object per the owning space.
func (g *Generation) BlockIsObj(p Address) bool {
	isObj := false
	g.impl.SpaceIterate(func(s Space) {
		if !isObj && s.IsInReserved(p) {
			isObj = s.BlockIsObj(p)
		}
	})
	return isObj
}

// OopIterate invokes visit on every live reference field across every
// space, in space order.
func (g *Generation) OopIterate(visit OopVisitor) {
	g.impl.SpaceIterate(func(s Space) {
		s.OopIterate(visit)
	})
}

// ObjectIterate invokes visit on every object across every space, in
// space order.
func (g *Generation) ObjectIterate(visit ObjectVisitor) {
	g.impl.SpaceIterate(func(s Space) {
		s.ObjectIterate(visit)
	})
}

// SafeObjectIterate is ObjectIterate hardened against concurrent
// mutation hazards; hazard handling is delegated to each space.
func (g *Generation) SafeObjectIterate(visit ObjectVisitor) {
	g.impl.SpaceIterate(func(s Space) {
		s.SafeObjectIterate(visit)
	})
}
