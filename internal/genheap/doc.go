// Package genheap implements the generation abstraction layer of a
// generational garbage collector: one age tier of the managed heap, the
// virtual-memory reservation backing it, the spaces that subdivide it,
// and the tier-level protocols a collector driver invokes during a
// collection cycle.
//
// The package owns four protocols:
//
//   - reservation and identity of the backing memory range
//     (ReservedSpace, VirtualSpace, Generation construction),
//   - the space-iteration mechanism that implements generic containment
//     and block queries without the tier exposing its internal layout,
//   - object promotion into the tier, including the coordinator
//     fallback on local allocation failure,
//   - the compaction pipeline (prepare, compact, adjust pointers).
//
// Concrete spaces and the top-level heap coordinator are consumed
// through the Space, CompactibleSpace and Heap interfaces. A reference
// bump-pointer implementation (ContiguousSpace, ContiguousGeneration)
// is included for drivers and tests; the generic protocols never depend
// on it.
//
// All protocols are invoked by a single collector driver during a
// stop-the-world pause. Nothing in this package is internally
// concurrent; parallel promotion is an opt-in capability concrete tiers
// implement through ParallelPromoter.
package genheap
