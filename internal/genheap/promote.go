package genheap

import "fmt"

// ParallelPromoter is the opt-in capability for worker-local promotion.
// Thread-safe promotion must be implemented explicitly by a concrete
// tier; there is no generic fallback. The method name differs from
// Generation.ParPromote so that a tier embedding Generation cannot
// inherit its way into the capability.
type ParallelPromoter interface {
	PromoteForWorker(worker int, obj Oop, wordCount int) (Oop, error)
}

// Promote copies obj into this generation and returns the promoted
// copy's identity. wordCount must equal the object's self-reported
// size; a mismatch is a programming error. On local allocation failure
// the generation never decides the fallback policy itself: it defers to
// the coordinator's HandleFailedPromotion.
func (g *Generation) Promote(obj Oop, wordCount int) (Oop, error) {
	if g.objects != nil {
		if sz := g.objects.SizeOf(obj); sz != wordCount {
			panic(fmt.Sprintf("genheap: bad object size %d passed in, object reports %d", wordCount, sz))
		}
	}

	if g.flags.promotionShouldFail() {
		return NilAddress, &HeapError{
			Code:    ErrorPromotionFailed,
			Message: "forced promotion failure",
		}
	}

	result := g.impl.Allocate(wordCount, false)
	if result == NilAddress {
		return g.heap.HandleFailedPromotion(g, obj, wordCount)
	}
	copyAlignedDisjointWords(obj, result, wordCount)
	return result, nil
}

// ParPromote promotes obj on behalf of a specific worker. A generic
// implementation could take a lock here. But no: that would hide a
// performance bug, so a tier without explicit parallel promotion
// support must never be asked.
func (g *Generation) ParPromote(worker int, obj Oop, wordCount int) (Oop, error) {
	pp, ok := g.impl.(ParallelPromoter)
	if !ok {
		panic(fmt.Sprintf("genheap: ParPromote called on %q, which does not support parallel promotion", g.Name()))
	}
	return pp.PromoteForWorker(worker, obj, wordCount)
}
