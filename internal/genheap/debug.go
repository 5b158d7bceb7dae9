package genheap

// DebugFlags carries the diagnostic switches a generation honors. They
// are injected at construction so the core stays deterministic and
// testable; there are no package-global toggles.
type DebugFlags struct {
	// ZapUnusedHeap pre-fills the entire reserved range with the
	// unused-memory pattern at construction, so uninitialized reads are
	// recognizable.
	ZapUnusedHeap bool

	// ForcePromotionFailure makes every Promote call report failure,
	// for exercising caller failure paths.
	ForcePromotionFailure bool

	// PromotionFailureFunc, when set, gates forced promotion failure
	// per call and takes precedence over ForcePromotionFailure.
	PromotionFailureFunc func() bool
}

func (f DebugFlags) promotionShouldFail() bool {
	if f.PromotionFailureFunc != nil {
		return f.PromotionFailureFunc()
	}
	return f.ForcePromotionFailure
}
