package genheap

// ReferenceProcessor discovers reference objects within one
// generation's reserved span. The default processor is single threaded;
// generations needing multi-threaded discovery wrap their own.
type ReferenceProcessor struct {
	span            MemRegion
	discoveryActive bool
	discovered      []Oop
}

// NewReferenceProcessor returns a processor scoped to span.
func NewReferenceProcessor(span MemRegion) *ReferenceProcessor {
	return &ReferenceProcessor{span: span}
}

// Span returns the address range the processor discovers within.
func (rp *ReferenceProcessor) Span() MemRegion { return rp.span }

// EnableDiscovery starts accepting Discover calls.
func (rp *ReferenceProcessor) EnableDiscovery() { rp.discoveryActive = true }

// DisableDiscovery stops accepting Discover calls.
func (rp *ReferenceProcessor) DisableDiscovery() { rp.discoveryActive = false }

// DiscoveryActive reports whether discovery is accepting references.
func (rp *ReferenceProcessor) DiscoveryActive() bool { return rp.discoveryActive }

// Discover records ref for later processing. It reports whether the
// reference was taken: discovery must be active and ref must lie within
// the processor's span.
func (rp *ReferenceProcessor) Discover(ref Oop) bool {
	if !rp.discoveryActive || !rp.span.Contains(ref) {
		return false
	}
	rp.discovered = append(rp.discovered, ref)
	return true
}

// DrainDiscovered returns and clears the discovered references.
func (rp *ReferenceProcessor) DrainDiscovered() []Oop {
	refs := rp.discovered
	rp.discovered = nil
	return refs
}

// RefProcessorInit creates this generation's reference processor,
// scoped to its reserved range. It is an explicit post-construction
// step; calling it twice, or on a generation with an empty reserved
// range, is a programming error.
func (g *Generation) RefProcessorInit() {
	if g.refProc != nil {
		panic("genheap: a reference processor already exists")
	}
	if g.reserved.IsEmpty() {
		panic("genheap: empty generation")
	}
	g.refProc = NewReferenceProcessor(g.reserved)
}

// RefProcessor returns the generation's reference processor, or nil
// before RefProcessorInit.
func (g *Generation) RefProcessor() *ReferenceProcessor { return g.refProc }
