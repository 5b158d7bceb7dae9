package genheap

import (
	"fmt"

	bytesize "github.com/inhies/go-bytesize"
	"github.com/sirupsen/logrus"
)

// Tier levels in the two-tier model. The coordinator may define more
// tiers; Spec only routes the first two.
const (
	YoungLevel = 0
	OldLevel   = 1
)

// GenerationSpec is the sizing and layout policy associated with one
// tier, supplied by the heap coordinator.
type GenerationSpec struct {
	Name        string
	Level       int
	InitialSize uintptr // bytes committed at construction
	MaxSize     uintptr // bytes reserved
}

// Heap is the coordinator surface a generation consumes: policy lookup
// by tier, generation-chain traversal, and the system-wide fallback for
// promotions the local tier cannot satisfy.
type Heap interface {
	YoungGenSpec() *GenerationSpec
	OldGenSpec() *GenerationSpec

	// OldGen returns the old tier for chain traversal.
	OldGen() *Generation

	// HandleFailedPromotion implements the system-wide fallback when
	// from could not allocate wordCount words for obj: retry in another
	// tier, trigger a fuller collection, or report ErrOutOfMemory.
	HandleFailedPromotion(from *Generation, obj Oop, wordCount int) (Oop, error)
}

// ObjectModel reports an object's self-described size in words. The
// object-header layout itself is outside this package.
type ObjectModel interface {
	SizeOf(obj Oop) int
}

// GenerationImpl supplies the concrete pieces the generic Generation
// protocols are built on. Concrete tiers implement it and bind
// themselves to their embedded Generation.
type GenerationImpl interface {
	Name() string

	// SpaceIterate invokes visit once per constituent space, in the
	// tier's defined order.
	SpaceIterate(visit func(Space))

	// FirstCompactionSpace heads the compaction-space chain; nil for a
	// tier with no compaction-capable spaces.
	FirstCompactionSpace() CompactibleSpace

	// Allocate returns wordCount words of fresh space within the tier,
	// or NilAddress. expand permits committing more of the reservation.
	Allocate(wordCount int, expand bool) Address

	// ContiguousAvailable returns the largest single allocation, in
	// words, the tier could currently satisfy.
	ContiguousAvailable() int

	// Capacity and Used are committed and occupied bytes.
	Capacity() uintptr
	Used() uintptr
}

// GenerationConfig carries everything a generation needs at
// construction. Diagnostic switches are injected here rather than read
// from package globals.
type GenerationConfig struct {
	Heap        Heap
	Reserved    ReservedSpace
	InitialSize uintptr
	Level       int
	Objects     ObjectModel
	Flags       DebugFlags
	Logger      *logrus.Logger
}

// Generation owns one age tier of the managed heap: the virtual-memory
// reservation backing it and the generic tier-level protocols. Concrete
// layout, allocation and compaction mechanics come from the bound
// GenerationImpl.
type Generation struct {
	level    int
	heap     Heap
	vs       VirtualSpace
	reserved MemRegion
	refProc  *ReferenceProcessor
	stats    StatRecord
	objects  ObjectModel
	flags    DebugFlags
	log      *logrus.Entry
	impl     GenerationImpl
}

// NewGeneration reserves initialSize bytes of cfg.Reserved through the
// generation's virtual space and records the reservation's full extent
// as the tier's permanent address ceiling. Failure to commit the
// initial size is a fatal initialization error (ErrInitFailed); the
// embedding driver must not continue.
func NewGeneration(cfg GenerationConfig) (*Generation, error) {
	g := &Generation{
		level:   cfg.Level,
		heap:    cfg.Heap,
		objects: cfg.Objects,
		flags:   cfg.Flags,
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	g.log = logger.WithField("generation", cfg.Level)

	if err := g.vs.Initialize(cfg.Reserved, cfg.InitialSize); err != nil {
		return nil, fmt.Errorf("could not reserve enough space for object heap: %w", err)
	}
	if g.flags.ZapUnusedHeap {
		zapRegion(MemRegion{Start: g.vs.LowBoundary(), End: g.vs.HighBoundary()})
	}
	g.reserved = MemRegion{Start: g.vs.LowBoundary(), End: g.vs.HighBoundary()}
	return g, nil
}

// Bind attaches the concrete tier implementation. It must be called
// exactly once, by the concrete tier's constructor, before any protocol
// method runs.
func (g *Generation) Bind(impl GenerationImpl) {
	if impl == nil {
		panic("genheap: nil generation implementation")
	}
	if g.impl != nil {
		panic("genheap: generation implementation already bound")
	}
	g.impl = impl
}

// Level returns the tier index; 0 is the youngest.
func (g *Generation) Level() int { return g.level }

// Name returns the concrete tier's name.
func (g *Generation) Name() string {
	if g.impl == nil {
		return fmt.Sprintf("generation %d", g.level)
	}
	return g.impl.Name()
}

// Reserved returns the tier's permanent address ceiling: the full
// extent of the reservation, fixed at construction.
func (g *Generation) Reserved() MemRegion { return g.reserved }

// Committed returns the currently committed address interval.
func (g *Generation) Committed() MemRegion {
	return MemRegion{Start: g.vs.Low(), End: g.vs.High()}
}

// MaxCapacity returns the byte size of the reserved range: the hard
// ceiling, distinct from currently committed capacity.
func (g *Generation) MaxCapacity() uintptr { return g.reserved.ByteSize() }

// Capacity returns the tier's committed bytes.
func (g *Generation) Capacity() uintptr { return g.impl.Capacity() }

// Used returns the tier's occupied bytes.
func (g *Generation) Used() uintptr { return g.impl.Used() }

// Spec returns the sizing policy for this tier's level from the heap
// coordinator. A level outside the two-tier model is a programming
// error.
func (g *Generation) Spec() *GenerationSpec {
	if g.level != YoungLevel && g.level != OldLevel {
		panic(fmt.Sprintf("genheap: bad generation level %d", g.level))
	}
	if g.level == YoungLevel {
		return g.heap.YoungGenSpec()
	}
	return g.heap.OldGenSpec()
}

// NextGen returns the next older tier, or nil if this is the oldest.
// The chain is coordinator-owned; the generation holds no pointer to
// it.
func (g *Generation) NextGen() *Generation {
	if g.level == YoungLevel {
		return g.heap.OldGen()
	}
	return nil
}

// ContiguousAvailable returns the largest allocation, in words, this
// tier could currently satisfy.
func (g *Generation) ContiguousAvailable() int {
	return g.impl.ContiguousAvailable()
}

// MaxContiguousAvailable returns the largest number of contiguous free
// words in this or any older generation. An object that cannot be
// promoted into the immediately next tier might still fit if that tier
// itself promotes further up the chain during the same pause.
func (g *Generation) MaxContiguousAvailable() int {
	max := 0
	for gen := g; gen != nil; gen = gen.NextGen() {
		if avail := gen.ContiguousAvailable(); avail > max {
			max = avail
		}
	}
	return max
}

// PromotionAttemptIsSafe reports whether a collection phase expected to
// promote at most maxPromotionWords can be started at all.
func (g *Generation) PromotionAttemptIsSafe(maxPromotionWords int) bool {
	available := g.MaxContiguousAvailable()
	safe := available >= maxPromotionWords
	g.log.WithFields(logrus.Fields{
		"available":    available,
		"maxPromotion": maxPromotionWords,
		"safe":         safe,
	}).Debug("promotion attempt safety check")
	return safe
}

// StatRecord returns the tier's collection statistics. Only the
// collector driver writes it; the pause model serializes access.
func (g *Generation) StatRecord() *StatRecord { return &g.stats }

// PrintHeapChange logs the tier's occupancy movement after a
// collection, given the pre-collection used bytes.
func (g *Generation) PrintHeapChange(prevUsed uintptr) {
	g.log.WithFields(logrus.Fields{
		"name":     g.Name(),
		"before":   bytesize.New(float64(prevUsed)).String(),
		"after":    bytesize.New(float64(g.Used())).String(),
		"capacity": bytesize.New(float64(g.Capacity())).String(),
	}).Info("heap change")
}

// PrintSummaryInfo logs the accumulated collection statistics for this
// tier.
func (g *Generation) PrintSummaryInfo() {
	g.log.WithFields(logrus.Fields{
		"name":        g.Name(),
		"accumulated": g.stats.AccumulatedTime,
		"invocations": g.stats.Invocations,
		"average":     g.stats.AverageTime(),
	}).Info("accumulated GC time")
}
