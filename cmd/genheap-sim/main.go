// Command genheap-sim drives the generational heap through synthetic
// allocate/die/promote/compact cycles and reports tier occupancy and
// collection statistics. It doubles as a smoke test for the promotion
// fallback and compaction pipeline.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	bytesize "github.com/inhies/go-bytesize"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/orizon-lang/genheap/internal/genheap"
	"github.com/orizon-lang/genheap/internal/heapconf"
)

func main() {
	app := &cli.App{
		Name:  "genheap-sim",
		Usage: "exercise the generational heap with synthetic mutator cycles",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "heap configuration file (YAML)"},
			&cli.IntFlag{Name: "objects", Value: 64, Usage: "objects allocated per cycle"},
			&cli.Float64Flag{Name: "survivor-fraction", Value: 0.5, Usage: "fraction of each cycle's objects that survive"},
			&cli.IntFlag{Name: "cycles", Value: 4, Usage: "number of mutator/collection cycles"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed"},
			&cli.StringFlag{Name: "http", Usage: "debug HTTP listen address (e.g. 127.0.0.1:0)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug-level logging"},
			&cli.BoolFlag{Name: "force-promotion-failure", Usage: "make every promotion report failure"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func run(c *cli.Context) error {
	log := logrus.New()
	if c.Bool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := heapconf.Default()
	if path := c.String("config"); path != "" {
		loaded, err := heapconf.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	flags := cfg.DebugFlags()
	if c.Bool("force-promotion-failure") {
		flags.ForcePromotionFailure = true
	}

	h, err := newSimHeap(cfg, flags, log)
	if err != nil {
		return err
	}

	httpAddr := cfg.Debug.HTTPAddr
	if a := c.String("http"); a != "" {
		httpAddr = a
	}
	if httpAddr != "" {
		bound, shutdown, err := genheap.StartDebugHTTP(
			[]*genheap.Generation{h.young.Generation, h.old.Generation}, httpAddr)
		if err != nil {
			return fmt.Errorf("debug http: %w", err)
		}
		log.WithField("addr", bound).Info("debug HTTP listening")
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	sim := &simulator{
		heap:    h,
		rng:     rand.New(rand.NewSource(c.Int64("seed"))),
		objects: c.Int("objects"),
		survive: c.Float64("survivor-fraction"),
		log:     log,
	}
	for cycle := 0; cycle < c.Int("cycles"); cycle++ {
		if err := sim.runCycle(cycle); err != nil {
			return err
		}
	}

	h.young.PrintSummaryInfo()
	h.old.PrintSummaryInfo()
	log.WithFields(logrus.Fields{
		"youngUsed": bytesize.New(float64(h.young.Used())).String(),
		"oldUsed":   bytesize.New(float64(h.old.Used())).String(),
	}).Info("simulation complete")
	return nil
}

// simHeap is the coordinator: it owns both tiers, answers their policy
// queries, and implements the system-wide promotion fallback.
type simHeap struct {
	young *genheap.ContiguousGeneration
	old   *genheap.ContiguousGeneration
	specs []genheap.GenerationSpec
	log   *logrus.Logger

	// compacting guards against the fallback re-entering itself while
	// it retries a promotion mid-compaction.
	compacting bool
}

func newSimHeap(cfg *heapconf.Config, flags genheap.DebugFlags, log *logrus.Logger) (*simHeap, error) {
	specs, err := cfg.GenerationSpecs()
	if err != nil {
		return nil, err
	}
	if len(specs) < 2 {
		return nil, fmt.Errorf("simulator needs a young and an old generation, have %d", len(specs))
	}
	h := &simHeap{specs: specs, log: log}

	for _, spec := range specs[:2] {
		rs, err := genheap.ReserveSpace(spec.MaxSize)
		if err != nil {
			return nil, err
		}
		g, err := genheap.NewContiguousGeneration(genheap.GenerationConfig{
			Heap:        h,
			Reserved:    rs,
			InitialSize: spec.InitialSize,
			Level:       spec.Level,
			Objects:     genheap.HeaderObjectModel{},
			Flags:       flags,
			Logger:      log,
		})
		if err != nil {
			return nil, err
		}
		g.RefProcessorInit()
		if spec.Level == genheap.YoungLevel {
			h.young = g
		} else {
			h.old = g
		}
	}
	return h, nil
}

func (h *simHeap) YoungGenSpec() *genheap.GenerationSpec { return &h.specs[genheap.YoungLevel] }

func (h *simHeap) OldGenSpec() *genheap.GenerationSpec { return &h.specs[genheap.OldLevel] }

func (h *simHeap) OldGen() *genheap.Generation { return h.old.Generation }

// HandleFailedPromotion compacts the old tier and retries the
// allocation once, with expansion permitted. A second failure is an
// out-of-memory condition.
func (h *simHeap) HandleFailedPromotion(from *genheap.Generation, obj genheap.Oop, wordCount int) (genheap.Oop, error) {
	h.log.WithFields(logrus.Fields{
		"from":  from.Name(),
		"words": wordCount,
	}).Warn("promotion failed, compacting old generation")

	if !h.compacting {
		h.compacting = true
		h.compactOld()
		h.compacting = false
	}

	dest := h.old.Allocate(wordCount, true)
	if dest == genheap.NilAddress {
		return genheap.NilAddress, &genheap.HeapError{
			Code:    genheap.ErrorOutOfMemory,
			Message: fmt.Sprintf("old generation cannot hold %d more words", wordCount),
		}
	}
	genheap.CopyDisjointWords(obj, dest, wordCount)
	return dest, nil
}

// compactOld runs the full three-phase pipeline over the old tier.
func (h *simHeap) compactOld() {
	start := time.Now()
	prev := h.old.Used()
	cp := h.old.NewCompactPoint()
	h.old.PrepareForCompaction(cp)
	h.old.Compact()
	h.old.AdjustPointers()
	h.old.StatRecord().RecordInvocation(time.Since(start))
	h.old.PrintHeapChange(prev)
}

type simulator struct {
	heap    *simHeap
	rng     *rand.Rand
	objects int
	survive float64
	log     *logrus.Logger

	// oldRoots are the promoted objects the mutator still references.
	oldRoots []genheap.Oop
}

// runCycle allocates a batch of young objects wired with random
// references, kills a fraction, promotes the survivors, patches the
// survivors' references through the move, and empties the young space.
func (s *simulator) runCycle(cycle int) error {
	young := s.heap.young
	prevYoung := young.Used()

	var batch []genheap.Oop
	for i := 0; i < s.objects; i++ {
		var refs []genheap.Oop
		if len(batch) > 0 && s.rng.Intn(2) == 0 {
			refs = append(refs, batch[s.rng.Intn(len(batch))])
		}
		payload := make([]uintptr, 1+s.rng.Intn(6))
		for j := range payload {
			payload[j] = uintptr(s.rng.Uint64())
		}
		obj := young.Space().AllocateObject(refs, payload)
		if obj == genheap.NilAddress {
			s.log.WithField("cycle", cycle).Debug("young generation full, ending batch early")
			break
		}
		batch = append(batch, obj)
	}

	// Death and survival.
	var survivors []genheap.Oop
	for _, obj := range batch {
		if s.rng.Float64() < s.survive {
			survivors = append(survivors, obj)
		} else {
			young.Space().MarkDead(obj)
		}
	}

	// Evacuate survivors into the old tier.
	start := time.Now()
	moved := make(map[genheap.Oop]genheap.Oop, len(survivors))
	for _, obj := range survivors {
		dest, err := s.heap.old.Promote(obj, genheap.ObjectSizeWords(obj))
		if err != nil {
			return fmt.Errorf("cycle %d: promote: %w", cycle, err)
		}
		moved[obj] = dest
	}

	// Patch references that pointed into the evacuated batch. Slots
	// naming dead objects are cleared rather than left dangling.
	for _, dest := range moved {
		n := genheap.ObjectRefCount(dest)
		for i := 0; i < n; i++ {
			target := genheap.ObjectRef(dest, i)
			if to, ok := moved[target]; ok {
				genheap.SetObjectRef(dest, i, to)
			} else if young.Space().IsIn(target) {
				genheap.SetObjectRef(dest, i, genheap.NilAddress)
			}
		}
		s.oldRoots = append(s.oldRoots, dest)
	}

	young.Space().Reset()
	young.StatRecord().RecordInvocation(time.Since(start))
	young.PrintHeapChange(prevYoung)

	s.log.WithFields(logrus.Fields{
		"cycle":     cycle,
		"allocated": len(batch),
		"promoted":  len(survivors),
		"oldUsed":   bytesize.New(float64(s.heap.old.Used())).String(),
	}).Info("cycle complete")
	return nil
}
