package genheap

import "time"

// StatRecord accumulates per-tier collection time and invocation
// counts. The collector driver is the only writer; the core does not
// serialize access.
type StatRecord struct {
	AccumulatedTime time.Duration
	Invocations     int
}

// RecordInvocation adds one collection of duration d.
func (sr *StatRecord) RecordInvocation(d time.Duration) {
	sr.AccumulatedTime += d
	sr.Invocations++
}

// AverageTime returns the mean collection duration, or zero before the
// first invocation.
func (sr *StatRecord) AverageTime() time.Duration {
	if sr.Invocations == 0 {
		return 0
	}
	return sr.AccumulatedTime / time.Duration(sr.Invocations)
}
