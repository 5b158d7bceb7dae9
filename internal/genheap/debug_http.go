package genheap

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// GenerationSnapshot is the JSON shape one tier reports over the debug
// HTTP surface.
type GenerationSnapshot struct {
	Name          string          `json:"name"`
	Level         int             `json:"level"`
	Capacity      uint64          `json:"capacity"`
	Used          uint64          `json:"used"`
	MaxCapacity   uint64          `json:"maxCapacity"`
	ReservedStart string          `json:"reservedStart"`
	ReservedEnd   string          `json:"reservedEnd"`
	Invocations   int             `json:"invocations"`
	AccumulatedNS int64           `json:"accumulatedNs"`
	Spaces        []SpaceSnapshot `json:"spaces"`
}

// SpaceSnapshot describes one constituent space.
type SpaceSnapshot struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// HeapSnapshot is the whole-heap view: one entry per tier, youngest
// first.
type HeapSnapshot struct {
	Generations []GenerationSnapshot `json:"generations"`
}

func snapshotGeneration(g *Generation) GenerationSnapshot {
	snap := GenerationSnapshot{
		Name:          g.Name(),
		Level:         g.Level(),
		Capacity:      uint64(g.Capacity()),
		Used:          uint64(g.Used()),
		MaxCapacity:   uint64(g.MaxCapacity()),
		ReservedStart: fmt.Sprintf("%#x", uintptr(g.Reserved().Start)),
		ReservedEnd:   fmt.Sprintf("%#x", uintptr(g.Reserved().End)),
		Invocations:   g.StatRecord().Invocations,
		AccumulatedNS: g.StatRecord().AccumulatedTime.Nanoseconds(),
	}
	g.impl.SpaceIterate(func(s Space) {
		b := s.Bounds()
		snap.Spaces = append(snap.Spaces, SpaceSnapshot{
			Name:  s.Name(),
			Start: fmt.Sprintf("%#x", uintptr(b.Start)),
			End:   fmt.Sprintf("%#x", uintptr(b.End)),
		})
	})
	return snap
}

// StartDebugHTTP starts a lightweight HTTP server exposing diagnostic
// endpoints for the given tiers:
//
//	GET /heap                     -> JSON of HeapSnapshot
//	GET /heap/generations?level=N -> JSON of one GenerationSnapshot
//
// addr may use :0; the bound address is returned alongside a shutdown
// function compatible with http.Server.Shutdown. Handlers read tier
// state without synchronization, so the server is meant for paused or
// single-threaded diagnostics.
func StartDebugHTTP(gens []*Generation, addr string) (boundAddr string, shutdown func(ctx context.Context) error, err error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/heap", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		snap := HeapSnapshot{}
		for _, g := range gens {
			snap.Generations = append(snap.Generations, snapshotGeneration(g))
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(snap)
	})

	mux.HandleFunc("/heap/generations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		levelStr := r.URL.Query().Get("level")
		if levelStr == "" {
			http.Error(w, "missing level", http.StatusBadRequest)
			return
		}
		level, err := strconv.Atoi(levelStr)
		if err != nil {
			http.Error(w, "invalid level", http.StatusBadRequest)
			return
		}
		for _, g := range gens {
			if g.Level() == level {
				enc := json.NewEncoder(w)
				enc.SetEscapeHTML(false)
				_ = enc.Encode(snapshotGeneration(g))
				return
			}
		}
		http.Error(w, "not found", http.StatusNotFound)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 3 * time.Second}
	go func() { _ = server.Serve(ln) }()
	return ln.Addr().String(), server.Shutdown, nil
}
