// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package selection implements the arbitration policies that pick one
// output direction among the candidates a routing algorithm offers. A
// policy never runs when there is only one candidate — the router
// short-circuits that case itself — so every Policy here can assume
// len(candidates) > 1.
package selection

import (
	"math/rand"
	"sort"
	"sync"

	"noxim.dev/router/internal/flit"
	"noxim.dev/router/internal/mesh"
)

// NeighborView is what a selection policy needs to know about one
// candidate direction: its locally-known free-slot count, whether it
// is reachable, and which node it leads to. The one-hop lookahead a
// NoP-aware policy relies on comes through NoPLookup, not this struct.
type NeighborView struct {
	Direction  mesh.Direction
	FreeSlots  int
	Reachable  bool
	NeighborID int
}

// NoPLookup resolves one hop further: given the node a candidate
// direction leads to, and the RouteData the flit would carry on
// arrival there, it returns that neighbor's own routing candidates and
// its last-published NoP free-slot data for each of ITS candidate
// directions, so a policy can score a candidate by how free its own
// next choices would be, not just the immediate link.
type NoPLookup func(nextHopID int, rd flit.RouteData) (candidates []mesh.Direction, freeSlotsByDirection map[mesh.Direction]int)

// Policy picks one of cands (len > 1) given each candidate's
// NeighborView. rng supplies tie-breaking randomness; nop is nil unless
// the policy needs one-hop lookahead.
type Policy func(rng *rand.Rand, rd flit.RouteData, views []NeighborView, topo mesh.Topology, nop NoPLookup) mesh.Direction

var (
	mu       sync.RWMutex
	registry = map[string]Policy{}
)

// Register adds a policy under name, overwriting any existing
// registration. Intended to run from package init functions.
func Register(name string, p Policy) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = p
}

// Lookup returns the policy registered under name.
func Lookup(name string) (Policy, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// Names returns the currently registered policy names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("RANDOM", Random)
	Register("BUFFER_LEVEL", BufferLevel)
	Register("NOP", NoP)
}

// Random picks uniformly among the candidates.
func Random(rng *rand.Rand, rd flit.RouteData, views []NeighborView, topo mesh.Topology, nop NoPLookup) mesh.Direction {
	return views[rng.Intn(len(views))].Direction
}

// BufferLevel picks the candidate with the most free slots, breaking
// ties uniformly at random; unreachable candidates (no neighbor in
// that direction, or the output is already reserved) are skipped. If
// none of the candidates are reachable, it falls back to a uniform
// random choice over all candidates.
func BufferLevel(rng *rand.Rand, rd flit.RouteData, views []NeighborView, topo mesh.Topology, nop NoPLookup) mesh.Direction {
	best := -1
	var bestViews []NeighborView
	for _, v := range views {
		if !v.Reachable {
			continue
		}
		switch {
		case v.FreeSlots > best:
			best = v.FreeSlots
			bestViews = []NeighborView{v}
		case v.FreeSlots == best:
			bestViews = append(bestViews, v)
		}
	}
	if len(bestViews) == 0 {
		return views[rng.Intn(len(views))].Direction
	}
	return bestViews[rng.Intn(len(bestViews))].Direction
}

// NoP scores each candidate by re-invoking the routing algorithm one
// hop further on and summing the free-slot counts the neighbor last
// published for ITS candidate directions.
// Candidates the lookup can't resolve (no nop function, or the
// neighbor offers no further candidates) fall back to that candidate's
// own immediate FreeSlots. Ties break uniformly at random.
func NoP(rng *rand.Rand, rd flit.RouteData, views []NeighborView, topo mesh.Topology, nop NoPLookup) mesh.Direction {
	scores := make([]int, len(views))
	for i, v := range views {
		scores[i] = nopScore(v, rd, topo, nop)
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s > best {
			best = s
		}
	}
	var tied []mesh.Direction
	for i, s := range scores {
		if s == best {
			tied = append(tied, views[i].Direction)
		}
	}
	return tied[rng.Intn(len(tied))]
}

func nopScore(v NeighborView, rd flit.RouteData, topo mesh.Topology, nop NoPLookup) int {
	if !v.Reachable {
		return -1
	}
	if nop == nil {
		return v.FreeSlots
	}
	nextRD := flit.RouteData{CurrentID: v.NeighborID, SrcID: rd.SrcID, DstID: rd.DstID, DirIn: mesh.Reflex(v.Direction)}
	cands, freeByDir := nop(v.NeighborID, nextRD)
	if len(cands) == 0 {
		return v.FreeSlots
	}
	total := 0
	for _, c := range cands {
		total += freeByDir[c]
	}
	return total
}
