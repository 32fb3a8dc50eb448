// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package routing implements routing algorithms as pure functions of
// RouteData and topology. Algorithms never touch
// router or buffer state directly; they are registered by name so
// configuration can select one without the rest of the router core
// knowing which is in use.
package routing

import (
	"fmt"
	"sort"
	"sync"

	"noxim.dev/router/internal/flit"
	"noxim.dev/router/internal/mesh"
)

// Algorithm computes the set of candidate output directions for rd
// given topo. A deterministic algorithm always returns exactly one
// candidate; an adaptive algorithm may return several, left to the
// selection policy to arbitrate.
type Algorithm func(rd flit.RouteData, topo mesh.Topology) []mesh.Direction

var (
	mu       sync.RWMutex
	registry = map[string]Algorithm{}
)

// Register adds an algorithm under name, overwriting any existing
// registration. Intended to run from package init functions.
func Register(name string, alg Algorithm) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = alg
}

// Lookup returns the algorithm registered under name.
func Lookup(name string) (Algorithm, bool) {
	mu.RLock()
	defer mu.RUnlock()
	alg, ok := registry[name]
	return alg, ok
}

// Names returns the currently registered algorithm names, sorted.
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
	Register("XY", XY)
	Register("MINIMAL_ADAPTIVE", MinimalAdaptive)
}

// XY is dimension-order routing: correct all X displacement before any
// Y displacement, terminating at LOCAL once both coordinates match.
// It is the deterministic baseline routing algorithm.
func XY(rd flit.RouteData, topo mesh.Topology) []mesh.Direction {
	if rd.CurrentID == rd.DstID {
		return []mesh.Direction{mesh.Local}
	}
	cur := topo.IDToCoord(rd.CurrentID)
	dst := topo.IDToCoord(rd.DstID)

	if cur.X != dst.X {
		if dst.X > cur.X {
			return []mesh.Direction{mesh.East}
		}
		return []mesh.Direction{mesh.West}
	}
	if dst.Y > cur.Y {
		return []mesh.Direction{mesh.South}
	}
	return []mesh.Direction{mesh.North}
}

// MinimalAdaptive returns every cardinal direction that makes minimal
// (non-backtracking) progress toward the destination in either
// dimension, leaving the choice among them to the selection policy —
// it may return more than one candidate. It drops the direction a flit
// arrived from (no 180-degree turns) unless that is the only minimal
// candidate, in which case it returns it anyway so the packet keeps
// moving. Once aligned on one axis it returns the single direction
// along the other axis, as XY would.
func MinimalAdaptive(rd flit.RouteData, topo mesh.Topology) []mesh.Direction {
	if rd.CurrentID == rd.DstID {
		return []mesh.Direction{mesh.Local}
	}
	cur := topo.IDToCoord(rd.CurrentID)
	dst := topo.IDToCoord(rd.DstID)

	var candidates []mesh.Direction
	if dst.X > cur.X {
		candidates = append(candidates, mesh.East)
	} else if dst.X < cur.X {
		candidates = append(candidates, mesh.West)
	}
	if dst.Y > cur.Y {
		candidates = append(candidates, mesh.South)
	} else if dst.Y < cur.Y {
		candidates = append(candidates, mesh.North)
	}

	in := rd.DirIn
	filtered := candidates[:0]
	for _, d := range candidates {
		if d != in {
			filtered = append(filtered, d)
		}
	}
	if len(filtered) == 0 {
		// Both minimal directions were ruled out (can only happen for
		// a single-axis displacement arriving head-on); fall back to
		// the unfiltered candidate so the packet keeps moving.
		return candidates
	}
	return filtered
}

// String is a debugging helper for tests and NoP_report-style output.
func String(cands []mesh.Direction) string {
	s := ""
	for i, d := range cands {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprint(d)
	}
	return s
}
