// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sim builds a full mesh of routers from a config.Config and
// drives its Compute/Commit tick loop. Nothing here is part of the
// router core itself; sim is
// the supporting harness a CLI or test needs to run more than one
// router at a time.
package sim

import (
	"noxim.dev/router/internal/config"
	"noxim.dev/router/internal/logging"
	"noxim.dev/router/internal/mesh"
	"noxim.dev/router/internal/metrics"
	"noxim.dev/router/internal/router"
)

// Mesh owns every router in a rectangular topology plus the shared
// state (drained-volume counter, logger) they were each built with.
type Mesh struct {
	Topology mesh.Topology
	Routers  []*router.Router

	drainedVolume uint64
	cycle         int64

	logger *logging.Logger
}

// Build constructs every router in cfg's mesh, wires cardinal neighbors
// together with router.Connect, and returns the assembled Mesh.
func Build(cfg config.Config, logger *logging.Logger) (*Mesh, error) {
	topo := mesh.Topology{DimX: cfg.MeshDimX, DimY: cfg.MeshDimY}
	n := cfg.MeshDimX * cfg.MeshDimY

	m := &Mesh{Topology: topo, Routers: make([]*router.Router, n), logger: logger}

	for id := 0; id < n; id++ {
		rcfg := router.Config{
			ID:                id,
			Topology:          topo,
			BufferCapacity:    cfg.BufferDepth,
			DeadlockThreshold: cfg.DeadlockThreshold,
			RoutingAlgorithm:  cfg.RoutingAlgorithm,
			SelectionStrategy: cfg.SelectionStrategy,
			DyadThreshold:     cfg.DyadThreshold,
			RNGSeed:           cfg.RNGSeed + int64(id),

			MaxVolumeToBeDrained: cfg.MaxVolumeToBeDrained,
			DrainedVolume:        &m.drainedVolume,

			UseRadioHub:  cfg.UseRadioHub,
			HasRadioHub:  cfg.HasRadioHub,
			SameRadioHub: cfg.SameRadioHub,
		}
		r, err := router.New(rcfg, logger, &router.CountingPower{})
		if err != nil {
			return nil, err
		}
		m.Routers[id] = r
	}

	for id := 0; id < n; id++ {
		r := m.Routers[id]
		if east := topo.NeighborID(id, mesh.East); east != mesh.NotValid {
			router.Connect(r, m.Routers[east], mesh.East)
		}
		if south := topo.NeighborID(id, mesh.South); south != mesh.NotValid {
			router.Connect(r, m.Routers[south], mesh.South)
		}
	}

	return m, nil
}

// Tick advances every router by one cycle: Compute for all, then Commit
// for all, so no router ever observes a neighbor mid-cycle. It returns
// false once any router's MaxVolumeToBeDrained stop condition has
// tripped.
func (m *Mesh) Tick() bool {
	for _, r := range m.Routers {
		r.Compute()
	}
	for _, r := range m.Routers {
		r.Commit()
	}
	m.cycle++
	for _, r := range m.Routers {
		if r.StopRequested() {
			return false
		}
	}
	return true
}

// Cycle returns how many ticks have run.
func (m *Mesh) Cycle() int64 { return m.cycle }

// DrainedVolume returns the mesh-wide count of flits delivered to any
// router's LOCAL port.
func (m *Mesh) DrainedVolume() uint64 { return m.drainedVolume }

// Snapshot builds a metrics.RouterSnapshot for every router, for
// sampling loops that feed a metrics.Registry.
func (m *Mesh) Snapshot() []metrics.RouterSnapshot {
	out := make([]metrics.RouterSnapshot, len(m.Routers))
	for i, r := range m.Routers {
		occ := make(map[int]int, mesh.NumPorts)
		for port, st := range r.ShowBuffersStats() {
			occ[port] = int(st.Pushed - st.Popped)
		}
		out[i] = metrics.RouterSnapshot{
			ID:             r.ID(),
			RoutedFlits:    r.GetRoutedFlits(),
			DrainedFlits:   r.GetLocalDrained(),
			BufferOccupied: occ,
			InCongestion:   r.InCongestion(),
		}
	}
	return out
}
